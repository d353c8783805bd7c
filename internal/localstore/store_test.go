package localstore_test

import (
	"testing"

	"github.com/spf13/afero"

	"zenstream/internal/localstore"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := localstore.NewWithFs(afero.NewMemMapFs(), "data")

	saved := []string{"dune", "blade runner", "stalker"}
	store.Save("recent", saved)

	var loaded []string
	if !store.Load("recent", &loaded) {
		t.Fatalf("expected load to find the saved entry")
	}
	if len(loaded) != len(saved) {
		t.Fatalf("expected %d entries, got %d", len(saved), len(loaded))
	}
	for i := range saved {
		if loaded[i] != saved[i] {
			t.Fatalf("entry %d: expected %q, got %q", i, saved[i], loaded[i])
		}
	}
}

func TestLoadMissingKey(t *testing.T) {
	store := localstore.NewWithFs(afero.NewMemMapFs(), "data")

	var out []string
	if store.Load("nothing", &out) {
		t.Fatalf("expected load of a missing key to report false")
	}
}

func TestLoadCorruptEntryTreatedAsEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := localstore.NewWithFs(fs, "data")

	if err := afero.WriteFile(fs, "data/zenstream_broken.json", []byte("{not json"), 0600); err != nil {
		t.Fatalf("failed to plant corrupt entry: %v", err)
	}

	var out []string
	if store.Load("broken", &out) {
		t.Fatalf("expected corrupt entry to behave like a missing key")
	}
}

func TestDeleteRemovesEntry(t *testing.T) {
	store := localstore.NewWithFs(afero.NewMemMapFs(), "data")

	store.Save("gone", []int{1, 2, 3})
	store.Delete("gone")

	var out []int
	if store.Load("gone", &out) {
		t.Fatalf("expected deleted entry to be gone")
	}

	// Deleting a missing key is a no-op.
	store.Delete("never-existed")
}

func TestUserKeySeparatesIdentities(t *testing.T) {
	if got := localstore.UserKey("search_history", ""); got != "search_history_guest" {
		t.Fatalf("expected guest sentinel key, got %q", got)
	}
	if got := localstore.UserKey("search_history", "u-1"); got != "search_history_u-1" {
		t.Fatalf("expected user-scoped key, got %q", got)
	}

	store := localstore.NewWithFs(afero.NewMemMapFs(), "data")
	store.Save(localstore.UserKey("search_history", ""), []string{"guest query"})
	store.Save(localstore.UserKey("search_history", "u-1"), []string{"user query"})

	var guest, user []string
	store.Load(localstore.UserKey("search_history", ""), &guest)
	store.Load(localstore.UserKey("search_history", "u-1"), &user)
	if guest[0] == user[0] {
		t.Fatalf("guest and user histories must not merge")
	}
}
