package history_test

import (
	"fmt"
	"testing"

	"github.com/spf13/afero"

	"zenstream/internal/localstore"
	"zenstream/models"
	"zenstream/services/history"
)

func movie(id int, title string) models.Media {
	return models.Media{ID: id, Title: title, MediaType: models.MediaTypeMovie}
}

func TestAddPrependsNewest(t *testing.T) {
	store := localstore.NewWithFs(afero.NewMemMapFs(), "data")
	svc := history.NewService(store)

	svc.Add(movie(1, "First"), 0, 0)
	svc.Add(movie(2, "Second"), 0, 0)

	items := svc.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].MediaID != 2 || items[1].MediaID != 1 {
		t.Fatalf("expected newest first, got %d then %d", items[0].MediaID, items[1].MediaID)
	}
	if items[0].UserID != "local-user" {
		t.Fatalf("expected local owner marker, got %q", items[0].UserID)
	}
}

func TestAddSameMediaMovesToFront(t *testing.T) {
	store := localstore.NewWithFs(afero.NewMemMapFs(), "data")
	svc := history.NewService(store)

	svc.Add(movie(1, "First"), 0, 0)
	svc.Add(movie(2, "Second"), 0, 0)
	svc.Add(movie(1, "First"), 0, 0)

	items := svc.Items()
	if len(items) != 2 {
		t.Fatalf("rewatching must not duplicate, got %d items", len(items))
	}
	if items[0].MediaID != 1 {
		t.Fatalf("expected rewatched media at front, got %d", items[0].MediaID)
	}
}

func TestSameIDDifferentTypeIsDistinct(t *testing.T) {
	store := localstore.NewWithFs(afero.NewMemMapFs(), "data")
	svc := history.NewService(store)

	svc.Add(movie(1, "Dune"), 0, 0)
	svc.Add(models.Media{ID: 1, Name: "Dark", MediaType: models.MediaTypeTV}, 1, 3)

	items := svc.Items()
	if len(items) != 2 {
		t.Fatalf("a movie and a series sharing a catalogue ID must not collide, got %d items", len(items))
	}
	if items[0].MediaType != models.MediaTypeTV || items[1].MediaType != models.MediaTypeMovie {
		t.Fatalf("unexpected entry order: %+v", items)
	}
}

func TestHistoryCappedAtTwenty(t *testing.T) {
	store := localstore.NewWithFs(afero.NewMemMapFs(), "data")
	svc := history.NewService(store)

	for i := 1; i <= 25; i++ {
		svc.Add(movie(i, fmt.Sprintf("Movie %d", i)), 0, 0)
	}

	items := svc.Items()
	if len(items) != 20 {
		t.Fatalf("expected history capped at 20, got %d", len(items))
	}
	if items[0].MediaID != 25 {
		t.Fatalf("expected most recent watch first, got %d", items[0].MediaID)
	}
	if items[len(items)-1].MediaID != 6 {
		t.Fatalf("expected oldest surviving entry 6, got %d", items[len(items)-1].MediaID)
	}
}

func TestHistorySurvivesReload(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := localstore.NewWithFs(fs, "data")

	svc := history.NewService(store)
	svc.Add(movie(7, "Kept"), 2, 5)

	reloaded := history.NewService(localstore.NewWithFs(fs, "data"))
	items := reloaded.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 persisted item after reload, got %d", len(items))
	}
	if items[0].MediaID != 7 || items[0].Season != 2 || items[0].Episode != 5 {
		t.Fatalf("persisted entry mismatch: %+v", items[0])
	}
}

func TestClearForgetsHistory(t *testing.T) {
	fs := afero.NewMemMapFs()
	svc := history.NewService(localstore.NewWithFs(fs, "data"))

	svc.Add(movie(1, "Gone"), 0, 0)
	svc.Clear()

	if len(svc.Items()) != 0 {
		t.Fatalf("expected empty history after clear")
	}

	reloaded := history.NewService(localstore.NewWithFs(fs, "data"))
	if len(reloaded.Items()) != 0 {
		t.Fatalf("expected clear to remove the persisted list too")
	}
}
