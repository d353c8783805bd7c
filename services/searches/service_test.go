package searches_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"zenstream/internal/localstore"
	"zenstream/models"
	"zenstream/services/backend"
	"zenstream/services/searches"
)

type stubSessions struct {
	user *models.User
}

func (s *stubSessions) User() *models.User { return s.user }

func (s *stubSessions) OnChange(fn func(*models.User)) { fn(s.user) }

func newGuestService(t *testing.T) *searches.Service {
	t.Helper()
	store := localstore.NewWithFs(afero.NewMemMapFs(), "data")
	svc := searches.NewService(backend.NewClient("http://unreachable.invalid", "anon"), store, &stubSessions{})
	svc.Start()
	return svc
}

func TestRecordRejectsShortQueries(t *testing.T) {
	svc := newGuestService(t)

	svc.Record("a")
	svc.Record("  x  ")
	svc.Record("")

	require.Empty(t, svc.Queries())
}

func TestRecordTrimsAndPrepends(t *testing.T) {
	svc := newGuestService(t)

	svc.Record("  dune  ")
	svc.Record("alien")

	require.Equal(t, []string{"alien", "dune"}, svc.Queries())
}

func TestRecordDedupesCaseInsensitively(t *testing.T) {
	svc := newGuestService(t)

	svc.Record("Dune")
	svc.Record("alien")
	svc.Record("dune")

	queries := svc.Queries()
	require.Equal(t, []string{"dune", "alien"}, queries)
}

func TestRecordDedupesAcrossDiacritics(t *testing.T) {
	svc := newGuestService(t)

	svc.Record("Amélie")
	svc.Record("amelie")

	require.Equal(t, []string{"amelie"}, svc.Queries())
}

func TestHistoryCappedAtTen(t *testing.T) {
	svc := newGuestService(t)

	for i := 1; i <= 12; i++ {
		svc.Record(fmt.Sprintf("query %d", i))
	}

	queries := svc.Queries()
	require.Len(t, queries, 10)
	require.Equal(t, "query 12", queries[0])
	require.Equal(t, "query 3", queries[9])
}

func TestRemoveMatchesExactly(t *testing.T) {
	svc := newGuestService(t)

	svc.Record("dune")
	svc.Record("alien")
	svc.Remove("dune")

	require.Equal(t, []string{"alien"}, svc.Queries())
}

func TestClearForgetsEverything(t *testing.T) {
	svc := newGuestService(t)

	svc.Record("dune")
	svc.Record("alien")
	svc.Clear()

	require.Empty(t, svc.Queries())
}

func TestGuestHistorySurvivesRestart(t *testing.T) {
	fs := afero.NewMemMapFs()

	svc := searches.NewService(backend.NewClient("http://unreachable.invalid", "anon"), localstore.NewWithFs(fs, "data"), &stubSessions{})
	svc.Start()
	svc.Record("dune")

	restarted := searches.NewService(backend.NewClient("http://unreachable.invalid", "anon"), localstore.NewWithFs(fs, "data"), &stubSessions{})
	restarted.Start()

	require.Equal(t, []string{"dune"}, restarted.Queries())
}

func TestSignedInHydrationFromRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected %s during hydration", r.Method)
		}
		json.NewEncoder(w).Encode([]models.SearchHistoryRow{
			{UserID: "u-1", Query: "dune"},
			{UserID: "u-1", Query: "Dune"},
			{UserID: "u-1", Query: "alien"},
		})
	}))
	defer server.Close()

	sessions := &stubSessions{user: &models.User{ID: "u-1"}}
	store := localstore.NewWithFs(afero.NewMemMapFs(), "data")
	svc := searches.NewService(backend.NewClient(server.URL, "anon"), store, sessions)
	svc.Start()

	// Remote duplicates collapse during hydration.
	require.Equal(t, []string{"dune", "alien"}, svc.Queries())
	require.False(t, svc.Loading())
}

func TestHydrationFallsBackToLocalCopy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"unavailable"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	store := localstore.NewWithFs(afero.NewMemMapFs(), "data")
	store.Save(localstore.UserKey("search_history", "u-1"), []string{"cached"})

	sessions := &stubSessions{user: &models.User{ID: "u-1"}}
	svc := searches.NewService(backend.NewClient(server.URL, "anon"), store, sessions)
	svc.Start()

	require.Equal(t, []string{"cached"}, svc.Queries())
}

func TestRecordFiresRemoteInsertForSignedInUser(t *testing.T) {
	inserts := make(chan models.SearchHistoryRow, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]models.SearchHistoryRow{})
		case http.MethodPost:
			var row models.SearchHistoryRow
			json.NewDecoder(r.Body).Decode(&row)
			inserts <- row
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer server.Close()

	sessions := &stubSessions{user: &models.User{ID: "u-1"}}
	svc := searches.NewService(backend.NewClient(server.URL, "anon"), localstore.NewWithFs(afero.NewMemMapFs(), "data"), sessions)
	svc.Start()

	svc.Record("dune")

	// The local list updates before the remote insert resolves.
	require.Equal(t, []string{"dune"}, svc.Queries())

	select {
	case row := <-inserts:
		require.Equal(t, "u-1", row.UserID)
		require.Equal(t, "dune", row.Query)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a remote insert for the signed-in user")
	}
}

func TestRemoteRecordFailureKeepsLocalState(t *testing.T) {
	requests := make(chan string, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r.Method
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]models.SearchHistoryRow{})
		default:
			http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	sessions := &stubSessions{user: &models.User{ID: "u-1"}}
	svc := searches.NewService(backend.NewClient(server.URL, "anon"), localstore.NewWithFs(afero.NewMemMapFs(), "data"), sessions)
	svc.Start()
	<-requests // hydration

	svc.Record("dune")

	select {
	case <-requests:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the insert attempt")
	}
	require.Equal(t, []string{"dune"}, svc.Queries())
}
