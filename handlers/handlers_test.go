package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"zenstream/handlers"
	"zenstream/internal/localstore"
	"zenstream/models"
	"zenstream/services/backend"
	"zenstream/services/history"
	"zenstream/services/searches"
	"zenstream/services/watchlist"
)

type stubSessions struct {
	user *models.User
}

func (s *stubSessions) User() *models.User { return s.user }

func (s *stubSessions) OnChange(fn func(*models.User)) { fn(s.user) }

func newMemStore() *localstore.Store {
	return localstore.NewWithFs(afero.NewMemMapFs(), "data")
}

func TestWatchlistToggleRequiresSignIn(t *testing.T) {
	svc := watchlist.NewService(backend.NewClient("http://unreachable.invalid", "anon"), &stubSessions{})
	svc.Start()
	handler := handlers.NewWatchlistHandler(svc)

	body := strings.NewReader(`{"id":42,"media_type":"movie","title":"Dune"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/watchlist/toggle", body)
	rec := httptest.NewRecorder()
	handler.Toggle(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var response struct {
		SignInRequired bool `json:"signInRequired"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.SignInRequired {
		t.Fatalf("expected signInRequired flag in the 401 body")
	}
}

func TestWatchlistToggleRejectsIncompleteMedia(t *testing.T) {
	svc := watchlist.NewService(backend.NewClient("http://unreachable.invalid", "anon"), &stubSessions{})
	svc.Start()
	handler := handlers.NewWatchlistHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/watchlist/toggle", strings.NewReader(`{"title":"no id"}`))
	rec := httptest.NewRecorder()
	handler.Toggle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWatchlistContainsParsesRouteID(t *testing.T) {
	svc := watchlist.NewService(backend.NewClient("http://unreachable.invalid", "anon"), &stubSessions{})
	svc.Start()
	handler := handlers.NewWatchlistHandler(svc)

	router := mux.NewRouter()
	router.HandleFunc("/api/watchlist/contains/{id}", handler.Contains)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/watchlist/contains/42", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/watchlist/contains/notanumber", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad id, got %d", rec.Code)
	}
}

func TestHistoryAddListClear(t *testing.T) {
	svc := history.NewService(newMemStore())
	handler := handlers.NewHistoryHandler(svc)

	body := strings.NewReader(`{"media":{"id":7,"media_type":"tv","name":"Dark"},"season":1,"episode":3}`)
	rec := httptest.NewRecorder()
	handler.Add(rec, httptest.NewRequest(http.MethodPost, "/api/history", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var added models.HistoryItem
	if err := json.NewDecoder(rec.Body).Decode(&added); err != nil {
		t.Fatalf("failed to decode added item: %v", err)
	}
	if added.MediaID != 7 || added.Season != 1 || added.Episode != 3 {
		t.Fatalf("unexpected added item %+v", added)
	}

	rec = httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	var listed struct {
		Items []models.HistoryItem `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(listed.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(listed.Items))
	}

	rec = httptest.NewRecorder()
	handler.Clear(rec, httptest.NewRequest(http.MethodDelete, "/api/history", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(svc.Items()) != 0 {
		t.Fatalf("expected history cleared")
	}
}

func TestHistoryAddRejectsMissingMedia(t *testing.T) {
	handler := handlers.NewHistoryHandler(history.NewService(newMemStore()))

	rec := httptest.NewRecorder()
	handler.Add(rec, httptest.NewRequest(http.MethodPost, "/api/history", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSearchesRecordAndRemove(t *testing.T) {
	svc := searches.NewService(backend.NewClient("http://unreachable.invalid", "anon"), newMemStore(), &stubSessions{})
	svc.Start()
	handler := handlers.NewSearchesHandler(svc)

	rec := httptest.NewRecorder()
	handler.Record(rec, httptest.NewRequest(http.MethodPost, "/api/searches", strings.NewReader(`{"query":"dune"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var response struct {
		Queries []string `json:"queries"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Queries) != 1 || response.Queries[0] != "dune" {
		t.Fatalf("unexpected queries %v", response.Queries)
	}

	rec = httptest.NewRecorder()
	handler.Remove(rec, httptest.NewRequest(http.MethodDelete, "/api/searches?query=dune", nil))
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Queries) != 0 {
		t.Fatalf("expected query removed, got %v", response.Queries)
	}
}

func TestSearchesDeleteWithoutQueryClearsAll(t *testing.T) {
	svc := searches.NewService(backend.NewClient("http://unreachable.invalid", "anon"), newMemStore(), &stubSessions{})
	svc.Start()
	handler := handlers.NewSearchesHandler(svc)

	rec := httptest.NewRecorder()
	handler.Record(rec, httptest.NewRequest(http.MethodPost, "/api/searches", strings.NewReader(`{"query":"dune"}`)))
	rec = httptest.NewRecorder()
	handler.Record(rec, httptest.NewRequest(http.MethodPost, "/api/searches", strings.NewReader(`{"query":"alien"}`)))

	rec = httptest.NewRecorder()
	handler.Remove(rec, httptest.NewRequest(http.MethodDelete, "/api/searches", nil))

	var response struct {
		Queries []string `json:"queries"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Queries) != 0 {
		t.Fatalf("expected all queries cleared, got %v", response.Queries)
	}
}

func TestUnknownFieldsRejected(t *testing.T) {
	handler := handlers.NewSearchesHandler(searchesService(t))

	body := strings.NewReader(`{"query":"dune","surprise":true}`)
	rec := httptest.NewRecorder()
	handler.Record(rec, httptest.NewRequest(http.MethodPost, "/api/searches", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected unknown fields rejected with 400, got %d", rec.Code)
	}
}

func searchesService(t *testing.T) *searches.Service {
	t.Helper()
	svc := searches.NewService(backend.NewClient("http://unreachable.invalid", "anon"), newMemStore(), &stubSessions{})
	svc.Start()
	return svc
}
