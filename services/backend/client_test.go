package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenstream/services/backend"
)

type capturedRequest struct {
	method string
	path   string
	query  string
	header http.Header
	body   map[string]any
}

func captureServer(t *testing.T, status int, response string) (*backend.Client, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		captured.header = r.Header.Clone()
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&captured.body)
		}
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return backend.NewClient(server.URL, "anon-key"), captured
}

func TestGetBuildsTableURL(t *testing.T) {
	client, captured := captureServer(t, http.StatusOK, `[]`)

	var out []map[string]any
	err := client.From("watchlist").
		Select("media_data").
		Eq("user_id", "u-1").
		Order("created_at", false).
		Limit(5).
		Get(context.Background(), &out)
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, captured.method)
	assert.Equal(t, "/rest/v1/watchlist", captured.path)
	assert.Equal(t, "select=media_data&user_id=eq.u-1&order=created_at.desc&limit=5", captured.query)
}

func TestInFilterFormat(t *testing.T) {
	client, captured := captureServer(t, http.StatusOK, `[]`)

	var out []map[string]any
	err := client.From("profiles").
		Select("id,avatar_url").
		In("id", []string{"u-1", "u-2"}).
		Get(context.Background(), &out)
	require.NoError(t, err)

	assert.Contains(t, captured.query, "id=in.(u-1,u-2)")
}

func TestAnonymousRequestsCarryAnonKey(t *testing.T) {
	client, captured := captureServer(t, http.StatusOK, `[]`)

	var out []map[string]any
	require.NoError(t, client.From("watchlist").Get(context.Background(), &out))

	assert.Equal(t, "anon-key", captured.header.Get("apikey"))
	assert.Equal(t, "Bearer anon-key", captured.header.Get("Authorization"))
}

func TestTokenSourceOverridesBearer(t *testing.T) {
	client, captured := captureServer(t, http.StatusOK, `[]`)
	client.SetTokenSource(func() string { return "user-jwt" })

	var out []map[string]any
	require.NoError(t, client.From("watchlist").Get(context.Background(), &out))

	assert.Equal(t, "anon-key", captured.header.Get("apikey"))
	assert.Equal(t, "Bearer user-jwt", captured.header.Get("Authorization"))
}

func TestInsertPostsRow(t *testing.T) {
	client, captured := captureServer(t, http.StatusCreated, ``)

	row := map[string]any{"user_id": "u-1", "query": "dune"}
	require.NoError(t, client.From("search_history").Insert(context.Background(), row, nil))

	assert.Equal(t, http.MethodPost, captured.method)
	assert.Equal(t, "application/json", captured.header.Get("Content-Type"))
	assert.Equal(t, "dune", captured.body["query"])
}

func TestInsertWithRepresentation(t *testing.T) {
	client, captured := captureServer(t, http.StatusCreated, `[{"id":"c-1"}]`)

	var out []struct {
		ID string `json:"id"`
	}
	row := map[string]any{"content": "hello"}
	require.NoError(t, client.From("comments").Insert(context.Background(), row, &out))

	assert.Equal(t, "return=representation", captured.header.Get("Prefer"))
	require.Len(t, out, 1)
	assert.Equal(t, "c-1", out[0].ID)
}

func TestUpdatePatchesFilteredRows(t *testing.T) {
	client, captured := captureServer(t, http.StatusNoContent, ``)

	patch := map[string]int{"likes": 4}
	require.NoError(t, client.From("comments").Eq("id", "c-1").Update(context.Background(), patch))

	assert.Equal(t, http.MethodPatch, captured.method)
	assert.Equal(t, "id=eq.c-1", captured.query)
	assert.Equal(t, "return=minimal", captured.header.Get("Prefer"))
}

func TestDeleteTargetsFilteredRows(t *testing.T) {
	client, captured := captureServer(t, http.StatusNoContent, ``)

	err := client.From("watchlist").Eq("user_id", "u-1").Eq("media_id", 42).Delete(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.MethodDelete, captured.method)
	assert.Equal(t, "user_id=eq.u-1&media_id=eq.42", captured.query)
}

func TestErrorCarriesStatusAndMessage(t *testing.T) {
	client, _ := captureServer(t, http.StatusUnauthorized, `{"message":"JWT expired"}`)

	var out []map[string]any
	err := client.From("watchlist").Get(context.Background(), &out)
	require.Error(t, err)

	var be *backend.Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusUnauthorized, be.Status)
	assert.Contains(t, be.Error(), "JWT expired")
	assert.True(t, backend.IsAuthError(err))
}

func TestServerErrorIsNotAuthError(t *testing.T) {
	client, _ := captureServer(t, http.StatusServiceUnavailable, `{"message":"down"}`)

	var out []map[string]any
	err := client.From("watchlist").Get(context.Background(), &out)
	require.Error(t, err)
	assert.False(t, backend.IsAuthError(err))
}
