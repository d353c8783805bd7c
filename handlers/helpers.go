package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"zenstream/services/backend"
)

// muxVar reads one route variable.
func muxVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

// jsonError writes a JSON error body with the given status.
func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes v as the JSON response body.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// serviceError maps service failures onto HTTP statuses. A missing session
// becomes a 401 the UI turns into its sign-in prompt; remote authorization
// rejections become 403; everything else is a bad gateway.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backend.ErrSignInRequired):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":          backend.ErrSignInRequired.Error(),
			"signInRequired": true,
		})
	case backend.IsAuthError(err):
		jsonError(w, err.Error(), http.StatusForbidden)
	default:
		jsonError(w, err.Error(), http.StatusBadGateway)
	}
}

// decodeBody decodes a JSON request body into out, rejecting unknown fields.
func decodeBody(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
