package handlers

import (
	"net/http"

	"zenstream/services/backend"
)

// AuthHandler exposes session management endpoints backed by the hosted auth
// provider.
type AuthHandler struct {
	Auth *backend.AuthService
}

func NewAuthHandler(auth *backend.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

// SignUp registers a new account.
// POST /api/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &request); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Auth.SignUp(r.Context(), request.Username, request.Email, request.Password); err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, map[string]string{"message": "Account created successfully!"})
}

// SignIn exchanges credentials for a session.
// POST /api/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &request); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Auth.SignIn(r.Context(), request.Email, request.Password); err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, map[string]string{"message": "Welcome back!"})
}

// SignOut revokes the current session.
// POST /api/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.SignOut(r.Context()); err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, map[string]string{"message": "Signed out"})
}

// Session reports the signed-in user, if any.
// GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	user := h.Auth.User()
	if user == nil {
		writeJSON(w, map[string]any{"user": nil})
		return
	}
	writeJSON(w, map[string]any{"user": user, "username": user.Username()})
}
