package handlers

import (
	"fmt"
	"io"
	"net/http"

	"zenstream/models"
	"zenstream/services/backend"
)

// maxAvatarBytes caps avatar uploads.
const maxAvatarBytes = 2 << 20

// ProfileHandler exposes the signed-in user's profile row and avatar.
type ProfileHandler struct {
	Backend *backend.Client
	Auth    *backend.AuthService
}

func NewProfileHandler(client *backend.Client, auth *backend.AuthService) *ProfileHandler {
	return &ProfileHandler{Backend: client, Auth: auth}
}

// Get returns the profile row for the signed-in user.
// GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := h.Auth.User()
	if user == nil {
		serviceError(w, backend.ErrSignInRequired)
		return
	}

	var profiles []models.Profile
	err := h.Backend.From("profiles").Eq("id", user.ID).Get(r.Context(), &profiles)
	if err != nil {
		serviceError(w, err)
		return
	}
	profile := models.Profile{ID: user.ID, Username: user.Username()}
	if len(profiles) > 0 {
		profile = profiles[0]
	}
	writeJSON(w, profile)
}

// UploadAvatar stores a new avatar image and records its public URL on the
// profile row.
// POST /api/profile/avatar
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user := h.Auth.User()
	if user == nil {
		serviceError(w, backend.ErrSignInRequired)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxAvatarBytes+1))
	if err != nil {
		jsonError(w, "read upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		jsonError(w, "avatar image is required", http.StatusBadRequest)
		return
	}
	if len(data) > maxAvatarBytes {
		jsonError(w, "avatar image too large", http.StatusRequestEntityTooLarge)
		return
	}

	path := fmt.Sprintf("%s/avatar", user.ID)
	avatarURL, err := h.Backend.UploadObject(r.Context(), "avatars", path, data)
	if err != nil {
		serviceError(w, err)
		return
	}

	patch := map[string]string{"avatar_url": avatarURL}
	if err := h.Backend.From("profiles").Eq("id", user.ID).Update(r.Context(), patch); err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, map[string]string{"avatar_url": avatarURL})
}
