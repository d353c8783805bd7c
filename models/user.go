package models

import (
	"strings"
	"time"
)

// GuestUserID is the local-storage namespace used when nobody is signed in.
const GuestUserID = "guest"

// User is the identity issued by the hosted auth provider.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at,omitempty"`
}

// Username resolves the display name for the user: profile metadata first,
// then the local part of the email, then a generic label.
func (u User) Username() string {
	if v, ok := u.UserMetadata["username"].(string); ok && v != "" {
		return v
	}
	if u.Email != "" {
		local, _, _ := strings.Cut(u.Email, "@")
		return local
	}
	return "ZenUser"
}

// Session is an issued auth session with its tokens.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"-"`
	User         User      `json:"user"`
}

// Profile is a row of the remote profiles table.
type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}
