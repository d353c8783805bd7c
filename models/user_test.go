package models_test

import (
	"testing"

	"zenstream/models"
)

func TestUsernameFallbackChain(t *testing.T) {
	cases := []struct {
		name string
		user models.User
		want string
	}{
		{
			name: "metadata username wins",
			user: models.User{Email: "anna@example.com", UserMetadata: map[string]any{"username": "annaplays"}},
			want: "annaplays",
		},
		{
			name: "empty metadata falls back to email local part",
			user: models.User{Email: "anna@example.com", UserMetadata: map[string]any{"username": ""}},
			want: "anna",
		},
		{
			name: "no metadata falls back to email local part",
			user: models.User{Email: "anna@example.com"},
			want: "anna",
		},
		{
			name: "non-string metadata value is ignored",
			user: models.User{Email: "anna@example.com", UserMetadata: map[string]any{"username": 7}},
			want: "anna",
		},
		{
			name: "nothing set falls back to generic label",
			user: models.User{},
			want: "ZenUser",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.user.Username(); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
