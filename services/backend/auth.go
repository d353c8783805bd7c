package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"zenstream/internal/localstore"
	"zenstream/models"
)

// ErrSignInRequired is returned by operations that need an authenticated
// session. The UI maps it to its sign-in prompt.
var ErrSignInRequired = errors.New("sign in required")

const sessionStoreKey = "session"

// refreshLeeway is how long before token expiry the session is refreshed.
const refreshLeeway = 60 * time.Second

// AuthService owns the session against the hosted auth provider. It is
// constructed explicitly, started once, and closed on shutdown; consumers
// subscribe to session changes instead of reaching into shared globals.
type AuthService struct {
	client *Client
	store  *localstore.Store

	mu          sync.RWMutex
	session     *models.Session
	subscribers []func(*models.User)

	timerMu      sync.Mutex
	refreshTimer *time.Timer
	closed       bool
}

// NewAuthService creates the session service. The client's token source is
// wired to the current session so table requests authenticate automatically.
func NewAuthService(client *Client, store *localstore.Store) *AuthService {
	s := &AuthService{client: client, store: store}
	client.SetTokenSource(s.accessToken)
	return s
}

// Start restores a persisted session, refreshing it when stale, and schedules
// background refresh. Errors degrade to a signed-out state.
func (s *AuthService) Start(ctx context.Context) {
	var persisted models.Session
	if !s.store.Load(sessionStoreKey, &persisted) || persisted.RefreshToken == "" {
		return
	}
	persisted.ExpiresAt = tokenExpiry(persisted.AccessToken)

	if time.Until(persisted.ExpiresAt) > refreshLeeway {
		s.setSession(&persisted)
		return
	}
	if err := s.refresh(ctx, persisted.RefreshToken); err != nil {
		log.Printf("[auth] failed to restore session: %v", err)
		s.store.Delete(sessionStoreKey)
	}
}

// Close stops the refresh timer. The session itself is left persisted.
func (s *AuthService) Close() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	s.closed = true
	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
		s.refreshTimer = nil
	}
}

// User returns the signed-in user, or nil when nobody is signed in.
func (s *AuthService) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	u := s.session.User
	return &u
}

// OnChange registers fn to run whenever the session user changes. The current
// user is delivered immediately so late subscribers hydrate right away.
func (s *AuthService) OnChange(fn func(*models.User)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	var current *models.User
	if s.session != nil {
		u := s.session.User
		current = &u
	}
	s.mu.Unlock()
	fn(current)
}

// SignUp registers a new account, storing the chosen username as profile
// metadata.
func (s *AuthService) SignUp(ctx context.Context, username, email, password string) error {
	payload := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"username": username},
	}
	session, err := s.tokenRequest(ctx, s.client.BaseURL()+"/auth/v1/signup", payload)
	if err != nil {
		return err
	}
	// Some projects require email confirmation; only adopt sessions with a token.
	if session.AccessToken != "" {
		s.setSession(session)
	}
	return nil
}

// SignIn exchanges credentials for a session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) error {
	payload := map[string]string{"email": email, "password": password}
	session, err := s.tokenRequest(ctx, s.client.BaseURL()+"/auth/v1/token?grant_type=password", payload)
	if err != nil {
		return err
	}
	s.setSession(session)
	return nil
}

// SignOut revokes the session remotely (best effort) and clears local state.
func (s *AuthService) SignOut(ctx context.Context) error {
	token := s.accessToken()
	if token != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.client.BaseURL()+"/auth/v1/logout", nil)
		if err == nil {
			req.Header.Set("apikey", s.client.AnonKey())
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := s.client.httpClient.Do(req)
			if err != nil {
				log.Printf("[auth] remote sign-out failed: %v", err)
			} else {
				resp.Body.Close()
			}
		}
	}
	s.store.Delete(sessionStoreKey)
	s.setSession(nil)
	return nil
}

func (s *AuthService) refresh(ctx context.Context, refreshToken string) error {
	payload := map[string]string{"refresh_token": refreshToken}
	session, err := s.tokenRequest(ctx, s.client.BaseURL()+"/auth/v1/token?grant_type=refresh_token", payload)
	if err != nil {
		return err
	}
	s.setSession(session)
	return nil
}

func (s *AuthService) tokenRequest(ctx context.Context, rawURL string, payload any) (*models.Session, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode auth request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.client.AnonKey())

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read auth response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Status: resp.StatusCode, Message: extractMessage(data)}
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	session.ExpiresAt = tokenExpiry(session.AccessToken)
	return &session, nil
}

func (s *AuthService) setSession(session *models.Session) {
	s.mu.Lock()
	prevUser := ""
	if s.session != nil {
		prevUser = s.session.User.ID
	}
	s.session = session
	newUser := ""
	var notifyUser *models.User
	if session != nil {
		newUser = session.User.ID
		u := session.User
		notifyUser = &u
	}
	subscribers := make([]func(*models.User), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	if session != nil {
		s.store.Save(sessionStoreKey, session)
		s.scheduleRefresh(session)
	}

	if prevUser == newUser {
		return
	}
	for _, fn := range subscribers {
		fn(notifyUser)
	}
}

func (s *AuthService) scheduleRefresh(session *models.Session) {
	wait := time.Until(session.ExpiresAt) - refreshLeeway
	if wait < time.Second {
		wait = time.Second
	}
	refreshToken := session.RefreshToken

	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.closed {
		return
	}
	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
	}
	s.refreshTimer = time.AfterFunc(wait, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.refresh(ctx, refreshToken); err != nil {
			log.Printf("[auth] session refresh failed: %v", err)
		}
	})
}

func (s *AuthService) accessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.AccessToken
}

// tokenExpiry reads the exp claim from the access token without verifying the
// signature; the token is only inspected to schedule the refresh.
func tokenExpiry(accessToken string) time.Time {
	if accessToken == "" {
		return time.Time{}
	}
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return time.Now().Add(time.Hour)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Now().Add(time.Hour)
	}
	return exp.Time
}
