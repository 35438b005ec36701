package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"invmatch/internal"
)

// expiryBuffer treats tokens as expired this long before their real expiry,
// so a token cannot lapse mid-flight.
const expiryBuffer = 5 * time.Minute

// Bearer injects "Authorization: Bearer <token>" and refreshes the token
// through a refresh endpoint when it nears expiry. All mutable state is
// owned by the instance and guarded by mu; a refresh in one goroutine blocks
// concurrent refresh attempts rather than racing them.
type Bearer struct {
	mu         sync.Mutex
	token      string
	expiresAt  time.Time
	refreshing bool

	RefreshToken string
	RefreshURL   string
	HTTPClient   Doer

	now func() time.Time
}

func NewBearer(token string) *Bearer {
	return &Bearer{token: token, now: time.Now, HTTPClient: &http.Client{Timeout: 30 * time.Second}}
}

// NewBearerWithRefresh builds a refreshable bearer authenticator. A zero
// expiresAt means the token never expires.
func NewBearerWithRefresh(token string, expiresAt time.Time, refreshToken, refreshURL string) *Bearer {
	b := NewBearer(token)
	b.expiresAt = expiresAt
	b.RefreshToken = refreshToken
	b.RefreshURL = refreshURL
	return b
}

func (b *Bearer) Apply(_ Request, headers http.Header) error {
	b.mu.Lock()
	token := b.token
	b.mu.Unlock()
	if token == "" {
		return &internal.AuthError{Reason: "bearer token is empty"}
	}
	headers.Set("Authorization", "Bearer "+token)
	return nil
}

func (b *Bearer) Valid() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.validLocked()
}

func (b *Bearer) validLocked() bool {
	if b.token == "" {
		return false
	}
	if b.expiresAt.IsZero() {
		return true
	}
	return b.now().Before(b.expiresAt.Add(-expiryBuffer))
}

// RefreshIfNeeded obtains a new token when the current one is missing or
// within the expiry buffer. Returns true only when a refresh happened. A
// stale token with no way to refresh is an authentication error; it is never
// silently sent.
func (b *Bearer) RefreshIfNeeded(ctx context.Context) (bool, error) {
	b.mu.Lock()
	if b.validLocked() {
		b.mu.Unlock()
		return false, nil
	}
	if b.RefreshToken == "" || b.RefreshURL == "" {
		b.mu.Unlock()
		return false, &internal.AuthError{Reason: "bearer token expired and no refresh credentials configured"}
	}
	if b.refreshing {
		b.mu.Unlock()
		return false, &internal.AuthError{Reason: "token refresh already in progress"}
	}
	b.refreshing = true
	refreshToken := b.RefreshToken
	refreshURL := b.RefreshURL
	client := b.HTTPClient
	b.mu.Unlock()

	token, expiresAt, err := requestRefresh(ctx, client, refreshURL, refreshToken)

	b.mu.Lock()
	b.refreshing = false
	if err != nil {
		b.mu.Unlock()
		return false, &internal.AuthError{Reason: "token refresh failed", Err: err}
	}
	b.token = token
	b.expiresAt = expiresAt
	b.mu.Unlock()
	return true, nil
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func requestRefresh(ctx context.Context, client Doer, refreshURL, refreshToken string) (string, time.Time, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return "", time.Time{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, refreshURL, bytes.NewReader(body))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", time.Time{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", time.Time{}, fmt.Errorf("refresh endpoint status %d", resp.StatusCode)
	}

	var parsed refreshResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", time.Time{}, err
	}

	token := parsed.AccessToken
	if token == "" {
		token = parsed.Token
	}
	if strings.TrimSpace(token) == "" {
		return "", time.Time{}, fmt.Errorf("refresh response carries no token")
	}

	var expiresAt time.Time
	if parsed.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	}
	return token, expiresAt, nil
}
