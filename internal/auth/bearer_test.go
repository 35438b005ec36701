package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"invmatch/internal"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestBearerApply(t *testing.T) {
	headers := http.Header{}
	if err := NewBearer("tok-123").Apply(Request{}, headers); err != nil {
		t.Fatal(err)
	}
	if headers.Get("Authorization") != "Bearer tok-123" {
		t.Fatalf("authorization=%s", headers.Get("Authorization"))
	}
}

func TestBearerValidityBuffer(t *testing.T) {
	b := NewBearerWithRefresh("tok", time.Now().Add(10*time.Minute), "", "")
	if !b.Valid() {
		t.Fatalf("token 10m from expiry should still be valid")
	}

	b = NewBearerWithRefresh("tok", time.Now().Add(2*time.Minute), "", "")
	if b.Valid() {
		t.Fatalf("token inside the 5m buffer must be treated as expired")
	}

	if !NewBearer("tok").Valid() {
		t.Fatalf("token without expiry is always valid")
	}
}

func TestBearerRefresh(t *testing.T) {
	b := NewBearerWithRefresh("stale", time.Now().Add(-time.Hour), "refresh-1", "https://auth.example.com/token")
	b.HTTPClient = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost || r.URL.String() != "https://auth.example.com/token" {
			t.Fatalf("unexpected refresh request %s %s", r.Method, r.URL)
		}
		return jsonResponse(200, `{"access_token":"fresh","expires_in":3600}`), nil
	})}

	refreshed, err := b.RefreshIfNeeded(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !refreshed {
		t.Fatalf("expected a refresh")
	}

	headers := http.Header{}
	if err := b.Apply(Request{}, headers); err != nil {
		t.Fatal(err)
	}
	if headers.Get("Authorization") != "Bearer fresh" {
		t.Fatalf("authorization=%s", headers.Get("Authorization"))
	}

	// Fresh token: a second call is a no-op.
	refreshed, err = b.RefreshIfNeeded(context.Background())
	if err != nil || refreshed {
		t.Fatalf("refreshed=%v err=%v", refreshed, err)
	}
}

func TestBearerRefreshFailureIsAuthError(t *testing.T) {
	b := NewBearerWithRefresh("stale", time.Now().Add(-time.Hour), "refresh-1", "https://auth.example.com/token")
	b.HTTPClient = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(401, `{"error":"invalid_grant"}`), nil
	})}

	_, err := b.RefreshIfNeeded(context.Background())
	var authErr *internal.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("want AuthError, got %v", err)
	}
}

func TestBearerExpiredWithoutRefreshCredentials(t *testing.T) {
	b := NewBearerWithRefresh("stale", time.Now().Add(-time.Hour), "", "")
	_, err := b.RefreshIfNeeded(context.Background())
	var authErr *internal.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expired token without refresh path must be an auth error, got %v", err)
	}
}
