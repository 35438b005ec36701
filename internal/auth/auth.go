package auth

import (
	"context"
	"net/http"
)

// Request carries the outbound call details a strategy may need to sign.
type Request struct {
	Method  string
	URL     string
	Payload []byte
}

// Authenticator injects credentials into an outbound request's headers.
// Implementations that own refreshable state guard it internally; Apply and
// RefreshIfNeeded are safe for concurrent callers.
type Authenticator interface {
	Apply(req Request, headers http.Header) error
	Valid() bool
	RefreshIfNeeded(ctx context.Context) (bool, error)
}

// Doer is the minimal HTTP client surface; *http.Client satisfies it and
// tests substitute their own transport.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}
