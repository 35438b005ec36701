package auth

import (
	"context"
	"net/http"
	"strings"

	"invmatch/internal"
)

const DefaultAPIKeyHeader = "X-API-Key"

// APIKey injects a static key into a configurable header.
type APIKey struct {
	Key    string
	Header string
}

func NewAPIKey(key, header string) *APIKey {
	if strings.TrimSpace(header) == "" {
		header = DefaultAPIKeyHeader
	}
	return &APIKey{Key: key, Header: header}
}

func (a *APIKey) Apply(_ Request, headers http.Header) error {
	if !a.Valid() {
		return &internal.AuthError{Reason: "api key is empty"}
	}
	headers.Set(a.Header, a.Key)
	return nil
}

func (a *APIKey) Valid() bool {
	return strings.TrimSpace(a.Key) != ""
}

func (a *APIKey) RefreshIfNeeded(context.Context) (bool, error) {
	return false, nil
}
