package auth

import (
	"context"
	"encoding/base64"
	"net/http"

	"invmatch/internal"
)

// Basic base64-encodes username:password into the Authorization header.
type Basic struct {
	Username string
	Password string
}

func NewBasic(username, password string) *Basic {
	return &Basic{Username: username, Password: password}
}

func (b *Basic) Apply(_ Request, headers http.Header) error {
	if !b.Valid() {
		return &internal.AuthError{Reason: "basic auth requires a username"}
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(b.Username + ":" + b.Password))
	headers.Set("Authorization", "Basic "+encoded)
	return nil
}

func (b *Basic) Valid() bool {
	return b.Username != ""
}

func (b *Basic) RefreshIfNeeded(context.Context) (bool, error) {
	return false, nil
}
