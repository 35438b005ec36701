package auth

import (
	"net/http"
	"testing"

	"invmatch/internal"
)

func TestFactoryAPIKey(t *testing.T) {
	a, err := New(internal.AuthAPIKey, "secret-key", Options{})
	if err != nil {
		t.Fatal(err)
	}
	headers := http.Header{}
	if err := a.Apply(Request{}, headers); err != nil {
		t.Fatal(err)
	}
	if headers.Get("X-API-Key") != "secret-key" {
		t.Fatalf("default header not set: %v", headers)
	}

	a, err = New(internal.AuthAPIKey, "secret-key", Options{APIKeyHeader: "X-Custom-Key"})
	if err != nil {
		t.Fatal(err)
	}
	headers = http.Header{}
	_ = a.Apply(Request{}, headers)
	if headers.Get("X-Custom-Key") != "secret-key" {
		t.Fatalf("custom header not honored: %v", headers)
	}
}

func TestFactoryBasic(t *testing.T) {
	a, err := New(internal.AuthBasic, "user:p@ss:word", Options{})
	if err != nil {
		t.Fatal(err)
	}
	headers := http.Header{}
	if err := a.Apply(Request{}, headers); err != nil {
		t.Fatal(err)
	}
	// base64("user:p@ss:word")
	if headers.Get("Authorization") != "Basic dXNlcjpwQHNzOndvcmQ=" {
		t.Fatalf("authorization=%s", headers.Get("Authorization"))
	}

	if _, err := New(internal.AuthBasic, "nodelimiter", Options{}); err == nil {
		t.Fatalf("credential without username:password separator must fail")
	}
}

func TestFactoryAWSSignature(t *testing.T) {
	a, err := New(internal.AuthAWSSignature, "AKID:secret:session", Options{Region: "eu-west-1"})
	if err != nil {
		t.Fatal(err)
	}
	s, ok := a.(*SigV4)
	if !ok {
		t.Fatalf("got %T", a)
	}
	if s.AccessKey != "AKID" || s.SecretKey != "secret" || s.SessionToken != "session" || s.Region != "eu-west-1" {
		t.Fatalf("parsed %+v", s)
	}

	if _, err := New(internal.AuthAWSSignature, "onlyaccess", Options{}); err == nil {
		t.Fatalf("missing secret must fail")
	}
}

func TestFactoryBearer(t *testing.T) {
	a, err := New(internal.AuthBearerToken, "rawtoken", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := a.(*Bearer); !ok {
		t.Fatalf("got %T", a)
	}

	blob := `{"token":"tok","refresh_token":"ref","refresh_url":"https://auth.example.com/token","expires_at":"2030-01-01T00:00:00Z"}`
	a, err = New(internal.AuthBearerToken, blob, Options{})
	if err != nil {
		t.Fatal(err)
	}
	b := a.(*Bearer)
	if b.RefreshToken != "ref" || b.RefreshURL != "https://auth.example.com/token" {
		t.Fatalf("refresh metadata not parsed: %+v", b)
	}

	if _, err := New(internal.AuthBearerToken, `{"refresh_token":"ref"}`, Options{}); err == nil {
		t.Fatalf("json blob without token must fail")
	}
}

func TestFactoryUnsupportedType(t *testing.T) {
	if _, err := New("oauth_dance", "x", Options{}); err == nil {
		t.Fatalf("unsupported type must fail")
	}
}
