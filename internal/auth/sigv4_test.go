package auth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"invmatch/internal"
)

func fixedSigner() *SigV4 {
	s := NewSigV4("AKIDEXAMPLE", "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY", "", "us-east-1", "execute-api")
	s.now = func() time.Time {
		return time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func signOnce(t *testing.T, s *SigV4, req Request) http.Header {
	t.Helper()
	headers := http.Header{}
	if err := s.Apply(req, headers); err != nil {
		t.Fatal(err)
	}
	return headers
}

func TestSigV4Deterministic(t *testing.T) {
	req := Request{
		Method:  http.MethodPost,
		URL:     "https://api.example.com/invoices/search?limit=5",
		Payload: []byte(`{"invoice_number":"INV-1"}`),
	}

	first := signOnce(t, fixedSigner(), req)
	second := signOnce(t, fixedSigner(), req)

	if first.Get("Authorization") != second.Get("Authorization") {
		t.Fatalf("same request at same timestamp must sign identically:\n%s\n%s",
			first.Get("Authorization"), second.Get("Authorization"))
	}
	if first.Get("X-Amz-Date") != "20240601T120000Z" {
		t.Fatalf("x-amz-date=%s", first.Get("X-Amz-Date"))
	}
	if first.Get("Host") != "api.example.com" {
		t.Fatalf("host=%s", first.Get("Host"))
	}
}

func TestSigV4PayloadChangesSignature(t *testing.T) {
	base := Request{Method: http.MethodPost, URL: "https://api.example.com/invoices/search", Payload: []byte(`{"a":1}`)}
	changed := base
	changed.Payload = []byte(`{"a":2}`)

	if signOnce(t, fixedSigner(), base).Get("Authorization") == signOnce(t, fixedSigner(), changed).Get("Authorization") {
		t.Fatalf("payload change must change the signature")
	}

	changedPath := base
	changedPath.URL = "https://api.example.com/health"
	if signOnce(t, fixedSigner(), base).Get("Authorization") == signOnce(t, fixedSigner(), changedPath).Get("Authorization") {
		t.Fatalf("path change must change the signature")
	}
}

func TestSigV4AuthorizationShape(t *testing.T) {
	headers := signOnce(t, fixedSigner(), Request{Method: "GET", URL: "https://api.example.com/health"})
	authz := headers.Get("Authorization")

	if !strings.HasPrefix(authz, "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20240601/us-east-1/execute-api/aws4_request") {
		t.Fatalf("authorization=%s", authz)
	}
	if !strings.Contains(authz, "SignedHeaders=host;x-amz-date") {
		t.Fatalf("authorization missing signed headers: %s", authz)
	}
	if !strings.Contains(authz, "Signature=") {
		t.Fatalf("authorization missing signature: %s", authz)
	}
}

func TestSigV4SessionToken(t *testing.T) {
	s := fixedSigner()
	s.SessionToken = "FwoGZXIvYXdzEBEaDEXAMPLE"

	headers := signOnce(t, s, Request{Method: "GET", URL: "https://api.example.com/health"})
	if headers.Get("X-Amz-Security-Token") != s.SessionToken {
		t.Fatalf("security token header missing")
	}
	if !strings.Contains(headers.Get("Authorization"), "x-amz-security-token") {
		t.Fatalf("security token must be a signed header: %s", headers.Get("Authorization"))
	}
}

func TestSigV4MissingURL(t *testing.T) {
	err := fixedSigner().Apply(Request{Method: "GET"}, http.Header{})
	var authErr *internal.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("want AuthError, got %v", err)
	}
}

func TestSigV4CanonicalQueryEscaping(t *testing.T) {
	u, err := url.Parse("https://api.example.com/items?b=two%20words&a=1&a=0&t=%7Ev")
	if err != nil {
		t.Fatal(err)
	}

	got := canonicalQueryString(u)
	want := "a=0&a=1&b=two%20words&t=~v"
	if got != want {
		t.Fatalf("canonical query = %q, want %q", got, want)
	}
}

func TestSigV4QueryValueAffectsSignature(t *testing.T) {
	headers1 := signOnce(t, fixedSigner(), Request{Method: "GET", URL: "https://api.example.com/items?q=alpha"})
	headers2 := signOnce(t, fixedSigner(), Request{Method: "GET", URL: "https://api.example.com/items?q=beta"})
	if headers1.Get("Authorization") == headers2.Get("Authorization") {
		t.Fatalf("different query values must produce different signatures")
	}
}
