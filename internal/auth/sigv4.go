package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"invmatch/internal"
)

const (
	sigV4Algorithm   = "AWS4-HMAC-SHA256"
	sigV4Terminator  = "aws4_request"
	amzDateLayout    = "20060102T150405Z"
	amzDateStampOnly = "20060102"
)

// SigV4 signs requests with the AWS Signature Version 4 scheme, implemented
// from the canonical-request definition rather than an SDK signer so the
// exact header set stays under this package's control.
type SigV4 struct {
	AccessKey    string
	SecretKey    string
	SessionToken string
	Region       string
	Service      string

	now func() time.Time
}

func NewSigV4(accessKey, secretKey, sessionToken, region, service string) *SigV4 {
	if region == "" {
		region = "us-east-1"
	}
	if service == "" {
		service = "execute-api"
	}
	return &SigV4{
		AccessKey:    accessKey,
		SecretKey:    secretKey,
		SessionToken: sessionToken,
		Region:       region,
		Service:      service,
		now:          time.Now,
	}
}

// Apply computes the signature over method, path, query, signed headers, and
// payload hash, and emits Authorization, Host, X-Amz-Date, and, when a
// session token is present, X-Amz-Security-Token.
func (s *SigV4) Apply(req Request, headers http.Header) error {
	if !s.Valid() {
		return &internal.AuthError{Reason: "aws signature requires access and secret keys"}
	}
	if strings.TrimSpace(req.URL) == "" {
		return &internal.AuthError{Reason: "aws signature requires the request url"}
	}

	parsed, err := url.Parse(req.URL)
	if err != nil || parsed.Host == "" {
		return &internal.AuthError{Reason: "aws signature requires an absolute url", Err: err}
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	t := s.now().UTC()
	amzDate := t.Format(amzDateLayout)
	dateStamp := t.Format(amzDateStampOnly)

	canonicalURI := parsed.EscapedPath()
	if canonicalURI == "" {
		canonicalURI = "/"
	}
	canonicalQuery := canonicalQueryString(parsed)
	payloadHash := hashSHA256(req.Payload)

	signedHeaderSet := map[string]string{
		"host":       parsed.Host,
		"x-amz-date": amzDate,
	}
	if s.SessionToken != "" {
		signedHeaderSet["x-amz-security-token"] = s.SessionToken
	}

	names := make([]string, 0, len(signedHeaderSet))
	for name := range signedHeaderSet {
		names = append(names, name)
	}
	sort.Strings(names)

	var canonicalHeaders strings.Builder
	for _, name := range names {
		canonicalHeaders.WriteString(name)
		canonicalHeaders.WriteString(":")
		canonicalHeaders.WriteString(strings.TrimSpace(signedHeaderSet[name]))
		canonicalHeaders.WriteString("\n")
	}
	signedHeaders := strings.Join(names, ";")

	canonicalRequest := strings.Join([]string{
		method,
		canonicalURI,
		canonicalQuery,
		canonicalHeaders.String(),
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := strings.Join([]string{dateStamp, s.Region, s.Service, sigV4Terminator}, "/")
	stringToSign := strings.Join([]string{
		sigV4Algorithm,
		amzDate,
		scope,
		hashSHA256([]byte(canonicalRequest)),
	}, "\n")

	signingKey := s.deriveSigningKey(dateStamp)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	headers.Set("Authorization", sigV4Algorithm+
		" Credential="+s.AccessKey+"/"+scope+
		", SignedHeaders="+signedHeaders+
		", Signature="+signature)
	headers.Set("Host", parsed.Host)
	headers.Set("X-Amz-Date", amzDate)
	if s.SessionToken != "" {
		headers.Set("X-Amz-Security-Token", s.SessionToken)
	}
	return nil
}

func (s *SigV4) Valid() bool {
	return s.AccessKey != "" && s.SecretKey != ""
}

func (s *SigV4) RefreshIfNeeded(context.Context) (bool, error) {
	return false, nil
}

// deriveSigningKey chains four HMAC-SHA256 operations:
// secret → date → region → service → terminator.
func (s *SigV4) deriveSigningKey(dateStamp string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+s.SecretKey), dateStamp)
	kRegion := hmacSHA256(kDate, s.Region)
	kService := hmacSHA256(kRegion, s.Service)
	return hmacSHA256(kService, sigV4Terminator)
}

func canonicalQueryString(u *url.URL) string {
	values := u.Query()
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		vs := values[key]
		sort.Strings(vs)
		for _, v := range vs {
			parts = append(parts, rfc3986Escape(key)+"="+rfc3986Escape(v))
		}
	}
	return strings.Join(parts, "&")
}

// rfc3986Escape percent-encodes for the canonical query string. QueryEscape
// emits form encoding, which differs from RFC 3986 on two characters the
// signature must get right: space is %20 (not +) and tilde stays literal.
func rfc3986Escape(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	return strings.ReplaceAll(escaped, "%7E", "~")
}

func hashSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}
