package auth

import (
	"encoding/json"
	"strings"
	"time"

	"invmatch/internal"
)

// bearerCredential is the JSON form a bearer credential string may take when
// it carries refresh metadata.
type bearerCredential struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	RefreshURL   string `json:"refresh_url"`
	ExpiresAt    string `json:"expires_at"`
}

// Options tunes scheme-specific behavior the credential string itself does
// not carry.
type Options struct {
	APIKeyHeader string
	Region       string
	Service      string
}

// New parses a single credential string per scheme and returns the matching
// strategy: raw key for api_key, "user:pass" for basic_auth,
// "access:secret[:session]" for aws_signature, and either a raw token or a
// JSON blob with refresh metadata for bearer_token.
func New(authType internal.AuthenticationType, credential string, opts Options) (Authenticator, error) {
	credential = strings.TrimSpace(credential)

	switch authType {
	case internal.AuthAPIKey:
		if credential == "" {
			return nil, &internal.AuthError{Reason: "api_key credential is empty"}
		}
		return NewAPIKey(credential, opts.APIKeyHeader), nil

	case internal.AuthBasic:
		username, password, ok := strings.Cut(credential, ":")
		if !ok || username == "" {
			return nil, &internal.AuthError{Reason: "basic_auth credential must be username:password"}
		}
		return NewBasic(username, password), nil

	case internal.AuthAWSSignature:
		parts := strings.SplitN(credential, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, &internal.AuthError{Reason: "aws_signature credential must be access_key:secret_key"}
		}
		session := ""
		if len(parts) == 3 {
			session = parts[2]
		}
		return NewSigV4(parts[0], parts[1], session, opts.Region, opts.Service), nil

	case internal.AuthBearerToken:
		if credential == "" {
			return nil, &internal.AuthError{Reason: "bearer_token credential is empty"}
		}
		if strings.HasPrefix(credential, "{") {
			var parsed bearerCredential
			if err := json.Unmarshal([]byte(credential), &parsed); err != nil {
				return nil, &internal.AuthError{Reason: "bearer_token credential is not valid json", Err: err}
			}
			if parsed.Token == "" {
				return nil, &internal.AuthError{Reason: "bearer_token credential json carries no token"}
			}
			var expiresAt time.Time
			if parsed.ExpiresAt != "" {
				t, err := time.Parse(time.RFC3339, parsed.ExpiresAt)
				if err != nil {
					return nil, &internal.AuthError{Reason: "bearer_token expires_at is not RFC3339", Err: err}
				}
				expiresAt = t
			}
			return NewBearerWithRefresh(parsed.Token, expiresAt, parsed.RefreshToken, parsed.RefreshURL), nil
		}
		return NewBearer(credential), nil

	default:
		return nil, &internal.AuthError{Reason: "unsupported authentication type: " + string(authType)}
	}
}
