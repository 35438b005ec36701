package internal

import "fmt"

// ConfigError marks an invalid or missing configuration. Never retried.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", e.Msg, e.Err)
	}
	return "config: " + e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ConnectorError is a network or protocol failure against the external
// system. StatusCode and Body are populated for HTTP failures; Body is
// truncated before being stored.
type ConnectorError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *ConnectorError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("connector %s: status=%d body=%s", e.Op, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("connector %s: %v", e.Op, e.Err)
	}
	return "connector " + e.Op + ": failed"
}

func (e *ConnectorError) Unwrap() error { return e.Err }

// AuthError is a credential or signing failure. Always fatal to the call.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return "auth: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// MatchError is reserved for unsupported algorithm selectors; matchers
// otherwise prefer zero-confidence non-match results over errors.
type MatchError struct {
	Msg string
}

func (e *MatchError) Error() string { return "match: " + e.Msg }
