package connstore

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"invmatch/internal"
	"invmatch/internal/config"
	"invmatch/internal/connector"
)

// Tester runs connectivity diagnostics: validation first (failing fast on an
// invalid config), then a raw TCP reachability probe, then the
// protocol-level check through a real connector.
type Tester struct {
	validator    *Validator
	probeTimeout time.Duration

	// dial and build are swappable for tests.
	dial  func(network, address string, timeout time.Duration) (net.Conn, error)
	build func(ctx context.Context, cfg internal.ConnectionConfig) (connector.Connector, error)
}

func NewTester(app config.Config) *Tester {
	probeTimeout := time.Duration(app.TCPProbeTimeoutMs) * time.Millisecond
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	return &Tester{
		validator:    NewValidator(),
		probeTimeout: probeTimeout,
		dial:         net.DialTimeout,
		build: func(ctx context.Context, cfg internal.ConnectionConfig) (connector.Connector, error) {
			return connector.Build(ctx, app, cfg)
		},
	}
}

func (t *Tester) TestConnection(ctx context.Context, cfg internal.ConnectionConfig) internal.ConnectionTestResult {
	started := time.Now()

	validation := t.validator.ValidateConnection(cfg)
	if !validation.IsValid {
		return internal.ConnectionTestResult{
			Success:   false,
			LatencyMs: time.Since(started).Milliseconds(),
			Message:   "validation failed: " + strings.Join(validation.Errors, "; "),
			Details:   map[string]any{"validation": validation},
		}
	}

	if address, ok := probeAddress(cfg); ok {
		conn, err := t.dial("tcp", address, t.probeTimeout)
		if err != nil {
			return internal.ConnectionTestResult{
				Success:   false,
				LatencyMs: time.Since(started).Milliseconds(),
				Message:   fmt.Sprintf("tcp probe to %s failed: %v", address, err),
				ProbeOnly: true,
				Details:   map[string]any{"address": address},
			}
		}
		_ = conn.Close()
	}

	conn, err := t.build(ctx, cfg)
	if err != nil {
		return internal.ConnectionTestResult{
			Success:   false,
			LatencyMs: time.Since(started).Milliseconds(),
			Message:   err.Error(),
			ProbeOnly: true,
		}
	}
	defer conn.Close()

	return conn.TestConnection(ctx)
}

// probeAddress yields the host:port to dial, or false when a TCP probe makes
// no sense for the config (sqlite files).
func probeAddress(cfg internal.ConnectionConfig) (string, bool) {
	switch {
	case cfg.SQL != nil:
		if cfg.SQL.Driver == "sqlite" {
			return "", false
		}
		return fmt.Sprintf("%s:%d", cfg.SQL.Host, cfg.SQL.Port), true
	case cfg.API != nil:
		parsed, err := url.Parse(cfg.API.BaseURL)
		if err != nil || parsed.Host == "" {
			return "", false
		}
		host := parsed.Hostname()
		port := parsed.Port()
		if port == "" {
			if parsed.Scheme == "http" {
				port = "80"
			} else {
				port = "443"
			}
		}
		return net.JoinHostPort(host, port), true
	default:
		return "", false
	}
}
