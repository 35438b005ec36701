package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"invmatch/internal"
	"invmatch/internal/auth"
	"invmatch/internal/config"
	"invmatch/internal/util"
)

const maxErrorBodyLen = 500

// Doer is the HTTP client surface the connector depends on; tests swap in a
// fake transport without touching production code paths.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIConnector searches invoices over a REST endpoint, composing an
// authenticator and a per-instance rate limiter.
type APIConnector struct {
	cfg        internal.APIConnectionConfig
	authn      auth.Authenticator
	limiter    *RateLimiter
	httpClient Doer
	log        *logrus.Logger

	sleep func(time.Duration)
}

// NewAPIConnector builds the connector for one connection config. Timeout
// and rate limit fall back to the app-level env defaults when the connection
// config leaves them unset.
func NewAPIConnector(cfg internal.APIConnectionConfig, authn auth.Authenticator, app config.Config) *APIConnector {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(app.HTTPTimeoutMs) * time.Millisecond
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	perMin := cfg.RateLimitPerMin
	if perMin <= 0 {
		perMin = app.RateLimitPerMin
	}
	if perMin <= 0 {
		perMin = 60
	}
	cfg.RateLimitPerMin = perMin
	return &APIConnector{
		cfg:        cfg,
		authn:      authn,
		limiter:    NewRateLimiter(perMin),
		httpClient: &http.Client{Timeout: timeout},
		log:        config.GetLogger(),
		sleep:      time.Sleep,
	}
}

// TestConnection issues a lightweight health probe and reports latency plus
// diagnostic payload.
func (c *APIConnector) TestConnection(ctx context.Context) internal.ConnectionTestResult {
	started := time.Now()

	resp, body, err := c.execute(ctx, http.MethodGet, "/health", nil)
	latency := time.Since(started).Milliseconds()
	config.LogOp(c.log, "connector.api", "test_connection", started, err)

	if err != nil {
		return internal.ConnectionTestResult{
			Success:   false,
			LatencyMs: latency,
			Message:   err.Error(),
			Details:   map[string]any{"connection_id": c.cfg.ConnectionID},
		}
	}
	return internal.ConnectionTestResult{
		Success:   true,
		LatencyMs: latency,
		Message:   "health check passed",
		Details: map[string]any{
			"connection_id": c.cfg.ConnectionID,
			"status_code":   resp.StatusCode,
			"body":          util.Truncate(string(body), maxErrorBodyLen),
		},
	}
}

// SearchInvoices posts the criteria to the search endpoint and normalizes
// the response body into a list of candidate records.
func (c *APIConnector) SearchInvoices(ctx context.Context, criteria internal.SearchCriteria) ([]map[string]any, error) {
	started := time.Now()

	payload, err := json.Marshal(criteria)
	if err != nil {
		return nil, &internal.ConnectorError{Op: "search_invoices", Err: err}
	}

	_, body, err := c.execute(ctx, http.MethodPost, "/invoices/search", payload)
	config.LogOp(c.log, "connector.api", "search_invoices", started, err)
	if err != nil {
		return nil, err
	}

	records, err := normalizeSearchResponse(body)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (c *APIConnector) Close() error { return nil }

func (c *APIConnector) execute(ctx context.Context, method, endpoint string, payload []byte) (*http.Response, []byte, error) {
	if err := c.acquireSlot(); err != nil {
		return nil, nil, err
	}

	if _, err := c.authn.RefreshIfNeeded(ctx); err != nil {
		return nil, nil, err
	}

	fullURL := strings.TrimRight(c.cfg.BaseURL, "/") + endpoint

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, nil, &internal.ConnectorError{Op: endpoint, Err: err}
	}

	headers := http.Header{}
	if payload != nil {
		headers.Set("Content-Type", "application/json")
	}
	headers.Set("Accept", "application/json")
	for name, value := range c.cfg.ExtraHeaders {
		headers.Set(name, value)
	}
	if err := c.authn.Apply(auth.Request{Method: method, URL: fullURL, Payload: payload}, headers); err != nil {
		return nil, nil, err
	}
	for name, values := range headers {
		for _, v := range values {
			req.Header.Set(name, v)
		}
	}
	// Go carries the Host header on the request itself.
	if host := headers.Get("Host"); host != "" {
		req.Host = host
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, &internal.ConnectorError{Op: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, nil, &internal.ConnectorError{Op: endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, &internal.ConnectorError{
			Op:         endpoint,
			StatusCode: resp.StatusCode,
			Body:       util.Truncate(string(body), maxErrorBodyLen),
		}
	}
	return resp, body, nil
}

// acquireSlot takes a rate-limit token, sleeping for at most one WaitTime
// cycle before failing the call as rate-limited.
func (c *APIConnector) acquireSlot() error {
	if c.limiter.Acquire() {
		return nil
	}
	if wait := c.limiter.WaitTime(); wait > 0 {
		c.sleep(wait)
	}
	if c.limiter.Acquire() {
		return nil
	}
	return &internal.ConnectorError{Op: "rate_limit", Err: fmt.Errorf("rate limit of %d/min exhausted", c.cfg.RateLimitPerMin)}
}

// normalizeSearchResponse accepts a top-level list, an "invoices" key, a
// "results" key, or a single object (wrapped); anything else is a protocol
// error.
func normalizeSearchResponse(body []byte) ([]map[string]any, error) {
	var asList []map[string]any
	if err := json.Unmarshal(body, &asList); err == nil && asList != nil {
		return asList, nil
	}

	// A literal null decodes into a nil slice and a nil map without error;
	// it is not a record shape.
	var asObject map[string]any
	if err := json.Unmarshal(body, &asObject); err != nil || asObject == nil {
		return nil, &internal.ConnectorError{
			Op:   "search_invoices",
			Body: util.Truncate(string(body), maxErrorBodyLen),
			Err:  fmt.Errorf("unexpected response shape"),
		}
	}

	for _, key := range []string{"invoices", "results"} {
		nested, ok := asObject[key]
		if !ok {
			continue
		}
		items, ok := nested.([]any)
		if !ok {
			return nil, &internal.ConnectorError{
				Op:   "search_invoices",
				Body: util.Truncate(string(body), maxErrorBodyLen),
				Err:  fmt.Errorf("%q key is not a list", key),
			}
		}
		out := make([]map[string]any, 0, len(items))
		for _, item := range items {
			record, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, record)
		}
		return out, nil
	}

	// A bare object is treated as a single-record result.
	return []map[string]any{asObject}, nil
}
