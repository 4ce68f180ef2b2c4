// Package mq is a client for the IronMQ v3 hosted message-queue HTTP API.
//
// Messages are delivered at least once through reservations: a reserve call
// leases messages and hands back a reservation id per message, which is the
// capability needed to touch, release, or delete that message while the lease
// is active. A lease that expires un-deleted makes the message visible again.
package mq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"ironmq-client/internal/metrics"
)

// clientID identifies this library to the service on every request.
const clientID = "ironmq-client-go/1.0.0"

// Client performs authenticated calls against one project. It holds no state
// between calls beyond its read-only Config and is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// Option adjusts a Client at construction time.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, e.g. to set transport
// timeouts or inject a test round tripper.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for retry warnings. Default is a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a Client from cfg, filling unset fields with defaults and
// validating the result.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIVersion == 0 {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Scheme == "" {
		cfg.Scheme = DefaultScheme
	}
	if cfg.Host == "" {
		cfg.Host = HostAWSUSEast
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns a copy of the client's configuration.
func (c *Client) Config() Config { return c.cfg }

// endpoint builds the versioned, project-scoped path for an operation.
// suffix must start with "/".
func endpoint(apiVersion int, projectID, suffix string) string {
	return fmt.Sprintf("/%d/projects/%s%s", apiVersion, projectID, suffix)
}

// request performs one logical API call: build URL, attach auth headers, send,
// and decode the 200 response into out (ignored when out is nil).
//
// A 503 answer is retried up to MaxRetries additional attempts with
// full-jitter exponential backoff; the policy applies to every method, POSTs
// included, so a retried post that the server partially applied can duplicate
// a message. That asymmetry is part of the service contract — callers needing
// exactly-once posting de-duplicate above this layer. Any other non-200
// status and any transport failure surface immediately.
func (c *Client) request(ctx context.Context, method, suffix string, body, out any) error {
	path := endpoint(c.cfg.APIVersion, c.cfg.ProjectID, suffix)
	url := c.cfg.baseURL() + path

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		status, respBody, err := c.send(ctx, method, url, payload)
		if err != nil {
			metrics.ClientTransportErrors.Inc()
			return &TransportError{Method: method, URL: url, Err: err}
		}

		switch status {
		case http.StatusOK:
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decode response from %s %s: %w", method, path, err)
			}
			return nil

		case http.StatusServiceUnavailable:
			if attempt >= c.cfg.MaxRetries {
				return &OverloadedError{Method: method, Path: path, Attempts: attempt + 1, Body: string(respBody)}
			}
			delay := backoffDelay(attempt)
			metrics.ClientRetries.Inc()
			c.logger.Warn("service overloaded, backing off",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}

		default:
			return &APIError{Method: method, Path: path, Status: status, Body: string(respBody)}
		}
	}
}

// send performs one HTTP exchange and slurps the response body.
func (c *Client) send(ctx context.Context, method, url string, payload []byte) (int, []byte, error) {
	var entity io.Reader
	if payload != nil {
		entity = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, entity)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "OAuth "+c.cfg.Token)
	req.Header.Set("User-Agent", clientID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ClientRequestDuration.Observe(time.Since(start).Seconds())
	metrics.ClientRequests.Inc()
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}
