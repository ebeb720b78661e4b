// Package apiserver implements the service.Service interface over the
// APIServer REST endpoints.
package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"qedit/internal/config"
	"qedit/internal/service"
)

const (
	// APITimeout is the default timeout for a single API call.
	APITimeout = 5 * time.Second

	// MaxRetries bounds retries of idempotent requests.
	MaxRetries = 3
)

// Client implements service.Service against one APIServer.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	breaker    *gobreaker.CircuitBreaker
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBackOff replaces the retry policy for idempotent requests.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(c *Client) {
		c.newBackOff = f
	}
}

// New creates a client for the configured server using the stored token.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.Server == "" {
		return nil, config.ErrNoServer
	}
	tok, err := cfg.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %v (run: qedit login)", service.ErrUnauthorized, err)
	}
	if !tok.Valid() {
		return nil, fmt.Errorf("%w: token expired (run: qedit login)", service.ErrUnauthorized)
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok))
	return NewWithHTTPClient(cfg.Server, httpClient, WithTimeout(cfg.Timeout), WithLogger(cfg.Logger)), nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL string, httpClient *http.Client, opts ...Option) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		timeout:    APITimeout,
		logger:     slog.New(slog.DiscardHandler),
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "apiserver",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// QueueSnapshot fetches history, running task and pending queue.
func (c *Client) QueueSnapshot(ctx context.Context) (service.Snapshot, error) {
	var parts []json.RawMessage
	if err := c.getJSON(ctx, "get_queue?with_iteration=1", &parts); err != nil {
		return service.Snapshot{}, err
	}
	if len(parts) != 4 {
		return service.Snapshot{}, fmt.Errorf("unexpected get_queue response: %d parts", len(parts))
	}

	var snap service.Snapshot
	targets := []any{&snap.Iteration, &snap.History, &snap.Running, &snap.Queued}
	for i, target := range targets {
		if err := json.Unmarshal(parts[i], target); err != nil {
			return service.Snapshot{}, fmt.Errorf("unexpected get_queue response: %w", err)
		}
	}
	return snap, nil
}

// QueueIteration fetches the queue iteration id.
func (c *Client) QueueIteration(ctx context.Context) (float64, error) {
	var it float64
	if err := c.getJSON(ctx, "get_queue_iteration", &it); err != nil {
		return 0, err
	}
	return it, nil
}

// QueueState fetches the queue daemon state.
func (c *Client) QueueState(ctx context.Context) (service.QueueState, error) {
	body, err := c.do(ctx, http.MethodGet, "queue_state", nil, true)
	if err != nil {
		return "", err
	}
	return service.QueueState(strings.Trim(strings.TrimSpace(string(body)), `"`)), nil
}

// SetPause pauses or unpauses the queue daemon.
func (c *Client) SetPause(ctx context.Context, paused bool) error {
	return c.postJSON(ctx, "pause", map[string]bool{"state": paused})
}

// RemoveItems deletes records from the pending queue.
func (c *Client) RemoveItems(ctx context.Context, items []service.QueuedTask) error {
	return c.postJSON(ctx, "remove_items", items)
}

type reorderRequest struct {
	PriorState service.QueueState   `json:"prior_state"`
	Queue      []service.QueuedTask `json:"queue"`
}

// ReorderQueue submits the new queue order along with the prior state.
func (c *Client) ReorderQueue(ctx context.Context, prior service.QueueState, order []service.QueuedTask) error {
	if order == nil {
		order = []service.QueuedTask{}
	}
	return c.postJSON(ctx, "reorder_queue", reorderRequest{PriorState: prior, Queue: order})
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("invalid response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, path, payload, false)
	return err
}

// do runs one request through the circuit breaker. Idempotent requests are
// retried with backoff; client errors are never retried.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, idempotent bool) ([]byte, error) {
	var body []byte
	attempt := func() error {
		res, err := c.breaker.Execute(func() (interface{}, error) {
			return c.roundTrip(ctx, method, path, payload)
		})
		if err != nil {
			if isClientError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		body = res.([]byte)
		return nil
	}

	var err error
	if idempotent {
		b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), MaxRetries), ctx)
		err = backoff.RetryNotify(attempt, b, func(err error, wait time.Duration) {
			c.logger.Debug("retrying request", "method", method, "path", path, "error", err, "wait", wait)
		})
	} else {
		err = attempt()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
	}
	if err != nil {
		return nil, wrapError(err)
	}
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("request", "method", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

// isClientError reports whether err is a 4xx response.
func isClientError(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500
}

// wrapError maps transport and HTTP errors onto the service sentinels.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: too many recent failures", service.ErrUnavailable)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out", service.ErrUnavailable)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := strings.TrimSpace(apiErr.Body)
		switch {
		case apiErr.Code == http.StatusBadRequest:
			return fmt.Errorf("%w: %s", service.ErrRejected, msg)
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden || apiErr.Code == http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: token expired or revoked (run: qedit login)", service.ErrUnauthorized)
		case apiErr.Code == http.StatusNotFound:
			return service.ErrNotFound
		default:
			return fmt.Errorf("server error %d: %s", apiErr.Code, msg)
		}
	}

	return fmt.Errorf("%w: %v", service.ErrUnavailable, err)
}
