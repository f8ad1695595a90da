// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/soundmap/internal/metrics"
)

var (
	// ErrUnavailable is returned by Available when the service cannot be
	// reached.
	ErrUnavailable = errors.New("resolution service unavailable")

	// ErrResponseTooLarge is returned when a body exceeds MaxResponseBytes.
	ErrResponseTooLarge = errors.New("response body too large")
)

// StatusError is a non-200 HTTP answer.
type StatusError struct {
	Code       int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, http.StatusText(e.Code))
}

func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client performs batch requests against the coordinate service.
//
// Every batch goes through a circuit breaker, then a retry loop with
// exponential backoff; every attempt waits on a rate limiter and runs under
// its own timeout.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     zerolog.Logger
}

// NewClient creates a client. A nil httpClient uses a default client; the
// per-attempt timeout comes from cfg either way.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewClient(cfg Config, httpClient *http.Client, logger zerolog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid protocol config: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	logger = logger.With().Str("component", "protocol").Logger()
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		breaker:    newBreaker(cfg, logger),
		logger:     logger,
	}, nil
}

// TracksPerQuery returns the configured batch size.
func (c *Client) TracksPerQuery() int {
	return c.cfg.TracksPerQuery
}

// FetchBatch requests coordinates for a batch and returns the raw body.
func (c *Client) FetchBatch(ctx context.Context, batch []Query) ([]byte, error) {
	target := c.cfg.BaseURL + BuildQuery(batch)

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetchWithRetry(ctx, target)
	})
	recordBreakerResult(err)
	metrics.RecordResolutionBatch(time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("fetch batch of %d: %w", len(batch), err)
	}
	return body, nil
}

// fetchWithRetry retries transport errors, 429 and 5xx answers with
// exponential backoff. A Retry-After header in seconds overrides the delay.
func (c *Client) fetchWithRetry(ctx context.Context, target string) ([]byte, error) {
	delay := c.cfg.RetryDelay
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		body, err := c.fetchOnce(ctx, target)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		wait := delay
		var se *StatusError
		if errors.As(err, &se) {
			if !se.retryable() {
				return nil, err
			}
			if se.RetryAfter > 0 {
				wait = se.RetryAfter
			}
		}
		if errors.Is(err, ErrResponseTooLarge) {
			return nil, err
		}
		if attempt == c.cfg.MaxAttempts {
			break
		}

		c.logger.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", c.cfg.MaxAttempts).Dur("delay", wait).Msg("Resolution request failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("max retry attempts reached: %w", lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, target string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, &StatusError{Code: resp.StatusCode, RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > c.cfg.MaxResponseBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, c.cfg.MaxResponseBytes)
	}
	return body, nil
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// Available probes the service with an empty request. Any HTTP answer below
// 500 counts as reachable. The probe bypasses the circuit breaker so that a
// rescan can be refused before any batch is sent.
func (c *Client) Available(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.cfg.BaseURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.CopyN(io.Discard, resp.Body, 4096)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}
