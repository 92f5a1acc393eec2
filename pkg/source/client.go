package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/orbitalops/liftoff/pkg/observability"
)

// Define static errors
var (
	ErrTransport      = errors.New("transport error")
	ErrPermanentHTTP  = errors.New("permanent HTTP failure")
	ErrNotCollection  = errors.New("response is not a JSON array")
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

// Client defines the methods for pulling collections from the upstream source
type Client interface {
	// FetchCollection fetches a JSON array of objects from a relative path
	FetchCollection(ctx context.Context, path string) ([]map[string]any, error)
	// Stop closes idle connections
	Stop() error
}

// client implements Client over a single keep-alive HTTP session
type client struct {
	log        logrus.FieldLogger
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	retries    int
	backoff    time.Duration
	retryOn4xx bool
}

// NewClient creates a new HTTP source client against a fixed base URL
func NewClient(log logrus.FieldLogger, cfg *Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.SetDefaults()

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     cfg.KeepAlive,
		DisableKeepAlives:   false,
	}

	return &client{
		log:        log.WithField("component", "source"),
		httpClient: &http.Client{Transport: transport},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		retries:    cfg.Retries,
		backoff:    cfg.RetryBackoff,
		retryOn4xx: cfg.RetryOn4xx,
	}, nil
}

func (c *client) Stop() error {
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}

	return nil
}

// FetchCollection fetches the collection at path with bounded retry.
// Transient statuses (500, 502, 503, 504 and optionally 408/429) and
// connection-level failures are retried with exponential backoff; other
// non-2xx responses fail immediately.
func (c *client) FetchCollection(ctx context.Context, path string) ([]map[string]any, error) {
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")

	var lastErr error

	for attempt := 1; attempt <= c.retries; attempt++ {
		if attempt > 1 {
			wait := c.backoff * time.Duration(attempt-1)

			c.log.WithFields(logrus.Fields{
				"url":     url,
				"attempt": attempt,
				"wait":    wait,
			}).Warn("Retrying upstream fetch")

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrTransport, ctx.Err())
			case <-time.After(wait):
			}
		}

		records, retryable, err := c.fetchOnce(ctx, url)
		if err == nil {
			return records, nil
		}

		lastErr = err
		if !retryable {
			return nil, fmt.Errorf("%w: %w", ErrTransport, err)
		}
	}

	return nil, fmt.Errorf("%w: %w after %d attempts: %w", ErrTransport, ErrRetryExhausted, c.retries, lastErr)
}

func (c *client) fetchOnce(ctx context.Context, url string) (records []map[string]any, retryable bool, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.RecordHTTPAttempt("error")

		// Connection-level failures (timeout, DNS, reset) are retryable
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.WithError(closeErr).Debug("Failed to close response body")
		}
	}()

	observability.RecordHTTPAttempt(statusClass(resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if c.isTransient(resp.StatusCode) {
			return nil, true, fmt.Errorf("transient status %d", resp.StatusCode)
		}

		return nil, false, fmt.Errorf("%w: status %d", ErrPermanentHTTP, resp.StatusCode)
	}

	if err := json.Unmarshal(body, &records); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrNotCollection, err)
	}

	return records, false, nil
}

func (c *client) isTransient(status int) bool {
	switch status {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return c.retryOn4xx
	default:
		return false
	}
}

func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "other"
	}
}
