package helius

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/brojonat/swapexport/service/metrics"
)

// ErrFetchFailed is returned when a page request still fails after all retries.
var ErrFetchFailed = errors.New("fetch failed")

const (
	DefaultBaseURL = "https://api.helius.xyz/v0"
	MaxPageSize    = 100

	maxResponseBytes = 64 << 20
)

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	Commitment string
	// Timeout bounds each individual HTTP call.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first failed attempt.
	MaxRetries int
	// RetryBaseDelay is multiplied by 2^attempt between attempts.
	RetryBaseDelay time.Duration
}

// PageRequest selects one page of an address's transaction history.
type PageRequest struct {
	Address string
	Limit   int
	// Before returns only transactions older than this signature.
	Before string
	// Until returns only transactions newer than this signature.
	Until string
}

// Client fetches single pages of enhanced transactions from the Helius API.
type Client struct {
	baseURL        string
	apiKey         string
	commitment     string
	maxRetries     int
	retryBaseDelay time.Duration
	httpClient     *http.Client
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

// NewClient creates a Helius client. httpClient, m and logger may be nil.
func NewClient(cfg ClientConfig, httpClient *http.Client, m *metrics.Metrics, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		commitment:     cfg.Commitment,
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
		httpClient:     httpClient,
		metrics:        m,
		logger:         logger,
	}
}

// statusError is a non-2xx response from the API.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

// retryable reports whether another attempt could succeed.
func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests ||
		e.code == http.StatusRequestTimeout ||
		e.code >= 500
}

// GetTransactions fetches one page, newest first. Transport errors and
// retryable statuses are retried with exponential backoff; the final error
// wraps ErrFetchFailed. A body that is not a JSON array yields an empty page.
// Array elements that are not objects come back as nil records.
func (c *Client) GetTransactions(ctx context.Context, req PageRequest) ([]RawTransaction, error) {
	if req.Address == "" {
		return nil, fmt.Errorf("address is required")
	}

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryBaseDelay * time.Duration(1<<uint(attempt-1))
			c.logger.WarnContext(ctx, "retrying helius page request",
				"address", req.Address,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrFetchFailed, ctx.Err())
			case <-time.After(delay):
			}
		}

		records, err := c.getPage(ctx, req)
		if err == nil {
			return records, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
		}

		var se *statusError
		if errors.As(err, &se) {
			if se.code == http.StatusTooManyRequests {
				c.metrics.RecordRateLimitHit()
			}
			if !se.retryable() {
				break
			}
			c.metrics.RecordHeliusRetry("http_" + strconv.Itoa(se.code))
		} else {
			c.metrics.RecordHeliusRetry("transport")
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrFetchFailed, lastErr)
}

func (c *Client) getPage(ctx context.Context, req PageRequest) ([]RawTransaction, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(req), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.RecordHeliusCall("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.metrics.RecordHeliusCall("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.RecordHeliusCall(strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
		return nil, &statusError{code: resp.StatusCode, body: truncate(string(body), 200)}
	}
	c.metrics.RecordHeliusCall("success", time.Since(start).Seconds())

	var elems []json.RawMessage
	if err := json.Unmarshal(body, &elems); err != nil {
		c.logger.WarnContext(ctx, "helius response is not a list, treating as empty page",
			"address", req.Address,
			"error", err,
		)
		c.metrics.RecordRecordsPerPage(0)
		return nil, nil
	}

	records := make([]RawTransaction, len(elems))
	for i, elem := range elems {
		var record RawTransaction
		if err := json.Unmarshal(elem, &record); err != nil {
			continue
		}
		records[i] = record
	}
	c.metrics.RecordRecordsPerPage(len(records))

	c.logger.DebugContext(ctx, "fetched helius page",
		"address", req.Address,
		"before", req.Before,
		"count", len(records),
	)
	return records, nil
}

func (c *Client) pageURL(req PageRequest) string {
	limit := req.Limit
	if limit < 1 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	q := url.Values{}
	q.Set("api-key", c.apiKey)
	q.Set("limit", strconv.Itoa(limit))
	if c.commitment != "" {
		q.Set("commitment", c.commitment)
	}
	if req.Before != "" {
		q.Set("before", req.Before)
	}
	if req.Until != "" {
		q.Set("until", req.Until)
	}

	return fmt.Sprintf("%s/addresses/%s/transactions?%s", c.baseURL, url.PathEscape(req.Address), q.Encode())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
