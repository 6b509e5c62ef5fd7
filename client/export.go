package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout covers a full server-side fetch of a large window.
const DefaultTimeout = 6 * time.Minute

// ExportRequest describes an export to run on the server. Dates are YYYY-MM-DD.
type ExportRequest struct {
	Address   string   `json:"address"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	MinUSD    float64  `json:"min_value_usd"`
	MaxUSD    *float64 `json:"max_value_usd,omitempty"`
	Types     []string `json:"types"`
	TokenMint string   `json:"token_mint,omitempty"`
}

// Summary mirrors the statistics the server computes for an export.
type Summary struct {
	TotalCount          int      `json:"total_count"`
	SwapCount           int      `json:"swap_count"`
	AggregatedSwapCount int      `json:"aggregated_swap_count"`
	UniqueProtocolCount int      `json:"unique_protocol_count"`
	TotalValueUSD       float64  `json:"total_value_usd"`
	DateRange           string   `json:"date_range"`
	Protocols           []string `json:"protocols"`
	ActivityTypes       []string `json:"activity_types"`
}

// Table is a header plus string rows.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Export is a stored export as returned by the server.
type Export struct {
	ID          string    `json:"id"`
	Address     string    `json:"address"`
	Filename    string    `json:"filename"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	GeneratedAt time.Time `json:"generated_at"`
	Summary     Summary   `json:"summary"`
	Preview     Table     `json:"preview"`
	RowCount    int       `json:"row_count"`
	Warnings    []string  `json:"warnings"`
	Empty       bool      `json:"empty"`
	Suggestions []string  `json:"suggestions"`
}

// APIError is a non-success response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed: %s", e.Message)
}

// Client is the HTTP client for the swap export service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new export service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// CreateExport runs an export on the server and returns its summary and preview.
func (c *Client) CreateExport(ctx context.Context, in ExportRequest) (*Export, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/exports", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, c.parseErrorResponse(resp)
	}

	var out Export
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("export created", "id", out.ID, "rows", out.RowCount)
	return &out, nil
}

// GetExport retrieves a stored export.
func (c *Client) GetExport(ctx context.Context, id string) (*Export, error) {
	u := fmt.Sprintf("%s/api/v1/exports/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var out Export
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// DownloadCSV fetches the CSV bytes of a stored export.
func (c *Client) DownloadCSV(ctx context.Context, id string) ([]byte, error) {
	u := fmt.Sprintf("%s/api/v1/exports/%s/csv", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return data, nil
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}
	return nil
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)),
		}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
}
