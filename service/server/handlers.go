package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/brojonat/swapexport/service/export"
	"github.com/brojonat/swapexport/service/helius"
	"github.com/brojonat/swapexport/service/nats"
	"github.com/brojonat/swapexport/service/report"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB
	publishTimeout     = 5 * time.Second
)

// Exporter runs one export. *export.Service implements it.
type Exporter interface {
	Run(ctx context.Context, req export.Request) (*export.Result, error)
}

type createExportRequest struct {
	Address   string   `json:"address"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	MinUSD    float64  `json:"min_value_usd"`
	MaxUSD    *float64 `json:"max_value_usd,omitempty"`
	Types     []string `json:"types"`
	TokenMint string   `json:"token_mint,omitempty"`
}

// toExport parses the dates; empty dates stay zero so Validate reports them
// with the other problems.
func (r createExportRequest) toExport() (export.Request, error) {
	var start, end time.Time
	var err error
	if r.StartDate != "" {
		if start, err = export.ParseDate(r.StartDate); err != nil {
			return export.Request{}, errorf("start_date: %v", err)
		}
	}
	if r.EndDate != "" {
		if end, err = export.ParseDate(r.EndDate); err != nil {
			return export.Request{}, errorf("end_date: %v", err)
		}
	}
	return export.Request{
		Address:   strings.TrimSpace(r.Address),
		StartDate: start,
		EndDate:   end,
		MinUSD:    r.MinUSD,
		MaxUSD:    r.MaxUSD,
		Types:     r.Types,
		TokenMint: strings.TrimSpace(r.TokenMint),
	}, nil
}

type exportResponse struct {
	ID          string         `json:"id"`
	Address     string         `json:"address"`
	Filename    string         `json:"filename"`
	StartDate   string         `json:"start_date"`
	EndDate     string         `json:"end_date"`
	GeneratedAt time.Time      `json:"generated_at"`
	Summary     report.Summary `json:"summary"`
	Preview     report.Table   `json:"preview"`
	RowCount    int            `json:"row_count"`
	Warnings    []string       `json:"warnings"`
	Empty       bool           `json:"empty"`
	Suggestions []string       `json:"suggestions"`
}

func toResponse(id string, res *export.Result, previewRows int) exportResponse {
	return exportResponse{
		ID:          id,
		Address:     res.Address,
		Filename:    res.Filename,
		StartDate:   res.StartDate.Format(export.DateLayout),
		EndDate:     res.EndDate.Format(export.DateLayout),
		GeneratedAt: res.GeneratedAt.UTC(),
		Summary:     res.Summary,
		Preview:     res.Table.Preview(previewRows),
		RowCount:    res.Table.Len(),
		Warnings:    nonNil(res.Warnings),
		Empty:       res.Empty(),
		Suggestions: nonNil(res.Suggestions),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// handleCreateExport returns a handler that runs an export and stores the result.
// POST /api/v1/exports
func handleCreateExport(exporter Exporter, store *ExportStore, publisher nats.Publisher, previewRows int, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var body createExportRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			logger.Debug("failed to decode export request", "error", err)
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, "request body too large: maximum size is 1MB", http.StatusBadRequest)
				return
			}
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}

		req, err := body.toExport()
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		res, err := exporter.Run(r.Context(), req)
		if err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				logger.Error("export failed", "address", req.Address, "error", err)
			} else {
				logger.Debug("export rejected", "address", req.Address, "error", err)
			}
			writeError(w, export.UserMessage(err), status)
			return
		}

		id := store.Put(res)
		logger.Info("export created",
			"id", id,
			"address", res.Address,
			"rows", res.Table.Len(),
			"total_value_usd", res.Summary.TotalValueUSD,
		)

		if publisher != nil {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), publishTimeout)
			if err := publisher.PublishExport(ctx, nats.FromResult(id, res)); err != nil {
				logger.Error("failed to publish export event", "id", id, "error", err)
			}
			cancel()
		}

		writeJSON(w, toResponse(id, res, previewRows), http.StatusCreated)
	})
}

// handleGetExport returns a handler that retrieves a stored export's summary and preview.
// GET /api/v1/exports/{id}
func handleGetExport(store *ExportStore, previewRows int, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		res, ok := store.Get(id)
		if !ok {
			writeError(w, "export not found", http.StatusNotFound)
			return
		}

		logger.Debug("export retrieved", "id", id)
		writeJSON(w, toResponse(id, res, previewRows), http.StatusOK)
	})
}

// handleDownloadCSV returns a handler that streams a stored export as CSV.
// GET /api/v1/exports/{id}/csv
func handleDownloadCSV(store *ExportStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		res, ok := store.Get(id)
		if !ok {
			writeError(w, "export not found", http.StatusNotFound)
			return
		}

		data, err := res.CSV()
		if err != nil {
			logger.Error("failed to render csv", "id", id, "error", err)
			writeError(w, "failed to render csv", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", report.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	})
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, export.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, export.ErrExportTooLarge):
		return http.StatusUnprocessableEntity
	case errors.Is(err, helius.ErrFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// errorf is a helper to format error strings.
func errorf(format string, args ...interface{}) error {
	return &validationError{msg: strings.TrimSpace(fmt.Sprintf(format, args...))}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}
