package helius

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/brojonat/swapexport/service/metrics"
	"golang.org/x/time/rate"
)

// DefaultMaxCount caps a fetch when the caller does not set one.
const DefaultMaxCount = 5000

// PageGetter fetches a single page of raw transactions.
// *Client implements it; tests substitute a fake.
type PageGetter interface {
	GetTransactions(ctx context.Context, req PageRequest) ([]RawTransaction, error)
}

// FetchParams bounds a paginated fetch. Start and End are inclusive Unix seconds.
type FetchParams struct {
	Address  string
	Start    int64
	End      int64
	MaxCount int
}

// Fetcher walks an address's history backward one page at a time.
type Fetcher struct {
	pages    PageGetter
	pageSize int
	limiter  *rate.Limiter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewFetcher creates a Fetcher. Page requests are spaced at least pageInterval
// apart across every FetchAll call sharing this Fetcher.
func NewFetcher(pages PageGetter, pageSize int, pageInterval time.Duration, m *metrics.Metrics, logger *slog.Logger) *Fetcher {
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Fetcher{
		pages:    pages,
		pageSize: pageSize,
		limiter:  rate.NewLimiter(rate.Every(pageInterval), 1),
		metrics:  m,
		logger:   logger,
	}
}

// FetchAll returns the raw records of p.Address with Start <= timestamp <= End,
// newest first, at most p.MaxCount of them.
//
// Pagination stops on an empty page, when the oldest timestamped record of a
// page is older than Start, when MaxCount records are held, on a short page, or when
// the last record has no signature to continue from. If a page fails after
// retries, the records gathered so far are returned together with an error
// wrapping ErrFetchFailed.
func (f *Fetcher) FetchAll(ctx context.Context, p FetchParams) ([]RawTransaction, error) {
	maxCount := p.MaxCount
	if maxCount <= 0 {
		maxCount = DefaultMaxCount
	}

	var kept []RawTransaction
	before := ""

	for page := 1; ; page++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return kept, fmt.Errorf("%w: waiting for page %d: %w", ErrFetchFailed, page, err)
		}

		records, err := f.pages.GetTransactions(ctx, PageRequest{
			Address: p.Address,
			Limit:   f.pageSize,
			Before:  before,
		})
		if err != nil {
			f.logger.ErrorContext(ctx, "failed to fetch page",
				"address", p.Address,
				"page", page,
				"kept", len(kept),
				"error", err,
			)
			f.metrics.RecordTransactionsFetched(len(kept))
			return kept, fmt.Errorf("page %d: %w", page, err)
		}

		if len(records) == 0 {
			f.logger.DebugContext(ctx, "empty page, stopping", "page", page)
			break
		}

		for _, record := range records {
			ts := record.TimestampOrZero()
			if ts >= p.Start && ts <= p.End {
				kept = append(kept, record)
			}
		}

		last := records[len(records)-1]
		if oldest, ok := oldestTimestamp(records); ok && oldest < p.Start {
			f.logger.DebugContext(ctx, "reached start of window, stopping", "page", page)
			break
		}

		if len(kept) >= maxCount {
			kept = kept[:maxCount]
			f.logger.DebugContext(ctx, "reached max count, stopping", "page", page, "max_count", maxCount)
			break
		}

		if len(records) < f.pageSize {
			f.logger.DebugContext(ctx, "short page, stopping", "page", page, "size", len(records))
			break
		}

		before = last.Signature()
		if before == "" {
			f.logger.WarnContext(ctx, "last record has no signature, cannot paginate further", "page", page)
			break
		}
	}

	f.metrics.RecordTransactionsFetched(len(kept))
	f.logger.InfoContext(ctx, "fetch complete",
		"address", p.Address,
		"count", len(kept),
	)
	return kept, nil
}

// oldestTimestamp returns the smallest timestamp in the page, skipping records
// without one.
func oldestTimestamp(records []RawTransaction) (int64, bool) {
	var oldest int64
	found := false
	for _, r := range records {
		ts, ok := r.Timestamp()
		if !ok {
			continue
		}
		if !found || ts < oldest {
			oldest, found = ts, true
		}
	}
	return oldest, found
}
