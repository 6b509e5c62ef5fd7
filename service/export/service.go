package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/brojonat/swapexport/service/filter"
	"github.com/brojonat/swapexport/service/helius"
	"github.com/brojonat/swapexport/service/metrics"
	"github.com/brojonat/swapexport/service/report"
	"github.com/brojonat/swapexport/service/txn"
)

// Fetcher retrieves raw transactions for a window. *helius.Fetcher implements it.
type Fetcher interface {
	FetchAll(ctx context.Context, p helius.FetchParams) ([]helius.RawTransaction, error)
}

// Options bounds a pipeline run.
type Options struct {
	// MaxTransactions caps how many raw records are fetched.
	MaxTransactions int
	// MaxExportRows refuses exports with more filtered rows than this.
	MaxExportRows int
	// FetchTimeout is the deadline for the whole paginated fetch. Zero disables it.
	FetchTimeout time.Duration
	Estimates    txn.Estimates
}

// DefaultOptions returns the standard limits.
func DefaultOptions() Options {
	return Options{
		MaxTransactions: helius.DefaultMaxCount,
		MaxExportRows:   10000,
		FetchTimeout:    5 * time.Minute,
		Estimates:       txn.DefaultEstimates(),
	}
}

// Service runs the export pipeline:
// validate request, fetch, validate records, jq, normalize, filter, size check, summarize, render.
type Service struct {
	fetcher    Fetcher
	normalizer *txn.Normalizer
	opts       Options
	now        func() time.Time
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewService creates an export Service. m and logger may be nil.
func NewService(fetcher Fetcher, opts Options, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.MaxExportRows <= 0 {
		opts.MaxExportRows = DefaultOptions().MaxExportRows
	}
	return &Service{
		fetcher:    fetcher,
		normalizer: txn.NewNormalizer(opts.Estimates, m, logger),
		opts:       opts,
		now:        time.Now,
		metrics:    m,
		logger:     logger,
	}
}

// Run executes one export. A fetch failure aborts the export even when some
// pages were retrieved.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	started := s.now()
	res, err := s.run(ctx, req)

	outcome := "success"
	rows := 0
	switch {
	case errors.Is(err, ErrInvalidInput):
		outcome = "invalid_input"
	case errors.Is(err, ErrExportTooLarge):
		outcome = "too_large"
	case errors.Is(err, helius.ErrFetchFailed):
		outcome = "fetch_failed"
	case err != nil:
		outcome = "error"
	case res.Empty():
		outcome = "empty"
	default:
		rows = res.Table.Len()
	}
	s.metrics.RecordExport(outcome, rows, s.now().Sub(started).Seconds())

	return res, err
}

func (s *Service) run(ctx context.Context, req Request) (*Result, error) {
	plan, err := req.Validate()
	if err != nil {
		s.logger.DebugContext(ctx, "export request rejected", "address", req.Address, "error", err)
		return nil, err
	}

	fetchCtx := ctx
	if s.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
		defer cancel()
	}

	s.logger.InfoContext(ctx, "starting export",
		"address", req.Address,
		"start", plan.Start,
		"end", plan.End,
		"types", plan.Criteria.Tags,
	)

	raws, err := s.fetcher.FetchAll(fetchCtx, helius.FetchParams{
		Address:  req.Address,
		Start:    plan.Criteria.Start,
		End:      plan.Criteria.End,
		MaxCount: s.opts.MaxTransactions,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "fetch failed, aborting export",
			"address", req.Address,
			"partial", len(raws),
			"error", err,
		)
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	valid, drops := txn.Validate(raws)
	s.metrics.RecordTransactionsDropped("not_record", drops.NotRecord)
	s.metrics.RecordTransactionsDropped("missing_signature", drops.MissingSignature)
	s.metrics.RecordTransactionsDropped("missing_timestamp", drops.MissingTimestamp)
	s.metrics.RecordTransactionsDropped("duplicate_signature", drops.DuplicateSignature)

	matched := plan.JQ.Raw(valid)
	s.metrics.RecordTransactionsFiltered("jq", len(valid)-len(matched))

	txs := s.normalizer.NormalizeAll(matched)

	filtered, removed := filter.Apply(txs, plan.Criteria)
	for stage, n := range removed {
		s.metrics.RecordTransactionsFiltered(string(stage), n)
	}

	s.logger.InfoContext(ctx, "export filtered",
		"address", req.Address,
		"fetched", len(raws),
		"dropped", drops.Total(),
		"normalized", len(txs),
		"kept", len(filtered),
	)

	if len(filtered) > s.opts.MaxExportRows {
		return nil, &TooLargeError{Rows: len(filtered), Max: s.opts.MaxExportRows}
	}

	generated := s.now()
	res := &Result{
		Address:      req.Address,
		StartDate:    plan.Start,
		EndDate:      day(plan.End),
		GeneratedAt:  generated,
		Filename:     report.Filename(req.Address, plan.Start, plan.End, generated),
		Transactions: filtered,
		Summary:      report.Summarize(filtered),
		Table:        report.ToTable(filtered),
		Warnings:     plan.Warnings,
		Fetched:      len(raws),
		Dropped:      drops.Total(),
	}
	if res.Empty() {
		res.Suggestions = suggestions(plan)
	}
	return res, nil
}
