package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/brojonat/swapexport/service/helius"
	"github.com/brojonat/swapexport/service/metrics"
	"github.com/brojonat/swapexport/service/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	raws   []helius.RawTransaction
	err    error
	params []helius.FetchParams
}

func (f *fakeFetcher) FetchAll(ctx context.Context, p helius.FetchParams) ([]helius.RawTransaction, error) {
	f.params = append(f.params, p)
	return f.raws, f.err
}

var jan15 = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC).Unix()

func swapRaw(sig, source string, price float64) helius.RawTransaction {
	return helius.RawTransaction{
		"signature": sig,
		"timestamp": float64(jan15),
		"type":      "SWAP",
		"source":    source,
		"feePayer":  testWallet,
		"tokenTransfers": []any{
			map[string]any{
				"fromUserAccount": testWallet,
				"mint":            "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
				"tokenAmount":     2.0,
				"usdTokenPrice":   price,
			},
		},
	}
}

func newTestService(f Fetcher) (*Service, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	s := NewService(f, DefaultOptions(), metrics.NewMetrics(reg), nil)
	s.now = func() time.Time { return time.Date(2024, 2, 1, 15, 30, 0, 0, time.UTC) }
	return s, reg
}

// exportCount reads exports_total{outcome} from reg.
func exportCount(t *testing.T, reg *prometheus.Registry, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "exports_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRun_Success(t *testing.T) {
	f := &fakeFetcher{raws: []helius.RawTransaction{
		swapRaw("a", "JUPITER", 50),
		swapRaw("b", "RAYDIUM", 10),
		nil,
		{"timestamp": float64(jan15)},
	}}
	s, reg := newTestService(f)

	res, err := s.Run(context.Background(), validRequest(t))
	require.NoError(t, err)

	require.Len(t, f.params, 1)
	assert.Equal(t, testWallet, f.params[0].Address)
	assert.Equal(t, helius.DefaultMaxCount, f.params[0].MaxCount)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix(), f.params[0].Start)

	assert.False(t, res.Empty())
	assert.Equal(t, 4, res.Fetched)
	assert.Equal(t, 2, res.Dropped)
	assert.Equal(t, 2, res.Table.Len())
	assert.Equal(t, 2, res.Summary.TotalCount)
	assert.Equal(t, 1, res.Summary.AggregatedSwapCount)
	assert.Equal(t, 1, res.Summary.SwapCount)
	assert.Equal(t, 120.0, res.Summary.TotalValueUSD)
	assert.Equal(t, "defi_export_7xKXtg2C_20240101_20240131_153000.csv", res.Filename)
	assert.Empty(t, res.Suggestions)

	csv, err := res.CSV()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csv), strings.Join(report.Columns, ",")+"\n"))

	assert.Equal(t, 1.0, exportCount(t, reg, "success"))
}

func TestRun_EmptyResult(t *testing.T) {
	f := &fakeFetcher{}
	s, reg := newTestService(f)

	req := validRequest(t)
	req.MinUSD = 5
	res, err := s.Run(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, res.Empty())
	assert.Equal(t, 0, res.Summary.TotalCount)
	assert.Equal(t, report.NoTransactions, res.Summary.DateRange)
	assert.Equal(t, report.Columns, res.Table.Header)
	assert.Equal(t, 0, res.Table.Len())
	assert.Contains(t, res.Suggestions, "Lower the minimum USD value")

	csv, err := res.CSV()
	require.NoError(t, err)
	assert.Equal(t, strings.Join(report.Columns, ",")+"\n", string(csv))

	assert.Equal(t, 1.0, exportCount(t, reg, "empty"))
}

func TestRun_EmptyResultSuggestsMoreTypes(t *testing.T) {
	tests := []struct {
		name  string
		types []string
		want  bool
	}{
		{"all types", []string{"swap", "agg_swap"}, false},
		{"one type", []string{"swap"}, true},
		{"one type repeated", []string{"swap", "SWAP"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestService(&fakeFetcher{})
			req := validRequest(t)
			req.Types = tt.types

			res, err := s.Run(context.Background(), req)
			require.NoError(t, err)
			require.True(t, res.Empty())
			if tt.want {
				assert.Contains(t, res.Suggestions, "Select more transaction types")
			} else {
				assert.NotContains(t, res.Suggestions, "Select more transaction types")
			}
		})
	}
}

func TestRun_FiltersByTagAndJQ(t *testing.T) {
	f := &fakeFetcher{raws: []helius.RawTransaction{
		swapRaw("a", "JUPITER", 50),
		swapRaw("b", "RAYDIUM", 10),
		swapRaw("c", "ORCA", 10),
	}}
	s, _ := newTestService(f)

	req := validRequest(t)
	req.Types = []string{"swap"}
	req.JQ = []string{`.source != "ORCA"`}

	res, err := s.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, "a", res.Transactions[0].Signature)
	assert.Equal(t, "b", res.Transactions[1].Signature)
}

func TestRun_InvalidInputSkipsFetch(t *testing.T) {
	f := &fakeFetcher{}
	s, reg := newTestService(f)

	req := validRequest(t)
	req.Address = "nope"
	res, err := s.Run(context.Background(), req)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, f.params)
	assert.Equal(t, 1.0, exportCount(t, reg, "invalid_input"))
}

func TestRun_FetchFailureAborts(t *testing.T) {
	f := &fakeFetcher{
		raws: []helius.RawTransaction{swapRaw("a", "JUPITER", 50)},
		err:  fmt.Errorf("%w: status 500", helius.ErrFetchFailed),
	}
	s, reg := newTestService(f)

	res, err := s.Run(context.Background(), validRequest(t))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, helius.ErrFetchFailed)
	assert.NotContains(t, UserMessage(err), "status 500")
	assert.Equal(t, 1.0, exportCount(t, reg, "fetch_failed"))
}

func TestRun_TooLarge(t *testing.T) {
	f := &fakeFetcher{raws: []helius.RawTransaction{
		swapRaw("a", "JUPITER", 50),
		swapRaw("b", "RAYDIUM", 10),
		swapRaw("c", "ORCA", 10),
	}}
	opts := DefaultOptions()
	opts.MaxExportRows = 2
	s := NewService(f, opts, nil, nil)

	_, err := s.Run(context.Background(), validRequest(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExportTooLarge))

	var tooLarge *TooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, 3, tooLarge.Rows)
}

func TestRun_AppliesFetchTimeout(t *testing.T) {
	var deadline time.Time
	f := fetcherFunc(func(ctx context.Context, p helius.FetchParams) ([]helius.RawTransaction, error) {
		deadline, _ = ctx.Deadline()
		return nil, nil
	})
	opts := DefaultOptions()
	opts.FetchTimeout = time.Minute
	s := NewService(f, opts, nil, nil)

	_, err := s.Run(context.Background(), validRequest(t))
	require.NoError(t, err)
	assert.False(t, deadline.IsZero())
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

type fetcherFunc func(ctx context.Context, p helius.FetchParams) ([]helius.RawTransaction, error)

func (f fetcherFunc) FetchAll(ctx context.Context, p helius.FetchParams) ([]helius.RawTransaction, error) {
	return f(ctx, p)
}
