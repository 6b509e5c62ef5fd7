package helius

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePages serves canned pages keyed by the before cursor.
type fakePages struct {
	pages    map[string][]RawTransaction
	failOn   string
	requests []PageRequest
}

func (f *fakePages) GetTransactions(ctx context.Context, req PageRequest) ([]RawTransaction, error) {
	f.requests = append(f.requests, req)
	if f.failOn != "" && req.Before == f.failOn {
		return nil, fmt.Errorf("%w: boom", ErrFetchFailed)
	}
	return f.pages[req.Before], nil
}

// makePage builds n records with descending timestamps starting at newest.
func makePage(prefix string, n int, newest int64) []RawTransaction {
	page := make([]RawTransaction, n)
	for i := 0; i < n; i++ {
		page[i] = RawTransaction{
			"signature": fmt.Sprintf("%s-%d", prefix, i),
			"timestamp": float64(newest - int64(i)),
		}
	}
	return page
}

func lastSig(page []RawTransaction) string {
	return page[len(page)-1].Signature()
}

func newTestFetcher(pages PageGetter) *Fetcher {
	return NewFetcher(pages, 100, time.Millisecond, nil, testLogger())
}

func TestFetchAll_StopsAtMaxCount(t *testing.T) {
	p1 := makePage("p1", 100, 10_000)
	p2 := makePage("p2", 100, 9_900)
	p3 := makePage("p3", 100, 9_800)
	p4 := makePage("p4", 100, 100) // older than start
	fake := &fakePages{pages: map[string][]RawTransaction{
		"":          p1,
		lastSig(p1): p2,
		lastSig(p2): p3,
		lastSig(p3): p4,
	}}

	records, err := newTestFetcher(fake).FetchAll(context.Background(), FetchParams{
		Address:  "wallet",
		Start:    1_000,
		End:      20_000,
		MaxCount: 250,
	})
	require.NoError(t, err)
	assert.Len(t, records, 250)
	assert.Len(t, fake.requests, 3, "fourth page must not be requested")
	assert.Equal(t, "p1-0", records[0].Signature())
	assert.Equal(t, "p3-49", records[249].Signature())
}

func TestFetchAll_StopsWhenPageOlderThanStart(t *testing.T) {
	p1 := makePage("p1", 100, 10_000)
	p2 := makePage("p2", 100, 5_050) // spans 5050..4951, start is 5000
	fake := &fakePages{pages: map[string][]RawTransaction{
		"":          p1,
		lastSig(p1): p2,
	}}

	records, err := newTestFetcher(fake).FetchAll(context.Background(), FetchParams{
		Address:  "wallet",
		Start:    5_000,
		End:      20_000,
		MaxCount: 5000,
	})
	require.NoError(t, err)
	assert.Len(t, records, 151)
	assert.Len(t, fake.requests, 2)
	for _, r := range records {
		assert.GreaterOrEqual(t, r.TimestampOrZero(), int64(5_000))
	}
}

func TestFetchAll_AppliesWindowPerRecord(t *testing.T) {
	// The API ignores the window, so newer records must be skipped while paging continues.
	p1 := makePage("p1", 100, 30_000)
	p2 := makePage("p2", 10, 19_905)
	fake := &fakePages{pages: map[string][]RawTransaction{
		"":          p1,
		lastSig(p1): p2,
	}}

	records, err := newTestFetcher(fake).FetchAll(context.Background(), FetchParams{
		Address: "wallet",
		Start:   19_900,
		End:     19_903,
	})
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, int64(19_903), records[0].TimestampOrZero())
	assert.Equal(t, int64(19_900), records[3].TimestampOrZero())
}

func TestFetchAll_BoundariesInclusive(t *testing.T) {
	fake := &fakePages{pages: map[string][]RawTransaction{
		"": {
			{"signature": "a", "timestamp": 200.0},
			{"signature": "b", "timestamp": 150.0},
			{"signature": "c", "timestamp": 100.0},
		},
	}}

	records, err := newTestFetcher(fake).FetchAll(context.Background(), FetchParams{
		Address: "wallet", Start: 100, End: 200,
	})
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestFetchAll_StopsOnShortPage(t *testing.T) {
	short := makePage("p1", 40, 10_000)
	fake := &fakePages{pages: map[string][]RawTransaction{
		"":             short,
		lastSig(short): makePage("p2", 100, 9_000),
	}}

	records, err := newTestFetcher(fake).FetchAll(context.Background(), FetchParams{
		Address: "wallet", Start: 0, End: 20_000,
	})
	require.NoError(t, err)
	assert.Len(t, records, 40)
	assert.Len(t, fake.requests, 1, "a short page is the last page")
}

func TestFetchAll_UntimestampedLastRecordDoesNotStop(t *testing.T) {
	p1 := makePage("p1", 100, 10_000)
	delete(p1[99], "timestamp")
	p2 := makePage("p2", 10, 9_800)
	fake := &fakePages{pages: map[string][]RawTransaction{
		"":          p1,
		lastSig(p1): p2,
	}}

	records, err := newTestFetcher(fake).FetchAll(context.Background(), FetchParams{
		Address: "wallet", Start: 5_000, End: 20_000,
	})
	require.NoError(t, err)
	assert.Len(t, fake.requests, 2)
	assert.Len(t, records, 109)
}

func TestOldestTimestamp(t *testing.T) {
	oldest, ok := oldestTimestamp([]RawTransaction{
		{"timestamp": 300.0},
		{"timestamp": 100.0},
		{"signature": "no-ts"},
		nil,
	})
	assert.True(t, ok)
	assert.Equal(t, int64(100), oldest)

	_, ok = oldestTimestamp([]RawTransaction{nil, {"signature": "x"}})
	assert.False(t, ok)
}

func TestFetchAll_EmptyFirstPage(t *testing.T) {
	fake := &fakePages{pages: map[string][]RawTransaction{}}

	records, err := newTestFetcher(fake).FetchAll(context.Background(), FetchParams{
		Address: "wallet", Start: 0, End: 100,
	})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Len(t, fake.requests, 1)
}

func TestFetchAll_StopsWithoutCursor(t *testing.T) {
	page := makePage("p1", 100, 10_000)
	delete(page[99], "signature")
	fake := &fakePages{pages: map[string][]RawTransaction{"": page}}

	records, err := newTestFetcher(fake).FetchAll(context.Background(), FetchParams{
		Address: "wallet", Start: 0, End: 20_000,
	})
	require.NoError(t, err)
	assert.Len(t, records, 100)
	assert.Len(t, fake.requests, 1)
}

func TestFetchAll_ReturnsPartialOnFailure(t *testing.T) {
	p1 := makePage("p1", 100, 10_000)
	fake := &fakePages{
		pages:  map[string][]RawTransaction{"": p1},
		failOn: lastSig(p1),
	}

	records, err := newTestFetcher(fake).FetchAll(context.Background(), FetchParams{
		Address: "wallet", Start: 0, End: 20_000,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchFailed))
	assert.Len(t, records, 100)
}

func TestFetchAll_SpacesPages(t *testing.T) {
	p1 := makePage("p1", 100, 10_000)
	p2 := makePage("p2", 100, 9_900)
	p3 := makePage("p3", 5, 9_800)
	fake := &fakePages{pages: map[string][]RawTransaction{
		"":          p1,
		lastSig(p1): p2,
		lastSig(p2): p3,
	}}

	f := NewFetcher(fake, 100, 20*time.Millisecond, nil, nil)
	start := time.Now()
	records, err := f.FetchAll(context.Background(), FetchParams{Address: "wallet", Start: 0, End: 20_000})
	require.NoError(t, err)
	assert.Len(t, records, 205)
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestFetchAll_RequestsConfiguredPageSize(t *testing.T) {
	fake := &fakePages{pages: map[string][]RawTransaction{}}
	f := NewFetcher(fake, 25, time.Millisecond, nil, nil)

	_, err := f.FetchAll(context.Background(), FetchParams{Address: "wallet", End: 1})
	require.NoError(t, err)
	require.Len(t, fake.requests, 1)
	assert.Equal(t, 25, fake.requests[0].Limit)
	assert.Equal(t, "wallet", fake.requests[0].Address)
	assert.Equal(t, "", fake.requests[0].Before)
}
