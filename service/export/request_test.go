package export

import (
	"errors"
	"testing"
	"time"

	"github.com/brojonat/swapexport/service/txn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func validRequest(t *testing.T) Request {
	return Request{
		Address:   testWallet,
		StartDate: date(t, "2024-01-01"),
		EndDate:   date(t, "2024-01-31"),
		Types:     []string{"swap", "agg_swap"},
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("02/29/2024")
	assert.Error(t, err)
}

func TestValidate_BuildsWindow(t *testing.T) {
	plan, err := validRequest(t).Validate()
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), plan.Start)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), plan.End)
	assert.Equal(t, plan.Start.Unix(), plan.Criteria.Start)
	assert.Equal(t, plan.End.Unix(), plan.Criteria.End)
	assert.Equal(t, []txn.Tag{txn.TagSwap, txn.TagAggSwap}, plan.Criteria.Tags)
	assert.Nil(t, plan.Criteria.MaxUSD)
	assert.Empty(t, plan.Warnings)
	assert.Equal(t, 0, plan.JQ.Len())
}

func TestValidate_DedupesTags(t *testing.T) {
	req := validRequest(t)
	req.Types = []string{"swap", "SWAP", "aggregated_swap", "agg_swap"}

	plan, err := req.Validate()
	require.NoError(t, err)
	assert.Equal(t, []txn.Tag{txn.TagSwap, txn.TagAggSwap}, plan.Criteria.Tags)
}

func TestValidate_Rejects(t *testing.T) {
	neg := -1.0
	low := 5.0

	tests := []struct {
		name    string
		mutate  func(r *Request)
		problem string
	}{
		{
			name:    "empty address",
			mutate:  func(r *Request) { r.Address = "" },
			problem: "wallet",
		},
		{
			name:    "bad base58",
			mutate:  func(r *Request) { r.Address = "0OIl" + testWallet[4:] },
			problem: "wallet",
		},
		{
			name:    "missing start",
			mutate:  func(r *Request) { r.StartDate = time.Time{} },
			problem: "start date is required",
		},
		{
			name:    "start after end",
			mutate:  func(r *Request) { r.StartDate, r.EndDate = r.EndDate, r.StartDate },
			problem: "start date must be on or before end date",
		},
		{
			name:    "negative min",
			mutate:  func(r *Request) { r.MinUSD = -5 },
			problem: "minimum value cannot be negative",
		},
		{
			name:    "max below min",
			mutate:  func(r *Request) { r.MinUSD = 10; r.MaxUSD = &low },
			problem: "maximum value must be greater than or equal to minimum value",
		},
		{
			name:    "negative max",
			mutate:  func(r *Request) { r.MaxUSD = &neg },
			problem: "maximum value",
		},
		{
			name:    "no types",
			mutate:  func(r *Request) { r.Types = nil },
			problem: "select at least one transaction type",
		},
		{
			name:    "unknown type",
			mutate:  func(r *Request) { r.Types = []string{"transfer"} },
			problem: "transfer",
		},
		{
			name:    "bad mint",
			mutate:  func(r *Request) { r.TokenMint = "short" },
			problem: "token mint",
		},
		{
			name:    "bad jq",
			mutate:  func(r *Request) { r.JQ = []string{".type =="} },
			problem: "jq",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest(t)
			tt.mutate(&req)

			plan, err := req.Validate()
			require.Error(t, err)
			assert.Nil(t, plan)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), tt.problem)
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	req := Request{MinUSD: -1}
	_, err := req.Validate()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.GreaterOrEqual(t, len(verr.Problems), 5)
}

func TestValidate_Warnings(t *testing.T) {
	req := validRequest(t)
	req.EndDate = req.StartDate
	plan, err := req.Validate()
	require.NoError(t, err)
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], "single-day")

	req = validRequest(t)
	req.EndDate = date(t, "2024-06-30")
	plan, err = req.Validate()
	require.NoError(t, err)
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], "182 days")
}

func TestValidate_TruncatesToUTCDay(t *testing.T) {
	req := validRequest(t)
	req.StartDate = time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)

	plan, err := req.Validate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), plan.Start)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "a; b", UserMessage(&ValidationError{Problems: []string{"a", "b"}}))
	assert.Contains(t, UserMessage(&TooLargeError{Rows: 11, Max: 10}), "11 rows")
	assert.Equal(t, "export failed due to an internal error", UserMessage(errors.New("disk on fire")))
}
