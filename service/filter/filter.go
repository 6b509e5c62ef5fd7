package filter

import (
	"math"

	"github.com/brojonat/swapexport/service/txn"
)

// Criteria narrows a set of canonical transactions. Start and End are
// inclusive Unix seconds. A nil MaxUSD means no upper bound.
type Criteria struct {
	Start     int64
	End       int64
	MinUSD    float64
	MaxUSD    *float64
	Tags      []txn.Tag
	TokenMint string
}

// Upper returns the effective maximum USD value.
func (c Criteria) Upper() float64 {
	if c.MaxUSD == nil {
		return math.Inf(1)
	}
	return *c.MaxUSD
}

// valueBounded reports whether the value filter does anything.
func (c Criteria) valueBounded() bool {
	return c.MinUSD > 0 || c.MaxUSD != nil
}

// Stage names one filter for counting removals.
type Stage string

const (
	StageDate  Stage = "date"
	StageValue Stage = "value"
	StageType  Stage = "type"
	StageMint  Stage = "token_mint"
)

// Removed records how many transactions each stage removed.
type Removed map[Stage]int

// Apply runs the date, value, type and token filters in that order. The value
// filter is skipped when no bound is set and the token filter when no mint is
// given. Each stage returns a new slice; the input is not modified.
func Apply(txs []txn.Transaction, c Criteria) ([]txn.Transaction, Removed) {
	removed := Removed{}
	step := func(stage Stage, next []txn.Transaction) {
		removed[stage] = len(txs) - len(next)
		txs = next
	}

	step(StageDate, ByDate(txs, c.Start, c.End))
	if c.valueBounded() {
		step(StageValue, ByValue(txs, c.MinUSD, c.Upper()))
	}
	step(StageType, ByTags(txs, c.Tags))
	if c.TokenMint != "" {
		step(StageMint, ByTokenMint(txs, c.TokenMint))
	}
	return txs, removed
}

// ByDate keeps transactions with start <= timestamp <= end.
func ByDate(txs []txn.Transaction, start, end int64) []txn.Transaction {
	return keep(txs, func(t txn.Transaction) bool {
		return t.Timestamp >= start && t.Timestamp <= end
	})
}

// ByValue keeps transactions with min <= value_usd <= max. max may be +Inf.
func ByValue(txs []txn.Transaction, min, max float64) []txn.Transaction {
	return keep(txs, func(t txn.Transaction) bool {
		return t.ValueUSD >= min && t.ValueUSD <= max
	})
}

// ByTags keeps transactions matching at least one tag. No tags keeps nothing.
func ByTags(txs []txn.Transaction, tags []txn.Tag) []txn.Transaction {
	if len(tags) == 0 {
		return []txn.Transaction{}
	}
	return keep(txs, func(t txn.Transaction) bool {
		for _, tag := range tags {
			if txn.MatchesTag(t, tag) {
				return true
			}
		}
		return false
	})
}

// ByTokenMint keeps transactions with a token transfer of mint.
func ByTokenMint(txs []txn.Transaction, mint string) []txn.Transaction {
	return keep(txs, func(t txn.Transaction) bool {
		return t.HasMint(mint)
	})
}

func keep(txs []txn.Transaction, pred func(txn.Transaction) bool) []txn.Transaction {
	out := make([]txn.Transaction, 0, len(txs))
	for _, t := range txs {
		if pred(t) {
			out = append(out, t)
		}
	}
	return out
}
