package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/brojonat/swapexport/service/txn"
	"github.com/shopspring/decimal"
)

// NoTransactions is the date range shown for an empty export.
const NoTransactions = "No transactions"

const dateLayout = "2006-01-02"

// Summary holds the statistics displayed alongside an export.
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

// Summarize computes statistics over txs. Each transaction lands in at most
// one bucket: aggregated swaps first, then regular swaps.
func Summarize(txs []txn.Transaction) Summary {
	s := Summary{
		DateRange:     NoTransactions,
		Protocols:     []string{},
		ActivityTypes: []string{},
	}
	if len(txs) == 0 {
		return s
	}

	protocols := map[string]struct{}{}
	types := map[string]struct{}{}
	total := decimal.Zero
	minTS, maxTS := txs[0].Timestamp, txs[0].Timestamp

	for _, t := range txs {
		switch {
		case txn.IsAggregatedSwap(t):
			s.AggregatedSwapCount++
		case txn.MatchesTag(t, txn.TagSwap):
			s.SwapCount++
		}

		if t.Protocol != "" {
			protocols[t.Protocol] = struct{}{}
		}
		if t.ActivityType != "" {
			types[t.ActivityType] = struct{}{}
		}
		total = total.Add(decimal.NewFromFloat(t.ValueUSD))
		minTS = min(minTS, t.Timestamp)
		maxTS = max(maxTS, t.Timestamp)
	}

	s.TotalCount = len(txs)
	s.UniqueProtocolCount = len(protocols)
	s.TotalValueUSD = total.Round(2).InexactFloat64()
	s.DateRange = fmt.Sprintf("%s to %s", formatDate(minTS), formatDate(maxTS))
	s.Protocols = sortedKeys(protocols)
	s.ActivityTypes = sortedKeys(types)
	return s
}

func formatDate(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(dateLayout)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
