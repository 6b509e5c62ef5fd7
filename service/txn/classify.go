package txn

import (
	"fmt"
	"strings"
)

// Tag is an activity type a caller can select for export.
type Tag string

const (
	TagSwap    Tag = "swap"
	TagAggSwap Tag = "agg_swap"
)

// AllTags lists every selectable tag.
var AllTags = []Tag{TagSwap, TagAggSwap}

// Label is the name shown to users for the tag.
func (t Tag) Label() string {
	switch t {
	case TagSwap:
		return "SWAP"
	case TagAggSwap:
		return "AGGREGATOR_SWAP"
	default:
		return strings.ToUpper(string(t))
	}
}

// ParseTag accepts a tag or its user-facing label, case-insensitively.
func ParseTag(s string) (Tag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "swap":
		return TagSwap, nil
	case "agg_swap", "aggregated_swap", "aggregator_swap":
		return TagAggSwap, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
}

// AggregatorProtocol is the protocol label of the Jupiter aggregator.
const AggregatorProtocol = "JUPITER"

var (
	swapTypes = set("SWAP", "SWAP_EXACT_OUT")

	// genericTypes are labels the API uses when it could not classify a transaction.
	genericTypes = set("TRANSFER", "UNKNOWN")

	directDEXes = set("RAYDIUM", "ORCA", "SERUM", "SABER", "MERCURIAL")

	// dexAllowList matches any swap request regardless of activity type.
	dexAllowList = set("JUPITER", "RAYDIUM", "ORCA", "SERUM", "SABER", "MERCURIAL", "ALDRIN", "CREMA", "LIFINITY")

	aggregators = set(AggregatorProtocol)

	aggregatorKeywords = []string{"jupiter", "aggregate", "route"}
)

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, item := range items {
		m[item] = struct{}{}
	}
	return m
}

func in(m map[string]struct{}, s string) bool {
	_, ok := m[strings.ToUpper(s)]
	return ok
}

// IsSwap reports whether t looks like a direct swap: a swap activity type, a
// description mentioning a swap, or a direct DEX behind a generic label.
func IsSwap(t Transaction) bool {
	if in(swapTypes, t.ActivityType) {
		return true
	}
	if strings.Contains(strings.ToLower(t.Description), "swap") {
		return true
	}
	return in(directDEXes, t.Protocol) && in(genericTypes, t.ActivityType)
}

// IsAggregatedSwap reports whether t was routed through an aggregator.
func IsAggregatedSwap(t Transaction) bool {
	if in(aggregators, t.Protocol) {
		return true
	}
	desc := strings.ToLower(t.Description)
	for _, kw := range aggregatorKeywords {
		if strings.Contains(desc, kw) {
			return true
		}
	}
	return false
}

// MatchesTag reports whether t belongs to tag. Protocols on the DEX allow-list
// match TagSwap whatever their activity type; only aggregators get the same
// treatment for TagAggSwap.
func MatchesTag(t Transaction, tag Tag) bool {
	switch tag {
	case TagSwap:
		return IsSwap(t) || in(dexAllowList, t.Protocol)
	case TagAggSwap:
		return IsAggregatedSwap(t)
	default:
		return false
	}
}
