package filter

import (
	"fmt"

	"github.com/brojonat/swapexport/service/helius"
	"github.com/itchyny/gojq"
)

// JQ is a set of compiled jq expressions that must all be truthy for a raw
// record to be kept.
type JQ struct {
	exprs []string
	codes []*gojq.Code
}

// CompileJQ parses and compiles every expression.
func CompileJQ(exprs []string) (*JQ, error) {
	j := &JQ{exprs: exprs, codes: make([]*gojq.Code, len(exprs))}
	for i, expr := range exprs {
		query, err := gojq.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", expr, err)
		}
		j.codes[i], err = gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", expr, err)
		}
	}
	return j, nil
}

// Len is the number of expressions. A nil *JQ has none.
func (j *JQ) Len() int {
	if j == nil {
		return 0
	}
	return len(j.codes)
}

// Match runs every expression against raw; an error, no output, or a falsy
// first output rejects the record.
func (j *JQ) Match(raw helius.RawTransaction) bool {
	if j.Len() == 0 {
		return true
	}
	if raw == nil {
		return false
	}
	input := map[string]any(raw)
	for _, code := range j.codes {
		iter := code.Run(input)
		v, ok := iter.Next()
		if !ok {
			return false
		}
		if _, isErr := v.(error); isErr {
			return false
		}
		if !isTruthy(v) {
			return false
		}
	}
	return true
}

// Raw keeps the raw records that match every expression.
func (j *JQ) Raw(raws []helius.RawTransaction) []helius.RawTransaction {
	if j.Len() == 0 {
		return raws
	}
	out := make([]helius.RawTransaction, 0, len(raws))
	for _, raw := range raws {
		if j.Match(raw) {
			out = append(out, raw)
		}
	}
	return out
}

// isTruthy follows jq semantics: only false and null are falsy.
func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	default:
		return true
	}
}
