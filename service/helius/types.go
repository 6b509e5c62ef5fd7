package helius

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// RawTransaction is one enhanced transaction record as returned by the Helius
// API. The shape drifts between API versions, so every field is read through
// the accessors below and any of them may be absent.
type RawTransaction map[string]any

// Signature returns the transaction signature, or "" if absent.
func (r RawTransaction) Signature() string {
	return Str(r, "signature")
}

// Timestamp returns the block time in Unix seconds and whether a numeric
// timestamp field was present.
func (r RawTransaction) Timestamp() (int64, bool) {
	v, ok := Number(r, "timestamp")
	if !ok {
		return 0, false
	}
	return int64(v), true
}

// TimestampOrZero treats a missing timestamp as the epoch.
func (r RawTransaction) TimestampOrZero() int64 {
	ts, _ := r.Timestamp()
	return ts
}

// Str returns m[key] as a string. Numbers are formatted; anything else is "".
func Str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// Number returns m[key] as a finite float64. Numeric strings are accepted
// because some API versions quote large amounts.
func Number(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	return toNumber(m[key])
}

// NumberOrZero is Number with a zero default.
func NumberOrZero(m map[string]any, key string) float64 {
	v, _ := Number(m, key)
	return v
}

func toNumber(raw any) (float64, bool) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Object returns m[key] when it is a JSON object, or nil.
func Object(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	obj, _ := m[key].(map[string]any)
	return obj
}

// Objects returns the JSON objects found in the list at m[key]. Non-object
// elements are skipped.
func Objects(m map[string]any, key string) []map[string]any {
	if m == nil {
		return nil
	}
	var list []any
	switch v := m[key].(type) {
	case []any:
		list = v
	case []map[string]any:
		return v
	default:
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
