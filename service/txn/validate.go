package txn

import (
	"github.com/brojonat/swapexport/service/helius"
)

// Drops counts raw records removed by Validate, by reason.
type Drops struct {
	NotRecord          int
	MissingSignature   int
	MissingTimestamp   int
	DuplicateSignature int
}

// Total is the number of dropped records.
func (d Drops) Total() int {
	return d.NotRecord + d.MissingSignature + d.MissingTimestamp + d.DuplicateSignature
}

// Validate keeps the raw records that have a non-empty signature and a
// numeric, non-negative timestamp. Nil entries (array elements that were not
// objects) and repeated signatures are dropped. Order is preserved.
func Validate(raws []helius.RawTransaction) ([]helius.RawTransaction, Drops) {
	var drops Drops
	seen := make(map[string]struct{}, len(raws))
	kept := make([]helius.RawTransaction, 0, len(raws))

	for _, raw := range raws {
		if raw == nil {
			drops.NotRecord++
			continue
		}
		sig := raw.Signature()
		if sig == "" {
			drops.MissingSignature++
			continue
		}
		if ts, ok := raw.Timestamp(); !ok || ts < 0 {
			drops.MissingTimestamp++
			continue
		}
		if _, dup := seen[sig]; dup {
			drops.DuplicateSignature++
			continue
		}
		seen[sig] = struct{}{}
		kept = append(kept, raw)
	}

	return kept, drops
}
