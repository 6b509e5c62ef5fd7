package export

import (
	"time"

	"github.com/brojonat/swapexport/service/report"
	"github.com/brojonat/swapexport/service/txn"
)

// Result is a finished export.
type Result struct {
	Address      string
	StartDate    time.Time
	EndDate      time.Time
	GeneratedAt  time.Time
	Filename     string
	Transactions []txn.Transaction
	Summary      report.Summary
	Table        report.Table
	Warnings     []string
	// Suggestions is set when the export is empty.
	Suggestions []string
	// Fetched is the number of raw records retrieved; Dropped failed validation.
	Fetched int
	Dropped int
}

// Empty reports whether no transactions survived filtering.
func (r *Result) Empty() bool {
	return r == nil || len(r.Transactions) == 0
}

// CSV renders the export table.
func (r *Result) CSV() ([]byte, error) {
	return r.Table.CSV()
}

func suggestions(plan *Plan) []string {
	req := plan.Request
	out := []string{"Try widening the date range"}
	if req.MinUSD > 0 {
		out = append(out, "Lower the minimum USD value")
	}
	if req.MaxUSD != nil {
		out = append(out, "Raise or remove the maximum USD value")
	}
	if len(plan.Criteria.Tags) < len(txn.AllTags) {
		out = append(out, "Select more transaction types")
	}
	if req.TokenMint != "" {
		out = append(out, "Remove the token mint filter")
	}
	if len(req.JQ) > 0 {
		out = append(out, "Relax the jq filters")
	}
	return out
}
