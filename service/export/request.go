package export

import (
	"fmt"
	"time"

	"github.com/brojonat/swapexport/service/filter"
	"github.com/brojonat/swapexport/service/solana"
	"github.com/brojonat/swapexport/service/txn"
)

// DateLayout is the calendar date format accepted for start and end dates.
const DateLayout = "2006-01-02"

// longRangeDays is the span above which a range triggers a warning.
const longRangeDays = 90

// Request is one export as entered by a user. Dates are calendar days in UTC,
// both inclusive.
type Request struct {
	Address   string
	StartDate time.Time
	EndDate   time.Time
	MinUSD    float64
	MaxUSD    *float64
	Types     []string
	TokenMint string
	// JQ expressions must all be truthy on a raw record for it to be kept.
	JQ []string
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// Plan is a validated request ready to run.
type Plan struct {
	Request  Request
	Criteria filter.Criteria
	JQ       *filter.JQ
	// Start and End are the first and last second of the requested window.
	Start    time.Time
	End      time.Time
	Warnings []string
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Validate checks the request and builds its Plan. All problems are reported
// together in a *ValidationError wrapping ErrInvalidInput.
func (r Request) Validate() (*Plan, error) {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if err := solana.ValidateAddress(r.Address); err != nil {
		add("wallet %v", err)
	}

	if r.StartDate.IsZero() {
		add("start date is required")
	}
	if r.EndDate.IsZero() {
		add("end date is required")
	}
	start, end := day(r.StartDate), day(r.EndDate)
	if !r.StartDate.IsZero() && !r.EndDate.IsZero() && start.After(end) {
		add("start date must be on or before end date")
	}

	if r.MinUSD < 0 {
		add("minimum value cannot be negative")
	}
	if r.MaxUSD != nil && *r.MaxUSD < r.MinUSD {
		add("maximum value must be greater than or equal to minimum value")
	}

	var tags []txn.Tag
	seen := map[txn.Tag]bool{}
	for _, s := range r.Types {
		tag, err := txn.ParseTag(s)
		if err != nil {
			add("%v", err)
			continue
		}
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	if len(r.Types) == 0 {
		add("select at least one transaction type")
	}

	if r.TokenMint != "" {
		if err := solana.ValidateAddress(r.TokenMint); err != nil {
			add("token mint %v", err)
		}
	}

	jq, err := filter.CompileJQ(r.JQ)
	if err != nil {
		add("%v", err)
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	windowEnd := end.Add(24*time.Hour - time.Second)
	plan := &Plan{
		Request: r,
		Criteria: filter.Criteria{
			Start:     start.Unix(),
			End:       windowEnd.Unix(),
			MinUSD:    r.MinUSD,
			MaxUSD:    r.MaxUSD,
			Tags:      tags,
			TokenMint: r.TokenMint,
		},
		JQ:    jq,
		Start: start,
		End:   windowEnd,
	}

	days := int(end.Sub(start).Hours()/24) + 1
	switch {
	case days > longRangeDays:
		plan.Warnings = append(plan.Warnings,
			fmt.Sprintf("date range spans %d days; large ranges take longer to fetch and may hit the transaction limit", days))
	case days == 1:
		plan.Warnings = append(plan.Warnings, "single-day date range selected")
	}

	return plan, nil
}
