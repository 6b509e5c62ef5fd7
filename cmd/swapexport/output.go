package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/brojonat/swapexport/client"
)

func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newLogger writes JSON logs to stderr so stdout stays clean for output.
func newLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	default:
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// printExport renders an export's summary, preview, warnings and suggestions.
func printExport(w io.Writer, e *client.Export) {
	fmt.Fprintln(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintf(w, "Export:       %s\n", e.Filename)
	if e.ID != "" {
		fmt.Fprintf(w, "ID:           %s\n", e.ID)
	}
	fmt.Fprintf(w, "Wallet:       %s\n", e.Address)
	fmt.Fprintf(w, "Window:       %s to %s\n", e.StartDate, e.EndDate)
	fmt.Fprintln(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	for _, warning := range e.Warnings {
		fmt.Fprintf(w, "! %s\n", warning)
	}

	if e.Empty {
		fmt.Fprintln(w, "No transactions matched your filters.")
		for _, s := range e.Suggestions {
			fmt.Fprintf(w, "  - %s\n", s)
		}
		return
	}

	s := e.Summary
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Transactions:\t%d\n", s.TotalCount)
	fmt.Fprintf(tw, "Swaps:\t%d\n", s.SwapCount)
	fmt.Fprintf(tw, "Aggregated swaps:\t%d\n", s.AggregatedSwapCount)
	fmt.Fprintf(tw, "Protocols:\t%d (%s)\n", s.UniqueProtocolCount, strings.Join(s.Protocols, ", "))
	fmt.Fprintf(tw, "Total value:\t$%.2f\n", s.TotalValueUSD)
	fmt.Fprintf(tw, "Date range:\t%s\n", s.DateRange)
	tw.Flush()

	if len(e.Preview.Rows) == 0 {
		return
	}
	fmt.Fprintf(w, "\nPreview (%d of %d rows):\n", len(e.Preview.Rows), e.RowCount)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(e.Preview.Header, "\t")))
	for _, row := range e.Preview.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}
