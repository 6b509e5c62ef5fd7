package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/brojonat/swapexport/service/solana"
	"github.com/brojonat/swapexport/service/txn"
)

// ContentType is the MIME type of a serialized table.
const ContentType = "text/csv"

// Columns is the fixed export schema, in order.
var Columns = []string{
	"signature",
	"timestamp",
	"activity_type",
	"token_in",
	"token_out",
	"amount_in",
	"amount_out",
	"value_usd",
	"protocol",
}

// Table is the rendered export: a header and one row of strings per transaction.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// ToTable renders txs under the fixed Columns. Every row has exactly
// len(Columns) cells; missing values render as "" or 0.
func ToTable(txs []txn.Transaction) Table {
	t := Table{
		Header: append([]string(nil), Columns...),
		Rows:   make([][]string, 0, len(txs)),
	}
	for _, tx := range txs {
		t.Rows = append(t.Rows, []string{
			tx.Signature,
			time.Unix(tx.Timestamp, 0).UTC().Format(time.RFC3339),
			tx.ActivityType,
			tx.TokenIn,
			tx.TokenOut,
			formatFloat(tx.AmountIn),
			formatFloat(tx.AmountOut),
			formatFloat(tx.ValueUSD),
			tx.Protocol,
		})
	}
	return t
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Len is the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Preview returns a table holding the first n rows.
func (t Table) Preview(n int) Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return Table{Header: t.Header, Rows: t.Rows[:n]}
}

// WriteCSV writes the header and rows as RFC 4180 CSV.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

// CSV returns the table as CSV bytes.
func (t Table) CSV() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filename builds a descriptive export name such as
// defi_export_7xKXtg2C_20240101_20240131_153000.csv.
func Filename(address string, start, end, generated time.Time) string {
	return fmt.Sprintf("defi_export_%s_%s_%s_%s.csv",
		solana.ShortAddress(address, 8),
		start.UTC().Format("20060102"),
		end.UTC().Format("20060102"),
		generated.UTC().Format("150405"),
	)
}
