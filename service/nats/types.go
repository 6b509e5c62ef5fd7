package nats

import (
	"time"

	"github.com/brojonat/swapexport/service/export"
)

// ExportEvent announces a completed export.
// It is published to the subject "exports.{address}" in JetStream.
type ExportEvent struct {
	ID       string `json:"id"`
	Address  string `json:"address"`
	Filename string `json:"filename"`

	RowCount      int     `json:"row_count"`
	TotalValueUSD float64 `json:"total_value_usd"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	CreatedAt   time.Time `json:"created_at"`
	PublishedAt time.Time `json:"published_at"`
}

// FromResult builds the event for an export stored under id.
func FromResult(id string, res *export.Result) *ExportEvent {
	return &ExportEvent{
		ID:            id,
		Address:       res.Address,
		Filename:      res.Filename,
		RowCount:      res.Table.Len(),
		TotalValueUSD: res.Summary.TotalValueUSD,
		StartDate:     res.StartDate,
		EndDate:       res.EndDate,
		CreatedAt:     res.GeneratedAt.UTC(),
		PublishedAt:   time.Now().UTC(),
	}
}
