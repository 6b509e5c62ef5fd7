package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/brojonat/swapexport/service/helius"
)

var (
	// ErrInvalidInput marks a request rejected before any network call.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExportTooLarge marks a filtered result above the row limit.
	ErrExportTooLarge = errors.New("export too large")
)

// ValidationError lists every problem found in a Request.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// TooLargeError reports the row count that exceeded the limit.
type TooLargeError struct {
	Rows int
	Max  int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("export has %d rows, more than the limit of %d; narrow the date range or filters", e.Rows, e.Max)
}

func (e *TooLargeError) Unwrap() error {
	return ErrExportTooLarge
}

// UserMessage converts any pipeline error into the single message shown to users.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrExportTooLarge):
		return err.Error()
	case errors.Is(err, helius.ErrFetchFailed):
		return "failed to fetch transactions from the transaction API; please try again later"
	default:
		return "export failed due to an internal error"
	}
}
