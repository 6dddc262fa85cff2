package parsers

import (
	"errors"
	"fmt"
	"io"

	"github.com/username/tesoreria/backend/src/models"
)

// ErrUnrecognizedFormat is returned when no parser can decode the file at all.
var ErrUnrecognizedFormat = errors.New("unrecognized statement format")

// RowError records a single statement row that could not be decoded. Row
// errors never abort the batch; they are aggregated and returned with the
// successfully parsed rows so the caller can judge the error rate.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// ParseResult is the output of parsing one uploaded statement file.
type ParseResult struct {
	Movements []models.ParsedMovement
	RowErrors []RowError
	TotalRows int
}

// ErrorRate returns the fraction of rows that failed to decode.
func (r *ParseResult) ErrorRate() float64 {
	if r.TotalRows == 0 {
		return 0
	}
	return float64(len(r.RowErrors)) / float64(r.TotalRows)
}

// Parser is the strategy interface implemented by each statement format.
// Parsers are pure transforms: they never touch persisted state.
type Parser interface {
	// Name returns the parser identifier (e.g. "csv", "xlsx", "ofx").
	Name() string
	// CanParse reports whether this parser should handle the file, judged
	// from the filename and the first bytes of content.
	CanParse(filename string, header []byte) bool
	// Parse decodes the file into candidate movements plus per-row errors.
	Parse(r io.Reader) (*ParseResult, error)
}
