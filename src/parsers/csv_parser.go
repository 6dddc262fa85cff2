package parsers

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// CSVParser parses bank CSV exports with a header-mapped, separator-sniffed
// layout. Rows before the header (branding, account summary lines) are
// skipped without counting as errors.
type CSVParser struct{}

func NewCSVParser() *CSVParser { return &CSVParser{} }

func (p *CSVParser) Name() string { return "csv" }

func (p *CSVParser) CanParse(filename string, header []byte) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".csv" || ext == ".txt" {
		return true
	}
	// No extension hint: accept text that looks delimited.
	if ext == "" {
		s := string(header)
		return strings.Contains(s, ";") || strings.Contains(s, ",")
	}
	return false
}

func (p *CSVParser) Parse(r io.Reader) (*ParseResult, error) {
	br := bufio.NewReader(r)
	content, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("%w: reading csv content: %v", ErrUnrecognizedFormat, err)
	}

	sep := sniffSeparator(content)
	cr := csv.NewReader(strings.NewReader(string(content)))
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	result := &ParseResult{}
	headerFound := false
	var cm columnMap
	line := 0

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			if headerFound {
				result.TotalRows++
				result.RowErrors = append(result.RowErrors, RowError{Line: line, Reason: err.Error()})
			}
			continue
		}

		if !headerFound {
			if mapped, ok := mapColumns(record); ok {
				cm = mapped
				headerFound = true
			}
			continue
		}

		if isBlankRow(record) {
			continue
		}
		result.TotalRows++

		pm, err := buildMovement(record, cm)
		if err != nil {
			result.RowErrors = append(result.RowErrors, RowError{Line: line, Reason: err.Error()})
			continue
		}
		result.Movements = append(result.Movements, pm)
	}

	if !headerFound {
		return nil, fmt.Errorf("%w: no usable header row found in CSV", ErrUnrecognizedFormat)
	}
	return result, nil
}

// sniffSeparator picks ';' over ',' when the file carries more of them,
// which is how most Spanish bank exports are delimited. Counting the whole
// content instead of the first line tolerates branding rows above the header.
func sniffSeparator(content []byte) rune {
	s := string(content)
	if strings.Count(s, ";") > strings.Count(s, ",") {
		return ';'
	}
	return ','
}

func isBlankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
