package parsers

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// xlsxMagic is the ZIP local file header every .xlsx starts with.
var xlsxMagic = []byte{0x50, 0x4b, 0x03, 0x04}

// XLSXParser parses spreadsheet statement exports. It reads the first sheet
// and locates the header row the same way the CSV parser does, so bank
// spreadsheets with branding rows above the data work unchanged.
type XLSXParser struct{}

func NewXLSXParser() *XLSXParser { return &XLSXParser{} }

func (p *XLSXParser) Name() string { return "xlsx" }

func (p *XLSXParser) CanParse(filename string, header []byte) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".xlsx" && ext != ".xls" {
		return false
	}
	return bytes.HasPrefix(header, xlsxMagic)
}

func (p *XLSXParser) Parse(r io.Reader) (*ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: opening spreadsheet: %v", ErrUnrecognizedFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: spreadsheet has no sheets", ErrUnrecognizedFormat)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: reading sheet %q: %v", ErrUnrecognizedFormat, sheets[0], err)
	}

	result := &ParseResult{}
	headerFound := false
	var cm columnMap

	for i, row := range rows {
		line := i + 1
		if !headerFound {
			if mapped, ok := mapColumns(row); ok {
				cm = mapped
				headerFound = true
			}
			continue
		}

		if isBlankRow(row) {
			continue
		}
		result.TotalRows++

		pm, err := buildMovement(row, cm)
		if err != nil {
			result.RowErrors = append(result.RowErrors, RowError{Line: line, Reason: err.Error()})
			continue
		}
		result.Movements = append(result.Movements, pm)
	}

	if !headerFound {
		return nil, fmt.Errorf("%w: no usable header row found in sheet %q", ErrUnrecognizedFormat, sheets[0])
	}
	return result, nil
}
