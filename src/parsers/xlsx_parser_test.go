package parsers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestXLSXParserBankExport(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"Banco Ejemplo"},
		{"Fecha", "Concepto", "Importe"},
		{"01-06-2025", "Recibo luz", "-33,50"},
		{"03-06-2025", "Nomina junio", "1.234,56"},
		{"bad-date", "Cuota", "-9,00"},
	})

	res, err := NewXLSXParser().Parse(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalRows)
	require.Len(t, res.Movements, 2)
	require.Len(t, res.RowErrors, 1)
	assert.Equal(t, "-33.5", res.Movements[0].Amount.String())
	assert.Equal(t, "Nomina junio", res.Movements[1].Description)
}

func TestXLSXParserNoHeader(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"solo", "texto", "aqui"},
	})
	_, err := NewXLSXParser().Parse(bytes.NewReader(buf.Bytes()))
	assert.ErrorIs(t, err, ErrUnrecognizedFormat)
}

func TestXLSXParserCanParse(t *testing.T) {
	p := NewXLSXParser()
	zipHeader := []byte{0x50, 0x4b, 0x03, 0x04, 0x00}
	assert.True(t, p.CanParse("extracto.xlsx", zipHeader))
	assert.False(t, p.CanParse("extracto.csv", zipHeader))
	assert.False(t, p.CanParse("extracto.xlsx", []byte("Fecha;Importe")))
}
