package parsers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVParserSpanishExport(t *testing.T) {
	input := strings.Join([]string{
		"Banco Ejemplo - Extracto de cuenta",
		"",
		"Fecha;Fecha valor;Concepto;Beneficiario;Importe",
		"01-06-2025;02-06-2025;Recibo luz;Iberdrola;-33,50",
		"03-06-2025;03-06-2025;Nomina junio;Empresa SL;1.234,56",
	}, "\n")

	p := NewCSVParser()
	res, err := p.Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalRows)
	assert.Empty(t, res.RowErrors)
	require.Len(t, res.Movements, 2)

	first := res.Movements[0]
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), first.ValueDate)
	assert.Equal(t, "-33.5", first.Amount.String())
	assert.Equal(t, "Recibo luz", first.Description)
	assert.Equal(t, "Iberdrola", first.Counterparty)

	second := res.Movements[1]
	assert.Equal(t, "1234.56", second.Amount.String())
}

func TestCSVParserCommaSeparated(t *testing.T) {
	input := strings.Join([]string{
		"Date,Description,Amount,Reference",
		"2025-06-01,Coffee shop,-4.20,TX-1",
		"2025-06-02,Salary,2500.00,TX-2",
	}, "\n")

	res, err := NewCSVParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, res.Movements, 2)
	assert.Equal(t, "TX-1", res.Movements[0].Reference)
}

func TestCSVParserRowErrorsDoNotAbort(t *testing.T) {
	input := strings.Join([]string{
		"Fecha;Concepto;Importe",
		"01-06-2025;Recibo luz;-33,50",
		"no-es-fecha;Recibo agua;-20,00",
		"02-06-2025;;-5,00",
		"03-06-2025;Nomina;1200,00",
	}, "\n")

	res, err := NewCSVParser().Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 4, res.TotalRows)
	assert.Len(t, res.Movements, 2)
	require.Len(t, res.RowErrors, 2)
	assert.Equal(t, 0.5, res.ErrorRate())
}

func TestCSVParserNoHeader(t *testing.T) {
	input := "just some text\nwith no statement header\n"
	_, err := NewCSVParser().Parse(strings.NewReader(input))
	assert.ErrorIs(t, err, ErrUnrecognizedFormat)
}

func TestCSVParserSkipsBlankRows(t *testing.T) {
	input := strings.Join([]string{
		"Fecha;Concepto;Importe",
		"01-06-2025;Recibo luz;-33,50",
		";;",
		"",
	}, "\n")

	res, err := NewCSVParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalRows)
	assert.Len(t, res.Movements, 1)
}
