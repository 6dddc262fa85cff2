package parsers

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/tesoreria/backend/src/models"
	"github.com/username/tesoreria/backend/src/utils"
)

// columnMap locates the statement columns inside a header row. Banks name
// their columns inconsistently, so each field accepts several aliases,
// Spanish exports first.
type columnMap struct {
	date         int
	valueDate    int
	amount       int
	description  int
	counterparty int
	reference    int
}

var (
	dateAliases         = []string{"fecha", "fecha operacion", "fecha operación", "f. operacion", "date", "booking date"}
	valueDateAliases    = []string{"fecha valor", "f. valor", "value date"}
	amountAliases       = []string{"importe", "cantidad", "amount", "importe (eur)", "importe eur"}
	descriptionAliases  = []string{"concepto", "descripcion", "descripción", "description", "detalle"}
	counterpartyAliases = []string{"beneficiario", "contrapartida", "counterparty", "payee", "ordenante"}
	referenceAliases    = []string{"referencia", "reference", "ref"}
)

func matchAlias(cell string, aliases []string) bool {
	normalized := strings.ToLower(strings.TrimSpace(cell))
	for _, a := range aliases {
		if normalized == a {
			return true
		}
	}
	return false
}

// mapColumns inspects a candidate header row. A usable header has at least a
// date, an amount and a description column.
func mapColumns(cells []string) (columnMap, bool) {
	cm := columnMap{date: -1, valueDate: -1, amount: -1, description: -1, counterparty: -1, reference: -1}
	for i, cell := range cells {
		switch {
		case cm.date < 0 && matchAlias(cell, dateAliases):
			cm.date = i
		case cm.valueDate < 0 && matchAlias(cell, valueDateAliases):
			cm.valueDate = i
		case cm.amount < 0 && matchAlias(cell, amountAliases):
			cm.amount = i
		case cm.description < 0 && matchAlias(cell, descriptionAliases):
			cm.description = i
		case cm.counterparty < 0 && matchAlias(cell, counterpartyAliases):
			cm.counterparty = i
		case cm.reference < 0 && matchAlias(cell, referenceAliases):
			cm.reference = i
		}
	}
	return cm, cm.date >= 0 && cm.amount >= 0 && cm.description >= 0
}

func cellAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

// parseAmount accepts both "1.234,56" (Spanish) and "1234.56" forms, with an
// optional currency suffix.
func parseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimSuffix(cleaned, "€")
	cleaned = strings.TrimSuffix(cleaned, "EUR")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}

	if strings.Contains(cleaned, ",") {
		// Comma is the decimal separator; dots are thousands separators.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// buildMovement decodes one data row against a mapped header.
func buildMovement(cells []string, cm columnMap) (models.ParsedMovement, error) {
	var pm models.ParsedMovement

	dateStr := cellAt(cells, cm.date)
	if dateStr == "" {
		return pm, fmt.Errorf("missing date")
	}
	date, err := utils.ParseStatementDate(dateStr)
	if err != nil {
		return pm, err
	}
	pm.Date = date

	if valueStr := cellAt(cells, cm.valueDate); valueStr != "" {
		if valueDate, err := utils.ParseStatementDate(valueStr); err == nil {
			pm.ValueDate = valueDate
		}
	}

	amountStr := cellAt(cells, cm.amount)
	if amountStr == "" {
		return pm, fmt.Errorf("missing amount")
	}
	if pm.Amount, err = parseAmount(amountStr); err != nil {
		return pm, err
	}

	pm.Description = cellAt(cells, cm.description)
	if pm.Description == "" {
		return pm, fmt.Errorf("missing description")
	}

	pm.Counterparty = cellAt(cells, cm.counterparty)
	pm.Reference = cellAt(cells, cm.reference)
	return pm, nil
}
