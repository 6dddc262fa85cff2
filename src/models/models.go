package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementOrigin records how a movement entered the system.
type MovementOrigin string

const (
	OriginImport   MovementOrigin = "import"
	OriginManual   MovementOrigin = "manual"
	OriginForecast MovementOrigin = "forecast"
)

// MovementStatus is the lifecycle status assigned by the reconciliation process.
type MovementStatus string

const (
	StatusPrevisto      MovementStatus = "previsto"       // forecast, not yet due
	StatusNoPlanificado MovementStatus = "no_planificado" // imported, no matching forecast
	StatusVencido       MovementStatus = "vencido"        // forecast whose date elapsed unmatched
	StatusConfirmado    MovementStatus = "confirmado"     // matched or manually confirmed
	StatusConciliado    MovementStatus = "conciliado"     // manually closed, terminal
)

// validTransitions encodes the status state machine. Absent key = no way out.
var validTransitions = map[MovementStatus][]MovementStatus{
	StatusPrevisto:      {StatusVencido, StatusConfirmado},
	StatusVencido:       {StatusConfirmado},
	StatusNoPlanificado: {StatusConfirmado},
	StatusConfirmado:    {StatusConciliado},
}

// CanTransition reports whether the status machine allows moving from one
// status to another. conciliado is terminal.
func CanTransition(from, to MovementStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AccountScope distinguishes personal accounts from property-linked ones.
type AccountScope string

const (
	ScopePersonal AccountScope = "personal"
	ScopeProperty AccountScope = "property"
	ScopeMixed    AccountScope = "mixed"
)

// RiskLevel is the traffic-light summary for an account over a period.
type RiskLevel string

const (
	RiskVerde RiskLevel = "verde"
	RiskAmbar RiskLevel = "ambar"
	RiskRojo  RiskLevel = "rojo"
)

// Account is a bank account tracked by the dashboard. Balance fields use
// decimal so minor units are exact.
type Account struct {
	ID             int64           `json:"id"`
	Alias          string          `json:"alias"`
	BankName       string          `json:"bankName"`
	IBAN           string          `json:"iban"`
	Currency       string          `json:"currency"`
	Scope          AccountScope    `json:"scope"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	Balance        decimal.Decimal `json:"balance"`
	MinimumBalance decimal.Decimal `json:"minimumBalance"`
	Active         bool            `json:"active"`
}

// Movement is a single dated, signed cash entry on an account.
type Movement struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"accountId"`
	Date        time.Time       `json:"date"`
	BookingDate time.Time       `json:"bookingDate,omitempty"`
	Amount      decimal.Decimal `json:"amount"` // negative = expense, positive = income
	Description string          `json:"description"`
	Counterparty string         `json:"counterparty,omitempty"`
	Reference   string          `json:"reference,omitempty"`
	Origin      MovementOrigin  `json:"origin"`
	Status      MovementStatus  `json:"status"`
	Category    string          `json:"category,omitempty"`

	// TransferID and PairedMovementID are set when the movement is one leg of
	// a detected or manually created internal transfer. Zero means unlinked.
	TransferID       int64 `json:"transferId,omitempty"`
	PairedMovementID int64 `json:"pairedMovementId,omitempty"`

	// MatchedMovementID links an import movement to the forecast entry it
	// confirmed (and vice versa). Zero means unmatched.
	MatchedMovementID int64 `json:"matchedMovementId,omitempty"`

	// Ignored movements are kept for audit but excluded from projections.
	// A forecast entry superseded by its matched import row is flagged, not deleted.
	Ignored bool `json:"ignored,omitempty"`

	BatchID int64 `json:"batchId,omitempty"`
}

// IsExpense reports whether the movement is an outflow.
func (m *Movement) IsExpense() bool {
	return m.Amount.IsNegative()
}

// IsPosted reports whether the movement is already reflected in the account's
// stored balance. Forecast-stage movements (previsto, vencido) only affect the
// projected balance.
func (m *Movement) IsPosted() bool {
	switch m.Status {
	case StatusConfirmado, StatusConciliado, StatusNoPlanificado:
		return true
	}
	return false
}

// ImportBatch records one statement file import. The batch row is only
// written once every constituent movement is durably stored, so its absence
// means the import never happened.
type ImportBatch struct {
	ID            int64     `json:"id"`
	UUID          string    `json:"uuid"`
	AccountID     int64     `json:"accountId"`
	Filename      string    `json:"filename"`
	TotalRows     int       `json:"totalRows"`
	ImportedRows  int       `json:"importedRows"`
	DuplicateRows int       `json:"duplicateRows"`
	ErrorRows     int       `json:"errorRows"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Transfer links two opposite-signed movements on different accounts as one
// internal transfer. Amount is always positive; direction is origin → destination.
type Transfer struct {
	ID            int64           `json:"id"`
	FromAccountID int64           `json:"fromAccountId"`
	ToAccountID   int64           `json:"toAccountId"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	Note          string          `json:"note,omitempty"`
	OutMovementID int64           `json:"outMovementId"`
	InMovementID  int64           `json:"inMovementId"`
}

// ParsedMovement is a raw candidate row produced by a statement parser,
// before deduplication and persistence.
type ParsedMovement struct {
	Date         time.Time
	ValueDate    time.Time // zero when the file has a single date column
	Amount       decimal.Decimal
	Description  string
	Counterparty string
	Reference    string
}

// DayProjection is the per-day slice of a balance projection.
type DayProjection struct {
	Date            time.Time       `json:"date"`
	Movements       []Movement      `json:"movements"`
	IncomeCount     int             `json:"incomeCount"`
	ExpenseCount    int             `json:"expenseCount"`
	IncomeAmount    decimal.Decimal `json:"incomeAmount"`
	ExpenseAmount   decimal.Decimal `json:"expenseAmount"`
	EndOfDayBalance decimal.Decimal `json:"endOfDayBalance"`
}

// ProjectionResult is the derived projection for one account over a period.
// It is recomputed on demand and never persisted.
type ProjectionResult struct {
	AccountID        int64           `json:"accountId"`
	Start            time.Time       `json:"start"`
	End              time.Time       `json:"end"`
	Days             []DayProjection `json:"days"`
	TotalIncome      decimal.Decimal `json:"totalIncome"`
	TotalExpense     decimal.Decimal `json:"totalExpense"`
	Net              decimal.Decimal `json:"net"`
	ProjectedBalance decimal.Decimal `json:"projectedBalance"` // end of period
	MinimumBalance   decimal.Decimal `json:"minimumBalance"`   // lowest end-of-day
	Risk             RiskLevel       `json:"risk"`
}

// ImportResult is returned to the caller after an import completes.
type ImportResult struct {
	BatchUUID          string   `json:"batchUuid,omitempty"`
	TotalRows          int      `json:"totalRows"`
	ImportedRows       int      `json:"importedRows"`
	DuplicateRows      int      `json:"duplicateRows"`
	ErrorRows          int      `json:"errorRows"`
	ConfirmedMovements int      `json:"confirmedMovements"`
	UnplannedMovements int      `json:"unplannedMovements"`
	DetectedTransfers  int      `json:"detectedTransfers"`
	NeedsMapping       bool     `json:"needsMapping"` // row error rate crossed the threshold
	Warnings           []string `json:"warnings,omitempty"`
	Errors             []string `json:"errors,omitempty"`
}
