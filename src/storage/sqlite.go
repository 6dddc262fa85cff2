package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/tesoreria/backend/src/engine"
	"github.com/username/tesoreria/backend/src/models"
	"github.com/username/tesoreria/backend/src/utils"
)

const dateLayout = "2006-01-02"

// SQLiteStore implements Store on the application's sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const accountColumns = `id, alias, bank_name, iban, currency, scope, opening_balance, balance, minimum_balance, active`

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	var a models.Account
	var iban sql.NullString
	var opening, balance, minimum string
	if err := row.Scan(&a.ID, &a.Alias, &a.BankName, &iban, &a.Currency, &a.Scope,
		&opening, &balance, &minimum, &a.Active); err != nil {
		return nil, err
	}
	a.IBAN = iban.String
	var err error
	if a.OpeningBalance, err = decimal.NewFromString(opening); err != nil {
		return nil, fmt.Errorf("account %d: bad opening_balance %q: %w", a.ID, opening, err)
	}
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("account %d: bad balance %q: %w", a.ID, balance, err)
	}
	if a.MinimumBalance, err = decimal.NewFromString(minimum); err != nil {
		return nil, fmt.Errorf("account %d: bad minimum_balance %q: %w", a.ID, minimum, err)
	}
	return &a, nil
}

func (s *SQLiteStore) Accounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (s *SQLiteStore) Account(ctx context.Context, id int64) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (s *SQLiteStore) AddAccount(ctx context.Context, a models.Account) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (alias, bank_name, iban, currency, scope, opening_balance, balance, minimum_balance, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Alias, a.BankName, nullIfEmpty(a.IBAN), a.Currency, a.Scope,
		a.OpeningBalance.String(), a.Balance.String(), a.MinimumBalance.String(), a.Active)
	if err != nil {
		return 0, fmt.Errorf("inserting account: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE id = ?`, balance.String(), id)
	if err != nil {
		return fmt.Errorf("updating account %d balance: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const movementColumns = `id, account_id, date, booking_date, amount, description, counterparty, reference,
	origin, status, category, transfer_id, paired_movement_id, matched_movement_id, ignored, batch_id`

func scanMovement(row interface{ Scan(...any) error }) (*models.Movement, error) {
	var m models.Movement
	var date string
	var bookingDate, counterparty, reference, category sql.NullString
	var amount string
	var transferID, pairedID, matchedID, batchID sql.NullInt64
	if err := row.Scan(&m.ID, &m.AccountID, &date, &bookingDate, &amount, &m.Description,
		&counterparty, &reference, &m.Origin, &m.Status, &category,
		&transferID, &pairedID, &matchedID, &m.Ignored, &batchID); err != nil {
		return nil, err
	}

	var err error
	if m.Date, err = time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("movement %d: bad date %q: %w", m.ID, date, err)
	}
	if bookingDate.Valid && bookingDate.String != "" {
		if m.BookingDate, err = time.Parse(dateLayout, bookingDate.String); err != nil {
			return nil, fmt.Errorf("movement %d: bad booking_date %q: %w", m.ID, bookingDate.String, err)
		}
	}
	if m.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("movement %d: bad amount %q: %w", m.ID, amount, err)
	}
	m.Counterparty = counterparty.String
	m.Reference = reference.String
	m.Category = category.String
	m.TransferID = transferID.Int64
	m.PairedMovementID = pairedID.Int64
	m.MatchedMovementID = matchedID.Int64
	m.BatchID = batchID.Int64
	return &m, nil
}

func (s *SQLiteStore) MovementsByAccount(ctx context.Context, accountID int64) ([]models.Movement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE account_id = ? ORDER BY date, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("querying movements for account %d: %w", accountID, err)
	}
	defer rows.Close()
	return collectMovements(rows)
}

func (s *SQLiteStore) MovementsInWindow(ctx context.Context, from, to time.Time) ([]models.Movement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE date >= ? AND date <= ? ORDER BY date, id`,
		utils.Day(from).Format(dateLayout), utils.Day(to).Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("querying movements in window: %w", err)
	}
	defer rows.Close()
	return collectMovements(rows)
}

func collectMovements(rows *sql.Rows) ([]models.Movement, error) {
	var movements []models.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, *m)
	}
	return movements, rows.Err()
}

func (s *SQLiteStore) Movement(ctx context.Context, id int64) (*models.Movement, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+movementColumns+` FROM movements WHERE id = ?`, id)
	m, err := scanMovement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

func movementArgs(m models.Movement) []any {
	var bookingDate any
	if !m.BookingDate.IsZero() {
		bookingDate = utils.Day(m.BookingDate).Format(dateLayout)
	}
	return []any{
		m.AccountID,
		utils.Day(m.Date).Format(dateLayout),
		bookingDate,
		m.Amount.String(),
		m.Description,
		nullIfEmpty(m.Counterparty),
		nullIfEmpty(m.Reference),
		m.Origin,
		m.Status,
		nullIfEmpty(m.Category),
		nullIfZero(m.TransferID),
		nullIfZero(m.PairedMovementID),
		nullIfZero(m.MatchedMovementID),
		m.Ignored,
		nullIfZero(m.BatchID),
		engine.MovementFingerprint(m),
	}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

const insertMovementSQL = `INSERT INTO movements
	(account_id, date, booking_date, amount, description, counterparty, reference,
	 origin, status, category, transfer_id, paired_movement_id, matched_movement_id, ignored, batch_id, fingerprint)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *SQLiteStore) AddMovement(ctx context.Context, m models.Movement) (int64, error) {
	res, err := s.db.ExecContext(ctx, insertMovementSQL, movementArgs(m)...)
	if err != nil {
		return 0, fmt.Errorf("inserting movement: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) PutMovement(ctx context.Context, m models.Movement) error {
	if m.ID == 0 {
		return fmt.Errorf("putting movement: missing id")
	}
	var bookingDate any
	if !m.BookingDate.IsZero() {
		bookingDate = utils.Day(m.BookingDate).Format(dateLayout)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE movements SET
		account_id = ?, date = ?, booking_date = ?, amount = ?, description = ?, counterparty = ?,
		reference = ?, origin = ?, status = ?, category = ?, transfer_id = ?, paired_movement_id = ?,
		matched_movement_id = ?, ignored = ?, batch_id = ?, fingerprint = ?
		WHERE id = ?`,
		m.AccountID, utils.Day(m.Date).Format(dateLayout), bookingDate, m.Amount.String(), m.Description,
		nullIfEmpty(m.Counterparty), nullIfEmpty(m.Reference), m.Origin, m.Status, nullIfEmpty(m.Category),
		nullIfZero(m.TransferID), nullIfZero(m.PairedMovementID), nullIfZero(m.MatchedMovementID),
		m.Ignored, nullIfZero(m.BatchID), engine.MovementFingerprint(m), m.ID)
	if err != nil {
		return fmt.Errorf("updating movement %d: %w", m.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertBatch writes the movements and then the batch record inside a single
// transaction. The batch row going in last is what makes a half-finished
// import invisible: without it, a retry sees no committed batch.
func (s *SQLiteStore) InsertBatch(ctx context.Context, batch *models.ImportBatch, movements []models.Movement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning batch transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertMovementSQL)
	if err != nil {
		return fmt.Errorf("preparing movement insert: %w", err)
	}
	defer stmt.Close()

	for i := range movements {
		res, err := stmt.ExecContext(ctx, movementArgs(movements[i])...)
		if err != nil {
			return fmt.Errorf("inserting movement row %d: %w", i, err)
		}
		if movements[i].ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading movement row %d id: %w", i, err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO import_batches (uuid, account_id, filename, total_rows, imported_rows, duplicate_rows, error_rows)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		batch.UUID, batch.AccountID, batch.Filename, batch.TotalRows,
		batch.ImportedRows, batch.DuplicateRows, batch.ErrorRows)
	if err != nil {
		return fmt.Errorf("inserting import batch: %w", err)
	}
	if batch.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading batch id: %w", err)
	}

	for i := range movements {
		if _, err := tx.ExecContext(ctx, `UPDATE movements SET batch_id = ? WHERE id = ?`,
			batch.ID, movements[i].ID); err != nil {
			return fmt.Errorf("linking movement %d to batch: %w", movements[i].ID, err)
		}
		movements[i].BatchID = batch.ID
	}

	return tx.Commit()
}

func (s *SQLiteStore) BatchesByAccount(ctx context.Context, accountID int64) ([]models.ImportBatch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, uuid, account_id, filename, total_rows, imported_rows, duplicate_rows, error_rows, created_at
		 FROM import_batches WHERE account_id = ? ORDER BY id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("querying import batches for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var batches []models.ImportBatch
	for rows.Next() {
		var b models.ImportBatch
		if err := rows.Scan(&b.ID, &b.UUID, &b.AccountID, &b.Filename,
			&b.TotalRows, &b.ImportedRows, &b.DuplicateRows, &b.ErrorRows, &b.CreatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (s *SQLiteStore) AddTransfer(ctx context.Context, t models.Transfer) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transfers (from_account_id, to_account_id, amount, date, note, out_movement_id, in_movement_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.FromAccountID, t.ToAccountID, t.Amount.String(), utils.Day(t.Date).Format(dateLayout),
		nullIfEmpty(t.Note), t.OutMovementID, t.InMovementID)
	if err != nil {
		return 0, fmt.Errorf("inserting transfer: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) Transfer(ctx context.Context, id int64) (*models.Transfer, error) {
	var t models.Transfer
	var amount, date string
	var note sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, from_account_id, to_account_id, amount, date, note, out_movement_id, in_movement_id
		 FROM transfers WHERE id = ?`, id).
		Scan(&t.ID, &t.FromAccountID, &t.ToAccountID, &amount, &date, &note, &t.OutMovementID, &t.InMovementID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("transfer %d: bad amount %q: %w", t.ID, amount, err)
	}
	if t.Date, err = time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("transfer %d: bad date %q: %w", t.ID, date, err)
	}
	t.Note = note.String
	return &t, nil
}

func (s *SQLiteStore) RemoveTransfer(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transfers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting transfer %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
