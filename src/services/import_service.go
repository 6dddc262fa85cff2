package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/username/tesoreria/backend/src/config"
	"github.com/username/tesoreria/backend/src/engine"
	"github.com/username/tesoreria/backend/src/logger"
	"github.com/username/tesoreria/backend/src/models"
	"github.com/username/tesoreria/backend/src/parsers"
	"github.com/username/tesoreria/backend/src/security/validation"
	"github.com/username/tesoreria/backend/src/storage"
	"github.com/username/tesoreria/backend/src/utils"
)

// sniffLen is how many leading bytes parser selection looks at.
const sniffLen = 512

type importServiceImpl struct {
	store       storage.Store
	projections ProjectionService
	cfg         *config.AppConfig

	// mu serializes imports. Dedup reads existing fingerprints before
	// inserting, so two concurrent imports of the same file could both pass
	// the check; one importer at a time closes that window.
	mu sync.Mutex
}

func NewImportService(store storage.Store, projections ProjectionService, cfg *config.AppConfig) ImportService {
	return &importServiceImpl{
		store:       store,
		projections: projections,
		cfg:         cfg,
	}
}

// ProcessImport runs the full pipeline for one uploaded statement file. Steps
// commit in a fixed order (movements and batch in one transaction, then
// transfer links, then reconciliation, then the balance refresh) so a crash
// mid-way never loses the imported rows; a retry simply dedupes them.
func (s *importServiceImpl) ProcessImport(ctx context.Context, req ImportRequest) (*models.ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	startTime := time.Now()
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	logger.L.Info("import started", "accountID", req.AccountID, "filename", req.Filename)

	account, err := loadActiveAccount(ctx, s.store, req.AccountID)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(req.File)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: uploaded file is empty", ErrValidation)
	}

	header := data
	if len(header) > sniffLen {
		header = header[:sniffLen]
	}
	parser, err := parsers.GetParser(req.Filename, header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	parseRes, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	if parseRes.TotalRows == 0 {
		return nil, fmt.Errorf("%w: file %q contains no movement rows", ErrParsingFailed, req.Filename)
	}

	result := &models.ImportResult{
		TotalRows: parseRes.TotalRows,
		ErrorRows: len(parseRes.RowErrors),
	}
	for _, re := range parseRes.RowErrors {
		result.Errors = append(result.Errors, re.String())
	}
	if parseRes.ErrorRate() > s.cfg.RowErrorRateThreshold {
		result.NeedsMapping = true
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"%.0f%% of rows could not be read; the file layout may need a custom column mapping",
			parseRes.ErrorRate()*100))
	}

	if warning := s.duplicateBatchWarning(ctx, account.ID, req.Filename, parseRes.TotalRows); warning != "" {
		result.Warnings = append(result.Warnings, warning)
	}

	// Sanitize before dedup so stored rows and reimported rows fingerprint
	// identically.
	for i := range parseRes.Movements {
		pm := &parseRes.Movements[i]
		pm.Description = validation.StripUnprintable(pm.Description)
		pm.Counterparty = validation.StripUnprintable(pm.Counterparty)
	}

	existing, err := s.store.MovementsByAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("loading existing movements: %w", err)
	}
	dedup := engine.PartitionDuplicates(existing, account.ID, parseRes.Movements)
	result.DuplicateRows = len(dedup.Duplicates)
	result.ImportedRows = len(dedup.ToImport)

	newMovements := make([]models.Movement, 0, len(dedup.ToImport))
	for _, pm := range dedup.ToImport {
		newMovements = append(newMovements, models.Movement{
			AccountID:    account.ID,
			Date:         pm.Date,
			BookingDate:  pm.ValueDate,
			Amount:       pm.Amount,
			Description:  pm.Description,
			Counterparty: pm.Counterparty,
			Reference:    pm.Reference,
			Origin:       models.OriginImport,
			Status:       models.StatusNoPlanificado,
		})
	}

	batch := &models.ImportBatch{
		UUID:          uuid.NewString(),
		AccountID:     account.ID,
		Filename:      req.Filename,
		TotalRows:     parseRes.TotalRows,
		ImportedRows:  len(newMovements),
		DuplicateRows: len(dedup.Duplicates),
		ErrorRows:     len(parseRes.RowErrors),
		CreatedAt:     now,
	}
	if err := s.store.InsertBatch(ctx, batch, newMovements); err != nil {
		return nil, fmt.Errorf("persisting import batch: %w", err)
	}
	result.BatchUUID = batch.UUID

	ec := engineConfig(s.cfg)

	touched, transfers, err := s.linkTransfers(ctx, newMovements, ec)
	if err != nil {
		return nil, err
	}
	result.DetectedTransfers = transfers

	inBatch := make(map[int64]bool, len(newMovements))
	for _, m := range newMovements {
		inBatch[m.ID] = true
	}
	confirmed, err := s.reconcileAccount(ctx, account.ID, now, ec, inBatch)
	if err != nil {
		return nil, err
	}
	result.ConfirmedMovements = confirmed
	result.UnplannedMovements = len(newMovements) - confirmed

	touched[account.ID] = true
	for accountID := range touched {
		if err := recomputeAccountBalance(ctx, s.store, accountID); err != nil {
			return nil, err
		}
		s.projections.InvalidateAccount(accountID)
	}

	logger.L.Info("import finished",
		"accountID", account.ID,
		"batchUUID", batch.UUID,
		"imported", result.ImportedRows,
		"duplicates", result.DuplicateRows,
		"errors", result.ErrorRows,
		"transfers", result.DetectedTransfers,
		"confirmed", result.ConfirmedMovements,
		"duration", time.Since(startTime).String())
	return result, nil
}

// duplicateBatchWarning flags re-uploads of a file the account has already
// seen. Row-level dedup makes the reimport harmless, but the warning tells
// the operator why nothing new appeared.
func (s *importServiceImpl) duplicateBatchWarning(ctx context.Context, accountID int64, filename string, totalRows int) string {
	batches, err := s.store.BatchesByAccount(ctx, accountID)
	if err != nil {
		logger.L.Warn("could not check previous batches", "accountID", accountID, "error", err)
		return ""
	}
	for _, b := range batches {
		if b.Filename == filename && b.TotalRows == totalRows {
			return fmt.Sprintf("file %q (%d rows) was already imported on %s; duplicate rows were skipped",
				filename, totalRows, b.CreatedAt.Format("2006-01-02"))
		}
	}
	return ""
}

// linkTransfers runs cross-account transfer detection over the date window
// around the newly imported movements and persists the detected pairs. It
// returns the set of counterpart accounts whose movements were linked.
func (s *importServiceImpl) linkTransfers(ctx context.Context, newMovements []models.Movement, ec engine.Config) (map[int64]bool, int, error) {
	touched := make(map[int64]bool)
	if len(newMovements) == 0 {
		return touched, 0, nil
	}

	from, to := newMovements[0].Date, newMovements[0].Date
	for _, m := range newMovements[1:] {
		if m.Date.Before(from) {
			from = m.Date
		}
		if m.Date.After(to) {
			to = m.Date
		}
	}
	window := time.Duration(ec.TransferDateWindowDays) * 24 * time.Hour
	candidates, err := s.store.MovementsInWindow(ctx, utils.Day(from).Add(-window), utils.Day(to).Add(window))
	if err != nil {
		return nil, 0, fmt.Errorf("loading transfer candidates: %w", err)
	}

	detection := engine.DetectTransfers(candidates, ec)
	for _, match := range detection.Matches {
		transfer := models.Transfer{
			FromAccountID: match.Out.AccountID,
			ToAccountID:   match.In.AccountID,
			Amount:        match.Out.Amount.Abs(),
			Date:          match.Out.Date,
			OutMovementID: match.Out.ID,
			InMovementID:  match.In.ID,
		}
		transferID, err := s.store.AddTransfer(ctx, transfer)
		if err != nil {
			return nil, 0, fmt.Errorf("persisting detected transfer: %w", err)
		}

		out, in := match.Out, match.In
		out.TransferID, out.PairedMovementID = transferID, in.ID
		in.TransferID, in.PairedMovementID = transferID, out.ID
		if err := s.store.PutMovement(ctx, out); err != nil {
			return nil, 0, fmt.Errorf("linking transfer leg %d: %w", out.ID, err)
		}
		if err := s.store.PutMovement(ctx, in); err != nil {
			return nil, 0, fmt.Errorf("linking transfer leg %d: %w", in.ID, err)
		}
		touched[out.AccountID] = true
		touched[in.AccountID] = true
	}
	if len(detection.AmbiguousMovementIDs) > 0 {
		logger.L.Info("ambiguous transfer candidates left unlinked", "movementIDs", detection.AmbiguousMovementIDs)
	}
	return touched, len(detection.Matches), nil
}

// reconcileAccount runs one classification pass over the account and persists
// the status changes. The pass may also confirm movements from earlier
// batches against forecasts created since, so the returned count covers only
// the movements in inBatch and stays consistent with the batch's row totals.
func (s *importServiceImpl) reconcileAccount(ctx context.Context, accountID int64, now time.Time, ec engine.Config, inBatch map[int64]bool) (int, error) {
	movements, err := s.store.MovementsByAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("loading movements for reconciliation: %w", err)
	}

	res := engine.Classify(engine.ClassifyInput{Movements: movements, Now: now}, ec)
	confirmed := 0
	for _, m := range res.Updated {
		if err := s.store.PutMovement(ctx, m); err != nil {
			return 0, fmt.Errorf("persisting status change for movement %d: %w", m.ID, err)
		}
		if inBatch[m.ID] && m.Status == models.StatusConfirmado {
			confirmed++
		}
	}
	if len(res.AmbiguousMovementIDs) > 0 {
		logger.L.Info("movements with ambiguous forecast matches left unplanned",
			"accountID", accountID, "movementIDs", res.AmbiguousMovementIDs)
	}
	return confirmed, nil
}
