package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/tesoreria/backend/src/models"
	"github.com/username/tesoreria/backend/src/utils"
)

// Fingerprint hashes the identity of a movement for duplicate detection:
// SHA256("{accountID}|{date}|{amount 2dp}|{normalized description}").
// The match is intentionally exact on date and amount so legitimate repeated
// charges with differing descriptions are imported, not suppressed.
func Fingerprint(accountID int64, date time.Time, amount decimal.Decimal, description string) string {
	input := fmt.Sprintf("%d|%s|%s|%s",
		accountID,
		utils.Day(date).Format("2006-01-02"),
		amount.StringFixed(2),
		utils.NormalizeDescription(description),
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

// MovementFingerprint returns the duplicate fingerprint of a stored movement.
func MovementFingerprint(m models.Movement) string {
	return Fingerprint(m.AccountID, m.Date, m.Amount, m.Description)
}

// DedupResult partitions freshly parsed candidates against what is already
// stored for the target account.
type DedupResult struct {
	ToImport   []models.ParsedMovement
	Duplicates []models.ParsedMovement
}

// PartitionDuplicates splits candidates into rows to import and rows already
// present on the account. Pure function of its inputs; nothing is mutated.
func PartitionDuplicates(existing []models.Movement, accountID int64, candidates []models.ParsedMovement) DedupResult {
	seen := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		seen[MovementFingerprint(m)] = struct{}{}
	}

	var res DedupResult
	for _, c := range candidates {
		fp := Fingerprint(accountID, c.Date, c.Amount, c.Description)
		if _, dup := seen[fp]; dup {
			res.Duplicates = append(res.Duplicates, c)
			continue
		}
		res.ToImport = append(res.ToImport, c)
	}
	return res
}
