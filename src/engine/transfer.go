package engine

import (
	"sort"

	"github.com/username/tesoreria/backend/src/models"
	"github.com/username/tesoreria/backend/src/utils"
)

// TransferMatch is one detected internal transfer: an outflow on one account
// paired with a near-equal inflow on another.
type TransferMatch struct {
	Out   models.Movement
	In    models.Movement
	Score float64 // combined date+amount deviation, lower is better
}

// TransferDetection is the outcome of one cross-account detection pass.
type TransferDetection struct {
	Matches []TransferMatch
	// AmbiguousMovementIDs lists movements that had more than one equally
	// good partner. They are left unmatched for manual resolution rather
	// than guessed at.
	AmbiguousMovementIDs []int64
}

type candidatePair struct {
	i, j  int // indexes into the eligible slice, i = outflow, j = inflow
	score float64
}

// DetectTransfers scans movements across all accounts for opposite-signed,
// near-equal-amount, near-equal-date pairs. Each movement is claimed by at
// most one pair, assigned first-fit by ascending deviation score. Detection
// is best-effort: a missed pair is recoverable by creating the transfer
// manually, a false positive by unlinking it.
func DetectTransfers(movements []models.Movement, cfg Config) TransferDetection {
	eligible := make([]models.Movement, 0, len(movements))
	for _, m := range movements {
		if m.TransferID != 0 || m.Ignored || m.Amount.IsZero() {
			continue
		}
		eligible = append(eligible, m)
	}

	var pairs []candidatePair
	for i := range eligible {
		for j := range eligible {
			if i == j {
				continue
			}
			out, in := eligible[i], eligible[j]
			if !out.Amount.IsNegative() || !in.Amount.IsPositive() {
				continue
			}
			if out.AccountID == in.AccountID {
				continue
			}
			days := utils.DaysBetween(out.Date, in.Date)
			if days > cfg.TransferDateWindowDays {
				continue
			}
			if !cfg.WithinAmountTolerance(out.Amount, in.Amount) {
				continue
			}
			pairs = append(pairs, candidatePair{i: i, j: j, score: pairScore(out, in, days, cfg)})
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		if pairs[a].score != pairs[b].score {
			return pairs[a].score < pairs[b].score
		}
		if pairs[a].i != pairs[b].i {
			return pairs[a].i < pairs[b].i
		}
		return pairs[a].j < pairs[b].j
	})

	claimed := make(map[int]bool)
	ambiguous := make(map[int64]bool)
	var result TransferDetection

	for k := 0; k < len(pairs); {
		// Process all pairs sharing the same score together so genuinely
		// equal alternatives are detected instead of resolved by luck.
		g := k
		for g < len(pairs) && pairs[g].score == pairs[k].score {
			g++
		}
		group := pairs[k:g]
		k = g

		usage := make(map[int]int)
		for _, p := range group {
			if claimed[p.i] || claimed[p.j] {
				continue
			}
			usage[p.i]++
			usage[p.j]++
		}

		blocked := make(map[int]bool)
		for _, p := range group {
			if claimed[p.i] || claimed[p.j] {
				continue
			}
			if usage[p.i] > 1 || usage[p.j] > 1 {
				// Equally scored competing partners: leave every movement
				// involved unmatched.
				ambiguous[eligible[p.i].ID] = true
				ambiguous[eligible[p.j].ID] = true
				blocked[p.i], blocked[p.j] = true, true
				continue
			}
			claimed[p.i] = true
			claimed[p.j] = true
			result.Matches = append(result.Matches, TransferMatch{
				Out:   eligible[p.i],
				In:    eligible[p.j],
				Score: p.score,
			})
		}

		// An ambiguous movement stays unmatched for good. Without this a
		// strictly worse pair in a later score group would claim it.
		for idx := range blocked {
			claimed[idx] = true
		}
	}

	for id := range ambiguous {
		result.AmbiguousMovementIDs = append(result.AmbiguousMovementIDs, id)
	}
	sort.Slice(result.AmbiguousMovementIDs, func(a, b int) bool {
		return result.AmbiguousMovementIDs[a] < result.AmbiguousMovementIDs[b]
	})
	return result
}

// pairScore combines date and amount deviation, each normalized against its
// configured tolerance so the two dimensions weigh equally.
func pairScore(out, in models.Movement, days int, cfg Config) float64 {
	score := 0.0
	if cfg.TransferDateWindowDays > 0 {
		score += float64(days) / float64(cfg.TransferDateWindowDays)
	}
	ref := out.Amount.Abs()
	if in.Amount.Abs().GreaterThan(ref) {
		ref = in.Amount.Abs()
	}
	tol := cfg.AmountTolerance(ref)
	if tol.IsPositive() {
		diff := out.Amount.Abs().Sub(in.Amount.Abs()).Abs()
		f, _ := diff.Div(tol).Float64()
		score += f
	}
	return score
}
