package services

import (
	"time"

	"github.com/civiclab/pollguard/pkg/internal/database"
	"github.com/civiclab/pollguard/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const (
	// VoteHistoryWindow bounds every time-windowed read of the vote log.
	VoteHistoryWindow = time.Hour

	// FallbackRiskScore is returned when the vote log cannot be read. Moderate
	// rather than zero, but low enough to keep legitimate voters unblocked.
	FallbackRiskScore = 30
)

// RiskContext is the input to one scoring rule.
type RiskContext struct {
	Entries      []models.VoteLog
	Fingerprint  string
	IdentityHash string
}

// RiskRule is a single named heuristic returning a score delta and, when it
// fires, a reason. The gate only sees the summed score, so rules can be retuned
// or replaced without touching orchestration.
type RiskRule struct {
	Name     string
	Evaluate func(rc RiskContext) (int, string)
}

// RiskRules is the ordered scoring strategy. Weights are hand-tuned against
// observed abuse patterns and expected to need periodic recalibration.
var RiskRules = []RiskRule{
	{
		Name: "device-reuse",
		Evaluate: func(rc RiskContext) (int, string) {
			if len(rc.Fingerprint) == 0 {
				return 0, ""
			}
			matches := lo.CountBy(rc.Entries, func(item models.VoteLog) bool {
				return item.DeviceFingerprint == rc.Fingerprint
			})
			if matches >= 3 {
				return 40, "device fingerprint reused heavily"
			} else if matches >= 1 {
				return 15, "device fingerprint seen before"
			}
			return 0, ""
		},
	},
	{
		Name: "identity-reuse",
		Evaluate: func(rc RiskContext) (int, string) {
			if len(rc.IdentityHash) == 0 {
				return 0, ""
			}
			matches := lo.CountBy(rc.Entries, func(item models.VoteLog) bool {
				return item.HashedIdentity == rc.IdentityHash
			})
			if matches >= 4 {
				return 35, "identity hash reused heavily"
			} else if matches >= 2 {
				return 20, "identity hash seen before"
			}
			return 0, ""
		},
	},
	{
		Name: "burst-timing",
		Evaluate: func(rc RiskContext) (int, string) {
			// Additive per consecutive pair, so bursty traffic compounds fast.
			var delta int
			for idx := 1; idx < len(rc.Entries); idx++ {
				gap := rc.Entries[idx].CreatedAt.Sub(rc.Entries[idx-1].CreatedAt)
				if gap < 5*time.Second {
					delta += 30
				} else if gap < 30*time.Second {
					delta += 15
				}
			}
			if delta > 0 {
				return delta, "votes arriving in bursts"
			}
			return 0, ""
		},
	},
	{
		Name: "volume",
		Evaluate: func(rc RiskContext) (int, string) {
			if len(rc.Entries) > 20 {
				return 25, "unusually high vote volume"
			} else if len(rc.Entries) > 10 {
				return 15, "elevated vote volume"
			}
			return 0, ""
		},
	},
	{
		Name: "missing-fingerprint",
		Evaluate: func(rc RiskContext) (int, string) {
			if len(rc.Fingerprint) == 0 || rc.Fingerprint == "unknown" {
				return 20, "device fingerprint unavailable"
			}
			return 0, ""
		},
	},
	{
		Name: "missing-identity",
		Evaluate: func(rc RiskContext) (int, string) {
			if len(rc.IdentityHash) == 0 || rc.IdentityHash == "unknown" {
				return 15, "identity hash unavailable"
			}
			return 0, ""
		},
	},
}

// ScoreVoteHistory runs every rule over an already loaded slice of vote log
// entries, sorted ascending by creation time, and clamps the sum to [0, 100].
func ScoreVoteHistory(entries []models.VoteLog, fingerprint, identityHash string) (int, []string) {
	rc := RiskContext{
		Entries:      entries,
		Fingerprint:  fingerprint,
		IdentityHash: identityHash,
	}

	var score int
	var reasons []string
	for _, rule := range RiskRules {
		delta, reason := rule.Evaluate(rc)
		score += delta
		if len(reason) > 0 {
			reasons = append(reasons, reason)
		}
	}

	if score > 100 {
		score = 100
	} else if score < 0 {
		score = 0
	}

	return score, reasons
}

// CalculateRiskScore loads the trailing hour of a poll's vote log and scores
// the attempt against it. A failed read does not fail the caller; it yields the
// moderate fallback score instead.
func CalculateRiskScore(pollID, fingerprint, identityHash string, userID *uint) int {
	var entries []models.VoteLog
	if err := database.C.
		Where("poll_id = ? AND created_at >= ?", pollID, time.Now().Add(-VoteHistoryWindow)).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		log.Error().Err(err).Str("poll", pollID).Msg("Unable to load vote history for risk scoring, using fallback score...")
		return FallbackRiskScore
	}

	score, _ := ScoreVoteHistory(entries, fingerprint, identityHash)
	return score
}
