package services

import (
	"sort"
	"time"

	"github.com/civiclab/pollguard/pkg/internal/database"
	"github.com/civiclab/pollguard/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const patternFingerprintCeiling = 5

// DetectFraudPatterns sweeps the trailing hour of a poll's vote log after a
// vote lands and raises security events for coordinated-looking activity:
// one device casting many votes, or inter-vote gaps tight enough to suggest
// scripted submission.
func DetectFraudPatterns(pollID string) {
	var entries []models.VoteLog
	if err := database.C.
		Where("poll_id = ? AND created_at >= ?", pollID, time.Now().Add(-VoteHistoryWindow)).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		log.Error().Err(err).Str("poll", pollID).Msg("Unable to sweep vote log for fraud patterns...")
		return
	}
	if len(entries) == 0 {
		return
	}

	byDevice := lo.GroupBy(entries, func(item models.VoteLog) string {
		return item.DeviceFingerprint
	})
	for fingerprint, votes := range byDevice {
		if len(fingerprint) == 0 || len(votes) < patternFingerprintCeiling {
			continue
		}
		RecordSecurityEvent(EventFraudPattern, "poll", pollID, map[string]any{
			"pattern":            "device_flood",
			"device_fingerprint": fingerprint,
			"votes":              len(votes),
		}, models.SeverityHigh)
	}

	if gap, ok := medianGap(entries); ok && gap < 5*time.Second {
		RecordSecurityEvent(EventFraudPattern, "poll", pollID, map[string]any{
			"pattern":        "burst_submission",
			"median_gap_ms":  gap.Milliseconds(),
			"recent_entries": len(entries),
		}, models.SeverityHigh)
	}
}

func medianGap(entries []models.VoteLog) (time.Duration, bool) {
	if len(entries) < 2 {
		return 0, false
	}

	gaps := make([]time.Duration, 0, len(entries)-1)
	for idx := 1; idx < len(entries); idx++ {
		gaps = append(gaps, entries[idx].CreatedAt.Sub(entries[idx-1].CreatedAt))
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })

	return gaps[len(gaps)/2], true
}
