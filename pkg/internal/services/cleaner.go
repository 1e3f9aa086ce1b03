package services

import (
	"time"

	"github.com/civiclab/pollguard/pkg/internal/database"
	"github.com/civiclab/pollguard/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const securityEventRetention = 180 * 24 * time.Hour

// DoAutoDatabaseCleanup trims aged audit rows. The vote log only feeds
// one-hour windows, so anything past the retention horizon is dead weight.
func DoAutoDatabaseCleanup() {
	retentionDays := viper.GetInt("fraud.vote_log_retention_days")
	if retentionDays <= 0 {
		retentionDays = 90
	}
	deadline := time.Now().AddDate(0, 0, -retentionDays)

	var count int64
	for _, model := range []any{&models.VoteLog{}, &models.BotDetectionLog{}} {
		if tx := database.C.Unscoped().Where("created_at < ?", deadline).Delete(model); tx.Error == nil {
			count += tx.RowsAffected
		}
	}
	if tx := database.C.Unscoped().
		Where("created_at < ?", time.Now().Add(-securityEventRetention)).
		Delete(&models.SecurityEvent{}); tx.Error == nil {
		count += tx.RowsAffected
	}

	if count > 0 {
		log.Debug().Int64("affected", count).Msg("Clean up aged fraud audit records...")
	}
}
