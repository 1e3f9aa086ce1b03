package database

import (
	"github.com/civiclab/pollguard/pkg/internal/models"
	"gorm.io/gorm"
)

var AutoMaintainRange = []any{
	&models.PollFraudSettings{},
	&models.VoteLog{},
	&models.BotDetectionLog{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(
		append(
			AutoMaintainRange,
			&models.SecurityEvent{},
		)...,
	); err != nil {
		return err
	}

	return nil
}
