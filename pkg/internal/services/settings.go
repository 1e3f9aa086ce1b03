package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	localCache "github.com/civiclab/pollguard/pkg/internal/cache"
	"github.com/civiclab/pollguard/pkg/internal/database"
	"github.com/civiclab/pollguard/pkg/internal/models"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	"gorm.io/gorm"
)

func fraudSettingsCacheKey(pollID string) string {
	return fmt.Sprintf("poll-fraud-settings#%s", pollID)
}

// GetPollFraudSettings returns the poll's enforcement configuration, or nil
// when the poll has none. Rows are cached briefly; admins edit these rarely.
func GetPollFraudSettings(pollID string) (*models.PollFraudSettings, error) {
	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	ctx := context.Background()

	if cached, err := marshal.Get(ctx, fraudSettingsCacheKey(pollID), new(models.PollFraudSettings)); err == nil {
		if settings, ok := cached.(*models.PollFraudSettings); ok {
			return settings, nil
		}
	}

	var settings models.PollFraudSettings
	if err := database.C.Where("poll_id = ?", pollID).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	_ = marshal.Set(ctx, fraudSettingsCacheKey(pollID), settings, store.WithExpiration(5*time.Minute))

	return &settings, nil
}

// UpsertPollFraudSettings creates or replaces a poll's enforcement row and
// drops the cached copy.
func UpsertPollFraudSettings(settings models.PollFraudSettings) (models.PollFraudSettings, error) {
	var current models.PollFraudSettings
	err := database.C.Where("poll_id = ?", settings.PollID).First(&current).Error
	if err == nil {
		settings.ID = current.ID
		if err := database.C.Save(&settings).Error; err != nil {
			return settings, err
		}
	} else if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := database.C.Create(&settings).Error; err != nil {
			return settings, err
		}
	} else {
		return settings, err
	}

	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	_ = marshal.Delete(context.Background(), fraudSettingsCacheKey(settings.PollID))

	return settings, nil
}
