package services

import (
	"context"
	"fmt"
	"time"

	"github.com/civiclab/pollguard/pkg/internal/database"
	"github.com/civiclab/pollguard/pkg/internal/models"
	"github.com/redis/go-redis/v9"
)

// Rdb is the optional redis client behind the atomic rate limiter. Nil means
// rate limits are checked by counting the vote log, which leaves the
// read-then-write race between simultaneous attempts open.
var Rdb *redis.Client

func SetupRedis(addr string) error {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return err
	}

	Rdb = client
	return nil
}

// ReserveIdentitySlot decides whether another vote from this hashed identity
// fits under the per-identity hourly ceiling. With redis available the attempt
// is counted atomically before deciding, so two near-simultaneous attempts
// cannot both slip under the limit.
func ReserveIdentitySlot(ctx context.Context, pollID, identityHash string, limit int) (bool, error) {
	if Rdb == nil {
		count, err := CountIdentityVotes(pollID, identityHash, VoteHistoryWindow)
		if err != nil {
			return false, err
		}
		return count < int64(limit), nil
	}

	key := fmt.Sprintf("pollguard:ratelimit:%s:%s", pollID, identityHash)
	count, err := Rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := Rdb.Expire(ctx, key, VoteHistoryWindow).Err(); err != nil {
			return false, err
		}
	}

	return count <= int64(limit), nil
}

// CountIdentityVotes counts vote log rows for a poll and hashed identity
// within the trailing window.
func CountIdentityVotes(pollID, identityHash string, window time.Duration) (int64, error) {
	var count int64
	err := database.C.Model(&models.VoteLog{}).
		Where("poll_id = ? AND hashed_identity = ? AND created_at >= ?", pollID, identityHash, time.Now().Add(-window)).
		Count(&count).Error
	return count, err
}

// CountSessionVotes counts all-time vote log rows for a poll and session; the
// session ceiling is cumulative and has no window.
func CountSessionVotes(pollID, sessionID string) (int64, error) {
	var count int64
	err := database.C.Model(&models.VoteLog{}).
		Where("poll_id = ? AND session_id = ?", pollID, sessionID).
		Count(&count).Error
	return count, err
}

// HasUserVoted reports whether an authenticated user ever voted in the poll.
// One vote per user per poll, permanently.
func HasUserVoted(pollID string, userID uint) (bool, error) {
	var count int64
	err := database.C.Model(&models.VoteLog{}).
		Where("poll_id = ? AND user_id = ?", pollID, userID).
		Count(&count).Error
	return count > 0, err
}
