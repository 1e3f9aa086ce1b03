package services

import (
	"context"
	"fmt"

	"github.com/civiclab/pollguard/pkg/internal/database"
	"github.com/civiclab/pollguard/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

const (
	// CaptchaRiskThreshold is the score at which a captcha becomes mandatory
	// even when the poll does not require one.
	CaptchaRiskThreshold = 50

	// HardBlockThreshold is the score at which the attempt is denied outright,
	// captcha or not.
	HardBlockThreshold = 80
)

const (
	FailPolicyOpen   = "open"
	FailPolicyClosed = "closed"
)

// FailPolicy reports how the gate behaves when its own infrastructure fails.
// Open (the default) prefers availability: an unreachable datastore never
// blocks a legitimate voter, at the cost of enforcement.
func FailPolicy() string {
	if viper.GetString("fraud.fail_policy") == FailPolicyClosed {
		return FailPolicyClosed
	}
	return FailPolicyOpen
}

// VoteAttempt is one request to vote, before the vote is cast.
type VoteAttempt struct {
	PollID       string
	UserID       *uint
	CaptchaToken string
	SessionID    string
	Signals      models.ClientSignals
}

// VoteDecision is the structured verdict handed back to the UI. Reason is
// written for direct display.
type VoteDecision struct {
	CanVote         bool   `json:"can_vote"`
	Reason          string `json:"reason,omitempty"`
	RiskScore       int    `json:"risk_score"`
	RequiresCaptcha bool   `json:"requires_captcha,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
}

// ValidateVote runs the full decision procedure for a vote attempt,
// short-circuiting on the first failing condition: threat scan, captcha gate,
// hard block, then the identity, session and user rate limits.
func ValidateVote(attempt VoteAttempt) VoteDecision {
	pollID := SanitizePollID(attempt.PollID)
	if signature, threat := ScanPollID(pollID); threat {
		RecordSecurityEvent(EventVoteThreatDetected, "poll", pollID, map[string]any{
			"signature": signature,
		}, models.SeverityHigh)
		return VoteDecision{CanVote: false, RiskScore: 100, Reason: "invalid poll identifier"}
	}

	fingerprint := GenerateFingerprint(attempt.Signals)
	sessionID := EnsureSessionID(attempt.SessionID, fingerprint)
	identityHash := HashIdentity(attempt.Signals, sessionID)

	settings, err := GetPollFraudSettings(pollID)
	if err != nil {
		return failDecision(pollID, FallbackRiskScore, sessionID, err)
	}

	riskScore := CalculateRiskScore(pollID, fingerprint, identityHash, attempt.UserID)

	captchaRequired := (settings != nil && settings.EnableCaptcha) || riskScore >= CaptchaRiskThreshold
	if captchaRequired {
		if len(attempt.CaptchaToken) == 0 {
			RecordSecurityEvent(EventCaptchaRequired, "poll", pollID, map[string]any{
				"risk_score": riskScore,
			}, lo.Ternary(riskScore >= HardBlockThreshold, models.SeverityHigh, models.SeverityMedium))
			return VoteDecision{
				CanVote:         false,
				RiskScore:       riskScore,
				RequiresCaptcha: true,
				Reason:          "captcha verification required",
				SessionID:       sessionID,
			}
		}
		if err := VerifyCaptchaToken(attempt.CaptchaToken); err != nil {
			return VoteDecision{
				CanVote:         false,
				RiskScore:       riskScore,
				RequiresCaptcha: true,
				Reason:          err.Error(),
				SessionID:       sessionID,
			}
		}
	}

	if riskScore >= HardBlockThreshold {
		RecordSecurityEvent(EventHighRiskBlock, "poll", pollID, map[string]any{
			"risk_score":         riskScore,
			"device_fingerprint": fingerprint,
		}, models.SeverityCritical)
		return VoteDecision{
			CanVote:   false,
			RiskScore: riskScore,
			Reason:    "this vote attempt was flagged as high risk",
			SessionID: sessionID,
		}
	}

	// Polls without a settings row, or with rate limiting off, skip every
	// limit check.
	if settings == nil || !settings.EnableRateLimiting {
		RecordSecurityEvent(EventVoteValidated, "poll", pollID, map[string]any{
			"risk_score": riskScore,
		}, models.SeverityLow)
		return VoteDecision{CanVote: true, RiskScore: riskScore, SessionID: sessionID}
	}

	allowed, err := ReserveIdentitySlot(context.Background(), pollID, identityHash, settings.MaxVotesPerIP)
	if err != nil {
		return failDecision(pollID, riskScore, sessionID, err)
	}
	if !allowed {
		RecordSecurityEvent(EventRateLimitExceeded, "poll", pollID, map[string]any{
			"scope": "identity",
			"limit": settings.MaxVotesPerIP,
		}, models.SeverityMedium)
		return VoteDecision{
			CanVote:   false,
			RiskScore: riskScore,
			Reason:    fmt.Sprintf("vote limit reached: at most %d votes per hour from the same device", settings.MaxVotesPerIP),
			SessionID: sessionID,
		}
	}

	sessionVotes, err := CountSessionVotes(pollID, sessionID)
	if err != nil {
		return failDecision(pollID, riskScore, sessionID, err)
	}
	if sessionVotes >= int64(settings.MaxVotesPerSession) {
		RecordSecurityEvent(EventRateLimitExceeded, "poll", pollID, map[string]any{
			"scope": "session",
			"limit": settings.MaxVotesPerSession,
		}, models.SeverityMedium)
		return VoteDecision{
			CanVote:   false,
			RiskScore: riskScore,
			Reason:    fmt.Sprintf("vote limit reached: at most %d votes per session", settings.MaxVotesPerSession),
			SessionID: sessionID,
		}
	}

	if attempt.UserID != nil {
		voted, err := HasUserVoted(pollID, *attempt.UserID)
		if err != nil {
			return failDecision(pollID, riskScore, sessionID, err)
		}
		if voted {
			RecordSecurityEvent(EventRateLimitExceeded, "poll", pollID, map[string]any{
				"scope":   "user",
				"user_id": *attempt.UserID,
			}, models.SeverityMedium)
			return VoteDecision{
				CanVote:   false,
				RiskScore: riskScore,
				Reason:    "you have already voted in this poll",
				SessionID: sessionID,
			}
		}
	}

	RecordSecurityEvent(EventVoteValidated, "poll", pollID, map[string]any{
		"risk_score": riskScore,
	}, models.SeverityLow)

	return VoteDecision{CanVote: true, RiskScore: riskScore, SessionID: sessionID}
}

func failDecision(pollID string, riskScore int, sessionID string, cause error) VoteDecision {
	log.Error().Err(cause).Str("poll", pollID).Msg("Vote validation hit an infrastructure error...")
	RecordSecurityEvent(EventVoteValidationFail, "poll", pollID, map[string]any{
		"error": cause.Error(),
	}, models.SeverityMedium)

	if FailPolicy() == FailPolicyClosed {
		return VoteDecision{
			CanVote:   false,
			RiskScore: riskScore,
			Reason:    "vote validation is temporarily unavailable",
			SessionID: sessionID,
		}
	}

	return VoteDecision{CanVote: true, RiskScore: riskScore, SessionID: sessionID}
}

// VoteCast is an accepted vote about to be written to the audit trail.
type VoteCast struct {
	PollID      string
	OptionIndex int
	UserID      *uint
	Region      string
	SessionID   string
	Signals     models.ClientSignals
}

// LogVote appends the vote's metadata to the vote log and kicks off the
// fraud pattern sweep for the poll. It never fails outward; a vote the user
// already cast must not be rolled back by a logging problem.
func LogVote(cast VoteCast) {
	pollID := SanitizePollID(cast.PollID)
	fingerprint := GenerateFingerprint(cast.Signals)
	sessionID := EnsureSessionID(cast.SessionID, fingerprint)

	entry := models.VoteLog{
		PollID:            pollID,
		UserID:            cast.UserID,
		HashedIdentity:    HashIdentity(cast.Signals, sessionID),
		DeviceFingerprint: fingerprint,
		UserAgent:         cast.Signals.UserAgent,
		VoteOption:        cast.OptionIndex,
		Region:            cast.Region,
		SessionID:         sessionID,
	}
	if err := database.C.Create(&entry).Error; err != nil {
		log.Error().Err(err).Str("poll", pollID).Msg("Unable to write vote log entry...")
		return
	}

	// Result intentionally ignored.
	DetectFraudPatterns(pollID)
}
