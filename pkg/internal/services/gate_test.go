package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/civiclab/pollguard/pkg/internal/database"
	"github.com/civiclab/pollguard/pkg/internal/models"
	"github.com/spf13/viper"
)

func seedSettings(t *testing.T, settings models.PollFraudSettings) {
	t.Helper()
	if err := database.C.Create(&settings).Error; err != nil {
		t.Fatalf("seed fraud settings: %v", err)
	}
}

func TestValidateVoteThreatDetection(t *testing.T) {
	useTestDatabase(t)

	decision := ValidateVote(VoteAttempt{
		PollID:  "abc'; DROP TABLE poll_vote_log;--",
		Signals: ordinarySignals(),
	})

	if decision.CanVote {
		t.Error("threat payload allowed to vote")
	}
	if decision.RiskScore != 100 {
		t.Errorf("threat risk score is %d, want 100", decision.RiskScore)
	}
	if decision.Reason != "invalid poll identifier" {
		t.Errorf("threat reason is %q", decision.Reason)
	}

	var votes int64
	database.C.Model(&models.VoteLog{}).Count(&votes)
	if votes != 0 {
		t.Errorf("threat attempt wrote %d vote log rows", votes)
	}
	if countEvents(t, EventVoteThreatDetected) != 1 {
		t.Error("threat attempt did not record a security event")
	}
}

func TestValidateVoteCleanPoll(t *testing.T) {
	useTestDatabase(t)

	decision := ValidateVote(VoteAttempt{
		PollID:  "poll-clean",
		Signals: ordinarySignals(),
	})

	if !decision.CanVote {
		t.Fatalf("clean attempt denied: %s", decision.Reason)
	}
	if decision.RiskScore >= CaptchaRiskThreshold {
		t.Errorf("clean attempt risk is %d, want below %d", decision.RiskScore, CaptchaRiskThreshold)
	}
	if len(decision.SessionID) == 0 {
		t.Error("decision is missing a session id")
	}
	if countEvents(t, EventVoteValidated) != 1 {
		t.Error("clean attempt did not record a success event")
	}
}

func TestValidateVoteRateLimitingDisabled(t *testing.T) {
	useTestDatabase(t)
	seedSettings(t, models.PollFraudSettings{
		PollID:             "poll-open",
		EnableRateLimiting: false,
		MaxVotesPerIP:      1,
		MaxVotesPerSession: 1,
	})

	start := time.Now().Add(-50 * time.Minute)
	for idx := 0; idx < 25; idx++ {
		seedVoteLog(t, models.VoteLog{
			PollID:            "poll-open",
			DeviceFingerprint: fmt.Sprintf("fp-%d", idx),
			HashedIdentity:    fmt.Sprintf("hash-%d", idx),
			SessionID:         fmt.Sprintf("sess-%d", idx),
		}, start.Add(time.Duration(idx)*2*time.Minute))
	}

	decision := ValidateVote(VoteAttempt{PollID: "poll-open", Signals: ordinarySignals()})
	if !decision.CanVote {
		t.Errorf("rate limiting disabled but attempt denied: %s", decision.Reason)
	}
}

func TestValidateVoteHardBlockOverridesCaptcha(t *testing.T) {
	useTestDatabase(t)

	signals := ordinarySignals()
	fingerprint := GenerateFingerprint(signals)
	identityHash := HashIdentity(signals, "")

	start := time.Now().Add(-20 * time.Minute)
	for idx := 0; idx < 25; idx++ {
		seedVoteLog(t, models.VoteLog{
			PollID:            "poll-flood",
			DeviceFingerprint: fingerprint,
			HashedIdentity:    identityHash,
			SessionID:         fmt.Sprintf("sess-%d", idx),
		}, start.Add(time.Duration(idx)*2*time.Second))
	}

	decision := ValidateVote(VoteAttempt{
		PollID:       "poll-flood",
		CaptchaToken: IssueCaptchaToken(true, time.Now()),
		Signals:      signals,
	})

	if decision.CanVote {
		t.Error("high risk attempt allowed despite a valid captcha")
	}
	if decision.RiskScore < HardBlockThreshold {
		t.Errorf("flooded poll risk is %d, want at least %d", decision.RiskScore, HardBlockThreshold)
	}
	if countEvents(t, EventHighRiskBlock) != 1 {
		t.Error("hard block did not record a critical event")
	}
}

func TestValidateVoteCaptchaGate(t *testing.T) {
	useTestDatabase(t)
	seedSettings(t, models.PollFraudSettings{
		PollID:        "poll-captcha",
		EnableCaptcha: true,
	})

	missing := ValidateVote(VoteAttempt{PollID: "poll-captcha", Signals: ordinarySignals()})
	if missing.CanVote || !missing.RequiresCaptcha {
		t.Errorf("missing token should soft-deny with a captcha demand, got %+v", missing)
	}

	expired := ValidateVote(VoteAttempt{
		PollID:       "poll-captcha",
		CaptchaToken: IssueCaptchaToken(true, time.Now().Add(-6*time.Minute)),
		Signals:      ordinarySignals(),
	})
	if expired.CanVote || !expired.RequiresCaptcha {
		t.Errorf("expired token should soft-deny, got %+v", expired)
	}

	solved := ValidateVote(VoteAttempt{
		PollID:       "poll-captcha",
		CaptchaToken: IssueCaptchaToken(true, time.Now()),
		Signals:      ordinarySignals(),
	})
	if !solved.CanVote {
		t.Errorf("fresh token rejected: %s", solved.Reason)
	}
}

func TestValidateVoteSessionLimit(t *testing.T) {
	useTestDatabase(t)
	seedSettings(t, models.PollFraudSettings{
		PollID:             "poll-session",
		EnableRateLimiting: true,
		MaxVotesPerIP:      10,
		MaxVotesPerSession: 1,
	})

	seedVoteLog(t, models.VoteLog{
		PollID:            "poll-session",
		DeviceFingerprint: "someone-else",
		HashedIdentity:    "someone-else",
		SessionID:         "sess-1",
	}, time.Now().Add(-40*time.Minute))

	decision := ValidateVote(VoteAttempt{
		PollID:    "poll-session",
		SessionID: "sess-1",
		Signals:   ordinarySignals(),
	})

	if decision.CanVote {
		t.Error("second vote from the same session allowed")
	}
	if !strings.Contains(decision.Reason, "per session") {
		t.Errorf("session limit reason does not name the limit: %q", decision.Reason)
	}
}

func TestValidateVoteUserAlreadyVoted(t *testing.T) {
	useTestDatabase(t)
	seedSettings(t, models.PollFraudSettings{
		PollID:             "poll-user",
		EnableRateLimiting: true,
		MaxVotesPerIP:      10,
		MaxVotesPerSession: 10,
	})

	userID := uint(7)
	// Two hours old, far outside every rolling window: the user check has none.
	seedVoteLog(t, models.VoteLog{
		PollID:            "poll-user",
		UserID:            &userID,
		DeviceFingerprint: "old-device",
		HashedIdentity:    "old-hash",
		SessionID:         "old-session",
	}, time.Now().Add(-2*time.Hour))

	decision := ValidateVote(VoteAttempt{
		PollID:    "poll-user",
		UserID:    &userID,
		SessionID: "fresh-session",
		Signals:   ordinarySignals(),
	})

	if decision.CanVote {
		t.Error("duplicate user vote allowed after the rolling windows expired")
	}
	if !strings.Contains(decision.Reason, "already voted") {
		t.Errorf("duplicate user reason is %q", decision.Reason)
	}
}

func TestValidateVoteIdentityLimit(t *testing.T) {
	useTestDatabase(t)
	seedSettings(t, models.PollFraudSettings{
		PollID:             "poll-identity",
		EnableRateLimiting: true,
		MaxVotesPerIP:      1,
		MaxVotesPerSession: 10,
	})

	signals := ordinarySignals()
	seedVoteLog(t, models.VoteLog{
		PollID:            "poll-identity",
		DeviceFingerprint: "another-device",
		HashedIdentity:    HashIdentity(signals, ""),
		SessionID:         "another-session",
	}, time.Now().Add(-10*time.Minute))

	decision := ValidateVote(VoteAttempt{
		PollID:    "poll-identity",
		SessionID: "fresh-session",
		Signals:   signals,
	})

	if decision.CanVote {
		t.Error("identity over the hourly ceiling allowed")
	}
	if !strings.Contains(decision.Reason, "per hour") {
		t.Errorf("identity limit reason does not name the window: %q", decision.Reason)
	}
	if countEvents(t, EventRateLimitExceeded) != 1 {
		t.Error("identity limit did not record a security event")
	}
}

func TestValidateVoteFailurePolicy(t *testing.T) {
	useTestDatabase(t)
	if err := database.C.Migrator().DropTable(&models.PollFraudSettings{}); err != nil {
		t.Fatalf("drop settings table: %v", err)
	}

	open := ValidateVote(VoteAttempt{PollID: "poll-outage", Signals: ordinarySignals()})
	if !open.CanVote {
		t.Errorf("fail-open policy denied during an outage: %s", open.Reason)
	}

	viper.Set("fraud.fail_policy", FailPolicyClosed)
	t.Cleanup(func() { viper.Set("fraud.fail_policy", FailPolicyOpen) })

	closed := ValidateVote(VoteAttempt{PollID: "poll-outage", Signals: ordinarySignals()})
	if closed.CanVote {
		t.Error("fail-closed policy allowed during an outage")
	}
}

func TestLogVoteWritesAuditTrail(t *testing.T) {
	useTestDatabase(t)

	signals := ordinarySignals()
	userID := uint(11)
	LogVote(VoteCast{
		PollID:      "poll-log",
		OptionIndex: 2,
		UserID:      &userID,
		Region:      "north",
		SessionID:   "given-session",
		Signals:     signals,
	})

	var entry models.VoteLog
	if err := database.C.Where("poll_id = ?", "poll-log").First(&entry).Error; err != nil {
		t.Fatalf("load vote log entry: %v", err)
	}
	if entry.DeviceFingerprint != GenerateFingerprint(signals) {
		t.Error("vote log fingerprint does not match the signals")
	}
	if entry.SessionID != "given-session" {
		t.Errorf("vote log session is %q", entry.SessionID)
	}
	if entry.VoteOption != 2 || entry.Region != "north" {
		t.Errorf("vote log row mismatch: %+v", entry)
	}
}

func TestLogVoteSwallowsFailures(t *testing.T) {
	useTestDatabase(t)
	if err := database.C.Migrator().DropTable(&models.VoteLog{}); err != nil {
		t.Fatalf("drop vote log table: %v", err)
	}

	// Must not panic or surface anything.
	LogVote(VoteCast{PollID: "poll-log", Signals: ordinarySignals()})
}
