package services

import (
	"github.com/civiclab/pollguard/pkg/internal/database"
	"github.com/civiclab/pollguard/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

const (
	EventVoteThreatDetected = "vote_threat_detected"
	EventCaptchaRequired    = "captcha_required"
	EventHighRiskBlock      = "high_risk_block"
	EventRateLimitExceeded  = "rate_limit_exceeded"
	EventVoteValidated      = "vote_validated"
	EventVoteValidationFail = "vote_validation_error"
	EventFraudPattern       = "fraud_pattern_detected"
)

// RecordSecurityEvent appends an audit entry. Audit failures are logged and
// swallowed; they never fail the decision that produced them.
func RecordSecurityEvent(eventType, resourceType, resourceID string, details map[string]any, severity string) {
	event := models.SecurityEvent{
		EventType:    eventType,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      datatypes.JSONMap(details),
		Severity:     severity,
	}
	if err := database.C.Create(&event).Error; err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("Unable to record security event...")
	}
}
