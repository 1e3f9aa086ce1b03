package models

import "gorm.io/datatypes"

// BotDetectionLog records one bot heuristic run, written regardless of the
// verdict.
type BotDetectionLog struct {
	BaseModel

	PollID            string                      `json:"poll_id" gorm:"size:64;index"`
	IsBot             bool                        `json:"is_bot"`
	ConfidenceScore   int                         `json:"confidence_score"`
	DetectionReasons  datatypes.JSONSlice[string] `json:"detection_reasons"`
	DeviceFingerprint string                      `json:"device_fingerprint" gorm:"size:32"`
	UserAgent         string                      `json:"user_agent" gorm:"size:512"`
}
