package models

// VoteLog is the append-only audit trail of accepted vote attempts.
// It is the sole data source for risk scoring and rate limiting, so rows are
// never updated once written.
type VoteLog struct {
	BaseModel

	PollID            string `json:"poll_id" gorm:"size:64;index"`
	UserID            *uint  `json:"user_id"`
	HashedIdentity    string `json:"hashed_identity" gorm:"size:32;index"`
	DeviceFingerprint string `json:"device_fingerprint" gorm:"size:32;index"`
	UserAgent         string `json:"user_agent" gorm:"size:512"`
	VoteOption        int    `json:"vote_option"`
	Region            string `json:"region" gorm:"size:64"`
	SessionID         string `json:"session_id" gorm:"size:64;index"`
}
