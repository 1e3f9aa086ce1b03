package models

// PollFraudSettings is the per-poll enforcement configuration. It is edited by
// poll administrators and read-only to the vote gate. A poll without a row gets
// no rate limiting at all.
type PollFraudSettings struct {
	BaseModel

	PollID             string `json:"poll_id" gorm:"size:64;uniqueIndex"`
	EnableCaptcha      bool   `json:"enable_captcha"`
	EnableRateLimiting bool   `json:"enable_rate_limiting"`
	MaxVotesPerIP      int    `json:"max_votes_per_ip"`
	MaxVotesPerSession int    `json:"max_votes_per_session"`
}
