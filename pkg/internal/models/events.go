package models

import "gorm.io/datatypes"

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// SecurityEvent is an audit entry emitted at every decision branch of the vote
// gate.
type SecurityEvent struct {
	BaseModel

	EventType    string            `json:"event_type" gorm:"size:64;index"`
	ResourceType string            `json:"resource_type" gorm:"size:64"`
	ResourceID   string            `json:"resource_id" gorm:"size:64;index"`
	Details      datatypes.JSONMap `json:"details"`
	Severity     string            `json:"severity" gorm:"size:16;index"`
}
