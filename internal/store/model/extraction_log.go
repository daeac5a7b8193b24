package model

import (
	"time"

	"github.com/google/uuid"
)

// Log entry statuses
const (
	LogStatusSuccess   = "success"
	LogStatusFailed    = "failed"
	LogStatusDuplicate = "duplicate"
)

// ExtractionLog is an append-only audit row written once per identifier
// processed by a job.
type ExtractionLog struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	JobID        uuid.UUID  `gorm:"not null;type:VARCHAR(36);index:extraction_logs_job_id_idx" json:"job_id"`
	EpicNumber   string     `gorm:"not null" json:"epic_number"`
	Status       string     `gorm:"not null;type:VARCHAR(32)" json:"status"`
	Attempts     int        `gorm:"not null;default:0" json:"attempts"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	VoterID      *uuid.UUID `gorm:"type:VARCHAR(36)" json:"voter_id,omitempty"`
	Voter        *Voter     `gorm:"foreignKey:VoterID;references:ID" json:"voter,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

type ExtractionLogList []ExtractionLog
