package model

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

// Job status constants
const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Job types
const (
	JobTypeBulk  = "bulk_epic"
	JobTypeExcel = "excel_upload"
)

type FailedEntry struct {
	Identifier string `json:"epic"`
	Reason     string `json:"reason"`
}

type FailedEntries []FailedEntry

// Job tracks one bulk extraction run. Counters are only ever written by the
// goroutine running the job.
type Job struct {
	ID            uuid.UUID                 `gorm:"primaryKey;column:id;type:VARCHAR(36);" json:"id"`
	Name          string                    `gorm:"not null" json:"job_name"`
	Type          string                    `gorm:"not null;type:VARCHAR(32)" json:"job_type"`
	Status        string                    `gorm:"not null;type:VARCHAR(32);index:jobs_status_idx" json:"status"`
	RegionCode    string                    `gorm:"type:VARCHAR(8)" json:"state_code"`
	FileName      *string                   `json:"file_name,omitempty"`
	FileSize      *int64                    `json:"file_size,omitempty"`
	SourceObject  *string                   `json:"source_object,omitempty"`
	Total         int                       `gorm:"column:total_records;not null;default:0" json:"total_records"`
	Processed     int                       `gorm:"column:processed_records;not null;default:0" json:"processed_records"`
	Successful    int                       `gorm:"column:successful_records;not null;default:0" json:"successful_records"`
	Failed        int                       `gorm:"column:failed_records;not null;default:0" json:"failed_records"`
	Duplicates    int                       `gorm:"column:duplicate_records;not null;default:0" json:"duplicate_records"`
	FailedEntries *JSONField[FailedEntries] `gorm:"column:failed_epics;type:jsonb" json:"failed_epics,omitempty"`
	ErrorMessage  *string                   `json:"error_message,omitempty"`
	CreatedAt     time.Time                 `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time                 `gorm:"autoUpdateTime" json:"updated_at"`
	StartedAt     *time.Time                `json:"started_at,omitempty"`
	CompletedAt   *time.Time                `json:"completed_at,omitempty"`
}

type JobList []Job

// JobCounters are the running totals of a job. Processed always equals
// Successful + Failed + Duplicates.
type JobCounters struct {
	Processed  int
	Successful int
	Failed     int
	Duplicates int
}

func (j Job) Counters() JobCounters {
	return JobCounters{
		Processed:  j.Processed,
		Successful: j.Successful,
		Failed:     j.Failed,
		Duplicates: j.Duplicates,
	}
}

func NewJob(name, jobType, region string, total int) *Job {
	return &Job{
		ID:         uuid.New(),
		Name:       name,
		Type:       jobType,
		Status:     JobStatusPending,
		RegionCode: region,
		Total:      total,
	}
}

// Progress is the processed share in percent rounded to two decimals.
func (j Job) Progress() float64 {
	if j.Total == 0 {
		return 0
	}
	p := float64(j.Processed) / float64(j.Total) * 100
	return math.Round(p*100) / 100
}

func (j Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

func (j Job) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}
