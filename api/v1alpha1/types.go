// Package v1alpha1 holds the request and response bodies of the extraction API.
package v1alpha1

import (
	"time"

	"github.com/google/uuid"
)

const DefaultStateCode = "S08"

// Extraction statuses reported to API clients.
const (
	ExtractionStatusSuccess   = "success"
	ExtractionStatusDuplicate = "duplicate"
	ExtractionStatusFailed    = "failed"
)

type ExtractSingleRequest struct {
	EpicNumber string `json:"epic_number" validate:"required,epic"`
	StateCode  string `json:"state_code" validate:"state_code"`
}

type ExtractBulkRequest struct {
	EpicNumbers []string `json:"epic_numbers" validate:"required,min=1,max=10000,dive,epic"`
	StateCode   string   `json:"state_code" validate:"state_code"`
}

type ExtractionResponse struct {
	Status     string         `json:"status"`
	Message    string         `json:"message"`
	EpicNumber string         `json:"epic_number"`
	Attempts   int            `json:"attempts,omitempty"`
	VoterID    *uuid.UUID     `json:"voter_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

type JobAccepted struct {
	Status       string    `json:"status"`
	Message      string    `json:"message"`
	JobID        uuid.UUID `json:"job_id"`
	TotalRecords int       `json:"total_records"`
}

type JobStatus struct {
	JobID             uuid.UUID    `json:"job_id"`
	JobName           string       `json:"job_name"`
	JobType           string       `json:"job_type"`
	Status            string       `json:"status"`
	Progress          float64      `json:"progress"`
	TotalRecords      int          `json:"total_records"`
	ProcessedRecords  int          `json:"processed_records"`
	SuccessfulRecords int          `json:"successful_records"`
	FailedRecords     int          `json:"failed_records"`
	DuplicateRecords  int          `json:"duplicate_records"`
	FailedEpics       []FailedEpic `json:"failed_epics"`
	FileName          *string      `json:"file_name,omitempty"`
	ErrorMessage      *string      `json:"error_message,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	StartedAt         *time.Time   `json:"started_at,omitempty"`
	CompletedAt       *time.Time   `json:"completed_at,omitempty"`
}

type FailedEpic struct {
	Epic   string `json:"epic"`
	Reason string `json:"reason"`
}

type JobList struct {
	Jobs  []JobStatus `json:"jobs"`
	Count int         `json:"count"`
}

type ExtractionLogEntry struct {
	EpicNumber   string        `json:"epic_number"`
	Status       string        `json:"status"`
	Attempts     int           `json:"attempts"`
	ErrorMessage *string       `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	VoterData    *VoterSummary `json:"voter_data,omitempty"`
}

type ExtractionLogList struct {
	Extractions []ExtractionLogEntry `json:"extractions"`
}

// VoterSummary uses the portal's field names.
type VoterSummary struct {
	FullName           *string `json:"fullName"`
	FullNameL1         *string `json:"fullNameL1"`
	Age                *int    `json:"age"`
	Gender             *string `json:"gender"`
	RelationType       *string `json:"relationType"`
	RelativeFullName   *string `json:"relativeFullName"`
	RelativeFullNameL1 *string `json:"relativeFullNameL1"`
	PartNumber         *int    `json:"partNumber"`
	PartName           *string `json:"partName"`
	AcNumber           *int    `json:"acNumber"`
	AsmblyName         *string `json:"asmblyName"`
	DistrictValue      *string `json:"districtValue"`
	StateName          *string `json:"stateName"`
	PsBuildingName     *string `json:"psbuildingName"`
	PsRoomDetails      *string `json:"psRoomDetails"`
}

type VoterList struct {
	Voters []Voter `json:"voters"`
	Count  int     `json:"count"`
}

// Voter is the stored record as returned by the search endpoint.
type Voter map[string]any

type ComponentHealth string

const (
	HealthHealthy   ComponentHealth = "healthy"
	HealthDegraded  ComponentHealth = "degraded"
	HealthUnhealthy ComponentHealth = "unhealthy"
	HealthCritical  ComponentHealth = "critical"
	HealthUnknown   ComponentHealth = "unknown"
)

type Health struct {
	API           ComponentHealth `json:"api"`
	Database      ComponentHealth `json:"database"`
	DatabaseError string          `json:"database_error,omitempty"`
	Portal        ComponentHealth `json:"eci_portal"`
	PortalError   string          `json:"eci_error,omitempty"`
	Overall       ComponentHealth `json:"overall"`
	Timestamp     time.Time       `json:"timestamp"`
}

type Stats struct {
	TotalVoters int64            `json:"total_voters"`
	Jobs        map[string]int64 `json:"jobs"`
}

type Error struct {
	Message   string  `json:"message"`
	RequestId *string `json:"requestId,omitempty"`
}
