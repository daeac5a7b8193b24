package events

const (
	JobStartedKind   string = "epic.extraction.events.job.started"
	JobCompletedKind string = "epic.extraction.events.job.completed"
	JobFailedKind    string = "epic.extraction.events.job.failed"
)

// JobEvent is the payload published when a bulk job changes state.
type JobEvent struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	Total      int    `json:"total"`
	Processed  int    `json:"processed"`
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
	Duplicates int    `json:"duplicates"`
	Reason     string `json:"reason,omitempty"`
}
