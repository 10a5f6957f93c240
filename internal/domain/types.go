package domain

// JobStatus tracks each pipeline stage for a single transcription job.
type JobStatus string

const (
	JobStatusIdle        JobStatus = "idle"
	JobStatusExtracting  JobStatus = "extracting"
	JobStatusRecognizing JobStatus = "recognizing"
	JobStatusSaving      JobStatus = "saving"
	JobStatusDone        JobStatus = "done"
	JobStatusFailed      JobStatus = "failed"
	JobStatusCancelled   JobStatus = "cancelled"
)

// Job stores the current job identity and lifecycle status.
type Job struct {
	ID     string    `json:"id"`
	Source string    `json:"source"`
	Status JobStatus `json:"status"`
}
