package domain

import (
	"errors"
	"time"
)

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

var ErrJobTerminal = errors.New("job already in terminal state")

// ProcessingJob tracks asynchronous pipeline progress. A job may exist
// before any DocumentRecord is materialized, so DocumentID is nullable.
type ProcessingJob struct {
	ID          string           `json:"job_id"`
	DocumentID  *string          `json:"document_id,omitempty"`
	Status      JobStatus        `json:"status"`
	Progress    int              `json:"progress"`
	Result      *DocumentRecord  `json:"result,omitempty"`
	Error       string           `json:"error_message,omitempty"`
	StagingKey  string           `json:"-"`
	Filename    string           `json:"filename"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

func (j *ProcessingJob) terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// Start moves a pending job to processing and records the start time.
func (j *ProcessingJob) Start(now time.Time) error {
	if j.terminal() {
		return ErrJobTerminal
	}
	j.Status = JobProcessing
	j.StartedAt = &now
	return nil
}

// SetProgress clamps to 0..100 and never goes backwards.
func (j *ProcessingJob) SetProgress(p int) {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	if p > j.Progress {
		j.Progress = p
	}
}

// Complete records the result payload and the completion time.
func (j *ProcessingJob) Complete(result *DocumentRecord, now time.Time) error {
	if j.terminal() {
		return ErrJobTerminal
	}
	j.Status = JobCompleted
	j.Result = result
	if result != nil {
		id := result.ID
		j.DocumentID = &id
	}
	j.SetProgress(100)
	j.CompletedAt = &now
	return nil
}

// Fail records the error text and the completion time.
func (j *ProcessingJob) Fail(errMessage string, now time.Time) error {
	if j.terminal() {
		return ErrJobTerminal
	}
	j.Status = JobFailed
	j.Error = errMessage
	j.CompletedAt = &now
	return nil
}
