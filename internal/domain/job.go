package domain

import "time"

// JobState represents the queue-side lifecycle of a persisted job.
// Values include JobStateWaiting, JobStateActive, JobStateDelayed,
// JobStateCompleted, and JobStateFailed.
type JobState string

const (
	JobStateWaiting   JobState = "waiting"
	JobStateActive    JobState = "active"
	JobStateDelayed   JobState = "delayed"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// QueueJob is one persisted unit of work in a stage queue. Payload is the
// JSON-encoded stage envelope. AttemptsMade counts started attempts; a job
// moves to delayed with a future NextRunAt on transient failure until
// MaxAttempts is exhausted, then to failed.
type QueueJob struct {
	ID          string   `gorm:"type:text;primaryKey" json:"id"`
	Queue       string   `gorm:"type:text;not null;index:idx_jobs_dequeue" json:"queue"`
	Type        string   `gorm:"type:text;not null" json:"type"`
	Priority    int      `gorm:"default:0;index:idx_jobs_dequeue" json:"priority"`
	Payload     string   `gorm:"type:text" json:"payload"`
	State       JobState `gorm:"type:text;default:waiting;index:idx_jobs_dequeue" json:"state"`
	AttemptsMade int     `gorm:"default:0" json:"attempts_made"`
	MaxAttempts  int     `gorm:"default:3" json:"max_attempts"`
	BackoffMs    int64   `json:"backoff_ms"`
	TimeoutMs    int64   `json:"timeout_ms"`
	NextRunAt    time.Time  `gorm:"index:idx_jobs_dequeue" json:"next_run_at"`
	LastError    string     `gorm:"type:text" json:"last_error,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName returns the database table name for QueueJob.
func (QueueJob) TableName() string {
	return "queue_jobs"
}

// Backoff returns the configured base retry delay.
func (j *QueueJob) Backoff() time.Duration {
	return time.Duration(j.BackoffMs) * time.Millisecond
}

// Timeout returns the configured per-attempt execution limit.
func (j *QueueJob) Timeout() time.Duration {
	return time.Duration(j.TimeoutMs) * time.Millisecond
}
