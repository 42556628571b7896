package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the normalized outcome of a batch job run.
type JobStatus string

const (
	StatusCompletedNormal     JobStatus = "COMPLETED_NORMAL"
	StatusCompletedNormalStar JobStatus = "COMPLETED_NORMAL_STAR"
	StatusCompletedAbnormal   JobStatus = "COMPLETED_ABNORMAL"
	StatusFailed              JobStatus = "FAILED"
	StatusLongRunning         JobStatus = "LONG_RUNNING"
	StatusPending             JobStatus = "PENDING"

	// Legacy values still present in older data.
	StatusCompleted             JobStatus = "COMPLETED"
	StatusCompletedWithWarnings JobStatus = "COMPLETED_WITH_WARNINGS"
)

// JobStatuses are the values the normalizer may produce.
var JobStatuses = []JobStatus{
	StatusCompletedNormal,
	StatusCompletedNormalStar,
	StatusCompletedAbnormal,
	StatusFailed,
	StatusLongRunning,
	StatusPending,
}

// CompletedStatuses is the completed family considered by SLA analysis.
var CompletedStatuses = []JobStatus{
	StatusCompletedNormal,
	StatusCompletedAbnormal,
	StatusCompletedNormalStar,
	StatusCompleted,
	StatusCompletedWithWarnings,
}

// LongRunningThresholdMinutes is the duration above which a run is long-running.
const LongRunningThresholdMinutes = 240.0

// JobExecution is one observed run of a named job. Rows are never updated
// after ingestion.
type JobExecution struct {
	ID              uuid.UUID  `db:"id"               json:"id"`
	CustomerID      uuid.UUID  `db:"customer_id"      json:"customer_id"`
	FileUploadID    *uuid.UUID `db:"file_upload_id"   json:"file_upload_id,omitempty"`
	JobName         string     `db:"job_name"         json:"job_name"`
	RunID           string     `db:"run_id"           json:"run_id"`
	Status          JobStatus  `db:"status"           json:"status"`
	Product         Product    `db:"product"          json:"product"`
	StartTime       time.Time  `db:"start_time"       json:"start_time"`
	EndTime         *time.Time `db:"end_time"         json:"end_time,omitempty"`
	DurationMinutes *float64   `db:"duration_minutes" json:"duration_minutes,omitempty"`
	ExitCode        *int       `db:"exit_code"        json:"exit_code,omitempty"`
	ErrorMessage    string     `db:"error_message"    json:"error_message"`
	MachineName     string     `db:"machine_name"     json:"machine_name"`
	IsLongRunning   bool       `db:"is_long_running"  json:"is_long_running"`
	Month           string     `db:"month"            json:"month"`
	Year            int        `db:"year"             json:"year"`
	CreatedAt       time.Time  `db:"created_at"       json:"created_at"`
}

// IsFailure reports whether the run counts as a failure for prediction.
func (j *JobExecution) IsFailure() bool {
	return j.Status == StatusFailed || j.Status == StatusCompletedAbnormal
}
