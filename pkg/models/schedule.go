package models

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleFormat identifies which export layout a schedule row came from.
type ScheduleFormat string

const (
	ScheduleLegacy ScheduleFormat = "LEGACY"
	ScheduleTidal  ScheduleFormat = "TIDAL"
)

// JobType classifies a scheduler entry.
type JobType string

const (
	JobTypeIndividual JobType = "INDIVIDUAL_JOB"
	JobTypeGroup      JobType = "JOB_GROUP"
	JobTypeFolder     JobType = "FOLDER_GROUP"
	JobTypeCondition  JobType = "CONDITION_CHECK"
	JobTypeResource   JobType = "RESOURCE_POOL"
)

// Schedule is one scheduler definition. Tidal-only columns stay empty for
// legacy rows.
type Schedule struct {
	ID             uuid.UUID      `db:"id"              json:"id"`
	CustomerID     uuid.UUID      `db:"customer_id"     json:"customer_id"`
	FileUploadID   *uuid.UUID     `db:"file_upload_id"  json:"file_upload_id,omitempty"`
	Format         ScheduleFormat `db:"format"          json:"format"`
	ScheduleName   string         `db:"schedule_name"   json:"schedule_name"`
	JobName        string         `db:"job_name"        json:"job_name"`
	Pattern        string         `db:"pattern"         json:"schedule_pattern"`
	NextRunTime    *time.Time     `db:"next_run_time"   json:"next_run_time,omitempty"`
	LastRunTime    *time.Time     `db:"last_run_time"   json:"last_run_time,omitempty"`
	Status         string         `db:"status"          json:"status"`
	Priority       int            `db:"priority"        json:"priority"`
	Dependencies   string         `db:"dependencies"    json:"dependencies"`
	JobType        JobType        `db:"job_type"        json:"job_type"`
	ExternalID     string         `db:"external_id"     json:"external_id,omitempty"`
	Category       string         `db:"category"        json:"category,omitempty"`
	ParentGroup    string         `db:"parent_group"    json:"parent_group,omitempty"`
	Calendar       string         `db:"calendar"        json:"calendar,omitempty"`
	CalendarOffset string         `db:"calendar_offset" json:"calendar_offset,omitempty"`
	TimeZone       string         `db:"time_zone"       json:"time_zone,omitempty"`
	StartTime      string         `db:"start_time"      json:"start_time,omitempty"`
	UntilTime      string         `db:"until_time"      json:"until_time,omitempty"`
	Agent          string         `db:"agent"           json:"agent,omitempty"`
	Class          string         `db:"class"           json:"class,omitempty"`
	Owner          string         `db:"owner"           json:"owner,omitempty"`
	LastModified   string         `db:"last_modified"   json:"last_modified,omitempty"`
	CreatedAt      time.Time      `db:"created_at"      json:"created_at"`
}
