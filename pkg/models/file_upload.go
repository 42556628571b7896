package models

import (
	"time"

	"github.com/google/uuid"
)

// FileType is the category of an uploaded spreadsheet.
type FileType string

const (
	FileBatchPerformance FileType = "BATCH_PERFORMANCE"
	FileVolumetrics      FileType = "VOLUMETRICS"
	FileSLATracking      FileType = "SLA_TRACKING"
	FileBatchSchedule    FileType = "BATCH_SCHEDULE"
)

// Valid reports whether f is a known file type.
func (f FileType) Valid() bool {
	switch f {
	case FileBatchPerformance, FileVolumetrics, FileSLATracking, FileBatchSchedule:
		return true
	}
	return false
}

// FileUpload records an uploaded file and the outcome of processing it.
type FileUpload struct {
	ID            uuid.UUID `db:"id"             json:"id"`
	CustomerID    uuid.UUID `db:"customer_id"    json:"customer_id"`
	FileType      FileType  `db:"file_type"      json:"file_type"`
	Product       Product   `db:"product"        json:"product"`
	FileName      string    `db:"file_name"      json:"file_name"`
	FilePath      string    `db:"file_path"      json:"-"`
	FileSize      int64     `db:"file_size"      json:"file_size"`
	Processed     bool      `db:"processed"      json:"processed"`
	ProcessingLog string    `db:"processing_log" json:"processing_log"`
	UploadedAt    time.Time `db:"uploaded_at"    json:"uploaded_at"`
}
