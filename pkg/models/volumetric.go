package models

import (
	"time"

	"github.com/google/uuid"
)

// VolumetricRecord is the daily volume and runtime profile of one job.
// Unique on (customer, job name, date).
type VolumetricRecord struct {
	ID                   uuid.UUID  `db:"id"                    json:"id"`
	CustomerID           uuid.UUID  `db:"customer_id"           json:"customer_id"`
	FileUploadID         *uuid.UUID `db:"file_upload_id"        json:"file_upload_id,omitempty"`
	JobName              string     `db:"job_name"              json:"job_name"`
	Date                 time.Time  `db:"date"                  json:"date"`
	TotalVolume          int64      `db:"total_volume"          json:"total_volume"`
	PeakVolume           *int64     `db:"peak_volume"           json:"peak_volume,omitempty"`
	AverageVolume        *float64   `db:"average_volume"        json:"average_volume,omitempty"`
	TotalRuntime         float64    `db:"total_runtime"         json:"total_runtime"`
	PeakRuntime          *float64   `db:"peak_runtime"          json:"peak_runtime,omitempty"`
	AverageRuntime       *float64   `db:"average_runtime"       json:"average_runtime,omitempty"`
	MinPerformance       *float64   `db:"min_performance"       json:"min_performance,omitempty"`
	MaxPerformance       *float64   `db:"max_performance"       json:"max_performance,omitempty"`
	RecordsPerMinute     float64    `db:"records_per_minute"    json:"records_processed_per_minute"`
	ProcessingEfficiency *float64   `db:"processing_efficiency" json:"processing_efficiency,omitempty"`
	CreatedAt            time.Time  `db:"created_at"            json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"            json:"updated_at"`
}
