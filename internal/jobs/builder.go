// Package jobs assembles JobExecution records from parsed row values.
package jobs

import (
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/internal/status"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

// Input is one parsed row of a job performance file.
type Input struct {
	CustomerID   uuid.UUID
	FileUploadID *uuid.UUID
	Product      models.Product
	JobName      string
	RunID        string
	StatusText   string
	Start        time.Time
	End          *time.Time
	Duration     *float64
	ExitCode     *int
	ErrorMessage string
	MachineName  string
}

// Build derives status, exit code, long-running flag and the month/year
// columns. It does not touch the store.
func Build(in Input) models.JobExecution {
	longRunning := in.Duration != nil && *in.Duration > models.LongRunningThresholdMinutes

	st := status.Resolve(in.StatusText, status.Evidence{
		HasEndTime:    in.End != nil,
		IsLongRunning: longRunning,
	})
	if st == models.StatusLongRunning {
		longRunning = true
	}

	exitCode := in.ExitCode
	if exitCode == nil {
		code := status.InferExitCode(st)
		exitCode = &code
	}

	start := in.Start.UTC()
	return models.JobExecution{
		ID:              uuid.New(),
		CustomerID:      in.CustomerID,
		FileUploadID:    in.FileUploadID,
		JobName:         in.JobName,
		RunID:           in.RunID,
		Status:          st,
		Product:         in.Product,
		StartTime:       start,
		EndTime:         in.End,
		DurationMinutes: in.Duration,
		ExitCode:        exitCode,
		ErrorMessage:    in.ErrorMessage,
		MachineName:     in.MachineName,
		IsLongRunning:   longRunning,
		Month:           start.Format("2006-01"),
		Year:            start.Year(),
	}
}
