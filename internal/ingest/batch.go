package ingest

import (
	"fmt"
	"time"

	"github.com/kiranshivaraju/batchpulse/internal/jobs"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const (
	colJobName      = "Job_Name"
	colStartTime    = "Start_Time"
	colEndTime      = "End_Time"
	colRunID        = "jobrun_id"
	colStatus       = "Status"
	colExitCode     = "Exit_Code"
	colMachineName  = "Machine_Name"
	colDuration     = "Duration"
	colErrorMessage = "Error_Message"
)

const maxMachineName = 200

var batchSchema = Schema{
	{Name: colJobName, Required: true, Aliases: []string{"Job Name", "JobName", "job_name", "job name"}},
	{Name: colStartTime, Required: true, Aliases: []string{"Start Time", "StartTime", "start_time", "start time"}},
	{Name: colEndTime, Required: true, Aliases: []string{"End Time", "EndTime", "end_time", "end time"}},
	{Name: colRunID, Required: true, Aliases: []string{"JobRun ID", "Job Run ID", "jobrun id", "JobRunID", "job_run_id"}},
	{Name: colStatus, Required: true, Aliases: []string{"Job Status", "status", "job_status", "JobStatus"}},
	{Name: colExitCode, Aliases: []string{"Exit Code", "exit_code", "ExitCode", "exit code"}},
	{Name: colMachineName, Aliases: []string{"Machine Name", "machine_name", "MachineName", "machine name", "Host", "hostname"}},
	{Name: colDuration, Aliases: []string{"duration", "Runtime", "runtime", "Elapsed Time", "elapsed_time"}},
	{Name: colErrorMessage, Aliases: []string{"Error Message", "error_message", "Error", "error"}},
}

func parseJobRow(row Row, req Request) (*models.JobExecution, error) {
	name := row.Value(colJobName)
	if name == "" {
		return nil, fmt.Errorf("job name is empty")
	}

	start, err := ParseTimestamp(row.Value(colStartTime))
	if err != nil {
		return nil, fmt.Errorf("start time: %w", err)
	}
	var end *time.Time
	if v := row.Value(colEndTime); v != "" {
		e, err := ParseTimestamp(v)
		if err != nil {
			return nil, fmt.Errorf("end time: %w", err)
		}
		end = &e
	}
	timing := ResolveTiming(name, start, end, row.Value(colDuration))

	var exitCode *int
	if v := row.Value(colExitCode); v != "" {
		if n, err := ParseInt(v); err == nil {
			code := int(n)
			exitCode = &code
		}
	}

	rec := jobs.Build(jobs.Input{
		CustomerID:   req.CustomerID,
		FileUploadID: req.FileUploadID,
		Product:      req.Product,
		JobName:      name,
		RunID:        row.Value(colRunID),
		StatusText:   row.Value(colStatus),
		Start:        timing.Start,
		End:          timing.End,
		Duration:     timing.Duration,
		ExitCode:     exitCode,
		ErrorMessage: row.Value(colErrorMessage),
		MachineName:  truncate(row.Value(colMachineName), maxMachineName),
	})
	return &rec, nil
}
