package ingest

import (
	"fmt"

	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const (
	colVolJobName   = "Job Name"
	colVolDate      = "Date"
	colTotalVolume  = "Total Volume"
	colTotalRuntime = "Total Runtime"
	colPeakVolume   = "Peak Volume"
	colAvgVolume    = "Average Volume"
	colPeakRuntime  = "Peak Runtime"
	colAvgRuntime   = "Average Runtime"
	colMinPerf      = "Min Performance"
	colMaxPerf      = "Max Performance"
)

var volumetricSchema = Schema{
	{Name: colVolJobName, Required: true},
	{Name: colVolDate, Required: true},
	{Name: colTotalVolume, Required: true},
	{Name: colTotalRuntime, Required: true},
	{Name: colPeakVolume},
	{Name: colAvgVolume},
	{Name: colPeakRuntime},
	{Name: colAvgRuntime},
	{Name: colMinPerf},
	{Name: colMaxPerf},
}

func parseVolumetricRow(row Row, req Request) (*models.VolumetricRecord, error) {
	name := row.Value(colVolJobName)
	if name == "" {
		return nil, fmt.Errorf("job name is empty")
	}
	date, err := ParseDate(row.Value(colVolDate))
	if err != nil {
		return nil, fmt.Errorf("date: %w", err)
	}
	volume, err := ParseInt(row.Value(colTotalVolume))
	if err != nil {
		return nil, fmt.Errorf("total volume: %w", err)
	}
	runtime, err := ParseNumber(row.Value(colTotalRuntime))
	if err != nil {
		return nil, fmt.Errorf("total runtime: %w", err)
	}

	rec := &models.VolumetricRecord{
		CustomerID:     req.CustomerID,
		FileUploadID:   req.FileUploadID,
		JobName:        name,
		Date:           date,
		TotalVolume:    volume,
		TotalRuntime:   runtime,
		AverageVolume:  optionalFloat(row, colAvgVolume),
		PeakRuntime:    optionalFloat(row, colPeakRuntime),
		AverageRuntime: optionalFloat(row, colAvgRuntime),
		MinPerformance: optionalFloat(row, colMinPerf),
		MaxPerformance: optionalFloat(row, colMaxPerf),
	}
	if v := row.Value(colPeakVolume); v != "" {
		if n, err := ParseInt(v); err == nil {
			rec.PeakVolume = &n
		}
	}
	if runtime > 0 {
		rec.RecordsPerMinute = float64(volume) / runtime
	}
	if rec.MaxPerformance != nil && rec.RecordsPerMinute != 0 {
		eff := rec.RecordsPerMinute / *rec.MaxPerformance * 100
		rec.ProcessingEfficiency = &eff
	}
	return rec, nil
}

// optionalFloat treats blanks, zeros and junk as absent.
func optionalFloat(row Row, field string) *float64 {
	v := row.Value(field)
	if v == "" {
		return nil
	}
	f, err := ParseNumber(v)
	if err != nil || f == 0 {
		return nil
	}
	return &f
}
