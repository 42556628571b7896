package ingest

import (
	"fmt"

	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const (
	colSLAJobName   = "Job Name"
	colSLADate      = "Date"
	colSLATarget    = "SLA Target"
	colActual       = "Actual Runtime"
	colBusinessImpt = "Business Impact"
)

var slaTrackingSchema = Schema{
	{Name: colSLAJobName, Required: true},
	{Name: colSLADate, Required: true},
	{Name: colSLATarget, Required: true},
	{Name: colActual, Required: true},
	{Name: colBusinessImpt},
}

func parseSLATrackingRow(row Row, req Request) (*models.SLACompliance, error) {
	name := row.Value(colSLAJobName)
	if name == "" {
		return nil, fmt.Errorf("job name is empty")
	}
	date, err := ParseDate(row.Value(colSLADate))
	if err != nil {
		return nil, fmt.Errorf("date: %w", err)
	}

	target := ParseTimeOfDay(row.Value(colSLATarget))
	actual := ParseTimeOfDay(row.Value(colActual))
	variance := actual - target

	rec := &models.SLACompliance{
		CustomerID:      req.CustomerID,
		Product:         req.Product,
		JobName:         name,
		Date:            date,
		TargetMinutes:   target,
		ActualMinutes:   actual,
		VarianceMinutes: variance,
		Status:          models.SLAMissed,
		BusinessImpact:  row.Value(colBusinessImpt),
	}
	if actual <= target {
		rec.Status = models.SLAMet
	}
	if target > 0 {
		rec.VariancePercentage = variance / target * 100
	}
	return rec, nil
}
