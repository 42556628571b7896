package predict

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kiranshivaraju/batchpulse/pkg/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

var baseRecommendations = map[models.PredictionType][]string{
	models.PredictFailure: {
		"Review recent job logs for error patterns",
		"Check system resources and dependencies",
		"Consider running job with increased monitoring",
		"Prepare rollback procedures if critical",
	},
	models.PredictLongRunner: {
		"Monitor system resources during execution",
		"Review data volume and complexity",
		"Consider adjusting SLA expectations",
		"Prepare stakeholder notifications",
	},
	models.PredictSLAMiss: {
		"Review job dependencies and start times",
		"Consider early warning to stakeholders",
		"Prepare alternative processing options",
		"Monitor job performance closely",
	},
	models.PredictVolumeSpike: {
		"Scale up system resources if possible",
		"Monitor processing performance closely",
		"Prepare for extended runtime",
		"Review downstream system capacity",
	},
}

// GenerateAlerts raises one alert per HIGH or CRITICAL prediction, ordered by
// severity then predicted date. ResultID is taken from each prediction's ID.
func GenerateAlerts(preds []*models.PredictionResult) []*models.PredictionAlert {
	var alerts []*models.PredictionAlert
	for _, p := range preds {
		if p.RiskLevel != models.RiskHigh && p.RiskLevel != models.RiskCritical {
			continue
		}
		alerts = append(alerts, newAlert(p))
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Severity != alerts[j].Severity {
			return alerts[i].Severity < alerts[j].Severity
		}
		return alerts[i].PredictedDate.Before(alerts[j].PredictedDate)
	})
	return alerts
}

func newAlert(p *models.PredictionResult) *models.PredictionAlert {
	severity := models.SeverityWarning
	if p.RiskLevel == models.RiskCritical &&
		(p.PredictionType == models.PredictFailure || p.PredictionType == models.PredictSLAMiss) {
		severity = models.SeverityCritical
	}
	date := p.PredictedDate.Format(time.DateOnly)
	recs := append([]string{}, baseRecommendations[p.PredictionType]...)

	a := &models.PredictionAlert{
		ResultID:      p.ID,
		CustomerID:    p.CustomerID,
		AlertType:     p.PredictionType,
		Severity:      severity,
		JobName:       p.JobName,
		PredictedDate: p.PredictedDate,
		Status:        models.AlertActive,
		ExpiryDate:    p.PredictedDate.AddDate(0, 0, 1),
	}

	switch p.PredictionType {
	case models.PredictFailure:
		a.Title = "High Failure Risk: " + p.JobName
		a.Message = fmt.Sprintf("Job %s has a %.1f%% chance of failure on %s", p.JobName, p.Probability*100, date)
		if p.Probability > 0.8 {
			recs = append(recs, "Consider postponing non-critical downstream jobs")
		}
	case models.PredictLongRunner:
		predicted, normal := deref(p.PredictedDuration), deref(p.NormalDuration)
		a.Title = "Long Running Job Expected: " + p.JobName
		a.Message = fmt.Sprintf("Job %s may run %.0f minutes (normal: %.0f)", p.JobName, predicted, normal)
		if predicted-normal > 120 {
			recs = append(recs, "Consider breaking job into smaller chunks")
		}
	case models.PredictSLAMiss:
		a.Title = "SLA Miss Risk: " + p.JobName
		a.Message = fmt.Sprintf("Job %s has a %.1f%% chance of missing SLA on %s", p.JobName, p.Probability*100, date)
		if lr, ok := p.Factors["long_running_risk"].(float64); ok && lr > 0.6 {
			recs = append(recs, "Focus on performance optimization")
		}
	case models.PredictVolumeSpike:
		var predicted, normal int64
		if p.PredictedVolume != nil {
			predicted = *p.PredictedVolume
		}
		if p.NormalVolume != nil {
			normal = *p.NormalVolume
		}
		a.Title = "High Volume Expected: " + p.JobName
		a.Message = printer.Sprintf("Job %s may process %d records (normal: %s)", p.JobName, predicted, fmt.Sprint(normal))
		if predicted-normal > normal {
			recs = append(recs, "Consider parallel processing options")
		}
	}
	a.Recommendations = strings.Join(recs, "; ")
	return a
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
