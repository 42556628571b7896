package models

import (
	"time"

	"github.com/google/uuid"
)

// PredictionType is one of the four heuristic forecasts.
type PredictionType string

const (
	PredictFailure     PredictionType = "FAILURE"
	PredictLongRunner  PredictionType = "LONG_RUNNER"
	PredictSLAMiss     PredictionType = "SLA_MISS"
	PredictVolumeSpike PredictionType = "VOLUME_SPIKE"
)

// PredictionTypes in response order.
var PredictionTypes = []PredictionType{PredictFailure, PredictLongRunner, PredictSLAMiss, PredictVolumeSpike}

// Group returns the response key the type is grouped under.
func (t PredictionType) Group() string {
	switch t {
	case PredictFailure:
		return "failures"
	case PredictLongRunner:
		return "long_runners"
	case PredictSLAMiss:
		return "sla_misses"
	case PredictVolumeSpike:
		return "volume_spikes"
	}
	return ""
}

// PredictionTypeFromGroup maps a response key back to its type.
func PredictionTypeFromGroup(group string) (PredictionType, bool) {
	for _, t := range PredictionTypes {
		if t.Group() == group {
			return t, true
		}
	}
	return "", false
}

// RiskLevel buckets a probability.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskFor returns the risk bucket for probability p.
func RiskFor(p float64) RiskLevel {
	switch {
	case p >= 0.8:
		return RiskCritical
	case p >= 0.6:
		return RiskHigh
	case p >= 0.4:
		return RiskMedium
	default:
		return RiskLow
	}
}

// PredictionSource tells statistical output apart from dashboard filler.
type PredictionSource string

const (
	SourceStatistical PredictionSource = "statistical"
	SourceSynthetic   PredictionSource = "synthetic"
)

// PredictionModel is the per (customer, type, job) configuration. An empty
// JobName covers every job.
type PredictionModel struct {
	ID                  uuid.UUID      `db:"id"                   json:"id"`
	CustomerID          uuid.UUID      `db:"customer_id"          json:"customer_id"`
	PredictionType      PredictionType `db:"prediction_type"      json:"prediction_type"`
	JobName             string         `db:"job_name"             json:"job_name"`
	LookbackDays        int            `db:"lookback_days"        json:"lookback_days"`
	ConfidenceThreshold float64        `db:"confidence_threshold" json:"confidence_threshold"`
	IsActive            bool           `db:"is_active"            json:"is_active"`
	TrainingDataPoints  int            `db:"training_data_points" json:"training_data_points"`
	Accuracy            *float64       `db:"accuracy"             json:"accuracy,omitempty"`
	LastTrainedAt       *time.Time     `db:"last_trained_at"      json:"last_trained_at,omitempty"`
	CreatedAt           time.Time      `db:"created_at"           json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"           json:"updated_at"`
}

// PredictionResult is one forecast for a job on a date.
type PredictionResult struct {
	ID                  uuid.UUID        `db:"id"                   json:"id"`
	ModelID             uuid.UUID        `db:"model_id"             json:"model_id"`
	CustomerID          uuid.UUID        `db:"customer_id"          json:"customer_id"`
	PredictionType      PredictionType   `db:"prediction_type"      json:"prediction_type"`
	JobName             string           `db:"job_name"             json:"job_name"`
	PredictedDate       time.Time        `db:"predicted_date"       json:"predicted_date"`
	Probability         float64          `db:"probability"          json:"probability"`
	Confidence          float64          `db:"confidence"           json:"confidence_score"`
	RiskLevel           RiskLevel        `db:"risk_level"           json:"risk_level"`
	PredictedDuration   *float64         `db:"predicted_duration"   json:"predicted_duration,omitempty"`
	NormalDuration      *float64         `db:"normal_duration"      json:"normal_duration,omitempty"`
	PredictedVolume     *int64           `db:"predicted_volume"     json:"predicted_volume,omitempty"`
	NormalVolume        *int64           `db:"normal_volume"        json:"normal_volume,omitempty"`
	VolumeThreshold     *float64         `db:"volume_threshold"     json:"volume_threshold,omitempty"`
	PredictedCompletion string           `db:"predicted_completion" json:"predicted_completion,omitempty"`
	Factors             map[string]any   `db:"factors"              json:"factors"`
	Source              PredictionSource `db:"source"               json:"source"`
	CreatedAt           time.Time        `db:"created_at"           json:"created_at"`
}

// AlertStatus is the lifecycle state of a prediction alert.
type AlertStatus string

const (
	AlertActive       AlertStatus = "ACTIVE"
	AlertAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertResolved     AlertStatus = "RESOLVED"
	AlertExpired      AlertStatus = "EXPIRED"
)

// AlertSeverity of a prediction alert.
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "CRITICAL"
	SeverityWarning  AlertSeverity = "WARNING"
)

// PredictionAlert is raised for HIGH and CRITICAL predictions.
type PredictionAlert struct {
	ID              uuid.UUID      `db:"id"               json:"id"`
	ResultID        uuid.UUID      `db:"result_id"        json:"prediction_result_id"`
	CustomerID      uuid.UUID      `db:"customer_id"      json:"customer_id"`
	AlertType       PredictionType `db:"alert_type"       json:"alert_type"`
	Severity        AlertSeverity  `db:"severity"         json:"severity"`
	Title           string         `db:"title"            json:"title"`
	Message         string         `db:"message"          json:"message"`
	Recommendations string         `db:"recommendations"  json:"recommendations"`
	JobName         string         `db:"job_name"         json:"job_name"`
	PredictedDate   time.Time      `db:"predicted_date"   json:"predicted_date"`
	Status          AlertStatus    `db:"status"           json:"status"`
	ExpiryDate      time.Time      `db:"expiry_date"      json:"expiry_date"`
	AcknowledgedBy  string         `db:"acknowledged_by"  json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *time.Time     `db:"acknowledged_at"  json:"acknowledged_at,omitempty"`
	ResolvedAt      *time.Time     `db:"resolved_at"      json:"resolved_at,omitempty"`
	ResolutionNotes string         `db:"resolution_notes" json:"resolution_notes,omitempty"`
	CreatedAt       time.Time      `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"       json:"updated_at"`
}
