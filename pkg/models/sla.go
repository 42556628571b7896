package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SLAStatus is the compliance outcome of one job against its target.
type SLAStatus string

const (
	SLAMet    SLAStatus = "MET"
	SLAMissed SLAStatus = "MISSED"
	SLAAtRisk SLAStatus = "AT_RISK"
	SLANoSLA  SLAStatus = "NO_SLA"
)

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseClock parses "15:04:05" or "15:04".
func ParseClock(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
}

// Minutes returns minutes from midnight.
func (t TimeOfDay) Minutes() float64 {
	return float64(t.Hour*60+t.Minute) + float64(t.Second)/60
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// SLADefinition is the operator-managed completion target for a job.
type SLADefinition struct {
	ID          uuid.UUID `db:"id"          json:"id"`
	CustomerID  uuid.UUID `db:"customer_id" json:"customer_id"`
	Product     Product   `db:"product"     json:"product"`
	JobName     string    `db:"job_name"    json:"job_name"`
	TargetTime  TimeOfDay `db:"target_time" json:"target_time"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active"   json:"is_active"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"  json:"updated_at"`
}

// SLACompliance is a derived compliance row. Rows produced by the analyzer
// reference their source run through BatchJobID; rows loaded from SLA
// tracking files leave it nil.
type SLACompliance struct {
	ID                 uuid.UUID  `db:"id"                  json:"id"`
	CustomerID         uuid.UUID  `db:"customer_id"         json:"customer_id"`
	Product            Product    `db:"product"             json:"product"`
	JobName            string     `db:"job_name"            json:"job_name"`
	Date               time.Time  `db:"date"                json:"date"`
	BatchJobID         *uuid.UUID `db:"batch_job_id"        json:"batch_job_id,omitempty"`
	TargetMinutes      float64    `db:"target_minutes"      json:"target_minutes"`
	ActualMinutes      float64    `db:"actual_minutes"      json:"actual_minutes"`
	VarianceMinutes    float64    `db:"variance_minutes"    json:"variance_minutes"`
	VariancePercentage float64    `db:"variance_percentage" json:"variance_percentage"`
	CompletedNextDay   bool       `db:"completed_next_day"  json:"completed_next_day"`
	DaysLate           int        `db:"days_late"           json:"days_late"`
	Status             SLAStatus  `db:"status"              json:"status"`
	BusinessImpact     string     `db:"business_impact"     json:"business_impact"`
	CreatedAt          time.Time  `db:"created_at"          json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"          json:"updated_at"`
}
