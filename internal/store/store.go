package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError is returned when an alert cannot move from its current
// status to the requested one.
type TransitionError struct {
	From models.AlertStatus
	To   models.AlertStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid alert status transition: %s -> %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error
	WithCustomerLock(ctx context.Context, customerID uuid.UUID, scope string, fn func(ctx context.Context) error) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error

	CreateCustomer(ctx context.Context, c *models.Customer) error
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	ListCustomers(ctx context.Context) ([]*models.Customer, error)
	CustomerJobStats(ctx context.Context) (map[uuid.UUID]JobStats, error)

	CreateFileUpload(ctx context.Context, u *models.FileUpload) error
	MarkFileUploadProcessed(ctx context.Context, id uuid.UUID, success bool, log string) error
	ListFileUploads(ctx context.Context, filter UploadFilter) ([]*models.FileUpload, int, error)

	CreateJobExecution(ctx context.Context, job *models.JobExecution) error
	ListJobExecutions(ctx context.Context, filter JobFilter) ([]*models.JobExecution, int, error)
	FindJobExecutions(ctx context.Context, filter JobFilter) ([]*models.JobExecution, error)

	UpsertVolumetric(ctx context.Context, rec *models.VolumetricRecord) (bool, error)
	ListVolumetrics(ctx context.Context, filter VolumetricFilter) ([]*models.VolumetricRecord, int, error)
	FindVolumetrics(ctx context.Context, filter VolumetricFilter) ([]*models.VolumetricRecord, error)

	UpsertSLADefinition(ctx context.Context, def *models.SLADefinition) (bool, error)
	GetActiveSLADefinition(ctx context.Context, customerID uuid.UUID, product models.Product, jobName string) (*models.SLADefinition, error)
	ListSLADefinitions(ctx context.Context, filter SLADefinitionFilter) ([]*models.SLADefinition, error)
	UpsertSLACompliance(ctx context.Context, rec *models.SLACompliance) (bool, error)
	ListSLACompliance(ctx context.Context, filter SLAFilter) ([]*models.SLACompliance, int, error)
	FindSLACompliance(ctx context.Context, filter SLAFilter) ([]*models.SLACompliance, error)

	CreateSchedule(ctx context.Context, s *models.Schedule) error
	ListSchedules(ctx context.Context, filter ScheduleFilter) ([]*models.Schedule, int, error)

	GetOrCreatePredictionModel(ctx context.Context, m *models.PredictionModel) (*models.PredictionModel, error)
	UpsertPredictionResult(ctx context.Context, r *models.PredictionResult) error
	ListPredictions(ctx context.Context, filter PredictionFilter) ([]*models.PredictionResult, int, error)
	UpsertAlert(ctx context.Context, a *models.PredictionAlert) (bool, error)
	GetAlert(ctx context.Context, id uuid.UUID) (*models.PredictionAlert, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]*models.PredictionAlert, int, error)
	UpdateAlertStatus(ctx context.Context, id uuid.UUID, status models.AlertStatus, opts ...AlertUpdateOption) (*models.PredictionAlert, error)
	ExpireAlerts(ctx context.Context, now time.Time) (int, error)
}

// Page is the pagination part of list filters.
type Page struct {
	Page  int
	Limit int
}

func (p Page) normalize() (limit, offset int) {
	limit = p.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := p.Page
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// DateRange bounds a filter by calendar day, both ends inclusive. Zero
// values are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

type JobFilter struct {
	CustomerID *uuid.UUID
	Product    models.Product
	JobName    string
	Statuses   []models.JobStatus
	Month      string
	DateRange
	Page
}

type VolumetricFilter struct {
	CustomerID *uuid.UUID
	JobName    string
	DateRange
	Page
}

type SLADefinitionFilter struct {
	CustomerID *uuid.UUID
	Product    models.Product
	ActiveOnly bool
}

type SLAFilter struct {
	CustomerID *uuid.UUID
	Product    models.Product
	JobName    string
	Status     models.SLAStatus
	DateRange
	Page
}

type ScheduleFilter struct {
	CustomerID *uuid.UUID
	JobType    models.JobType
	Status     string
	Page
}

type UploadFilter struct {
	CustomerID *uuid.UUID
	FileType   models.FileType
	Page
}

type PredictionFilter struct {
	CustomerID uuid.UUID
	Type       models.PredictionType
	RiskLevels []models.RiskLevel
	DateRange
	Page
}

type AlertFilter struct {
	CustomerID uuid.UUID
	Status     models.AlertStatus
	Page
}

// JobStats is the per-customer job activity used by the grouped customer view.
type JobStats struct {
	TotalJobs    int
	LastActivity *time.Time
}

type alertUpdateParams struct {
	AcknowledgedBy  *string
	ResolutionNotes *string
}

type AlertUpdateOption func(*alertUpdateParams)

func WithAcknowledgedBy(actor string) AlertUpdateOption {
	return func(p *alertUpdateParams) {
		p.AcknowledgedBy = &actor
	}
}

func WithResolutionNotes(notes string) AlertUpdateOption {
	return func(p *alertUpdateParams) {
		p.ResolutionNotes = &notes
	}
}
