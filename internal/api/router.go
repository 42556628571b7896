package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	mw "github.com/kiranshivaraju/batchpulse/internal/api/middleware"
	"github.com/kiranshivaraju/batchpulse/internal/api/handler"
	"github.com/kiranshivaraju/batchpulse/internal/api/response"
	"github.com/kiranshivaraju/batchpulse/internal/metrics"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit
	Metrics   *metrics.Metrics

	// MetricsHandler serves /metrics when non-nil.
	MetricsHandler http.Handler
	CORSOrigins    []string

	HealthHandler http.HandlerFunc

	ListCustomers    http.HandlerFunc
	GroupedCustomers http.HandlerFunc
	CreateCustomer   http.HandlerFunc

	UploadFile  http.HandlerFunc
	ListUploads http.HandlerFunc

	ListJobs            http.HandlerFunc
	JobSummary          http.HandlerFunc
	FailureAnalysis     http.HandlerFunc
	LongRunningAnalysis http.HandlerFunc

	ListVolumetrics   http.HandlerFunc
	VolumetricSummary http.HandlerFunc

	ListSLADefinitions  http.HandlerFunc
	UpsertSLADefinition http.HandlerFunc
	ListSLARecords      http.HandlerFunc
	SLASummary          http.HandlerFunc
	AnalyzeSLA          http.HandlerFunc

	ListSchedules http.HandlerFunc

	RunPredictions      http.HandlerFunc
	ListPredictions     http.HandlerFunc
	UpcomingPredictions http.HandlerFunc
	HighRiskPredictions http.HandlerFunc
	LatestPredictions   http.HandlerFunc

	ListAlerts       http.HandlerFunc
	AcknowledgeAlert http.HandlerFunc
	ResolveAlert     http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Instrument(deps.Metrics))
	r.Use(mw.Recovery)
	r.Use(cors.Handler(corsOptions(deps.CORSOrigins)))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	// Public
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeRead))

			r.Get("/api/v1/customers", orNotImplemented(deps.ListCustomers))
			r.Get("/api/v1/customers/grouped", orNotImplemented(deps.GroupedCustomers))
			r.Get("/api/v1/uploads", orNotImplemented(deps.ListUploads))

			r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobs))
			r.Get("/api/v1/jobs/summary", orNotImplemented(deps.JobSummary))
			r.Get("/api/v1/jobs/failure-analysis", orNotImplemented(deps.FailureAnalysis))
			r.Get("/api/v1/jobs/long-running-analysis", orNotImplemented(deps.LongRunningAnalysis))

			r.Get("/api/v1/volumetrics", orNotImplemented(deps.ListVolumetrics))
			r.Get("/api/v1/volumetrics/summary", orNotImplemented(deps.VolumetricSummary))

			r.Get("/api/v1/sla/definitions", orNotImplemented(deps.ListSLADefinitions))
			r.Get("/api/v1/sla/records", orNotImplemented(deps.ListSLARecords))
			r.Get("/api/v1/sla/summary", orNotImplemented(deps.SLASummary))

			r.Get("/api/v1/schedules", orNotImplemented(deps.ListSchedules))

			r.Get("/api/v1/predictions", orNotImplemented(deps.ListPredictions))
			r.Get("/api/v1/predictions/upcoming", orNotImplemented(deps.UpcomingPredictions))
			r.Get("/api/v1/predictions/high-risk", orNotImplemented(deps.HighRiskPredictions))
			r.Get("/api/v1/predictions/latest", orNotImplemented(deps.LatestPredictions))

			r.Get("/api/v1/alerts", orNotImplemented(deps.ListAlerts))
			r.Post("/api/v1/alerts/{alertID}/acknowledge", orNotImplemented(deps.AcknowledgeAlert))
			r.Post("/api/v1/alerts/{alertID}/resolve", orNotImplemented(deps.ResolveAlert))
		})

		// SLA compliance records are derived by the analyzer.
		readOnly := handler.NewMethodNotAllowedHandler(
			"SLA compliance records are read-only; re-run /api/v1/sla/analyze to recompute them")
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
			r.Method(method, "/api/v1/sla/records", readOnly)
			r.Method(method, "/api/v1/sla/records/*", readOnly)
		}

		r.With(deps.Auth.RequireScope(models.ScopeIngest)).
			Post("/api/v1/uploads", orNotImplemented(deps.UploadFile))

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeAnalyze))

			r.Post("/api/v1/sla/analyze", orNotImplemented(deps.AnalyzeSLA))
			r.Post("/api/v1/predictions/run", orNotImplemented(deps.RunPredictions))
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeAdmin))

			r.Post("/api/v1/customers", orNotImplemented(deps.CreateCustomer))
			r.Put("/api/v1/sla/definitions", orNotImplemented(deps.UpsertSLADefinition))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
