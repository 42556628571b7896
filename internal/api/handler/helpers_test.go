package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/internal/predict"
	"github.com/kiranshivaraju/batchpulse/internal/report"
	"github.com/kiranshivaraju/batchpulse/internal/sla"
	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/internal/upload"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

// backend is a hand-written fake for every interface the handlers consume.
// Each list method records the filter it was called with.
type backend struct {
	err error

	customers []*models.Customer
	created   []*models.Customer
	groups    []*models.CustomerGroup

	uploadReq    upload.Request
	uploadBody   string
	uploadResult *upload.Result
	uploadFilter store.UploadFilter

	jobFilter   store.JobFilter
	volFilter   store.VolumetricFilter
	schedFilter store.ScheduleFilter
	slaFilter   store.SLAFilter
	defFilter   store.SLADefinitionFilter
	reportCalls []report.Filter

	defs       []*models.SLADefinition
	defCreated bool
	upserted   *models.SLADefinition
	analyzed   []sla.Filter

	invalidated    []uuid.UUID
	invalidatedAll int

	predictReq  predict.Request
	run         *predict.Run
	predFilter  store.PredictionFilter
	upcomingArg int
	alertFilter store.AlertFilter
	ackActor    string
	resolveNote string
	alert       *models.PredictionAlert

	keys    []*models.APIKey
	revoked []uuid.UUID
}

var (
	_ CustomerStore      = (*backend)(nil)
	_ CustomerGrouper    = (*backend)(nil)
	_ Uploader           = (*backend)(nil)
	_ UploadLister       = (*backend)(nil)
	_ JobLister          = (*backend)(nil)
	_ VolumetricLister   = (*backend)(nil)
	_ ScheduleLister     = (*backend)(nil)
	_ Reporter           = (*backend)(nil)
	_ SLADefinitionStore = (*backend)(nil)
	_ SLARecordLister    = (*backend)(nil)
	_ SLAAnalyzer        = (*backend)(nil)
	_ SummaryInvalidator = (*backend)(nil)
	_ Predictor          = (*backend)(nil)
	_ KeyStore           = (*backend)(nil)
)

func (b *backend) CreateCustomer(_ context.Context, c *models.Customer) error {
	if b.err != nil {
		return b.err
	}
	b.created = append(b.created, c)
	return nil
}

func (b *backend) ListCustomers(_ context.Context) ([]*models.Customer, error) {
	return b.customers, b.err
}

func (b *backend) GetCustomer(_ context.Context, id uuid.UUID) (*models.Customer, error) {
	for _, c := range b.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (b *backend) GroupedCustomers(_ context.Context) ([]*models.CustomerGroup, error) {
	return b.groups, b.err
}

func (b *backend) Upload(_ context.Context, req upload.Request) (*upload.Result, error) {
	b.uploadReq = req
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		b.uploadBody = string(data)
	}
	return b.uploadResult, b.err
}

func (b *backend) ListFileUploads(_ context.Context, f store.UploadFilter) ([]*models.FileUpload, int, error) {
	b.uploadFilter = f
	return nil, 0, b.err
}

func (b *backend) ListJobExecutions(_ context.Context, f store.JobFilter) ([]*models.JobExecution, int, error) {
	b.jobFilter = f
	if b.err != nil {
		return nil, 0, b.err
	}
	return []*models.JobExecution{{ID: uuid.New(), JobName: "CLAIMS"}}, 45, nil
}

func (b *backend) ListVolumetrics(_ context.Context, f store.VolumetricFilter) ([]*models.VolumetricRecord, int, error) {
	b.volFilter = f
	return nil, 0, b.err
}

func (b *backend) ListSchedules(_ context.Context, f store.ScheduleFilter) ([]*models.Schedule, int, error) {
	b.schedFilter = f
	return nil, 0, b.err
}

func (b *backend) JobSummary(_ context.Context, f report.Filter) (*report.JobSummary, error) {
	b.reportCalls = append(b.reportCalls, f)
	return &report.JobSummary{}, b.err
}

func (b *backend) FailureAnalysis(_ context.Context, f report.Filter) (*report.FailureAnalysis, error) {
	b.reportCalls = append(b.reportCalls, f)
	return &report.FailureAnalysis{}, b.err
}

func (b *backend) LongRunningAnalysis(_ context.Context, f report.Filter) (*report.LongRunningAnalysis, error) {
	b.reportCalls = append(b.reportCalls, f)
	return &report.LongRunningAnalysis{}, b.err
}

func (b *backend) VolumetricSummary(_ context.Context, f report.Filter) (*report.VolumetricSummary, error) {
	b.reportCalls = append(b.reportCalls, f)
	return &report.VolumetricSummary{}, b.err
}

func (b *backend) SLASummary(_ context.Context, f report.Filter) (*report.SLASummary, error) {
	b.reportCalls = append(b.reportCalls, f)
	return &report.SLASummary{}, b.err
}

func (b *backend) UpsertSLADefinition(_ context.Context, def *models.SLADefinition) (bool, error) {
	if b.err != nil {
		return false, b.err
	}
	def.ID = uuid.New()
	b.upserted = def
	return b.defCreated, nil
}

func (b *backend) ListSLADefinitions(_ context.Context, f store.SLADefinitionFilter) ([]*models.SLADefinition, error) {
	b.defFilter = f
	return b.defs, b.err
}

func (b *backend) ListSLACompliance(_ context.Context, f store.SLAFilter) ([]*models.SLACompliance, int, error) {
	b.slaFilter = f
	return nil, 0, b.err
}

func (b *backend) Analyze(_ context.Context, f sla.Filter) (*sla.Result, error) {
	b.analyzed = append(b.analyzed, f)
	if b.err != nil {
		return nil, b.err
	}
	return &sla.Result{Analyzed: 4, Created: 3, Updated: 1, Message: "Analyzed 4 jobs"}, nil
}

func (b *backend) Invalidate(_ context.Context, id uuid.UUID) {
	b.invalidated = append(b.invalidated, id)
}

func (b *backend) InvalidateAll(_ context.Context) {
	b.invalidatedAll++
}

func (b *backend) Predict(_ context.Context, req predict.Request) (*predict.Run, error) {
	b.predictReq = req
	return b.run, b.err
}

func (b *backend) Latest(_ context.Context, _ uuid.UUID) (*predict.Run, error) {
	return b.run, b.err
}

func (b *backend) List(_ context.Context, f store.PredictionFilter) ([]*models.PredictionResult, int, error) {
	b.predFilter = f
	return nil, 0, b.err
}

func (b *backend) Upcoming(_ context.Context, customerID uuid.UUID, days int, page store.Page) ([]*models.PredictionResult, int, error) {
	b.predFilter = store.PredictionFilter{CustomerID: customerID, Page: page}
	b.upcomingArg = days
	return nil, 0, b.err
}

func (b *backend) HighRisk(_ context.Context, customerID uuid.UUID, page store.Page) ([]*models.PredictionResult, int, error) {
	b.predFilter = store.PredictionFilter{CustomerID: customerID, Page: page}
	return nil, 0, b.err
}

func (b *backend) ListAlerts(_ context.Context, f store.AlertFilter) ([]*models.PredictionAlert, int, error) {
	b.alertFilter = f
	return nil, 0, b.err
}

func (b *backend) AcknowledgeAlert(_ context.Context, _ uuid.UUID, actor string) (*models.PredictionAlert, error) {
	b.ackActor = actor
	return b.alert, b.err
}

func (b *backend) ResolveAlert(_ context.Context, _ uuid.UUID, notes string) (*models.PredictionAlert, error) {
	b.resolveNote = notes
	return b.alert, b.err
}

func (b *backend) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	if b.err != nil {
		return b.err
	}
	b.keys = append(b.keys, key)
	return nil
}

func (b *backend) ListAPIKeys(_ context.Context) ([]*models.APIKey, error) {
	return b.keys, b.err
}

func (b *backend) RevokeAPIKey(_ context.Context, id uuid.UUID) error {
	if b.err != nil {
		return b.err
	}
	b.revoked = append(b.revoked, id)
	return nil
}

// --- request helpers ---

func jsonReq(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	switch v := body.(type) {
	case nil:
	case string:
		buf.WriteString(v)
	default:
		if err := json.NewEncoder(&buf).Encode(v); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// withURLParam attaches a chi route parameter as the router would.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return env
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) envelope {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, w.Code, w.Body.String())
	}
	env := decode(t, w)
	if env.Error.Code != code {
		t.Fatalf("expected code %s, got %s", code, env.Error.Code)
	}
	return env
}

func dataInto(t *testing.T, w *httptest.ResponseRecorder, dst any) envelope {
	t.Helper()
	if w.Code >= 300 {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	env := decode(t, w)
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return env
}
