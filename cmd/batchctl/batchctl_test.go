package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/internal/predict"
	"github.com/kiranshivaraju/batchpulse/internal/sla"
	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/internal/upload"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// fake implements every interface the commands use.
type fake struct {
	err error

	uploadReq  upload.Request
	uploadBody string
	uploadRes  *upload.Result

	analyzed       []sla.Filter
	invalidated    []uuid.UUID
	invalidatedAll int

	predictReq predict.Request
	run        *predict.Run

	customers []*models.Customer
	upserted  []*models.SLADefinition
	existing  map[string]bool

	keys   []*models.APIKey
	closed bool
}

var (
	_ uploader        = (*fake)(nil)
	_ analyzer        = (*fake)(nil)
	_ invalidator     = (*fake)(nil)
	_ predictor       = (*fake)(nil)
	_ definitionStore = (*fake)(nil)
	_ keyStore        = (*fake)(nil)
)

func (f *fake) Upload(_ context.Context, req upload.Request) (*upload.Result, error) {
	f.uploadReq = req
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(req.Body)
	f.uploadBody = buf.String()
	return f.uploadRes, f.err
}

func (f *fake) Analyze(_ context.Context, flt sla.Filter) (*sla.Result, error) {
	f.analyzed = append(f.analyzed, flt)
	if f.err != nil {
		return nil, f.err
	}
	return &sla.Result{Analyzed: 2, Created: 1, Updated: 1, Message: "Analyzed 2 jobs"}, nil
}

func (f *fake) Invalidate(_ context.Context, id uuid.UUID) { f.invalidated = append(f.invalidated, id) }
func (f *fake) InvalidateAll(_ context.Context)            { f.invalidatedAll++ }

func (f *fake) Predict(_ context.Context, req predict.Request) (*predict.Run, error) {
	f.predictReq = req
	return f.run, f.err
}

func (f *fake) GetCustomer(_ context.Context, id uuid.UUID) (*models.Customer, error) {
	for _, c := range f.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fake) ListCustomers(_ context.Context) ([]*models.Customer, error) {
	return f.customers, nil
}

func (f *fake) UpsertSLADefinition(_ context.Context, def *models.SLADefinition) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	def.ID = uuid.New()
	f.upserted = append(f.upserted, def)
	return !f.existing[def.JobName], nil
}

func (f *fake) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *fake) backend() *backend {
	return &backend{
		uploads:     f,
		analyzer:    f,
		cache:       f,
		predictor:   f,
		definitions: f,
		keys:        f,
		close:       func() { f.closed = true },
	}
}

// execute runs batchctl with args against f and returns stdout.
func execute(t *testing.T, f *fake, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(func(context.Context) (*backend, error) { return f.backend(), nil })
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// ─── root ───────────────────────────────────────────────────────────────────

func TestRoot_RejectsUnknownOutput(t *testing.T) {
	_, err := execute(t, &fake{}, "keys", "create", "--name", "x", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestRoot_ConnectErrorStops(t *testing.T) {
	root := newRootCmd(func(context.Context) (*backend, error) { return nil, errors.New("DATABASE_URL is required") })
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"analyze", "sla"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

// ─── ingest ─────────────────────────────────────────────────────────────────

func TestIngest(t *testing.T) {
	customerID := uuid.New()
	path := writeFile(t, "runs.csv", "Job Name,Status\nCLAIMS,Success\n")
	f := &fake{uploadRes: &upload.Result{Success: true, Message: "Created 1 job executions", FileName: "runs.csv", FileSize: 33}}

	out, err := execute(t, f, "ingest", path,
		"--customer", customerID.String(), "--product", "facets", "--type", "BATCH_PERFORMANCE", "-o", "json")
	require.NoError(t, err)

	assert.Equal(t, customerID.String(), f.uploadReq.CustomerID)
	assert.Equal(t, "facets", f.uploadReq.Product)
	assert.Equal(t, "runs.csv", f.uploadReq.FileName)
	assert.Equal(t, "Job Name,Status\nCLAIMS,Success\n", f.uploadBody)
	assert.True(t, f.closed)

	var got upload.Result
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Success)
}

func TestIngest_FailedFileIsAnError(t *testing.T) {
	path := writeFile(t, "runs.csv", "nothing useful")
	f := &fake{uploadRes: &upload.Result{Success: false, Message: "missing required columns: Job Name"}}

	out, err := execute(t, f, "ingest", path, "--customer", uuid.NewString(), "--product", "FACETS", "--type", "BATCH_PERFORMANCE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
	assert.Contains(t, out, "SUCCESS")
}

func TestIngest_RequiresFlags(t *testing.T) {
	path := writeFile(t, "runs.csv", "x")
	_, err := execute(t, &fake{}, "ingest", path, "--product", "FACETS")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customer")
}

// ─── analyze ────────────────────────────────────────────────────────────────

func TestAnalyzeSLA_InvalidatesSummaries(t *testing.T) {
	customerID := uuid.New()

	f := &fake{}
	out, err := execute(t, f, "analyze", "sla", "--customer", customerID.String(), "--from", "2024-01-01", "--to", "2024-01-31")
	require.NoError(t, err)
	require.Len(t, f.analyzed, 1)
	assert.Equal(t, &customerID, f.analyzed[0].CustomerID)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), f.analyzed[0].DateRange.To)
	assert.Equal(t, []uuid.UUID{customerID}, f.invalidated)
	assert.Zero(t, f.invalidatedAll)
	assert.Contains(t, out, "Analyzed 2 jobs")

	f = &fake{}
	_, err = execute(t, f, "analyze", "sla")
	require.NoError(t, err)
	assert.Empty(t, f.invalidated)
	assert.Equal(t, 1, f.invalidatedAll)
}

func TestSLAFilter_Errors(t *testing.T) {
	tests := []struct {
		name                       string
		customer, product, from, to string
		wantErr                    string
	}{
		{"bad customer", "acme", "", "", "", "--customer"},
		{"bad product", "", "word", "", "", "unknown product"},
		{"bad date", "", "", "yesterday-ish", "", "--from"},
		{"reversed range", "", "", "2024-02-01", "2024-01-01", "--to must not be before"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := slaFilter(tt.customer, tt.product, tt.from, tt.to)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// ─── predict ────────────────────────────────────────────────────────────────

func TestPredict_TableIsOrdered(t *testing.T) {
	customerID := uuid.New()
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	f := &fake{run: &predict.Run{
		CustomerID: customerID,
		Predictions: map[string][]*models.PredictionResult{
			"sla_misses": {{PredictionType: models.PredictSLAMiss, JobName: "EXTRACT", PredictedDate: day, Probability: 40, RiskLevel: models.RiskMedium}},
			"failures": {
				{PredictionType: models.PredictFailure, JobName: "LOW", PredictedDate: day, Probability: 20, RiskLevel: models.RiskLow},
				{PredictionType: models.PredictFailure, JobName: "HIGH", PredictedDate: day, Probability: 80, RiskLevel: models.RiskCritical},
			},
		},
		Alerts: []*models.PredictionAlert{{}},
	}}

	out, err := execute(t, f, "predict", "--customer", customerID.String(), "--days", "3", "--types", "failures,sla_misses")
	require.NoError(t, err)

	assert.Equal(t, 3, f.predictReq.DaysAhead)
	assert.Equal(t, []string{"failures", "sla_misses"}, f.predictReq.Types)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[1], "HIGH")
	assert.Contains(t, lines[1], "80.0%")
	assert.Contains(t, lines[2], "LOW")
	assert.Contains(t, lines[3], "EXTRACT")
	assert.Contains(t, out, "1 alerts raised")
}

func TestPredict_YAMLOutput(t *testing.T) {
	customerID := uuid.New()
	f := &fake{run: &predict.Run{CustomerID: customerID, DaysAhead: 7}}

	out, err := execute(t, f, "predict", "--customer", customerID.String(), "-o", "yaml")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, customerID.String(), got["customer_id"])
	assert.Equal(t, 7, got["days_ahead"])
}

// ─── sla import ─────────────────────────────────────────────────────────────

func TestSLAImport(t *testing.T) {
	acme := &models.Customer{ID: uuid.New(), Code: "ACME"}
	globex := &models.Customer{ID: uuid.New(), Code: "GLOBEX"}
	f := &fake{customers: []*models.Customer{acme, globex}, existing: map[string]bool{"EXTRACT": true}}

	path := writeFile(t, "defs.yaml", `
customer: acme
definitions:
  - product: facets
    job_name: CLAIMS_DAILY
    target_time: "06:30"
    description: before the morning extract
  - product: QNXT
    job_name: EXTRACT
    target_time: "23:15:00"
    active: false
  - customer: `+globex.ID.String()+`
    product: CAE
    job_name: BILLING
    target_time: "04:00"
`)

	out, err := execute(t, f, "sla", "import", path)
	require.NoError(t, err)

	require.Len(t, f.upserted, 3)
	assert.Equal(t, acme.ID, f.upserted[0].CustomerID)
	assert.Equal(t, models.ProductFacets, f.upserted[0].Product)
	assert.Equal(t, models.TimeOfDay{Hour: 6, Minute: 30}, f.upserted[0].TargetTime)
	assert.True(t, f.upserted[0].IsActive)
	assert.False(t, f.upserted[1].IsActive)
	assert.Equal(t, globex.ID, f.upserted[2].CustomerID)

	assert.Contains(t, out, "created")
	assert.Contains(t, out, "updated")
}

func TestReadDefinitions_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"empty", "", "empty"},
		{"no definitions", "customer: ACME\n", "no definitions"},
		{"unknown field", "customer: ACME\ndefinitions:\n  - product: FACETS\n    job: X\n", "parse yaml"},
		{"no customer", "definitions:\n  - product: FACETS\n    job_name: X\n    target_time: \"06:00\"\n", "customer is required"},
		{"bad product", "customer: ACME\ndefinitions:\n  - product: NOPE\n    job_name: X\n    target_time: \"06:00\"\n", "unknown product"},
		{"no target", "customer: ACME\ndefinitions:\n  - product: FACETS\n    job_name: X\n", "target_time is required"},
		{"bad target", "customer: ACME\ndefinitions:\n  - product: FACETS\n    job_name: X\n    target_time: \"25:00\"\n", "parse yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readDefinitions(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestImportDefinitions_UnknownCustomer(t *testing.T) {
	doc := &definitionFile{Customer: "MISSING", Definitions: []definitionEntry{
		{Product: "FACETS", JobName: "X", TargetTime: &models.TimeOfDay{Hour: 6}},
	}}

	_, err := importDefinitions(context.Background(), &fake{}, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `customer "MISSING" not found`)

	doc.Customer = uuid.NewString()
	_, err = importDefinitions(context.Background(), &fake{}, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

// ─── keys ───────────────────────────────────────────────────────────────────

func TestKeysCreate(t *testing.T) {
	f := &fake{}
	out, err := execute(t, f, "keys", "create", "--name", "ci", "--scopes", "ingest,read", "-o", "json")
	require.NoError(t, err)
	require.Len(t, f.keys, 1)

	var got struct {
		Key       string   `json:"key"`
		KeyPrefix string   `json:"key_prefix"`
		Scopes    []string `json:"scopes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, strings.HasPrefix(got.Key, "bp_"))
	assert.Equal(t, got.Key[:8], got.KeyPrefix)
	assert.Equal(t, []string{"ingest", "read"}, got.Scopes)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(f.keys[0].KeyHash), []byte(got.Key)))
	assert.NotContains(t, out, f.keys[0].KeyHash)
}

func TestKeysCreate_InvalidScope(t *testing.T) {
	f := &fake{}
	_, err := execute(t, f, "keys", "create", "--name", "ci", "--scopes", "write")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scope")
	assert.Empty(t, f.keys)
	assert.False(t, f.closed, "no connection is opened for an invalid key")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
