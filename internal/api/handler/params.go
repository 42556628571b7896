package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/internal/api/response"
	"github.com/kiranshivaraju/batchpulse/internal/report"
	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// query reads typed values from the URL query, collecting every problem so
// the client sees all of them in one 400.
type query struct {
	values url.Values
	errs   map[string][]string
}

func newQuery(r *http.Request) *query {
	return &query{values: r.URL.Query(), errs: map[string][]string{}}
}

func (q *query) fail(name, format string, args ...any) {
	q.errs[name] = append(q.errs[name], fmt.Sprintf(format, args...))
}

func (q *query) str(name string) string {
	return strings.TrimSpace(q.values.Get(name))
}

func (q *query) uuid(name string) *uuid.UUID {
	v := q.str(name)
	if v == "" {
		return nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		q.fail(name, "%s must be a UUID", name)
		return nil
	}
	return &id
}

func (q *query) requiredUUID(name string) uuid.UUID {
	if q.str(name) == "" {
		q.fail(name, "%s is required", name)
		return uuid.Nil
	}
	if id := q.uuid(name); id != nil {
		return *id
	}
	return uuid.Nil
}

// date accepts any layout dateparse understands and keeps the calendar day.
func (q *query) date(name string) time.Time {
	v := q.str(name)
	if v == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseIn(v, time.UTC)
	if err != nil {
		q.fail(name, "%s must be a date", name)
		return time.Time{}
	}
	return t.UTC()
}

func (q *query) dateRange() store.DateRange {
	r := store.DateRange{From: q.date("date_from"), To: q.date("date_to")}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		q.fail("date_to", "date_to must not be before date_from")
	}
	return r
}

func (q *query) product(name string) models.Product {
	v := q.str(name)
	if v == "" {
		return ""
	}
	p := models.Product(strings.ToUpper(v))
	if !p.Valid() {
		q.fail(name, "%s must be one of %v", name, models.Products)
		return ""
	}
	return p
}

func (q *query) month(name string) string {
	v := q.str(name)
	if v == "" {
		return ""
	}
	if _, err := time.Parse("2006-01", v); err != nil {
		q.fail(name, "%s must be YYYY-MM", name)
		return ""
	}
	return v
}

// oneOf validates v against a validator oneof list.
func (q *query) oneOf(name string, options ...string) string {
	v := strings.ToUpper(q.str(name))
	if v == "" {
		return ""
	}
	if err := validate.Var(v, "oneof="+strings.Join(options, " ")); err != nil {
		q.fail(name, "%s must be one of %s", name, strings.Join(options, ", "))
		return ""
	}
	return v
}

func (q *query) intRange(name string, def, lo, hi int) int {
	v := q.str(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		q.fail(name, "%s must be an integer between %d and %d", name, lo, hi)
		return def
	}
	return n
}

func (q *query) page() store.Page {
	page := q.intRange("page", 1, 1, 1<<20)
	limit := defaultLimit
	if v := q.str("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			q.fail("limit", "limit must be a positive integer")
		} else {
			limit = min(n, maxLimit)
		}
	}
	return store.Page{Page: page, Limit: limit}
}

// reportFilter reads the shared dashboard filter parameters.
func (q *query) reportFilter() report.Filter {
	return report.Filter{
		CustomerID: q.uuid("customer_id"),
		Product:    q.product("product"),
		JobName:    q.str("job_name"),
		Month:      q.month("month"),
		DateRange:  q.dateRange(),
	}
}

// valid writes a 400 with every collected problem and reports whether the
// query was clean.
func (q *query) valid(w http.ResponseWriter) bool {
	if len(q.errs) == 0 {
		return true
	}
	response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid query parameters", q.errs)
	return false
}

func writePage[T any](w http.ResponseWriter, items []*T, total int, p store.Page) {
	if items == nil {
		items = []*T{}
	}
	response.Page(w, items, p.Page, p.Limit, total)
}
