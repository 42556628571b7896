package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/internal/api/response"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

// CustomerStore is the customer part of the store.
type CustomerStore interface {
	CreateCustomer(ctx context.Context, c *models.Customer) error
	ListCustomers(ctx context.Context) ([]*models.Customer, error)
}

type CustomerGrouper interface {
	GroupedCustomers(ctx context.Context) ([]*models.CustomerGroup, error)
}

// NewListCustomersHandler returns an http.HandlerFunc for GET /api/v1/customers.
// Every (name, code, product) record is returned; ?product narrows the list.
func NewListCustomersHandler(s CustomerStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		product := q.product("product")
		if !q.valid(w) {
			return
		}

		customers, err := s.ListCustomers(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]*models.Customer, 0, len(customers))
		for _, c := range customers {
			if product == "" || c.Product == product {
				out = append(out, c)
			}
		}
		response.JSON(w, out)
	}
}

// NewGroupedCustomersHandler returns an http.HandlerFunc for GET /api/v1/customers/grouped.
func NewGroupedCustomersHandler(g CustomerGrouper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups, err := g.GroupedCustomers(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if groups == nil {
			groups = []*models.CustomerGroup{}
		}
		response.JSON(w, groups)
	}
}

type createCustomerRequest struct {
	Name        string `json:"name"        validate:"required,max=255"`
	Code        string `json:"code"        validate:"required,max=50"`
	Product     string `json:"product"     validate:"required,product"`
	Description string `json:"description" validate:"max=2000"`
	IsActive    *bool  `json:"is_active"`
}

// NewCreateCustomerHandler returns an http.HandlerFunc for POST /api/v1/customers.
func NewCreateCustomerHandler(s CustomerStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCustomerRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		now := time.Now().UTC()
		c := &models.Customer{
			ID:          uuid.New(),
			Name:        strings.TrimSpace(req.Name),
			Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
			Product:     models.Product(req.Product),
			Description: req.Description,
			IsActive:    req.IsActive == nil || *req.IsActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.CreateCustomer(r.Context(), c); err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, c)
	}
}
