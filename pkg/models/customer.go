// Package models holds the records batchpulse stores and serves.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the product line a customer record belongs to.
type Product string

const (
	ProductFacets Product = "FACETS"
	ProductQNXT   Product = "QNXT"
	ProductCAE    Product = "CAE"
	ProductTMS    Product = "TMS"
	ProductEDM    Product = "EDM"
	ProductCLSP   Product = "CLSP"
)

// Products lists every supported product in display order.
var Products = []Product{ProductFacets, ProductQNXT, ProductCAE, ProductTMS, ProductEDM, ProductCLSP}

// Valid reports whether p is a known product.
func (p Product) Valid() bool {
	for _, known := range Products {
		if p == known {
			return true
		}
	}
	return false
}

// Customer is one (name, code, product) record. Several records sharing
// name and code form a single logical customer.
type Customer struct {
	ID          uuid.UUID `db:"id"          json:"id"`
	Name        string    `db:"name"        json:"name"`
	Code        string    `db:"code"        json:"code"`
	Product     Product   `db:"product"     json:"product"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active"   json:"is_active"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"  json:"updated_at"`
}

// CustomerGroup is the logical customer view: every product record sharing
// a name and code folded into one entry.
type CustomerGroup struct {
	Name         string             `json:"name"`
	Code         string             `json:"code"`
	Products     []Product          `json:"products"`
	CustomerIDs  []uuid.UUID        `json:"customer_ids"`
	Descriptions map[Product]string `json:"descriptions"`
	IsActive     bool               `json:"is_active"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	TotalJobs    int                `json:"total_jobs"`
	LastActivity *time.Time         `json:"last_activity,omitempty"`
}
