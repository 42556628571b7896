package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// allCustomers scopes summary keys computed without a customer filter.
const allCustomers = "all"

func scope(customerID *uuid.UUID) string {
	if customerID == nil {
		return allCustomers
	}
	return customerID.String()
}

// SummaryKey names a cached report for one customer scope and filter hash.
func SummaryKey(customerID *uuid.UUID, kind, filterHash string) string {
	return fmt.Sprintf("summary:%s:%s:%s", scope(customerID), kind, filterHash)
}

// SummaryPrefix matches every cached report for a customer scope.
func SummaryPrefix(customerID *uuid.UUID) string {
	return fmt.Sprintf("summary:%s:", scope(customerID))
}

// AllSummariesPrefix matches every cached report regardless of scope.
func AllSummariesPrefix() string {
	return "summary:"
}

func PredictionRunKey(customerID uuid.UUID) string {
	return fmt.Sprintf("predict:last:%s", customerID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
