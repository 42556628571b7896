package models

import "time"

// ErrorSignature groups failed runs of one job whose error messages share a
// normalized fingerprint.
type ErrorSignature struct {
	Fingerprint   string    `json:"fingerprint"`
	Pattern       string    `json:"pattern"`
	Status        JobStatus `json:"status"`
	Count         int       `json:"count"`
	FirstSeenAt   time.Time `json:"first_seen_at"`
	LastSeenAt    time.Time `json:"last_seen_at"`
	SampleMessage string    `json:"sample_message"`
}
