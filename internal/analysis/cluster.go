// Package analysis groups failed job runs by error signature.
package analysis

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

// Normalization regexes compiled once at package init.
var (
	reDatetime   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:\d{2})?`)
	reDate       = regexp.MustCompile(`\b\d{1,4}[/-]\d{1,2}[/-]\d{1,4}\b`)
	reClock      = regexp.MustCompile(`\b\d{1,2}:\d{2}(:\d{2})?\b`)
	reHexAddr    = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	reUUID       = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	reNumber     = regexp.MustCompile(`\b\d+\b`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

const (
	maxPatternBytes = 500
	maxSampleBytes  = 2000
	noMessage       = "(no error message)"
)

// Signatures groups the failed runs in jobs by the fingerprint of their
// error message. Non-failure runs are ignored. Returns at most limit
// signatures (all when limit <= 0) sorted by count desc, then FAILED before
// COMPLETED_ABNORMAL, then most recent. Returns an empty slice, never nil.
func Signatures(jobs []*models.JobExecution, limit int) []models.ErrorSignature {
	groups := make(map[string]*models.ErrorSignature)

	for _, j := range jobs {
		if !j.IsFailure() {
			continue
		}
		msg := strings.TrimSpace(j.ErrorMessage)
		if msg == "" {
			msg = noMessage
		}
		fp := Fingerprint(msg)
		sig, ok := groups[fp]
		if !ok {
			sig = &models.ErrorSignature{
				Fingerprint:   fp,
				Pattern:       NormalizeMessage(msg),
				Status:        j.Status,
				FirstSeenAt:   j.StartTime,
				LastSeenAt:    j.StartTime,
				SampleMessage: truncateString(msg, maxSampleBytes),
			}
			groups[fp] = sig
		}

		sig.Count++
		if j.StartTime.Before(sig.FirstSeenAt) {
			sig.FirstSeenAt = j.StartTime
		}
		if j.StartTime.After(sig.LastSeenAt) {
			sig.LastSeenAt = j.StartTime
			sig.SampleMessage = truncateString(msg, maxSampleBytes)
		}
		if StatusSeverity(j.Status) > StatusSeverity(sig.Status) {
			sig.Status = j.Status
		}
	}

	out := make([]models.ErrorSignature, 0, len(groups))
	for _, sig := range groups {
		out = append(out, *sig)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if StatusSeverity(out[i].Status) != StatusSeverity(out[j].Status) {
			return StatusSeverity(out[i].Status) > StatusSeverity(out[j].Status)
		}
		if !out[i].LastSeenAt.Equal(out[j].LastSeenAt) {
			return out[i].LastSeenAt.After(out[j].LastSeenAt)
		}
		return out[i].Fingerprint < out[j].Fingerprint
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Fingerprint computes a stable SHA-256 fingerprint for an error message.
func Fingerprint(message string) string {
	hash := sha256.Sum256([]byte(NormalizeMessage(message)))
	return fmt.Sprintf("%x", hash)
}

// NormalizeMessage masks the variable parts of an error message.
func NormalizeMessage(msg string) string {
	msg = reDatetime.ReplaceAllString(msg, "<ts>")
	msg = reUUID.ReplaceAllString(msg, "<uuid>")
	msg = reDate.ReplaceAllString(msg, "<date>")
	msg = reClock.ReplaceAllString(msg, "<time>")
	msg = reHexAddr.ReplaceAllString(msg, "<hex>")
	msg = reNumber.ReplaceAllString(msg, "<n>")
	msg = reWhitespace.ReplaceAllString(msg, " ")
	msg = strings.ToLower(msg)
	msg = strings.TrimSpace(msg)
	return truncateString(msg, maxPatternBytes)
}

// StatusSeverity ranks failure statuses. Hard failures rank above abnormal
// completions.
func StatusSeverity(s models.JobStatus) int {
	switch s {
	case models.StatusFailed:
		return 2
	case models.StatusCompletedAbnormal:
		return 1
	default:
		return 0
	}
}

// truncateString truncates s to maxBytes without splitting UTF-8 runes.
func truncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
