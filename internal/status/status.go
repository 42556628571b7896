// Package status maps free-text job status strings to models.JobStatus.
package status

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

var (
	reSpaces  = regexp.MustCompile(`\s+`)
	reNonWord = regexp.MustCompile(`[^\w\s*]`)
)

var synonyms = map[string]models.JobStatus{
	"completed normally": models.StatusCompletedNormal,
	"completed normal":   models.StatusCompletedNormal,
	"complete normally":  models.StatusCompletedNormal,
	"complete normal":    models.StatusCompletedNormal,
	"completed_normal":   models.StatusCompletedNormal,
	"normal":             models.StatusCompletedNormal,
	"success":            models.StatusCompletedNormal,
	"successful":         models.StatusCompletedNormal,

	"completed normally*":   models.StatusCompletedNormalStar,
	"completed normal*":     models.StatusCompletedNormalStar,
	"complete normally*":    models.StatusCompletedNormalStar,
	"complete normal*":      models.StatusCompletedNormalStar,
	"completed_normal_star": models.StatusCompletedNormalStar,
	"completed_normal*":     models.StatusCompletedNormalStar,
	"normal*":               models.StatusCompletedNormalStar,

	"completed abnormally":    models.StatusCompletedAbnormal,
	"completed abnormal":      models.StatusCompletedAbnormal,
	"complete abnormally":     models.StatusCompletedAbnormal,
	"complete abnormal":       models.StatusCompletedAbnormal,
	"completed_abnormal":      models.StatusCompletedAbnormal,
	"abnormal":                models.StatusCompletedAbnormal,
	"warning":                 models.StatusCompletedAbnormal,
	"completed with warnings": models.StatusCompletedAbnormal,
	"completed with issues":   models.StatusCompletedAbnormal,

	"failed":     models.StatusFailed,
	"failure":    models.StatusFailed,
	"error":      models.StatusFailed,
	"aborted":    models.StatusFailed,
	"terminated": models.StatusFailed,

	"long running": models.StatusLongRunning,
	"longrunning":  models.StatusLongRunning,
	"long_running": models.StatusLongRunning,
	"running":      models.StatusLongRunning,
	"in progress":  models.StatusLongRunning,
	"timeout":      models.StatusLongRunning,

	"pending":   models.StatusPending,
	"waiting":   models.StatusPending,
	"queued":    models.StatusPending,
	"scheduled": models.StatusPending,
}

// Clean lower-cases s, collapses whitespace and drops everything except
// word characters, spaces and '*'.
func Clean(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = reSpaces.ReplaceAllString(s, " ")
	return reNonWord.ReplaceAllString(s, "")
}

// Lookup resolves s through the synonym table and then the keyword
// heuristics. ok is false when neither recognises it.
func Lookup(s string) (models.JobStatus, bool) {
	n := Clean(s)
	if st, ok := synonyms[n]; ok {
		return st, true
	}
	switch {
	case strings.Contains(n, "normal") && strings.Contains(n, "*"):
		return models.StatusCompletedNormalStar, true
	case strings.Contains(n, "normal"):
		return models.StatusCompletedNormal, true
	case strings.Contains(n, "abnormal"):
		return models.StatusCompletedAbnormal, true
	case strings.Contains(n, "fail"), strings.Contains(n, "error"):
		return models.StatusFailed, true
	case strings.Contains(n, "running"), strings.Contains(n, "progress"):
		return models.StatusLongRunning, true
	case strings.Contains(n, "pending"), strings.Contains(n, "wait"):
		return models.StatusPending, true
	}
	return "", false
}

// Evidence is the structural information used when the text is unknown.
type Evidence struct {
	HasEndTime    bool
	IsLongRunning bool
}

// Resolve always returns one of models.JobStatuses.
func Resolve(raw string, ev Evidence) models.JobStatus {
	if st, ok := Lookup(raw); ok {
		return st
	}

	var st models.JobStatus
	switch {
	case !ev.HasEndTime:
		st = models.StatusPending
	case ev.IsLongRunning:
		st = models.StatusLongRunning
	default:
		st = models.StatusCompletedNormal
	}
	slog.Warn("unrecognized status",
		"status_raw", raw,
		"status_clean", Clean(raw),
		"status_normalized", st,
	)
	return st
}

// InferExitCode returns the exit code assumed for a run whose source row
// carried none.
func InferExitCode(st models.JobStatus) int {
	switch st {
	case models.StatusCompletedAbnormal, models.StatusFailed:
		return 1
	default:
		return 0
	}
}
