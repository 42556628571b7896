package status

import (
	"testing"

	"github.com/kiranshivaraju/batchpulse/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases and trims", "  Completed Normally ", "completed normally"},
		{"collapses whitespace", "in \t  progress", "in progress"},
		{"keeps star", "Completed Normally*", "completed normally*"},
		{"drops punctuation", "Long-Running!", "longrunning"},
		{"keeps underscores", "COMPLETED_NORMAL", "completed_normal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.input))
		})
	}
}

func TestResolve_SynonymTable(t *testing.T) {
	tests := []struct {
		input string
		want  models.JobStatus
	}{
		{"Completed Normally", models.StatusCompletedNormal},
		{"SUCCESS", models.StatusCompletedNormal},
		{"Completed Normally*", models.StatusCompletedNormalStar},
		{"normal*", models.StatusCompletedNormalStar},
		{"Completed Abnormally", models.StatusCompletedAbnormal},
		{"Warning", models.StatusCompletedAbnormal},
		{"Completed with warnings", models.StatusCompletedAbnormal},
		{"ABORTED", models.StatusFailed},
		{"Terminated", models.StatusFailed},
		{"Running", models.StatusLongRunning},
		{"long-running", models.StatusLongRunning},
		{"Timeout", models.StatusLongRunning},
		{"Queued", models.StatusPending},
		{"scheduled", models.StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.input, Evidence{HasEndTime: true}))
		})
	}
}

func TestResolve_KeywordFallback(t *testing.T) {
	tests := []struct {
		input string
		want  models.JobStatus
	}{
		{"ended normal* with notes", models.StatusCompletedNormalStar},
		{"finished normally today", models.StatusCompletedNormal},
		{"job failed hard", models.StatusFailed},
		{"fatal error", models.StatusFailed},
		{"still running now", models.StatusLongRunning},
		{"work in progress", models.StatusLongRunning},
		{"awaiting input", models.StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.input, Evidence{}))
		})
	}
}

func TestResolve_TableBeatsStructuralFallback(t *testing.T) {
	// No end time would fall back to PENDING, but the table wins.
	assert.Equal(t, models.StatusCompletedAbnormal, Resolve("warning", Evidence{HasEndTime: false}))
}

func TestResolve_StructuralFallback(t *testing.T) {
	tests := []struct {
		name string
		ev   Evidence
		want models.JobStatus
	}{
		{"no end time", Evidence{}, models.StatusPending},
		{"long duration", Evidence{HasEndTime: true, IsLongRunning: true}, models.StatusLongRunning},
		{"ordinary run", Evidence{HasEndTime: true}, models.StatusCompletedNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve("zzz unknown", tt.ev))
		})
	}
}

func TestResolve_IsTotal(t *testing.T) {
	inputs := []string{"", "   ", "???", "*", "12345", "ñandú", "\x00\x01", "COMPLETED NORMALLY**"}
	for _, in := range inputs {
		for _, ev := range []Evidence{{}, {HasEndTime: true}, {HasEndTime: true, IsLongRunning: true}} {
			assert.Contains(t, models.JobStatuses, Resolve(in, ev), "input %q", in)
		}
	}
}

func TestInferExitCode(t *testing.T) {
	tests := []struct {
		status models.JobStatus
		want   int
	}{
		{models.StatusCompletedNormal, 0},
		{models.StatusCompletedNormalStar, 0},
		{models.StatusCompletedAbnormal, 1},
		{models.StatusFailed, 1},
		{models.StatusLongRunning, 0},
		{models.StatusPending, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, InferExitCode(tt.status))
		})
	}
}
