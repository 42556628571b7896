package ingest

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/xuri/excelize/v2"
)

// maxReasonableMinutes is the duration above which a run is kept but flagged.
const maxReasonableMinutes = 1440.0

var reTZSuffix = regexp.MustCompile(`\s+(MT|EST|PST|CST|EDT|PDT|CDT|UTC|GMT)$`)

var (
	twelveHourLayouts = []string{"3:04 PM", "3:04:05 PM", "3:04PM", "3:04:05PM"}
	clockLayouts      = []string{"15:04:05", "15:04"}
)

// ParseTimestamp parses a date or date-time cell. Bare numbers are read as
// Excel serial dates; anything else goes through a permissive parser.
// Results are UTC wall-clock values.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("excel serial %q: %w", s, err)
		}
		return t.UTC(), nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// ParseDate parses a cell and truncates it to midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// ParseTimeOfDay converts an SLA time cell to minutes from midnight. It
// accepts 12-hour and 24-hour clocks with optional seconds, bare minutes,
// and a trailing timezone abbreviation. A fraction in [0,1) is an Excel
// time-of-day serial. Unparsable values log and yield 0.
func ParseTimeOfDay(v string) float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		if f > 0 && f < 1 {
			return math.Round(f*86400) / 60
		}
		return f
	}

	s := reTZSuffix.ReplaceAllString(strings.ToUpper(v), "")
	layouts := clockLayouts
	if strings.Contains(s, "AM") || strings.Contains(s, "PM") {
		layouts = twelveHourLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60
		}
	}

	slog.Error("could not parse time value", "value", v)
	return 0
}

// ClockText renders an Excel time-of-day serial as HH:MM or HH:MM:SS.
// Any other value is returned unchanged.
func ClockText(v string) string {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f >= 1 {
		return v
	}
	secs := int(math.Round(f * 86400))
	h, m, sec := secs/3600, secs/60%60, secs%60
	if sec != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// TimestampText renders an Excel date serial as "2006-01-02 15:04:05".
// Any other value is returned unchanged.
func TimestampText(v string) string {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return v
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return v
	}
	return t.UTC().Format(time.DateTime)
}

// ParseDurationCell reads an explicit duration as HH:MM:SS or bare minutes.
// Negative values are rejected.
func ParseDurationCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ":") {
		d, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return d, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) < 3 {
		return 0, fmt.Errorf("invalid duration format %q", s)
	}
	var hms [3]int
	for i := range hms {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return 0, fmt.Errorf("invalid duration format %q: %w", s, err)
		}
		if n < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		hms[i] = n
	}
	return float64(hms[0]*60+hms[1]) + float64(hms[2])/60, nil
}

// ParseNumber accepts plain and thousands-separated numbers.
func ParseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

// ParseInt accepts integral values written as floats, as spreadsheets
// often do.
func ParseInt(s string) (int64, error) {
	f, err := ParseNumber(s)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// Timing is the resolved start, end and duration of one run.
type Timing struct {
	Start    time.Time
	End      *time.Time
	Duration *float64
}

// ResolveTiming orders start and end, derives the duration from them, and
// falls back to the explicit duration cell when there is no end time.
func ResolveTiming(job string, start time.Time, end *time.Time, durationCell string) Timing {
	t := Timing{Start: start, End: end}
	if end != nil {
		if end.Before(start) {
			slog.Warn("end time before start time, swapping", "job_name", job, "start", start, "end", *end)
			s, e := *end, start
			t.Start, t.End = s, &e
		}
		d := t.End.Sub(t.Start).Minutes()
		switch {
		case d < 0:
			slog.Error("negative duration", "job_name", job, "duration_minutes", d)
			return t
		case d > maxReasonableMinutes:
			slog.Warn("very long duration", "job_name", job, "duration_minutes", d)
		}
		t.Duration = &d
		return t
	}

	if durationCell == "" {
		slog.Warn("no duration available", "job_name", job)
		return t
	}
	d, err := ParseDurationCell(durationCell)
	if err != nil {
		slog.Warn("could not parse duration", "job_name", job, "error", err)
		return t
	}
	t.Duration = &d
	return t
}
