package ingest

import (
	"fmt"
	"strings"

	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const (
	colScheduleName = "Schedule Name"
	colSchedJobName = "Job Name"
	colPattern      = "Schedule Pattern"
	colNextRun      = "Next Run Time"
	colSchedStatus  = "Status"
	colPriority     = "Priority"
	colDependencies = "Dependencies"
	colLastRun      = "Last Run Time"
	colTidalJobName = "JOBNAME"
	colTidalID      = "ID"
	colCategory     = "CATEGORY"
	colEnabled      = "ENABLED OR DISABLED?"
	colParentGroup  = "PARENT GROUP"
	colCalendar     = "CALENDAR"
	colCalendarOff  = "CALENDAR OFFSET"
	colTimeZone     = "Time Zone"
	colStartClock   = "Start time"
	colUntilClock   = "Until time"
	colTidalDeps    = "DEP UPON JOB/VARIABLE/FILE"
	colAgent        = "RUNS ON AGENT OR AGENT LIST?"
	colClass        = "CLASS"
	colOwner        = "OWNER"
	colLastModified = "LAST MODIFIED ON"
	defaultTimeZone = "DEFAULT (E.S.T.)"
	maxParentGroup  = 500
	maxDependencies = 1000
)

var legacyScheduleSchema = Schema{
	{Name: colScheduleName, Required: true},
	{Name: colSchedJobName, Required: true},
	{Name: colPattern, Required: true},
	{Name: colNextRun, Required: true},
	{Name: colSchedStatus},
	{Name: colPriority},
	{Name: colDependencies},
	{Name: colLastRun},
}

var tidalSchema = Schema{
	{Name: colTidalJobName, Required: true},
	{Name: colTidalID},
	{Name: colCategory},
	{Name: colEnabled},
	{Name: colParentGroup},
	{Name: colCalendar},
	{Name: colCalendarOff},
	{Name: colTimeZone},
	{Name: colStartClock},
	{Name: colUntilClock},
	{Name: colTidalDeps},
	{Name: colAgent},
	{Name: colClass},
	{Name: colOwner},
	{Name: colLastModified},
}

var scheduleStatuses = map[string]string{
	"active":      "ACTIVE",
	"inactive":    "INACTIVE",
	"suspended":   "SUSPENDED",
	"maintenance": "MAINTENANCE",
}

var tidalCategories = map[string]bool{"TID": true, "FOLDER": true, "CONDITION": true, "RESOURCE": true}

// isTidal reports whether the headers look like a Tidal scheduler export.
func isTidal(headers []string) bool {
	for _, h := range headers {
		if h == colTidalJobName {
			return true
		}
	}
	return false
}

func parseLegacyScheduleRow(row Row, req Request) (*models.Schedule, error) {
	name := row.Value(colSchedJobName)
	if name == "" {
		return nil, fmt.Errorf("job name is empty")
	}
	next, err := ParseTimestamp(row.Value(colNextRun))
	if err != nil {
		return nil, fmt.Errorf("next run time: %w", err)
	}

	s := &models.Schedule{
		CustomerID:   req.CustomerID,
		FileUploadID: req.FileUploadID,
		Format:       models.ScheduleLegacy,
		ScheduleName: row.Value(colScheduleName),
		JobName:      name,
		Pattern:      row.Value(colPattern),
		NextRunTime:  &next,
		Status:       "ACTIVE",
		Priority:     1,
		Dependencies: row.Value(colDependencies),
	}
	if st, ok := scheduleStatuses[strings.ToLower(row.Value(colSchedStatus))]; ok {
		s.Status = st
	}
	if v := row.Value(colPriority); v != "" {
		p, err := ParseInt(v)
		if err != nil {
			return nil, fmt.Errorf("priority: %w", err)
		}
		s.Priority = int(p)
	}
	if v := row.Value(colLastRun); v != "" {
		last, err := ParseTimestamp(v)
		if err != nil {
			return nil, fmt.Errorf("last run time: %w", err)
		}
		s.LastRunTime = &last
	}
	s.JobType = DeriveJobType(s, nil)
	return s, nil
}

// parseTidalRow returns nil for rows without a job name.
func parseTidalRow(row Row, req Request) (*models.Schedule, error) {
	name := row.Value(colTidalJobName)
	if name == "" {
		return nil, nil
	}

	category := strings.ToUpper(row.Value(colCategory))
	if !tidalCategories[category] {
		category = "TID"
	}
	status := "DISABLED"
	if strings.ToUpper(row.Value(colEnabled)) == "ENABLED" {
		status = "ENABLED"
	}
	deps := row.Value(colTidalDeps)
	if len(deps) > maxDependencies {
		deps = truncate(deps, maxDependencies) + "..."
	}
	tz := row.Value(colTimeZone)
	if tz == "" {
		tz = defaultTimeZone
	}

	return &models.Schedule{
		CustomerID:     req.CustomerID,
		FileUploadID:   req.FileUploadID,
		Format:         models.ScheduleTidal,
		ScheduleName:   name,
		JobName:        name,
		Pattern:        row.Value(colCalendar),
		Status:         status,
		Priority:       1,
		Dependencies:   deps,
		ExternalID:     row.Value(colTidalID),
		Category:       category,
		ParentGroup:    truncate(row.Value(colParentGroup), maxParentGroup),
		Calendar:       row.Value(colCalendar),
		CalendarOffset: row.Value(colCalendarOff),
		TimeZone:       tz,
		StartTime:      ClockText(row.Value(colStartClock)),
		UntilTime:      ClockText(row.Value(colUntilClock)),
		Agent:          row.Value(colAgent),
		Class:          row.Value(colClass),
		Owner:          row.Value(colOwner),
		LastModified:   TimestampText(row.Value(colLastModified)),
	}, nil
}

// DeriveJobType classifies a schedule entry. parents holds the upper-cased
// parent group names referenced elsewhere in the same file.
func DeriveJobType(s *models.Schedule, parents map[string]bool) models.JobType {
	switch strings.ToUpper(s.Category) {
	case "GROUP":
		return models.JobTypeGroup
	case "FOLDER":
		return models.JobTypeFolder
	case "CONDITION":
		return models.JobTypeCondition
	case "RESOURCE", "AGENT":
		return models.JobTypeResource
	}

	name := strings.ToUpper(s.JobName)
	if parents[name] {
		return models.JobTypeGroup
	}
	if containsAny(name, "DEP_CHECK", "DEPENDENCY", "CONDITION", "_CHK_", "_CHECK") {
		return models.JobTypeCondition
	}
	if containsAny(name, "RESOURCE", "POOL", "AGENT") {
		return models.JobTypeResource
	}
	if containsAny(name, "_GROUP", "BATCH_START", "INITIATOR", "CLEANUP", "MANAGER", "__") {
		return models.JobTypeGroup
	}
	parent := strings.ToUpper(s.ParentGroup)
	if containsAny(parent, "GROUP", "FOLDER", "COLLECTION") && containsAny(name, "CLEANUP", "MAINTENANCE") {
		return models.JobTypeGroup
	}
	return models.JobTypeIndividual
}

// classifySchedules fills JobType once every row of the file is known.
func classifySchedules(recs []*models.Schedule) {
	parents := make(map[string]bool)
	for _, s := range recs {
		if s.ParentGroup != "" {
			parents[strings.ToUpper(s.ParentGroup)] = true
		}
	}
	for _, s := range recs {
		s.JobType = DeriveJobType(s, parents)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
