package domain

import (
	"strings"
	"time"
)

// Severity grades how far an anomaly sits beyond the threshold.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AnomalyKind tells whether an anomaly is above or below the mean.
type AnomalyKind string

const (
	KindSpike AnomalyKind = "spike"
	KindDrop  AnomalyKind = "drop"
)

// Urgency ranks reorder suggestions.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

// ABCClass is the value stratum of an inventory item.
type ABCClass string

const (
	ClassA ABCClass = "A"
	ClassB ABCClass = "B"
	ClassC ABCClass = "C"
)

// Granularity is the length of one period in a PeriodPoint series.
type Granularity string

const (
	GranularityDay     Granularity = "day"
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

var urgencyRanks = map[Urgency]int{
	UrgencyCritical: 0,
	UrgencyHigh:     1,
	UrgencyMedium:   2,
	UrgencyLow:      3,
}

var severityCodes = map[string]Severity{
	"low":    SeverityLow,
	"medium": SeverityMedium,
	"high":   SeverityHigh,
}

var urgencyCodes = map[string]Urgency{
	"critical": UrgencyCritical,
	"high":     UrgencyHigh,
	"medium":   UrgencyMedium,
	"low":      UrgencyLow,
}

var granularityCodes = map[string]Granularity{
	"day":     GranularityDay,
	"daily":   GranularityDay,
	"week":    GranularityWeek,
	"weekly":  GranularityWeek,
	"month":   GranularityMonth,
	"monthly": GranularityMonth,
	"quarter": GranularityQuarter,
	"year":    GranularityYear,
	"yearly":  GranularityYear,
}

// Rank orders urgencies from most (0) to least pressing. Unknown values rank last.
func (u Urgency) Rank() int {
	if r, ok := urgencyRanks[u]; ok {
		return r
	}
	return len(urgencyRanks)
}

// ParseSeverity returns the severity for a given label (case-insensitive).
func ParseSeverity(label string) (Severity, bool) {
	s, ok := severityCodes[strings.ToLower(strings.TrimSpace(label))]
	return s, ok
}

// ParseUrgency returns the urgency for a given label (case-insensitive).
func ParseUrgency(label string) (Urgency, bool) {
	u, ok := urgencyCodes[strings.ToLower(strings.TrimSpace(label))]
	return u, ok
}

// ParseABCClass returns the class for a given label (case-insensitive).
func ParseABCClass(label string) (ABCClass, bool) {
	switch ABCClass(strings.ToUpper(strings.TrimSpace(label))) {
	case ClassA:
		return ClassA, true
	case ClassB:
		return ClassB, true
	case ClassC:
		return ClassC, true
	}
	return "", false
}

// ParseGranularity accepts both "month" and "monthly" style labels.
func ParseGranularity(label string) (Granularity, bool) {
	g, ok := granularityCodes[strings.ToLower(strings.TrimSpace(label))]
	return g, ok
}

// Advance moves t forward by n periods. Unknown granularities advance by months.
func (g Granularity) Advance(t time.Time, n int) time.Time {
	switch g {
	case GranularityDay:
		return t.AddDate(0, 0, n)
	case GranularityWeek:
		return t.AddDate(0, 0, 7*n)
	case GranularityQuarter:
		return addMonths(t, 3*n)
	case GranularityYear:
		return addMonths(t, 12*n)
	default:
		return addMonths(t, n)
	}
}

// addMonths keeps the day of month, clamped to the target month's last day,
// so month-end periods stay on month ends instead of spilling over.
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, n, 0)
	lastDay := target.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return target.AddDate(0, 0, day-1)
}
