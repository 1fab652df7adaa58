// Package services layers the bookkeeper domain rules on top of the
// repositories.
//
// This file implements the period anchors used for budget aggregation. Each
// period length maps to a strategy that returns the midnight at which the
// period containing a given instant starts.
package services

import (
	"fmt"
	"strings"
	"time"

	"bookkeeper/internal/core"
)

// PeriodAnchor returns the start of the period containing now, at midnight
// in now's location.
type PeriodAnchor interface {
	Start(now time.Time) time.Time
}

// DayAnchor anchors at today's midnight.
type DayAnchor struct{}

func (DayAnchor) Start(now time.Time) time.Time {
	return midnight(now)
}

// WeekAnchor anchors at the most recent Monday.
type WeekAnchor struct{}

func (WeekAnchor) Start(now time.Time) time.Time {
	sinceMonday := (int(now.Weekday()) + 6) % 7
	return midnight(now).AddDate(0, 0, -sinceMonday)
}

// MonthAnchor anchors at the first day of the current month.
type MonthAnchor struct{}

func (MonthAnchor) Start(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// periodAnchors maps period lengths in days to their anchors. Every month
// length counts as a month.
var periodAnchors = map[int]PeriodAnchor{
	core.PeriodDay:  DayAnchor{},
	core.PeriodWeek: WeekAnchor{},
	28:              MonthAnchor{},
	29:              MonthAnchor{},
	30:              MonthAnchor{},
	31:              MonthAnchor{},
}

// GetPeriodAnchor returns the anchor for a period length. Unknown lengths
// are treated as a single day.
func GetPeriodAnchor(days int) PeriodAnchor {
	if a, ok := periodAnchors[days]; ok {
		return a
	}
	return DayAnchor{}
}

var periodNames = map[string]int{
	"day":   core.PeriodDay,
	"week":  core.PeriodWeek,
	"month": core.PeriodMonth,
}

// ParsePeriod converts "day", "week" or "month" to a length in days.
func ParsePeriod(name string) (int, error) {
	days, ok := periodNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, &core.ValidationError{Entity: "budget", Field: "period", Reason: fmt.Sprintf("%q is not one of day, week, month", name)}
	}
	return days, nil
}

// PeriodName is the inverse of ParsePeriod for the canonical lengths.
func PeriodName(days int) string {
	switch days {
	case core.PeriodDay:
		return "day"
	case core.PeriodWeek:
		return "week"
	case core.PeriodMonth:
		return "month"
	default:
		return fmt.Sprintf("%d days", days)
	}
}
