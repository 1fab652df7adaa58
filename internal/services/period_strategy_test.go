package services

import (
	"testing"
	"time"

	"bookkeeper/internal/core"
)

func TestWeekAnchorIsMonday(t *testing.T) {
	// 2025-06-23 is a Monday.
	monday := time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC)
	for offset := 0; offset < 7; offset++ {
		for _, hour := range []int{0, 9, 23} {
			now := monday.AddDate(0, 0, offset).Add(time.Duration(hour)*time.Hour + 59*time.Minute)
			got := WeekAnchor{}.Start(now)
			if !got.Equal(monday) {
				t.Errorf("WeekAnchor.Start(%s) = %s, want %s", now, got, monday)
			}
			if got.Weekday() != time.Monday {
				t.Errorf("WeekAnchor.Start(%s) is a %s", now, got.Weekday())
			}
		}
	}
}

func TestWeekAnchorAcrossMonths(t *testing.T) {
	now := time.Date(2025, 7, 2, 8, 0, 0, 0, time.UTC) // Wednesday
	want := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	if got := (WeekAnchor{}).Start(now); !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestGetPeriodAnchor(t *testing.T) {
	now := time.Date(2025, 6, 26, 17, 30, 0, 0, time.UTC)

	tests := []struct {
		days int
		want time.Time
	}{
		{core.PeriodDay, time.Date(2025, 6, 26, 0, 0, 0, 0, time.UTC)},
		{core.PeriodWeek, time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC)},
		{28, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{29, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{core.PeriodMonth, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{31, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{5, time.Date(2025, 6, 26, 0, 0, 0, 0, time.UTC)},
		{0, time.Date(2025, 6, 26, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		if got := GetPeriodAnchor(tt.days).Start(now); !got.Equal(tt.want) {
			t.Errorf("GetPeriodAnchor(%d).Start = %s, want %s", tt.days, got, tt.want)
		}
	}
}

func TestAnchorKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2025, 6, 1, 1, 0, 0, 0, loc)
	got := DayAnchor{}.Start(now)
	if got.Location() != loc || got.Day() != 1 || got.Hour() != 0 {
		t.Errorf("DayAnchor.Start(%s) = %s", now, got)
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"day", core.PeriodDay, false},
		{" Week ", core.PeriodWeek, false},
		{"MONTH", core.PeriodMonth, false},
		{"year", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParsePeriod(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePeriod(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePeriod(%q) = %d, want %d", tt.in, got, tt.want)
		}
		if err == nil && PeriodName(got) != normalizeForTest(tt.in) {
			t.Errorf("PeriodName(%d) = %q", got, PeriodName(got))
		}
	}
}

func normalizeForTest(s string) string {
	return core.NormalizeName(s)
}
