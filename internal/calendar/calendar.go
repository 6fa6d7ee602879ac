// Package calendar derives calendar attributes of trading dates.
package calendar

import (
	"sort"
	"time"

	"FactorForge/internal/model"
)

// Season returns the meteorological season of a northern-hemisphere month.
func Season(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "Winter"
	case time.March, time.April, time.May:
		return "Spring"
	case time.June, time.July, time.August:
		return "Summer"
	default:
		return "Autumn"
	}
}

// Factor returns the calendar attributes of d. Weekday counts from Monday = 0.
func Factor(d time.Time) model.DateFactor {
	return model.DateFactor{
		Date:       d,
		Weekday:    (int(d.Weekday()) + 6) % 7,
		DayOfWeek:  d.Weekday().String(),
		DayOfMonth: d.Day(),
		Month:      int(d.Month()),
		Season:     Season(d.Month()),
	}
}

// Factors returns one entry per distinct date, sorted.
func Factors(dates []time.Time) []model.DateFactor {
	seen := make(map[string]bool, len(dates))
	uniq := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		key := d.Format("2006-01-02")
		if seen[key] {
			continue
		}
		seen[key] = true
		uniq = append(uniq, d)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].Before(uniq[j]) })

	out := make([]model.DateFactor, len(uniq))
	for i, d := range uniq {
		out[i] = Factor(d)
	}
	return out
}
