package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeason(t *testing.T) {
	tests := map[time.Month]string{
		time.January: "Winter", time.February: "Winter", time.December: "Winter",
		time.March: "Spring", time.May: "Spring",
		time.June: "Summer", time.August: "Summer",
		time.September: "Autumn", time.November: "Autumn",
	}
	for m, want := range tests {
		assert.Equal(t, want, Season(m), m.String())
	}
}

func TestFactor(t *testing.T) {
	// 2024-03-10 is a Sunday
	f := Factor(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 6, f.Weekday)
	assert.Equal(t, "Sunday", f.DayOfWeek)
	assert.Equal(t, 10, f.DayOfMonth)
	assert.Equal(t, 3, f.Month)
	assert.Equal(t, "Spring", f.Season)

	assert.Equal(t, 0, Factor(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)).Weekday)
}

func TestFactors_DistinctSorted(t *testing.T) {
	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	out := Factors([]time.Time{d2, d1, d2})
	require.Len(t, out, 2)
	assert.Equal(t, d1, out[0].Date)
	assert.Equal(t, d2, out[1].Date)
}
