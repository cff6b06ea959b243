package models_test

import (
	"testing"
	"time"

	"github.com/farmdirect/marketplace_backend/models"
)

func TestFrequencyNextDate(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	cases := []struct {
		freq     models.Frequency
		from     time.Time
		expected time.Time
	}{
		{models.FrequencyWeekly, day(2026, time.August, 30), day(2026, time.September, 6)},
		{models.FrequencyBiweekly, day(2026, time.August, 30), day(2026, time.September, 13)},
		{models.FrequencyMonthly, day(2026, time.January, 15), day(2026, time.February, 15)},

		// month-end dates normalize forward rather than clamping
		{models.FrequencyMonthly, day(2026, time.January, 31), day(2026, time.March, 3)},
		{models.FrequencyMonthly, day(2026, time.August, 31), day(2026, time.October, 1)},

		// weekly crossing a year boundary
		{models.FrequencyWeekly, day(2026, time.December, 28), day(2027, time.January, 4)},
	}
	for _, tc := range cases {
		got := tc.freq.NextDate(tc.from)
		if !got.Equal(tc.expected) {
			t.Fatalf("%s from %s: expected %s, got %s",
				tc.freq, tc.from.Format("2006-01-02"), tc.expected.Format("2006-01-02"), got.Format("2006-01-02"))
		}
	}
}
