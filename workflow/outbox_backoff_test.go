package workflow

import (
	"testing"
	"time"
)

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	cases := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 10 * time.Second},
		{2, 20 * time.Second},
		{3, 40 * time.Second},
		{4, 80 * time.Second},
		{5, 160 * time.Second},
		{6, 320 * time.Second},
		{7, 10 * time.Minute},
		{8, 10 * time.Minute},
		{50, 10 * time.Minute},
	}
	for _, tc := range cases {
		if got := backoffDelay(tc.attempt); got != tc.expected {
			t.Fatalf("attempt %d: expected %s, got %s", tc.attempt, tc.expected, got)
		}
	}
}
