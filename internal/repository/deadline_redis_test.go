package repository

import (
	"testing"
	"time"
)

func TestDeadlineScoreRoundsFractionsUp(t *testing.T) {
	whole := time.Date(2026, 3, 1, 10, 10, 0, 0, time.UTC)

	cases := []struct {
		name     string
		deadline time.Time
		want     int64
	}{
		{"whole second", whole, whole.Unix()},
		{"half second", whole.Add(500 * time.Millisecond), whole.Unix() + 1},
		{"one nanosecond", whole.Add(time.Nanosecond), whole.Unix() + 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := deadlineScore(tc.deadline); got != tc.want {
				t.Fatalf("deadlineScore(%v) = %d, want %d", tc.deadline, got, tc.want)
			}
		})
	}
}

func TestDeadlineScoreNeverDueBeforeDeadline(t *testing.T) {
	// Sessions start mid-second, so their deadlines carry a fraction. The
	// pop query compares whole seconds; the score must stay above
	// now.Unix() for every instant before the real deadline, or the
	// session would be popped while it still has time left.
	start := time.Date(2026, 3, 1, 10, 0, 0, 900_000_000, time.UTC)
	deadline := start.Add(600 * time.Second) // 10:10:00.9

	score := deadlineScore(deadline)

	beforeExpiry := time.Date(2026, 3, 1, 10, 10, 0, 500_000_000, time.UTC)
	if score <= beforeExpiry.Unix() {
		t.Fatalf("score %d already due at %v, %.1fs before the deadline",
			score, beforeExpiry, deadline.Sub(beforeExpiry).Seconds())
	}

	afterExpiry := time.Date(2026, 3, 1, 10, 10, 1, 0, time.UTC)
	if score > afterExpiry.Unix() {
		t.Fatalf("score %d not yet due at %v, past the deadline", score, afterExpiry)
	}
}
