package model

import (
	"testing"
	"time"
)

func TestAttemptStatusCanTransition(t *testing.T) {
	cases := []struct {
		from, to AttemptStatus
		want     bool
	}{
		{AttemptStatusInProgress, AttemptStatusSubmitted, true},
		{AttemptStatusInProgress, AttemptStatusUnderReview, false},
		{AttemptStatusInProgress, AttemptStatusCompleted, false},
		{AttemptStatusSubmitted, AttemptStatusUnderReview, true},
		{AttemptStatusSubmitted, AttemptStatusCompleted, true},
		{AttemptStatusSubmitted, AttemptStatusInProgress, false},
		{AttemptStatusUnderReview, AttemptStatusCompleted, true},
		{AttemptStatusUnderReview, AttemptStatusSubmitted, false},
		{AttemptStatusCompleted, AttemptStatusSubmitted, false},
		{AttemptStatusCompleted, AttemptStatusInProgress, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestRemainingSeconds(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	a := &Attempt{Deadline: now.Add(90 * time.Second)}
	if got := a.RemainingSeconds(now); got != 90 {
		t.Errorf("RemainingSeconds = %d, want 90", got)
	}
}

func TestRemainingSecondsNeverNegative(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	a := &Attempt{Deadline: now.Add(-time.Minute)}
	if got := a.RemainingSeconds(now); got != 0 {
		t.Errorf("RemainingSeconds past deadline = %d, want 0", got)
	}
}
