package store_test

import (
	"testing"

	"mediabutler/internal/store"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from store.Status
		to   store.Status
		want bool
	}{
		{store.StatusNew, store.StatusProcessing, true},
		{store.StatusNew, store.StatusClassified, true},
		{store.StatusNew, store.StatusMoved, false},
		{store.StatusProcessing, store.StatusClassified, true},
		{store.StatusClassified, store.StatusReadyToMove, true},
		{store.StatusReadyToMove, store.StatusMoving, true},
		{store.StatusMoving, store.StatusMoved, true},
		{store.StatusMoving, store.StatusNew, false},
		{store.StatusRetry, store.StatusProcessing, true},
		{store.StatusRetry, store.StatusReadyToMove, true},
		{store.StatusRetry, store.StatusRetry, true},
		{store.StatusError, store.StatusNew, true},
		{store.StatusError, store.StatusProcessing, false},
		{store.StatusMoved, store.StatusNew, false},
		{store.StatusIgnored, store.StatusNew, false},
	}
	for _, tc := range tests {
		if got := store.CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, status := range store.AllStatuses() {
		terminal := status == store.StatusMoved || status == store.StatusIgnored
		if got := status.IsTerminal(); got != terminal {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, terminal)
		}
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want store.Status
		ok   bool
	}{
		{"new", store.StatusNew, true},
		{" READY_TO_MOVE ", store.StatusReadyToMove, true},
		{"Moving", store.StatusMoving, true},
		{"", "", false},
		{"bogus", "", false},
	}
	for _, tc := range tests {
		got, ok := store.ParseStatus(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("ParseStatus(%q) = (%s, %v), want (%s, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
