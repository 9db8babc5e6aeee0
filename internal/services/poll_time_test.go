package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExpired(t *testing.T) {
	deadline := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		deadline *time.Time
		now      time.Time
		want     bool
	}{
		{name: "no deadline", deadline: nil, now: deadline, want: false},
		{name: "after deadline", deadline: &deadline, now: time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC), want: true},
		{name: "before deadline", deadline: &deadline, now: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC), want: false},
		{name: "exactly at deadline", deadline: &deadline, now: deadline, want: false},
		{name: "next day", deadline: &deadline, now: time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExpired(tt.deadline, tt.now))
		})
	}
}

func TestTimeRemaining(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}

	tests := []struct {
		name     string
		deadline *time.Time
		want     string
	}{
		{name: "no deadline", deadline: nil, want: "No deadline"},
		{name: "expired", deadline: at(-time.Second), want: "Expired"},
		{name: "minutes only", deadline: at(45*time.Minute + 30*time.Second), want: "45m remaining"},
		{name: "hours and minutes", deadline: at(2*time.Hour + 5*time.Minute), want: "2h 5m remaining"},
		{name: "whole hours", deadline: at(3 * time.Hour), want: "3h 0m remaining"},
		{name: "at deadline", deadline: at(0), want: "0m remaining"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeRemaining(tt.deadline, now))
		})
	}
}

func TestResolveDeadline(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) // 14:30 in Kolkata

	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "rfc3339", input: "2026-03-12T18:00:00Z", want: time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC)},
		{name: "local date time", input: "2026-03-12T18:00", want: time.Date(2026, 3, 12, 18, 0, 0, 0, kolkata)},
		{name: "local date time with space", input: "2026-03-12 18:00:30", want: time.Date(2026, 3, 12, 18, 0, 30, 0, kolkata)},
		{name: "time of day", input: "16:00", want: time.Date(2026, 3, 10, 16, 0, 0, 0, kolkata)},
		{name: "time of day with seconds", input: " 14:30:00 ", want: time.Date(2026, 3, 10, 14, 30, 0, 0, kolkata)},
		{name: "garbage", input: "soon", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDeadline(tt.input, now, kolkata)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}
