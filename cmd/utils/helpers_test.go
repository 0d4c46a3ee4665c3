package utils

import (
	"testing"
	"time"
)

func TestFormatCount(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{-3, "0"},
		{1, "1"},
		{999, "999"},
		{1000, "1.0K"},
		{1500, "1.5K"},
		{999999, "1000.0K"},
		{1000000, "1.0M"},
		{2300000, "2.3M"},
	}
	for _, tt := range tests {
		if got := FormatCount(tt.n); got != tt.want {
			t.Errorf("FormatCount(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		t    time.Time
		want string
	}{
		{now, "just now"},
		{now.Add(-30 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-26 * time.Hour), "1d ago"},
		{now.Add(-10 * 24 * time.Hour), "10d ago"},
		// clock skew: a future timestamp renders as now
		{now.Add(time.Hour), "just now"},
	}
	for _, tt := range tests {
		if got := TimeAgo(tt.t, now); got != tt.want {
			t.Errorf("TimeAgo(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestParseCreatedAt(t *testing.T) {
	got := ParseCreatedAt("2025-06-15T12:30:45.123Z")
	if got.IsZero() {
		t.Fatal("RFC3339Nano timestamp should parse")
	}
	if got.Hour() != 12 || got.Minute() != 30 {
		t.Fatalf("parsed %v", got)
	}

	if got := ParseCreatedAt("2025-06-15 12:30:45"); got.IsZero() {
		t.Fatal("space-separated timestamp should parse")
	}
	if got := ParseCreatedAt("garbage"); !got.IsZero() {
		t.Fatalf("garbage parsed to %v, want zero time", got)
	}
}
