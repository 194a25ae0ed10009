package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestNewScheduler(t *testing.T) {
	s, err := NewScheduler("America/New_York")
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	defer s.Stop()

	if s.location.String() != "America/New_York" {
		t.Errorf("location = %q, want 'America/New_York'", s.location.String())
	}
}

func TestNewSchedulerInvalidTimezone(t *testing.T) {
	_, err := NewScheduler("Invalid/Zone")
	if err == nil {
		t.Fatal("expected error for invalid timezone")
	}
}

func TestDailyReplacesSameName(t *testing.T) {
	s, _ := NewScheduler("UTC")
	defer s.Stop()

	noop := func(ctx context.Context) {}
	if err := s.Daily("report", "09:00", noop); err != nil {
		t.Fatalf("Daily failed: %v", err)
	}
	if err := s.Daily("report", "18:30", noop); err != nil {
		t.Fatalf("Daily failed: %v", err)
	}
	if err := s.Daily("cleanup", "03:00", noop); err != nil {
		t.Fatalf("Daily failed: %v", err)
	}

	s.Start()

	if got := len(s.cron.Entries()); got != 2 {
		t.Errorf("expected 2 cron entries, got %d", got)
	}

	next, ok := s.Next("report")
	if !ok {
		t.Fatal("expected next run for report")
	}
	if next.Hour() != 18 || next.Minute() != 30 {
		t.Errorf("next run = %s, want 18:30", next.Format(time.Kitchen))
	}
}

func TestNextUnknownJob(t *testing.T) {
	s, _ := NewScheduler("UTC")
	if _, ok := s.Next("missing"); ok {
		t.Error("expected no next run for unknown job")
	}
}

func TestNextBeforeStart(t *testing.T) {
	s, _ := NewScheduler("Europe/Berlin")
	if err := s.Daily("report", "07:15", func(ctx context.Context) {}); err != nil {
		t.Fatalf("Daily failed: %v", err)
	}

	next, ok := s.Next("report")
	if !ok {
		t.Fatal("expected next run before start")
	}
	local := next.In(s.location)
	if local.Hour() != 7 || local.Minute() != 15 {
		t.Errorf("next run = %s, want 07:15 Berlin time", local)
	}
}

func TestDailyInvalidTime(t *testing.T) {
	s, _ := NewScheduler("UTC")
	defer s.Stop()

	tests := []string{
		"invalid",
		"25:00",
		"12:60",
		"9:00",
		"12:0",
	}

	for _, tt := range tests {
		if err := s.Daily("report", tt, func(ctx context.Context) {}); err == nil {
			t.Errorf("expected error for invalid time %q", tt)
		}
	}
}

func TestStopCancelsJobContext(t *testing.T) {
	s, _ := NewScheduler("UTC")
	s.Start()
	s.Stop()

	select {
	case <-s.ctx.Done():
	default:
		t.Error("job context not cancelled after Stop")
	}

	// Stopping twice is a no-op.
	s.Stop()
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		input   string
		hour    int
		minute  int
		wantErr bool
	}{
		{"09:00", 9, 0, false},
		{"00:00", 0, 0, false},
		{"23:59", 23, 59, false},
		{"25:00", 0, 0, true},
		{"invalid", 0, 0, true},
	}

	for _, tt := range tests {
		hour, minute, err := parseTime(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseTime(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if hour != tt.hour || minute != tt.minute {
			t.Errorf("parseTime(%q) = %d:%d, want %d:%d", tt.input, hour, minute, tt.hour, tt.minute)
		}
	}
}

func TestBuildCronSpec(t *testing.T) {
	if got := buildCronSpec(9, 5); got != "5 9 * * *" {
		t.Errorf("buildCronSpec(9, 5) = %q", got)
	}
}
