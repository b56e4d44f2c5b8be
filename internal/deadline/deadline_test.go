package deadline

import (
	"strings"
	"testing"
	"time"

	"deadlinebot/internal/models"
	"deadlinebot/internal/timezone"
)

func TestIsOverdue(t *testing.T) {
	now := time.Date(2024, 12, 25, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		date  string
		clock string
		want  bool
	}{
		{"same day earlier time", "2024-12-25", "18:29", true},
		{"same day same minute", "2024-12-25", "18:30", false},
		{"same day later time", "2024-12-25", "18:31", false},
		{"past day", "2024-12-24", "23:59", true},
		{"future day", "2024-12-26", "00:00", false},
		{"past year", "2023-12-31", "23:59", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOverdue(tt.date, tt.clock, now); got != tt.want {
				t.Errorf("IsOverdue(%s %s) = %v, want %v", tt.date, tt.clock, got, tt.want)
			}
		})
	}
}

func TestNeedsNotification(t *testing.T) {
	now := time.Date(2024, 12, 25, 18, 30, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}

	tests := []struct {
		name string
		last *time.Time
		want bool
	}{
		{"never notified", nil, true},
		{"11:59:59 ago", at(11*time.Hour + 59*time.Minute + 59*time.Second), false},
		{"exactly 12h ago", at(12 * time.Hour), true},
		{"a day ago", at(24 * time.Hour), true},
		{"just now", at(0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsNotification(tt.last, now, DefaultRenotifyInterval); got != tt.want {
				t.Errorf("NeedsNotification = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateUsesOwnerZone(t *testing.T) {
	// 20:30 UTC is 23:30 in Moscow and 08:30 next day in Kamchatka.
	clock := timezone.ClockFunc(func() time.Time {
		return time.Date(2024, 12, 25, 20, 30, 0, 0, time.UTC)
	})
	e := NewEvaluator(timezone.NewResolver(clock, timezone.DefaultID), 0)

	cands := []models.OverdueCandidate{
		{Task: models.Task{ID: 1, DeadlineDate: "2024-12-25", DeadlineTime: "23:59"}, Timezone: "Europe/Moscow"},
		{Task: models.Task{ID: 2, DeadlineDate: "2024-12-25", DeadlineTime: "23:59"}, Timezone: "Asia/Kamchatka"},
		{Task: models.Task{ID: 3, DeadlineDate: "2024-12-25", DeadlineTime: "23:00"}, Timezone: "Unknown/Zone"},
		{Task: models.Task{ID: 4, DeadlineDate: "2024-12-20", DeadlineTime: "10:00", Completed: true}, Timezone: "Europe/Moscow"},
	}

	got := e.Evaluate(cands)
	var ids []int64
	for _, n := range got {
		ids = append(ids, n.Candidate.ID)
	}
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 3 {
		t.Fatalf("selected ids = %v, want [2 3]", ids)
	}
	if loc := got[0].Now.Location().String(); loc != "Asia/Kamchatka" {
		t.Errorf("notice now location = %s, want Asia/Kamchatka", loc)
	}
}

func TestEvaluateRenotificationWindow(t *testing.T) {
	now := time.Date(2024, 12, 25, 12, 0, 0, 0, time.UTC)
	e := NewEvaluator(timezone.NewResolver(timezone.ClockFunc(func() time.Time { return now }), timezone.DefaultID), 12*time.Hour)

	recent := now.Add(-(12*time.Hour - time.Second))
	old := now.Add(-12 * time.Hour)
	cands := []models.OverdueCandidate{
		{Task: models.Task{ID: 1, DeadlineDate: "2024-12-01", DeadlineTime: "10:00", LastNotification: &recent}},
		{Task: models.Task{ID: 2, DeadlineDate: "2024-12-01", DeadlineTime: "10:00", LastNotification: &old}},
	}
	got := e.Evaluate(cands)
	if len(got) != 1 || got[0].Candidate.ID != 2 {
		t.Fatalf("expected only task 2, got %+v", got)
	}
}

func TestNoticeText(t *testing.T) {
	n := Notice{Candidate: models.OverdueCandidate{Task: models.Task{
		ID: 7, Name: "Сдать отчёт", DeadlineDate: "2024-12-25", DeadlineTime: "18:30",
	}}}
	text := n.Text()
	for _, want := range []string{"Сдать отчёт", "25.12.2024", "18:30", "*ID:* 7"} {
		if !strings.Contains(text, want) {
			t.Errorf("text %q does not contain %q", text, want)
		}
	}
}

func TestDisplayDate(t *testing.T) {
	if got := DisplayDate("2024-01-05"); got != "05.01.2024" {
		t.Errorf("DisplayDate = %q", got)
	}
	if got := DisplayDate("garbage"); got != "garbage" {
		t.Errorf("DisplayDate(garbage) = %q", got)
	}
}
