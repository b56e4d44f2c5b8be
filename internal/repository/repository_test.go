package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"deadlinebot/internal/models"
)

// createTestRepository opens a migrated SQLite database in a temp dir.
func createTestRepository(t *testing.T) *Repository {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on"
	db, err := Open(context.Background(), SQLite, dsn)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db, SQLite, time.Second)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return repo
}

func seedUser(t *testing.T, repo *Repository, id int64) {
	t.Helper()
	if _, err := repo.GetOrCreateUser(context.Background(), id, "user"); err != nil {
		t.Fatalf("Failed to seed user %d: %v", id, err)
	}
}

func seedTask(t *testing.T, repo *Repository, userID int64, name, date, clock string) int64 {
	t.Helper()
	id, err := repo.AddTask(context.Background(), userID, name, date, clock)
	if err != nil {
		t.Fatalf("Failed to seed task %q: %v", name, err)
	}
	return id
}

func TestParseDialect(t *testing.T) {
	for _, name := range []string{"postgres", "sqlite3"} {
		if _, err := ParseDialect(name); err != nil {
			t.Errorf("ParseDialect(%q) error: %v", name, err)
		}
	}
	if _, err := ParseDialect("mysql"); err == nil {
		t.Error("ParseDialect(mysql) expected error")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	repo := createTestRepository(t)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestGetOrCreateUser(t *testing.T) {
	repo := createTestRepository(t)
	ctx := context.Background()

	u, err := repo.GetOrCreateUser(ctx, 42, "alice")
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}
	if u.ID != 42 || u.Username != "alice" || u.TotalPoints != 0 || u.Timezone != "Europe/Moscow" {
		t.Fatalf("unexpected user: %+v", u)
	}

	again, err := repo.GetOrCreateUser(ctx, 42, "renamed")
	if err != nil {
		t.Fatalf("second GetOrCreateUser failed: %v", err)
	}
	if again.Username != "alice" {
		t.Errorf("existing user was overwritten: %+v", again)
	}
}

func TestTimezone(t *testing.T) {
	repo := createTestRepository(t)
	ctx := context.Background()
	seedUser(t, repo, 1)

	ok, err := repo.SetUserTimezone(ctx, 1, "Asia/Omsk")
	if err != nil || !ok {
		t.Fatalf("SetUserTimezone = (%v, %v), want (true, nil)", ok, err)
	}
	tz, err := repo.GetUserTimezone(ctx, 1)
	if err != nil || tz != "Asia/Omsk" {
		t.Fatalf("GetUserTimezone = (%q, %v)", tz, err)
	}

	ok, err = repo.SetUserTimezone(ctx, 1, "America/New_York")
	if err != nil || ok {
		t.Errorf("unknown zone: got (%v, %v), want (false, nil)", ok, err)
	}
	ok, err = repo.SetUserTimezone(ctx, 999, "Asia/Omsk")
	if err != nil || ok {
		t.Errorf("missing user: got (%v, %v), want (false, nil)", ok, err)
	}
	if _, err := repo.GetUserTimezone(ctx, 999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUserTimezone(missing) error = %v, want ErrUserNotFound", err)
	}
}

func TestListTasksOrdering(t *testing.T) {
	repo := createTestRepository(t)
	ctx := context.Background()
	seedUser(t, repo, 1)
	seedUser(t, repo, 2)

	late := seedTask(t, repo, 1, "late", "2024-12-25", "18:30")
	early := seedTask(t, repo, 1, "early", "2024-12-25", "09:00")
	first := seedTask(t, repo, 1, "first", "2024-01-01", "23:59")
	seedTask(t, repo, 2, "other user", "2020-01-01", "00:00")

	if early <= late {
		t.Errorf("task ids not increasing: %d then %d", late, early)
	}

	if _, err := repo.CompleteTask(ctx, 1, early); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}

	tests := []struct {
		name             string
		includeCompleted bool
		wantIDs          []int64
	}{
		{"active only", false, []int64{first, late}},
		{"with completed", true, []int64{first, early, late}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := repo.ListTasks(ctx, 1, tt.includeCompleted)
			if err != nil {
				t.Fatalf("ListTasks failed: %v", err)
			}
			if len(tasks) != len(tt.wantIDs) {
				t.Fatalf("got %d tasks, want %d", len(tasks), len(tt.wantIDs))
			}
			for i, task := range tasks {
				if task.ID != tt.wantIDs[i] {
					t.Errorf("position %d: id %d, want %d", i, task.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestCompleteTaskAwardsOnce(t *testing.T) {
	repo := createTestRepository(t)
	ctx := context.Background()
	seedUser(t, repo, 1)
	id := seedTask(t, repo, 1, "X", "2024-12-25", "18:30")

	for i := 0; i < 3; i++ {
		res, err := repo.CompleteTask(ctx, 1, id)
		if err != nil {
			t.Fatalf("call %d: CompleteTask failed: %v", i, err)
		}
		if res.Awarded != (i == 0) {
			t.Errorf("call %d: Awarded = %v", i, res.Awarded)
		}
	}

	task, err := repo.GetTask(ctx, 1, id)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if !task.Completed || !task.PointsAwarded {
		t.Errorf("task flags not set: %+v", task)
	}

	stats, err := repo.GetStats(ctx, 1)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	want := models.Stats{TotalPoints: 50, CompletedTasks: 1, ActiveTasks: 0}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestCompleteTaskConcurrent(t *testing.T) {
	repo := createTestRepository(t)
	ctx := context.Background()
	seedUser(t, repo, 1)
	id := seedTask(t, repo, 1, "X", "2024-12-25", "18:30")

	var wg sync.WaitGroup
	var mu sync.Mutex
	awarded := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := repo.CompleteTask(ctx, 1, id)
			if err != nil {
				t.Errorf("CompleteTask failed: %v", err)
				return
			}
			if res.Awarded {
				mu.Lock()
				awarded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if awarded != 1 {
		t.Errorf("awarded %d times, want 1", awarded)
	}
	stats, _ := repo.GetStats(ctx, 1)
	if stats.TotalPoints != 50 {
		t.Errorf("TotalPoints = %d, want 50", stats.TotalPoints)
	}
}

func TestCompleteTaskNotFound(t *testing.T) {
	repo := createTestRepository(t)
	ctx := context.Background()
	seedUser(t, repo, 1)
	seedUser(t, repo, 2)
	id := seedTask(t, repo, 2, "foreign", "2024-12-25", "18:30")

	if _, err := repo.CompleteTask(ctx, 1, id); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("foreign task: error = %v, want ErrTaskNotFound", err)
	}
	if _, err := repo.CompleteTask(ctx, 1, 12345); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("missing task: error = %v, want ErrTaskNotFound", err)
	}
	stats, _ := repo.GetStats(ctx, 2)
	if stats.TotalPoints != 0 || stats.ActiveTasks != 1 {
		t.Errorf("owner stats changed: %+v", stats)
	}
}

func TestGetStatsUnknownUser(t *testing.T) {
	repo := createTestRepository(t)
	stats, err := repo.GetStats(context.Background(), 77)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats != (models.Stats{}) {
		t.Errorf("stats = %+v, want zero", stats)
	}
}

func TestOverdueCandidatesAndNotification(t *testing.T) {
	repo := createTestRepository(t)
	ctx := context.Background()
	seedUser(t, repo, 1)
	if _, err := repo.SetUserTimezone(ctx, 1, "Asia/Kamchatka"); err != nil {
		t.Fatalf("SetUserTimezone failed: %v", err)
	}
	active := seedTask(t, repo, 1, "active", "2024-12-25", "18:30")
	done := seedTask(t, repo, 1, "done", "2024-12-20", "10:00")
	if _, err := repo.CompleteTask(ctx, 1, done); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}

	cands, err := repo.ListOverdueCandidates(ctx)
	if err != nil {
		t.Fatalf("ListOverdueCandidates failed: %v", err)
	}
	if len(cands) != 1 || cands[0].ID != active {
		t.Fatalf("candidates = %+v, want only task %d", cands, active)
	}
	c := cands[0]
	if c.Timezone != "Asia/Kamchatka" || c.Username != "user" || c.LastNotification != nil {
		t.Errorf("unexpected candidate: %+v", c)
	}

	at := time.Date(2024, 12, 26, 9, 0, 0, 0, time.UTC)
	if err := repo.RecordNotification(ctx, active, at); err != nil {
		t.Fatalf("RecordNotification failed: %v", err)
	}
	cands, err = repo.ListOverdueCandidates(ctx)
	if err != nil {
		t.Fatalf("ListOverdueCandidates failed: %v", err)
	}
	if cands[0].LastNotification == nil || !cands[0].LastNotification.Equal(at) {
		t.Errorf("LastNotification = %v, want %v", cands[0].LastNotification, at)
	}
}
