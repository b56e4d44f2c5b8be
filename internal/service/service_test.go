package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"deadlinebot/internal/models"
	"deadlinebot/internal/repository"
	"deadlinebot/internal/timezone"
)

var errStorage = errors.New("storage unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestService(t *testing.T) (*Service, *repository.Repository) {
	t.Helper()

	db, err := repository.Open(context.Background(), repository.SQLite, filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := repository.NewRepository(db, repository.SQLite, time.Second)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	resolver := timezone.NewResolver(nil, timezone.DefaultID)
	return NewService(repo, resolver, discardLogger()), repo
}

func TestCompleteTaskIsIdempotent(t *testing.T) {
	svc, repo := createTestService(t)
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, 1, "alice"); err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	id, err := svc.AddTask(ctx, 1, "X", "2024-12-25", "")
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	res, err := svc.CompleteTask(ctx, 1, id)
	if err != nil || !res.Awarded {
		t.Fatalf("first CompleteTask = (%+v, %v)", res, err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.CompleteTask(ctx, 1, id); !errors.Is(err, ErrTaskNotFound) {
			t.Errorf("repeat %d: error = %v, want ErrTaskNotFound", i, err)
		}
		// The repository itself stays a no-op for points on repeats.
		if res, err := repo.CompleteTask(ctx, 1, id); err != nil || res.Awarded {
			t.Errorf("repeat %d: repository CompleteTask = (%+v, %v)", i, res, err)
		}
	}

	stats := svc.GetStats(ctx, 1)
	if stats.TotalPoints != models.PointsPerTask || stats.CompletedTasks != 1 {
		t.Errorf("stats = %+v, want one award", stats)
	}

	task, err := repo.GetTask(ctx, 1, id)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.DeadlineTime != models.DefaultDeadlineTime {
		t.Errorf("DeadlineTime = %q, want default", task.DeadlineTime)
	}
}

func TestTimezoneRoundTrip(t *testing.T) {
	svc, _ := createTestService(t)
	ctx := context.Background()

	if got := svc.Timezone(ctx, 5); got != timezone.DefaultID {
		t.Errorf("unknown user timezone = %q, want default", got)
	}
	if _, err := svc.RegisterUser(ctx, 5, "bob"); err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	ok, err := svc.SetTimezone(ctx, 5, "Asia/Vladivostok")
	if err != nil || !ok {
		t.Fatalf("SetTimezone = (%v, %v)", ok, err)
	}
	if got := svc.Timezone(ctx, 5); got != "Asia/Vladivostok" {
		t.Errorf("Timezone = %q", got)
	}
	if ok, _ := svc.SetTimezone(ctx, 5, "Europe/London"); ok {
		t.Error("SetTimezone accepted a zone outside the list")
	}
}

// failingStore fails every call.
type failingStore struct{}

func (failingStore) GetOrCreateUser(context.Context, int64, string) (*models.User, error) {
	return nil, errStorage
}
func (failingStore) GetUserTimezone(context.Context, int64) (string, error) { return "", errStorage }
func (failingStore) SetUserTimezone(context.Context, int64, string) (bool, error) {
	return false, errStorage
}
func (failingStore) AddTask(context.Context, int64, string, string, string) (int64, error) {
	return 0, errStorage
}
func (failingStore) ListTasks(context.Context, int64, bool) ([]models.Task, error) {
	return nil, errStorage
}
func (failingStore) GetTask(context.Context, int64, int64) (*models.Task, error) {
	return nil, errStorage
}
func (failingStore) CompleteTask(context.Context, int64, int64) (models.CompletionResult, error) {
	return models.CompletionResult{}, errStorage
}
func (failingStore) GetStats(context.Context, int64) (models.Stats, error) {
	return models.Stats{}, errStorage
}

func TestReadPathsDegrade(t *testing.T) {
	svc := NewService(failingStore{}, timezone.NewResolver(nil, "Asia/Omsk"), discardLogger())
	ctx := context.Background()

	if stats := svc.GetStats(ctx, 1); stats != (models.Stats{}) {
		t.Errorf("GetStats = %+v, want zero", stats)
	}
	if tasks := svc.ListTasks(ctx, 1, true); len(tasks) != 0 {
		t.Errorf("ListTasks = %v, want empty", tasks)
	}
	if tz := svc.Timezone(ctx, 1); tz != "Asia/Omsk" {
		t.Errorf("Timezone = %q, want configured default", tz)
	}
}

func TestWritePathsFailClosed(t *testing.T) {
	svc := NewService(failingStore{}, timezone.NewResolver(nil, ""), discardLogger())
	ctx := context.Background()

	if _, err := svc.CompleteTask(ctx, 1, 1); !errors.Is(err, errStorage) {
		t.Errorf("CompleteTask error = %v, want storage error", err)
	}
	if _, err := svc.AddTask(ctx, 1, "X", "2024-12-25", "18:30"); !errors.Is(err, errStorage) {
		t.Errorf("AddTask error = %v, want storage error", err)
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		points int
		image  string
	}{
		{0, "1.jpg"},
		{249, "1.jpg"},
		{250, "2.jpg"},
		{999, "4.jpg"},
		{1000, "5.jpg"},
		{1500, "6.jpg"},
		{99999, "6.jpg"},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.points).Image; got != tt.image {
			t.Errorf("LevelFor(%d).Image = %s, want %s", tt.points, got, tt.image)
		}
	}
}
