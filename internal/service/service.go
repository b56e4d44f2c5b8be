package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"deadlinebot/internal/models"
	"deadlinebot/internal/repository"
	"deadlinebot/internal/timezone"
)

// ErrTaskNotFound is returned when the task is missing, foreign or already completed.
var ErrTaskNotFound = repository.ErrTaskNotFound

// Store is the part of the repository the service needs.
type Store interface {
	GetOrCreateUser(ctx context.Context, id int64, username string) (*models.User, error)
	GetUserTimezone(ctx context.Context, id int64) (string, error)
	SetUserTimezone(ctx context.Context, id int64, tz string) (bool, error)
	AddTask(ctx context.Context, userID int64, name, date, clock string) (int64, error)
	ListTasks(ctx context.Context, userID int64, includeCompleted bool) ([]models.Task, error)
	GetTask(ctx context.Context, userID, taskID int64) (*models.Task, error)
	CompleteTask(ctx context.Context, userID, taskID int64) (models.CompletionResult, error)
	GetStats(ctx context.Context, userID int64) (models.Stats, error)
}

type Service struct {
	repo     Store
	resolver *timezone.Resolver
	log      *slog.Logger
}

func NewService(repo Store, resolver *timezone.Resolver, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, resolver: resolver, log: log}
}

// RegisterUser creates or retrieves a user
func (s *Service) RegisterUser(ctx context.Context, id int64, username string) (*models.User, error) {
	return s.repo.GetOrCreateUser(ctx, id, username)
}

// AddTask stores a task built by the add-task flow.
func (s *Service) AddTask(ctx context.Context, userID int64, name, date, clock string) (int64, error) {
	if clock == "" {
		clock = models.DefaultDeadlineTime
	}
	id, err := s.repo.AddTask(ctx, userID, name, date, clock)
	if err != nil {
		return 0, err
	}
	s.log.Info("task added", "user_id", userID, "task_id", id, "deadline", date+" "+clock)
	return id, nil
}

// CompleteTask completes an active task of the user. Points are credited
// by the repository in the same transaction as the completion flag, at
// most once per task.
func (s *Service) CompleteTask(ctx context.Context, userID, taskID int64) (models.CompletionResult, error) {
	task, err := s.repo.GetTask(ctx, userID, taskID)
	if err != nil {
		return models.CompletionResult{TaskID: taskID}, err
	}
	if task.Completed {
		return models.CompletionResult{TaskID: taskID}, ErrTaskNotFound
	}

	res, err := s.repo.CompleteTask(ctx, userID, taskID)
	if err != nil {
		return res, fmt.Errorf("complete task: %w", err)
	}
	s.log.Info("task completed", "user_id", userID, "task_id", taskID, "awarded", res.Awarded)
	return res, nil
}

// ListTasks returns the user's tasks. Storage errors yield an empty list.
func (s *Service) ListTasks(ctx context.Context, userID int64, includeCompleted bool) []models.Task {
	tasks, err := s.repo.ListTasks(ctx, userID, includeCompleted)
	if err != nil {
		s.log.Error("list tasks", "user_id", userID, "error", err)
		return nil
	}
	return tasks
}

// GetStats returns the user's statistics. Storage errors yield zeros.
func (s *Service) GetStats(ctx context.Context, userID int64) models.Stats {
	stats, err := s.repo.GetStats(ctx, userID)
	if err != nil {
		s.log.Error("get stats", "user_id", userID, "error", err)
		return models.Stats{}
	}
	return stats
}

// Timezone returns the user's zone id, or the default zone on any error.
func (s *Service) Timezone(ctx context.Context, userID int64) string {
	tz, err := s.repo.GetUserTimezone(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			s.log.Error("get timezone", "user_id", userID, "error", err)
		}
		return s.resolver.DefaultID()
	}
	return s.resolver.Normalize(tz)
}

// SetTimezone stores a selectable zone for the user.
func (s *Service) SetTimezone(ctx context.Context, userID int64, tz string) (bool, error) {
	ok, err := s.repo.SetUserTimezone(ctx, userID, tz)
	if err != nil {
		return false, err
	}
	if ok {
		s.log.Info("timezone set", "user_id", userID, "timezone", tz)
	}
	return ok, nil
}

// LocalNow returns the current time in the user's zone.
func (s *Service) LocalNow(ctx context.Context, userID int64) time.Time {
	return s.resolver.Now(s.Timezone(ctx, userID))
}
