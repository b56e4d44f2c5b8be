package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"deadlinebot/internal/models"
	"deadlinebot/internal/timezone"
)

var (
	// ErrTaskNotFound is returned when a task does not exist or belongs to another user.
	ErrTaskNotFound = errors.New("task not found")
	// ErrUserNotFound is returned when a user row does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// DefaultTimeout bounds every repository call.
const DefaultTimeout = 5 * time.Second

type Repository struct {
	db      *sql.DB
	dialect Dialect
	timeout time.Duration
	now     func() time.Time
}

func NewRepository(db *sql.DB, dialect Dialect, timeout time.Duration) *Repository {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Repository{db: db, dialect: dialect, timeout: timeout, now: time.Now}
}

func (r *Repository) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, r.timeout)
}

// Ping checks that the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()
	return r.db.PingContext(ctx)
}

// User methods

// GetOrCreateUser inserts the user if absent and returns the stored row.
func (r *Repository) GetOrCreateUser(ctx context.Context, id int64, username string) (*models.User, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, username, total_points, completed_tasks, created_at, timezone)
		VALUES ($1, $2, 0, 0, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
	`, id, username, r.now(), timezone.DefaultID)
	if err != nil {
		return nil, fmt.Errorf("create user %d: %w", id, err)
	}

	var user models.User
	err = r.db.QueryRowContext(ctx, `
		SELECT user_id, username, total_points, completed_tasks, created_at, timezone
		FROM users WHERE user_id = $1
	`, id).Scan(&user.ID, &user.Username, &user.TotalPoints, &user.CompletedTasks, &user.CreatedAt, &user.Timezone)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

// GetUserTimezone returns the stored zone id of the user.
func (r *Repository) GetUserTimezone(ctx context.Context, id int64) (string, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var tz string
	err := r.db.QueryRowContext(ctx, `SELECT timezone FROM users WHERE user_id = $1`, id).Scan(&tz)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get timezone of user %d: %w", id, err)
	}
	return tz, nil
}

// SetUserTimezone stores tz for the user. It returns false without touching
// the database when tz is not a selectable zone, and false when the user
// does not exist.
func (r *Repository) SetUserTimezone(ctx context.Context, id int64, tz string) (bool, error) {
	if !timezone.Valid(tz) {
		return false, nil
	}
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `UPDATE users SET timezone = $1 WHERE user_id = $2`, tz, id)
	if err != nil {
		return false, fmt.Errorf("set timezone of user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set timezone of user %d: %w", id, err)
	}
	return n == 1, nil
}

// Task methods

// AddTask stores a new active task and returns its id.
func (r *Repository) AddTask(ctx context.Context, userID int64, name, date, clock string) (int64, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO tasks (user_id, task_name, deadline_date, deadline_time, is_completed, points_awarded, created_at)
		VALUES ($1, $2, $3, $4, FALSE, FALSE, $5)
		RETURNING task_id
	`, userID, name, date, clock, r.now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("add task for user %d: %w", userID, err)
	}
	return id, nil
}

const taskColumns = `task_id, user_id, task_name, deadline_date, deadline_time, is_completed, points_awarded, created_at, last_notification`

// ListTasks returns the user's tasks ordered by deadline.
func (r *Repository) ListTasks(ctx context.Context, userID int64, includeCompleted bool) ([]models.Task, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	if !includeCompleted {
		query += ` AND is_completed = FALSE`
	}
	query += ` ORDER BY deadline_date, deadline_time, task_id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks of user %d: %w", userID, err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// GetTask returns one task of the user.
func (r *Repository) GetTask(ctx context.Context, userID, taskID int64) (*models.Task, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE task_id = $1 AND user_id = $2`, taskID, userID)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", taskID, err)
	}
	return &task, nil
}

// CompleteTask marks the task completed and credits the owner once.
// Both writes happen in one transaction: either the task is flagged
// points_awarded together with the user increment, or nothing changes.
func (r *Repository) CompleteTask(ctx context.Context, userID, taskID int64) (models.CompletionResult, error) {
	result := models.CompletionResult{TaskID: taskID}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin complete task %d: %w", taskID, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE tasks SET is_completed = TRUE, points_awarded = TRUE
		WHERE task_id = $1 AND user_id = $2 AND points_awarded = FALSE
	`, taskID, userID)
	if err != nil {
		return result, fmt.Errorf("complete task %d: %w", taskID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return result, fmt.Errorf("complete task %d: %w", taskID, err)
	}

	if n == 0 {
		// Already credited: only make sure the completion flag is set.
		res, err = tx.ExecContext(ctx, `
			UPDATE tasks SET is_completed = TRUE WHERE task_id = $1 AND user_id = $2
		`, taskID, userID)
		if err != nil {
			return result, fmt.Errorf("complete task %d: %w", taskID, err)
		}
		if n, err = res.RowsAffected(); err != nil {
			return result, fmt.Errorf("complete task %d: %w", taskID, err)
		}
		if n == 0 {
			return result, ErrTaskNotFound
		}
		if err := tx.Commit(); err != nil {
			return result, fmt.Errorf("commit complete task %d: %w", taskID, err)
		}
		return result, nil
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE users SET total_points = total_points + $1, completed_tasks = completed_tasks + 1
		WHERE user_id = $2
	`, models.PointsPerTask, userID)
	if err != nil {
		return result, fmt.Errorf("award points to user %d: %w", userID, err)
	}
	if n, err = res.RowsAffected(); err != nil {
		return result, fmt.Errorf("award points to user %d: %w", userID, err)
	}
	if n == 0 {
		return result, ErrUserNotFound
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit complete task %d: %w", taskID, err)
	}
	result.Awarded = true
	return result, nil
}

// GetStats returns the user's score and number of active tasks.
// A user without a row has zero points.
func (r *Repository) GetStats(ctx context.Context, userID int64) (models.Stats, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var stats models.Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT total_points, completed_tasks FROM users WHERE user_id = $1
	`, userID).Scan(&stats.TotalPoints, &stats.CompletedTasks)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.Stats{}, fmt.Errorf("get stats of user %d: %w", userID, err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tasks WHERE user_id = $1 AND is_completed = FALSE
	`, userID).Scan(&stats.ActiveTasks)
	if err != nil {
		return models.Stats{}, fmt.Errorf("count active tasks of user %d: %w", userID, err)
	}
	return stats, nil
}

// Notification methods

// ListOverdueCandidates returns every active task joined with its owner's
// name and zone. The overdue decision is made per owner zone by the caller.
func (r *Repository) ListOverdueCandidates(ctx context.Context) ([]models.OverdueCandidate, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT t.task_id, t.user_id, t.task_name, t.deadline_date, t.deadline_time,
		       t.is_completed, t.points_awarded, t.created_at, t.last_notification,
		       u.username, u.timezone
		FROM tasks t
		JOIN users u ON t.user_id = u.user_id
		WHERE t.is_completed = FALSE
		ORDER BY t.deadline_date, t.deadline_time, t.task_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list overdue candidates: %w", err)
	}
	defer rows.Close()

	var cands []models.OverdueCandidate
	for rows.Next() {
		var c models.OverdueCandidate
		var last sql.NullTime
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.DeadlineDate, &c.DeadlineTime,
			&c.Completed, &c.PointsAwarded, &c.CreatedAt, &last,
			&c.Username, &c.Timezone); err != nil {
			return nil, fmt.Errorf("scan overdue candidate: %w", err)
		}
		if last.Valid {
			t := last.Time
			c.LastNotification = &t
		}
		cands = append(cands, c)
	}
	return cands, rows.Err()
}

// RecordNotification stores the time of the last notification sent for a task.
func (r *Repository) RecordNotification(ctx context.Context, taskID int64, at time.Time) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `UPDATE tasks SET last_notification = $1 WHERE task_id = $2`, at, taskID)
	if err != nil {
		return fmt.Errorf("record notification for task %d: %w", taskID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (models.Task, error) {
	var task models.Task
	var last sql.NullTime
	err := s.Scan(&task.ID, &task.UserID, &task.Name, &task.DeadlineDate, &task.DeadlineTime,
		&task.Completed, &task.PointsAwarded, &task.CreatedAt, &last)
	if err != nil {
		return task, err
	}
	if last.Valid {
		t := last.Time
		task.LastNotification = &t
	}
	return task, nil
}
