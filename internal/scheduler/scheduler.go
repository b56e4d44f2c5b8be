// Package scheduler runs the periodic overdue check: evaluate, notify,
// record. One failing notification never aborts a tick, and one failing
// tick never stops the loop.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"deadlinebot/internal/deadline"
	"deadlinebot/internal/models"
)

const (
	DefaultInterval   = 60 * time.Second
	DefaultFirstDelay = 10 * time.Second
)

// Source provides candidates and stores notification timestamps.
type Source interface {
	ListOverdueCandidates(ctx context.Context) ([]models.OverdueCandidate, error)
	RecordNotification(ctx context.Context, taskID int64, at time.Time) error
}

// Notifier delivers a notification to a user.
type Notifier interface {
	SendNotification(ctx context.Context, userID int64, text string) error
}

// TickResult summarizes one tick.
type TickResult struct {
	ID         string
	StartedAt  time.Time
	Duration   time.Duration
	Candidates int
	Selected   int
	Sent       int
	Failed     int
	Unrecorded int // sent, but the timestamp could not be stored
	Suppressed int // skipped because an unrecorded send is still inside the window
	Err        error
}

// Options configures a Scheduler. Zero values mean the defaults.
type Options struct {
	Interval   time.Duration
	FirstDelay time.Duration
}

type Scheduler struct {
	source    Source
	notifier  Notifier
	evaluator *deadline.Evaluator
	opts      Options
	log       *slog.Logger

	mu    sync.RWMutex
	last  TickResult
	ticks int

	// sends whose timestamp is not yet stored, by task id; guarded by mu
	pending map[int64]time.Time
}

func New(source Source, notifier Notifier, evaluator *deadline.Evaluator, opts Options, log *slog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.FirstDelay <= 0 {
		opts.FirstDelay = DefaultFirstDelay
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		source:    source,
		notifier:  notifier,
		evaluator: evaluator,
		opts:      opts,
		log:       log.With("component", "scheduler"),
		pending:   make(map[int64]time.Time),
	}
}

// Run ticks after FirstDelay and then every Interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("deadline checks scheduled", "first_delay", s.opts.FirstDelay, "interval", s.opts.Interval)

	timer := time.NewTimer(s.opts.FirstDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		s.safeTick(ctx)
		select {
		case <-ctx.Done():
			s.log.Info("deadline checks stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("deadline check panicked", "panic", fmt.Sprint(r))
		}
	}()
	s.Tick(ctx)
}

// Tick runs one check synchronously.
func (s *Scheduler) Tick(ctx context.Context) TickResult {
	res := TickResult{ID: uuid.NewString(), StartedAt: time.Now()}
	log := s.log.With("tick_id", res.ID)
	defer func() {
		res.Duration = time.Since(res.StartedAt)
		s.mu.Lock()
		s.last = res
		s.ticks++
		s.mu.Unlock()
	}()

	cands, err := s.source.ListOverdueCandidates(ctx)
	if err != nil {
		res.Err = fmt.Errorf("list overdue candidates: %w", err)
		log.Error("deadline check failed", "error", err)
		return res
	}
	res.Candidates = len(cands)

	notices := s.evaluator.Evaluate(cands)
	res.Selected = len(notices)
	s.prunePending(notices)
	log.Debug("deadline check", "active_tasks", res.Candidates, "to_notify", res.Selected)

	for _, n := range notices {
		if ctx.Err() != nil {
			break
		}
		task := n.Candidate
		if s.suppress(ctx, log, n) {
			res.Suppressed++
			continue
		}
		if err := s.notifier.SendNotification(ctx, task.UserID, n.Text()); err != nil {
			res.Failed++
			log.Warn("notification not delivered", "task_id", task.ID, "user_id", task.UserID, "error", err)
			continue
		}
		res.Sent++
		if err := s.source.RecordNotification(ctx, task.ID, n.Now); err != nil {
			res.Unrecorded++
			s.setPending(task.ID, n.Now)
			log.Error("record notification", "task_id", task.ID, "error", err)
		} else {
			s.setPending(task.ID, time.Time{})
		}
		log.Info("overdue notification sent", "task_id", task.ID, "user_id", task.UserID,
			"deadline", task.DeadlineDate+" "+task.DeadlineTime, "timezone", task.Timezone)
	}

	if res.Selected > 0 {
		log.Info("deadline check done", "sent", res.Sent, "failed", res.Failed,
			"unrecorded", res.Unrecorded, "suppressed", res.Suppressed)
	}
	return res
}

// suppress reports whether the task was already sent within the window
// without the timestamp reaching storage. It retries the store on the way.
func (s *Scheduler) suppress(ctx context.Context, log *slog.Logger, n deadline.Notice) bool {
	id := n.Candidate.ID
	s.mu.RLock()
	at, ok := s.pending[id]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if deadline.NeedsNotification(&at, n.Now, s.evaluator.Interval()) {
		s.setPending(id, time.Time{})
		return false
	}
	if err := s.source.RecordNotification(ctx, id, at); err != nil {
		log.Warn("record notification retry", "task_id", id, "error", err)
	} else {
		s.setPending(id, time.Time{})
	}
	return true
}

// prunePending drops entries for tasks that are no longer selected, such
// as tasks completed in the meantime.
func (s *Scheduler) prunePending(notices []deadline.Notice) {
	selected := make(map[int64]bool, len(notices))
	for _, n := range notices {
		selected[n.Candidate.ID] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.pending {
		if !selected[id] {
			delete(s.pending, id)
		}
	}
}

// setPending stores at for taskID; a zero at clears the entry.
func (s *Scheduler) setPending(taskID int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at.IsZero() {
		delete(s.pending, taskID)
		return
	}
	s.pending[taskID] = at
}

// Last returns the most recent tick result and the number of ticks so far.
func (s *Scheduler) Last() (TickResult, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.ticks
}
