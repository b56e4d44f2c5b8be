// Package deadline decides which active tasks are overdue and which of
// those are due for a (re)notification.
//
// Deadlines are compared as zero-padded strings ("2006-01-02" and "15:04")
// against the owner's local now. No duration arithmetic is applied to the
// deadline itself.
package deadline

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"deadlinebot/internal/models"
	"deadlinebot/internal/timezone"
)

// DefaultRenotifyInterval is the minimum spacing between two notifications
// for the same task.
const DefaultRenotifyInterval = 12 * time.Hour

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// IsOverdue reports whether the deadline is strictly before now.
// now must already be in the owner's zone.
func IsOverdue(date, clock string, now time.Time) bool {
	nowDate := now.Format(dateLayout)
	if date < nowDate {
		return true
	}
	return date == nowDate && clock < now.Format(timeLayout)
}

// NeedsNotification reports whether a task last notified at last may be
// notified again at now.
func NeedsNotification(last *time.Time, now time.Time, interval time.Duration) bool {
	if last == nil {
		return true
	}
	return now.Sub(*last) >= interval
}

// Notice is a task selected for notification.
type Notice struct {
	Candidate models.OverdueCandidate
	Now       time.Time // owner-local instant used for the decision
}

// Text renders the notification message (Telegram Markdown).
func (n Notice) Text() string {
	t := n.Candidate.Task
	return fmt.Sprintf(
		"🚨 *ДЕДЛАЙН!*\n\n*Задача:* %s\n*Было до:* %s ⏰ %s\n*ID:* %d\n\n⚠️ *Завершите задачу!*",
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, t.Name), DisplayDate(t.DeadlineDate), t.DeadlineTime, t.ID,
	)
}

// DisplayDate turns an ISO date into DD.MM.YYYY. Other input is returned as is.
func DisplayDate(iso string) string {
	parts := strings.Split(iso, "-")
	if len(parts) != 3 {
		return iso
	}
	return parts[2] + "." + parts[1] + "." + parts[0]
}

// Evaluator selects overdue tasks that need a notification now.
type Evaluator struct {
	resolver *timezone.Resolver
	interval time.Duration
}

// NewEvaluator creates an Evaluator. A non-positive interval means
// DefaultRenotifyInterval.
func NewEvaluator(resolver *timezone.Resolver, interval time.Duration) *Evaluator {
	if interval <= 0 {
		interval = DefaultRenotifyInterval
	}
	return &Evaluator{resolver: resolver, interval: interval}
}

// Interval returns the renotification window.
func (e *Evaluator) Interval() time.Duration { return e.interval }

// Evaluate returns the candidates that are overdue in their owner's zone and
// outside the renotification window. Completed tasks are ignored.
func (e *Evaluator) Evaluate(cands []models.OverdueCandidate) []Notice {
	var out []Notice
	for _, c := range cands {
		if c.Completed {
			continue
		}
		now := e.resolver.Now(c.Timezone)
		if !IsOverdue(c.DeadlineDate, c.DeadlineTime, now) {
			continue
		}
		if !NeedsNotification(c.LastNotification, now, e.interval) {
			continue
		}
		out = append(out, Notice{Candidate: c, Now: now})
	}
	return out
}
