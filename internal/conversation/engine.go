package conversation

import (
	"context"
	"errors"
	"log/slog"

	"deadlinebot/internal/models"
	"deadlinebot/internal/service"
)

// Backend is what the engine needs from the service layer.
type Backend interface {
	AddTask(ctx context.Context, userID int64, name, date, clock string) (int64, error)
	CompleteTask(ctx context.Context, userID, taskID int64) (models.CompletionResult, error)
	ListTasks(ctx context.Context, userID int64, includeCompleted bool) []models.Task
	GetStats(ctx context.Context, userID int64) models.Stats
	Timezone(ctx context.Context, userID int64) string
	SetTimezone(ctx context.Context, userID int64, tz string) (bool, error)
}

// Engine applies Transition to a user's session and executes the effects.
type Engine struct {
	backend  Backend
	sessions *Sessions
	log      *slog.Logger
}

func NewEngine(backend Backend, sessions *Sessions, log *slog.Logger) *Engine {
	if sessions == nil {
		sessions = NewSessions()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{backend: backend, sessions: sessions, log: log}
}

// Sessions exposes the session table.
func (e *Engine) Sessions() *Sessions { return e.sessions }

// Handle processes one text message from userID in a private chat. The
// user's session stays locked until all effects are done, so messages
// from the same user never interleave.
func (e *Engine) Handle(ctx context.Context, userID int64, text string) []Reply {
	var replies []Reply
	e.sessions.With(userID, func(s *Session) {
		prev := *s
		next, effects := Transition(prev, text)
		*s = next
		for _, eff := range effects {
			r, override := e.apply(ctx, userID, prev, next, eff)
			if override != nil {
				*s = *override
			}
			replies = append(replies, r)
		}
		if prev.State != s.State {
			e.log.Debug("conversation state changed", "user_id", userID, "from", prev.State, "to", s.State)
		}
	})
	return replies
}

// apply executes eff. A non-nil override replaces the session chosen by
// Transition: prev when the input must be retried, Idle when the flow has
// nothing to work on.
func (e *Engine) apply(ctx context.Context, userID int64, prev, next Session, eff Effect) (Reply, *Session) {
	switch eff.Kind {
	case EffectPrompt:
		return promptReply(eff.Prompt, next.State), nil

	case EffectSaveTask:
		id, err := e.backend.AddTask(ctx, userID, eff.Name, eff.Date, eff.Time)
		if err != nil {
			e.log.Error("save task", "user_id", userID, "error", err)
			return promptReply(PromptStorageError, AwaitingTime), &prev
		}
		return Reply{Text: renderTaskAdded(id, eff.Name, eff.Date, eff.Time), Markdown: true, Keyboard: KeyboardMain}, nil

	case EffectCompleteTask:
		res, err := e.backend.CompleteTask(ctx, userID, eff.TaskID)
		if errors.Is(err, service.ErrTaskNotFound) {
			return promptReply(PromptNotFound, AwaitingCompletionID), &prev
		}
		if err != nil {
			e.log.Error("complete task", "user_id", userID, "task_id", eff.TaskID, "error", err)
			return promptReply(PromptStorageError, AwaitingCompletionID), &prev
		}
		return Reply{Text: renderCompleted(res), Markdown: true, Keyboard: KeyboardMain}, nil

	case EffectListCompletable:
		tasks := e.backend.ListTasks(ctx, userID, false)
		if len(tasks) == 0 {
			return promptReply(PromptNoActiveTasks, Idle), &Session{}
		}
		text := RenderActiveList("📋 *Ваши активные задачи:*\n\n", tasks) + "*Введите ID задачи для завершения:*"
		return Reply{Text: text, Markdown: true, Keyboard: KeyboardMenuOnly}, nil

	case EffectShowTasks:
		tasks := e.backend.ListTasks(ctx, userID, true)
		if len(tasks) == 0 {
			return Reply{Text: "У вас пока нет задач!", Keyboard: KeyboardMain}, nil
		}
		return Reply{Text: renderAllTasks(tasks), Markdown: true, Keyboard: KeyboardMain}, nil

	case EffectShowStatus:
		stats := e.backend.GetStats(ctx, userID)
		return Reply{
			Text:     RenderStatus(stats, e.backend.Timezone(ctx, userID)),
			Markdown: true,
			Keyboard: KeyboardMain,
			Photo:    service.LevelFor(stats.TotalPoints).Image,
		}, nil

	case EffectShowTimezones:
		return Reply{Text: renderTimezones(e.backend.Timezone(ctx, userID)), Markdown: true, Keyboard: KeyboardTimezones}, nil

	case EffectSetTimezone:
		ok, err := e.backend.SetTimezone(ctx, userID, eff.Zone)
		if err != nil {
			e.log.Error("set timezone", "user_id", userID, "error", err)
			return promptReply(PromptStorageError, AwaitingTimezone), &prev
		}
		if !ok {
			return promptReply(PromptUnknownTimezone, AwaitingTimezone), &prev
		}
		return Reply{Text: renderTimezoneSet(eff.Zone), Markdown: true, Keyboard: KeyboardMain}, nil
	}

	e.log.Warn("unknown effect", "kind", eff.Kind)
	return promptReply(PromptUseMenu, Idle), nil
}
