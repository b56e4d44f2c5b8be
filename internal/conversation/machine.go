// Package conversation drives the multi-step chat flows: adding a task,
// completing a task by id and choosing a timezone.
//
// Transition is a pure function of (session, text). It returns the next
// session and the effects to carry out. Engine executes those effects
// against the service and renders replies; it never persists a task before
// the time step completes.
package conversation

import (
	"strings"

	"deadlinebot/internal/timezone"
)

// State tags where a user is inside a flow.
type State int

const (
	Idle State = iota
	AwaitingTaskName
	AwaitingDate
	AwaitingTime
	AwaitingTimezone
	AwaitingCompletionID
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingTaskName:
		return "awaiting_task_name"
	case AwaitingDate:
		return "awaiting_date"
	case AwaitingTime:
		return "awaiting_time"
	case AwaitingTimezone:
		return "awaiting_timezone"
	case AwaitingCompletionID:
		return "awaiting_completion_id"
	default:
		return "unknown"
	}
}

// Draft accumulates the add-task answers.
type Draft struct {
	Name string
	Date string // ISO date
}

// Session is the per-user conversation state.
type Session struct {
	State State
	Draft Draft
}

// Menu buttons.
const (
	ButtonAddTask  = "Добавить дедлайн"
	ButtonComplete = "Завершить дедлайн"
	ButtonTasks    = "Посмотреть все задачи"
	ButtonStatus   = "Посмотреть мой статус"
	ButtonTimezone = "Часовой пояс"
	ButtonMenu     = "В меню"
)

type trigger int

const (
	triggerNone trigger = iota
	triggerAddTask
	triggerComplete
	triggerTasks
	triggerStatus
	triggerTimezone
	triggerCancel
)

var triggers = map[string]trigger{
	strings.ToLower(ButtonAddTask):  triggerAddTask,
	strings.ToLower(ButtonComplete): triggerComplete,
	strings.ToLower(ButtonTasks):    triggerTasks,
	strings.ToLower(ButtonStatus):   triggerStatus,
	strings.ToLower(ButtonTimezone): triggerTimezone,
	strings.ToLower(ButtonMenu):     triggerCancel,
	"отмена":                        triggerCancel,
	"/cancel":                       triggerCancel,
	"/menu":                         triggerCancel,
}

// EffectKind tags an Effect.
type EffectKind int

const (
	EffectPrompt EffectKind = iota
	EffectSaveTask
	EffectCompleteTask
	EffectSetTimezone
	EffectListCompletable
	EffectShowTasks
	EffectShowStatus
	EffectShowTimezones
)

// Effect is an action requested by a transition.
type Effect struct {
	Kind   EffectKind
	Prompt Prompt // EffectPrompt

	Name, Date, Time string // EffectSaveTask
	TaskID           int64  // EffectCompleteTask
	Zone             string // EffectSetTimezone
}

func prompt(p Prompt) []Effect {
	return []Effect{{Kind: EffectPrompt, Prompt: p}}
}

// Transition computes the next session for text typed in session s.
// Menu buttons work in every state and abandon any flow in progress.
func Transition(s Session, text string) (Session, []Effect) {
	text = strings.TrimSpace(text)

	switch triggers[strings.ToLower(text)] {
	case triggerCancel:
		return Session{}, prompt(PromptCancelled)
	case triggerAddTask:
		return Session{State: AwaitingTaskName}, prompt(PromptTaskName)
	case triggerComplete:
		return Session{State: AwaitingCompletionID}, []Effect{{Kind: EffectListCompletable}}
	case triggerTasks:
		return Session{}, []Effect{{Kind: EffectShowTasks}}
	case triggerStatus:
		return Session{}, []Effect{{Kind: EffectShowStatus}}
	case triggerTimezone:
		return Session{State: AwaitingTimezone}, []Effect{{Kind: EffectShowTimezones}}
	}

	switch s.State {
	case AwaitingTaskName:
		if text == "" {
			return s, prompt(PromptEmptyName)
		}
		return Session{State: AwaitingDate, Draft: Draft{Name: text}}, prompt(PromptDate)

	case AwaitingDate:
		date, err := ParseDate(text)
		if err != nil {
			return s, prompt(promptForDateError(err))
		}
		s.State = AwaitingTime
		s.Draft.Date = date
		return s, prompt(PromptTime)

	case AwaitingTime:
		return Session{}, []Effect{{
			Kind: EffectSaveTask,
			Name: s.Draft.Name,
			Date: s.Draft.Date,
			Time: ParseTime(text),
		}}

	case AwaitingCompletionID:
		id, err := ParseTaskID(text)
		if err != nil {
			return s, prompt(PromptNotNumeric)
		}
		return Session{}, []Effect{{Kind: EffectCompleteTask, TaskID: id}}

	case AwaitingTimezone:
		z, ok := timezone.Lookup(text)
		if !ok {
			return s, prompt(PromptUnknownTimezone)
		}
		return Session{}, []Effect{{Kind: EffectSetTimezone, Zone: z.ID}}

	default:
		return Session{}, prompt(PromptUseMenu)
	}
}

func promptForDateError(err error) Prompt {
	switch err {
	case ErrDateRange:
		return PromptDateRange
	case ErrDateImpossible:
		return PromptDateImpossible
	default:
		return PromptDateFormat
	}
}
