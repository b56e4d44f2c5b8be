package conversation

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"deadlinebot/internal/deadline"
	"deadlinebot/internal/models"
	"deadlinebot/internal/service"
	"deadlinebot/internal/timezone"
)

// Prompt identifies a fixed reply text.
type Prompt int

const (
	PromptUseMenu Prompt = iota
	PromptCancelled
	PromptTaskName
	PromptEmptyName
	PromptDate
	PromptDateFormat
	PromptDateRange
	PromptDateImpossible
	PromptTime
	PromptNotNumeric
	PromptNotFound
	PromptNoActiveTasks
	PromptUnknownTimezone
	PromptStorageError
)

var promptTexts = map[Prompt]string{
	PromptUseMenu:         "Пожалуйста, используйте кнопки меню для навигации 👆",
	PromptCancelled:       "❌ Действие отменено.",
	PromptTaskName:        "📝 *Введите название задачи:*\n\nПример: 'Сдать проект по Python'",
	PromptEmptyName:       "❌ Название не может быть пустым. Введите название задачи:",
	PromptDate:            "📅 *Введите дату дедлайна (ДД.ММ.ГГГГ):*\n\nПример: 25.12.2024",
	PromptDateFormat:      "❌ *Неверный формат даты!*\nПожалуйста, введите дату в формате ДД.ММ.ГГГГ\nПример: 25.12.2024",
	PromptDateRange:       "❌ *Некорректное значение!*\nДень должен быть от 1 до 31, месяц от 1 до 12, год от 1000 до 2100.",
	PromptDateImpossible:  "❌ *Такой даты не существует!*\nПроверьте число дней в месяце и введите дату ещё раз.",
	PromptTime:            "⏰ *Введите время дедлайна (ЧЧ:ММ):*\n\nПример: 18:30\nИли отправьте 'нет' для времени по умолчанию (23:59)",
	PromptNotNumeric:      "❌ *Неверный формат!*\nПожалуйста, введите числовой ID задачи:",
	PromptNotFound:        "❌ *Задача не найдена!*\nПожалуйста, введите корректный ID задачи из списка:",
	PromptNoActiveTasks:   "✅ У вас нет активных задач для завершения!",
	PromptUnknownTimezone: "❌ Выберите часовой пояс кнопкой из списка:",
	PromptStorageError:    "⚠️ Не удалось сохранить изменения. Попробуйте ещё раз чуть позже.",
}

// Keyboard selects the reply keyboard to attach.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	KeyboardMain
	KeyboardTimezones
	KeyboardMenuOnly
)

// Reply is a rendered message for the transport.
type Reply struct {
	Text     string
	Markdown bool
	Keyboard Keyboard
	Photo    string // image file name for the status screen; empty for text
	Prompt   Prompt // set for fixed texts, useful to callers and tests
}

func promptReply(p Prompt, next State) Reply {
	return Reply{Text: promptTexts[p], Markdown: true, Keyboard: keyboardFor(next), Prompt: p}
}

func keyboardFor(s State) Keyboard {
	switch s {
	case Idle:
		return KeyboardMain
	case AwaitingTimezone:
		return KeyboardTimezones
	default:
		return KeyboardMenuOnly
	}
}

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func renderTaskAdded(id int64, name, date, clock string) string {
	return fmt.Sprintf("*Задача добавлена!*\n\n*Название:* %s\n📅 *Дата:* %s\n⏰ *Время:* %s\n🆔 *ID задачи:* %d\n\n"+
		"*Не забудьте завершить задачу вовремя для получения %d баллов!*",
		esc(name), deadline.DisplayDate(date), clock, id, models.PointsPerTask)
}

func renderCompleted(res models.CompletionResult) string {
	if !res.Awarded {
		return fmt.Sprintf("✅ *Задача завершена!*\n🆔 ID задачи: %d", res.TaskID)
	}
	return fmt.Sprintf("🎉 *Задача завершена!*\n\n✅ +%d баллов начислено на ваш счет!\n🆔 ID задачи: %d",
		models.PointsPerTask, res.TaskID)
}

// RenderActiveList lists active tasks with their ids.
func RenderActiveList(title string, tasks []models.Task) string {
	var b strings.Builder
	b.WriteString(title)
	for i, t := range tasks {
		fmt.Fprintf(&b, "%d. *%s*\n   📅 %s ⏰ %s\n   🆔 *ID*: %d\n\n",
			i+1, esc(t.Name), deadline.DisplayDate(t.DeadlineDate), t.DeadlineTime, t.ID)
	}
	return b.String()
}

func renderAllTasks(tasks []models.Task) string {
	var active, completed []models.Task
	for _, t := range tasks {
		if t.Completed {
			completed = append(completed, t)
		} else {
			active = append(active, t)
		}
	}

	var b strings.Builder
	b.WriteString("*Все ваши задачи:*\n\n")
	if len(active) > 0 {
		b.WriteString("*АКТИВНЫЕ ЗАДАЧИ:*\n")
		for _, t := range active {
			fmt.Fprintf(&b, "• %s\n  📅 %s ⏰ %s\n  🆔 *ID*: %d\n\n",
				esc(t.Name), deadline.DisplayDate(t.DeadlineDate), t.DeadlineTime, t.ID)
		}
	}
	if len(completed) > 0 {
		b.WriteString("*ВЫПОЛНЕННЫЕ ЗАДАЧИ:*\n")
		for _, t := range completed {
			status := "Выполнено"
			if t.PointsAwarded {
				status = fmt.Sprintf("+%d баллов", models.PointsPerTask)
			}
			fmt.Fprintf(&b, "• %s - %s\n", esc(t.Name), status)
		}
	}
	return b.String()
}

// RenderStatus renders the status screen for stats.
func RenderStatus(stats models.Stats, zoneID string) string {
	lvl := service.LevelFor(stats.TotalPoints)
	return fmt.Sprintf(`🏆 *Ваш статус*

%s

%s

🎯 *Выполнено задач:* %d
📊 *Активных задач:* %d
💰 *Всего баллов:* %d
🕐 *Часовой пояс:* %s

💡 *Следующая цель:*
%s`,
		lvl.Title, lvl.Message, stats.CompletedTasks, stats.ActiveTasks, stats.TotalPoints,
		timezone.LabelFor(zoneID), lvl.NextGoal)
}

func renderTimezones(current string) string {
	return fmt.Sprintf("🕐 *Текущий часовой пояс:* %s\n\nВыберите новый часовой пояс:", timezone.LabelFor(current))
}

func renderTimezoneSet(id string) string {
	return fmt.Sprintf("✅ Часовой пояс установлен: *%s*\nДедлайны теперь проверяются по этому времени.", timezone.LabelFor(id))
}
