package handlers

import (
	"fmt"

	"deadlinebot/internal/models"
)

const helpText = `🤖 *Помощь по командам:*

*В группе:*
/add\_deadline - добавить дедлайн
/my\_tasks - мои задачи
/my\_stats - моя статистика
/help - помощь

*Для полного функционала* напишите боту в личные сообщения! 💬
Там вас ждет удобное меню с кнопками! 🎯`

func welcomeText(firstName string) string {
	return fmt.Sprintf(`*Привет, %s!*

📅 *Система управления дедлайнами*

За каждую выполненную задачу ты получаешь *%d баллов*!

Выбери действие:`, escape(firstName), models.PointsPerTask)
}

func groupWelcomeText(firstName string) string {
	return fmt.Sprintf(`🤖 *Привет, %s!*

Я бот для управления дедлайнами! 🎯

*Команды для группы:*
/add\_deadline - добавить дедлайн
/my\_tasks - мои задачи
/my\_stats - моя статистика
/help - помощь

*Или напишите мне в личные сообщения для полного функционала!* 💬`, escape(firstName))
}
