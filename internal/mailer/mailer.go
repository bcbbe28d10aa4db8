package mailer

import (
	"html"
	"time"

	"github.com/sun1tar/todo-reminders/internal/models"
)

const reminderSubject = "Task reminder - 1 day left"

// formatDueDate - человекочитаемый срок для письма и шаблона
func formatDueDate(t *time.Time) string {
	if t == nil {
		return "No date"
	}
	return t.Format("Jan 2, 2006 3:04 PM")
}

// reminderBody собирает HTML письма; текст задачи экранируется
func reminderBody(task models.Task) string {
	return "<p>Reminder: Your task <b>" + html.EscapeString(task.Text) +
		"</b> is due on " + formatDueDate(task.DueInstant) + "</p>"
}
