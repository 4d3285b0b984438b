package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"daily-todo/internal/model"
)

// ReminderService builds the daily overview sent to chat.
type ReminderService struct {
	tasks *TaskService
}

func NewReminderService(tasks *TaskService) *ReminderService {
	return &ReminderService{tasks: tasks}
}

// DailySummary renders today's list as Telegram HTML, open tasks first.
func (s *ReminderService) DailySummary(ctx context.Context) (string, error) {
	tasks, err := s.tasks.FetchToday(ctx)
	if err != nil {
		return "", err
	}

	var open, done []model.Task
	for _, task := range tasks {
		if task.Completed {
			done = append(done, task)
		} else {
			open = append(open, task)
		}
	}

	var builder strings.Builder
	builder.WriteString("📝 <b>Dagelijkse To-Do</b>\n")
	builder.WriteString(fmt.Sprintf("📅 %s\n\n", s.tasks.Today()))

	if len(tasks) == 0 {
		builder.WriteString("Je hebt nog geen taken voor vandaag.")
		return builder.String(), nil
	}

	builder.WriteString(fmt.Sprintf("🔥 <b>Open</b> (%d)\n", len(open)))
	if len(open) == 0 {
		builder.WriteString("alles gedaan 🎉\n")
	}
	for _, task := range open {
		builder.WriteString(FormatTaskLine(task))
	}

	if len(done) > 0 {
		builder.WriteString(fmt.Sprintf("\n✅ <b>Voltooid</b> (%d)\n", len(done)))
		for _, task := range done {
			builder.WriteString(FormatTaskLine(task))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// FormatTaskLine renders one task as a Telegram HTML line.
func FormatTaskLine(task model.Task) string {
	icon := "⬜"
	if task.Completed {
		icon = "✅"
	}
	title := html.EscapeString(strings.TrimSpace(task.Title))
	if task.HasLink() {
		title = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(task.Link), title)
	}
	return fmt.Sprintf("%s <b>#%d</b> %s\n", icon, task.ID, title)
}
