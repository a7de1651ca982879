package service

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"practice-tracker/internal/dates"
	"practice-tracker/internal/repository"
)

// Reminders repeat weekly until the task is done.
const reminderInterval = 7 * 24 * time.Hour

// Notifier delivers a message to a user's chat endpoint. The bot
// implements it.
type Notifier interface {
	Notify(chatID int64, text string) error
}

// ReminderService fires due reminders and schedules the next occurrence.
type ReminderService struct {
	taskRepo *repository.TaskRepository
}

func NewReminderService(taskRepo *repository.TaskRepository) *ReminderService {
	return &ReminderService{taskRepo: taskRepo}
}

// SendDueReminders runs one daily pass: the due set is read once, then
// each task is handled independently so one owner's failure never blocks
// the rest. A delivery error is logged and the reminder is advanced
// anyway, so an unreachable owner does not grow an unbounded backlog.
// Each reschedule is its own small write; an interrupted pass leaves the
// remaining tasks due for the next run. Returns the delivered count.
func (s *ReminderService) SendDueReminders(ctx context.Context, notifier Notifier, now time.Time) (int, error) {
	due, err := s.taskRepo.ListDueReminders(ctx, now)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, item := range due {
		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		default:
		}

		if err := notifier.Notify(item.TelegramID, reminderText(item)); err != nil {
			log.Printf("send reminder for task %d to %d: %v", item.TaskID, item.TelegramID, err)
		} else {
			sent++
		}

		next := now.Add(reminderInterval)
		if err := s.taskRepo.UpdateNextReminder(ctx, item.TaskID, next); err != nil {
			log.Printf("reschedule reminder for task %d: %v", item.TaskID, err)
		}
	}

	return sent, nil
}

func reminderText(item repository.DueReminder) string {
	var b strings.Builder
	b.WriteString("🔔 <b>Напоминание о практике</b>\n\n")
	if item.PracticeName != "" {
		b.WriteString(fmt.Sprintf("Практика: %s\n", html.EscapeString(item.PracticeName)))
	}
	b.WriteString(fmt.Sprintf("Описание: %s\n", html.EscapeString(item.Description)))
	b.WriteString(fmt.Sprintf("Срок: %s\n\n", dates.FormatDate(item.EndDate)))
	b.WriteString("Напоминание повторяется еженедельно, пока задача не будет отмечена как «готово».")
	return b.String()
}
