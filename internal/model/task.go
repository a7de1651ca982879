package model

import (
	"time"

	"practice-tracker/internal/status"
)

// Task is a practice assignment tracked for one owner.
// NextReminder is non-nil exactly while the task is not done: creation
// seeds it a week before the due date, completing the task clears it.
type Task struct {
	ID           uint `gorm:"primaryKey"`
	UserID       uint `gorm:"index"`
	PracticeName string
	Description  string
	StartDate    *time.Time
	EndDate      time.Time     `gorm:"index"`
	Status       status.Status `gorm:"index"`
	NextReminder *time.Time    `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
