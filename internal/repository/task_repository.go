package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"practice-tracker/internal/model"
	"practice-tracker/internal/status"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("end_date ASC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// DueReminder pairs a due task with its owner's chat endpoint.
type DueReminder struct {
	TaskID       uint
	PracticeName string
	Description  string
	EndDate      time.Time
	TelegramID   int64
}

// ListDueReminders selects every task whose reminder has come due for an
// owner the bot can actually reach. Owners without a linked chat stay in
// the set untouched until they register.
func (r *TaskRepository) ListDueReminders(ctx context.Context, now time.Time) ([]DueReminder, error) {
	var due []DueReminder
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("tasks.id AS task_id, tasks.practice_name, tasks.description, tasks.end_date, users.telegram_id").
		Joins("JOIN users ON users.id = tasks.user_id").
		Where("tasks.next_reminder IS NOT NULL").
		Where("tasks.next_reminder <= ?", now).
		Where("tasks.status <> ?", status.Done).
		Where("users.telegram_id IS NOT NULL").
		Order("tasks.id ASC").
		Scan(&due).Error
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	return due, nil
}

// UpdateStatus writes the new status, clearing the reminder in the same
// statement when requested so done tasks never keep a pending reminder.
func (r *TaskRepository) UpdateStatus(ctx context.Context, taskID uint, st status.Status, clearReminder bool) error {
	updates := map[string]interface{}{"status": st}
	if clearReminder {
		updates["next_reminder"] = nil
	}
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", taskID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *TaskRepository) UpdateNextReminder(ctx context.Context, taskID uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", taskID).Update("next_reminder", at)
	if res.Error != nil {
		return fmt.Errorf("update next reminder: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Exists reports whether an identical (owner, due date, practice,
// description) tuple is already stored. Repeated imports of the same file
// hinge on this.
func (r *TaskRepository) Exists(ctx context.Context, userID uint, endDate time.Time, practiceName, description string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND end_date = ? AND practice_name = ? AND description = ?",
			userID, endDate, practiceName, description).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return count > 0, nil
}

// ExportRow is one line of the admin export: a task joined with its owner.
type ExportRow struct {
	PracticeName string
	StartDate    *time.Time
	EndDate      time.Time
	FullName     string
	Username     string
	Phone        string
	Description  string
	Status       status.Status
	NextReminder *time.Time
}

func (r *TaskRepository) ListAllForExport(ctx context.Context) ([]ExportRow, error) {
	var rows []ExportRow
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("tasks.practice_name, tasks.start_date, tasks.end_date, users.full_name, users.username, users.phone, tasks.description, tasks.status, tasks.next_reminder").
		Joins("JOIN users ON users.id = tasks.user_id").
		Order("users.full_name ASC, tasks.end_date ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks for export: %w", err)
	}
	return rows, nil
}

// WipeAll removes every task. There is no per-task delete.
func (r *TaskRepository) WipeAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Exec("DELETE FROM tasks").Error; err != nil {
		return fmt.Errorf("wipe tasks: %w", err)
	}
	return nil
}
