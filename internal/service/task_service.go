package service

import (
	"context"
	"fmt"
	"time"

	"practice-tracker/internal/dates"
	"practice-tracker/internal/model"
	"practice-tracker/internal/repository"
	"practice-tracker/internal/status"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	OwnerID      uint
	PracticeName string
	Description  string
	StartDate    *time.Time
	EndDate      time.Time
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo *repository.TaskRepository
	userRepo *repository.UserRepository
}

func NewTaskService(taskRepo *repository.TaskRepository, userRepo *repository.UserRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo, userRepo: userRepo}
}

// CreateTask stores a new unseen task with its first reminder seeded a
// week before the due date. A missing description falls back to the
// practice name.
func (s *TaskService) CreateTask(ctx context.Context, input TaskInput) (*model.Task, error) {
	if input.Description == "" {
		input.Description = input.PracticeName
	}
	if input.Description == "" {
		return nil, fmt.Errorf("description is required")
	}
	if input.EndDate.IsZero() {
		return nil, fmt.Errorf("end date is required")
	}

	reminder := dates.InitialReminder(input.EndDate)
	task := model.Task{
		UserID:       input.OwnerID,
		PracticeName: input.PracticeName,
		Description:  input.Description,
		StartDate:    input.StartDate,
		EndDate:      input.EndDate,
		Status:       status.Unseen,
		NextReminder: &reminder,
	}

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Transition applies a requested action to the task's lifecycle status.
// On status.ErrInvalidTransition the stored task is returned unchanged so
// the caller can re-render the actual state; nothing is written.
func (s *TaskService) Transition(ctx context.Context, taskID uint, action status.Action) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	tr, err := status.Apply(task.Status, action)
	if err != nil {
		return task, err
	}

	if err := s.taskRepo.UpdateStatus(ctx, task.ID, tr.Next, tr.ClearReminder); err != nil {
		return nil, err
	}
	task.Status = tr.Next
	if tr.ClearReminder {
		task.NextReminder = nil
	}
	return task, nil
}

func (s *TaskService) GetTask(ctx context.Context, taskID uint) (*model.Task, error) {
	return s.taskRepo.FindByID(ctx, taskID)
}

func (s *TaskService) ListForOwner(ctx context.Context, userID uint) ([]model.Task, error) {
	return s.taskRepo.ListByUser(ctx, userID)
}

// TasksByOwnerName resolves an owner by exact full name and returns their
// tasks. Several matching owners propagate repository.ErrAmbiguousName
// for the caller to surface.
func (s *TaskService) TasksByOwnerName(ctx context.Context, fullName string) (*model.User, []model.Task, error) {
	owners, err := s.userRepo.FindByFullName(ctx, fullName)
	if err != nil {
		return nil, nil, err
	}
	switch len(owners) {
	case 0:
		return nil, nil, nil
	case 1:
		tasks, err := s.taskRepo.ListByUser(ctx, owners[0].ID)
		if err != nil {
			return nil, nil, err
		}
		return &owners[0], tasks, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", repository.ErrAmbiguousName, fullName)
	}
}

// RescheduleReminder sets an explicit next reminder time, the admin
// override for the weekly cadence.
func (s *TaskService) RescheduleReminder(ctx context.Context, taskID uint, at time.Time) error {
	return s.taskRepo.UpdateNextReminder(ctx, taskID, at)
}

func (s *TaskService) ExportRows(ctx context.Context) ([]repository.ExportRow, error) {
	return s.taskRepo.ListAllForExport(ctx)
}

func (s *TaskService) WipeAll(ctx context.Context) error {
	return s.taskRepo.WipeAll(ctx)
}
