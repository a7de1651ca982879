package service

import (
	"context"
	"fmt"

	"practice-tracker/internal/excel"
	"practice-tracker/internal/repository"
)

// ImportReport summarizes one bulk import.
type ImportReport struct {
	Added       int
	Duplicates  int
	SkippedRows int // rows the parser dropped (no name / bad date)
}

// ImportService reconciles externally supplied task batches with the
// store.
type ImportService struct {
	taskRepo *repository.TaskRepository
	userRepo *repository.UserRepository
	tasks    *TaskService
}

func NewImportService(taskRepo *repository.TaskRepository, userRepo *repository.UserRepository, tasks *TaskService) *ImportService {
	return &ImportService{taskRepo: taskRepo, userRepo: userRepo, tasks: tasks}
}

// Import resolves or creates each row's owner by full-name lookup, drops
// tuples already present so repeated imports of the same file are
// idempotent, and inserts the rest as unseen tasks with seeded reminders.
// A store error aborts the whole operation.
func (s *ImportService) Import(ctx context.Context, rows []excel.Row) (ImportReport, error) {
	var report ImportReport

	for _, row := range rows {
		owner, err := s.userRepo.GetOrCreateByFullName(ctx, row.FullName, row.Username, row.Phone)
		if err != nil {
			return report, fmt.Errorf("resolve owner %q: %w", row.FullName, err)
		}

		exists, err := s.taskRepo.Exists(ctx, owner.ID, row.EndDate, row.PracticeName, row.Description)
		if err != nil {
			return report, err
		}
		if exists {
			report.Duplicates++
			continue
		}

		_, err = s.tasks.CreateTask(ctx, TaskInput{
			OwnerID:      owner.ID,
			PracticeName: row.PracticeName,
			Description:  row.Description,
			StartDate:    row.StartDate,
			EndDate:      row.EndDate,
		})
		if err != nil {
			return report, fmt.Errorf("import task for %q: %w", row.FullName, err)
		}
		report.Added++
	}

	return report, nil
}
