package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"practice-tracker/internal/repository"
	"practice-tracker/internal/service"
	"practice-tracker/internal/status"
)

type taskFixture struct {
	svc      *service.TaskService
	taskRepo *repository.TaskRepository
	userRepo *repository.UserRepository
	db       *gorm.DB
}

func newTaskFixture(t *testing.T) taskFixture {
	t.Helper()
	db := setupDB(t)
	taskRepo := repository.NewTaskRepository(db)
	userRepo := repository.NewUserRepository(db)
	return taskFixture{
		svc:      service.NewTaskService(taskRepo, userRepo),
		taskRepo: taskRepo,
		userRepo: userRepo,
		db:       db,
	}
}

func TestCreateTaskSeedsInitialReminder(t *testing.T) {
	fx := newTaskFixture(t)
	ctx := context.Background()

	owner, err := fx.userRepo.GetOrCreateByFullName(ctx, "Иванов Иван Иванович", "", "")
	require.NoError(t, err)

	task, err := fx.svc.CreateTask(ctx, service.TaskInput{
		OwnerID:      owner.ID,
		PracticeName: "Производственная практика",
		EndDate:      time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, status.Unseen, task.Status)
	require.NotNil(t, task.NextReminder)
	assert.WithinDuration(t, time.Date(2025, 7, 8, 9, 0, 0, 0, time.UTC), *task.NextReminder, time.Second)
	// Description falls back to the practice name.
	assert.Equal(t, "Производственная практика", task.Description)
}

func TestCreateTaskRequiresDescription(t *testing.T) {
	fx := newTaskFixture(t)
	ctx := context.Background()

	owner, err := fx.userRepo.GetOrCreateByFullName(ctx, "Иванов Иван Иванович", "", "")
	require.NoError(t, err)

	_, err = fx.svc.CreateTask(ctx, service.TaskInput{
		OwnerID: owner.ID,
		EndDate: time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)
}

func TestTransitionToDoneClearsReminder(t *testing.T) {
	fx := newTaskFixture(t)
	ctx := context.Background()

	owner, err := fx.userRepo.GetOrCreateByFullName(ctx, "Иванов Иван Иванович", "", "")
	require.NoError(t, err)
	task, err := fx.svc.CreateTask(ctx, service.TaskInput{
		OwnerID:     owner.ID,
		Description: "Отчёт",
		EndDate:     time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	for _, action := range []status.Action{status.ActionTake, status.ActionReview, status.ActionComplete} {
		task, err = fx.svc.Transition(ctx, task.ID, action)
		require.NoError(t, err)
	}

	assert.Equal(t, status.Done, task.Status)
	assert.Nil(t, task.NextReminder)

	stored, err := fx.taskRepo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, status.Done, stored.Status)
	assert.Nil(t, stored.NextReminder)
}

func TestTransitionInvalidLeavesStoreUntouched(t *testing.T) {
	fx := newTaskFixture(t)
	ctx := context.Background()

	owner, err := fx.userRepo.GetOrCreateByFullName(ctx, "Иванов Иван Иванович", "", "")
	require.NoError(t, err)
	task, err := fx.svc.CreateTask(ctx, service.TaskInput{
		OwnerID:     owner.ID,
		Description: "Отчёт",
		EndDate:     time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// Completing an unseen task skips two states; the engine refuses.
	current, err := fx.svc.Transition(ctx, task.ID, status.ActionComplete)
	assert.ErrorIs(t, err, status.ErrInvalidTransition)
	require.NotNil(t, current)
	assert.Equal(t, status.Unseen, current.Status)

	stored, err := fx.taskRepo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, status.Unseen, stored.Status)
	require.NotNil(t, stored.NextReminder)
}

func TestTransitionResetKeepsReminder(t *testing.T) {
	fx := newTaskFixture(t)
	ctx := context.Background()

	owner, err := fx.userRepo.GetOrCreateByFullName(ctx, "Иванов Иван Иванович", "", "")
	require.NoError(t, err)
	task, err := fx.svc.CreateTask(ctx, service.TaskInput{
		OwnerID:     owner.ID,
		Description: "Отчёт",
		EndDate:     time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = fx.svc.Transition(ctx, task.ID, status.ActionTake)
	require.NoError(t, err)
	reset, err := fx.svc.Transition(ctx, task.ID, status.ActionReset)
	require.NoError(t, err)

	assert.Equal(t, status.Unseen, reset.Status)
	stored, err := fx.taskRepo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.NextReminder)
	assert.WithinDuration(t, time.Date(2025, 7, 8, 9, 0, 0, 0, time.UTC), *stored.NextReminder, time.Second)
}

func TestTasksByOwnerName(t *testing.T) {
	fx := newTaskFixture(t)
	ctx := context.Background()

	owner, err := fx.userRepo.GetOrCreateByFullName(ctx, "Иванов Иван Иванович", "", "")
	require.NoError(t, err)
	_, err = fx.svc.CreateTask(ctx, service.TaskInput{
		OwnerID:     owner.ID,
		Description: "Отчёт",
		EndDate:     time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	found, tasks, err := fx.svc.TasksByOwnerName(ctx, "Иванов Иван Иванович")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, owner.ID, found.ID)
	assert.Len(t, tasks, 1)

	missing, tasks, err := fx.svc.TasksByOwnerName(ctx, "Никто Такой")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Nil(t, tasks)
}

func TestTasksByOwnerNameAmbiguous(t *testing.T) {
	fx := newTaskFixture(t)
	ctx := context.Background()

	createUser(t, fx.db, "Иванов Иван Иванович", nil)
	createUser(t, fx.db, "Иванов Иван Иванович", int64p(111))

	_, _, err := fx.svc.TasksByOwnerName(ctx, "Иванов Иван Иванович")
	assert.ErrorIs(t, err, repository.ErrAmbiguousName)
}

func TestRescheduleReminder(t *testing.T) {
	fx := newTaskFixture(t)
	ctx := context.Background()

	owner, err := fx.userRepo.GetOrCreateByFullName(ctx, "Иванов Иван Иванович", "", "")
	require.NoError(t, err)
	task, err := fx.svc.CreateTask(ctx, service.TaskInput{
		OwnerID:     owner.ID,
		Description: "Отчёт",
		EndDate:     time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	when := time.Date(2025, 7, 12, 18, 30, 0, 0, time.UTC)
	require.NoError(t, fx.svc.RescheduleReminder(ctx, task.ID, when))

	stored, err := fx.taskRepo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.NextReminder)
	assert.WithinDuration(t, when, *stored.NextReminder, time.Second)
}
