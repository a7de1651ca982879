package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"practice-tracker/internal/excel"
	"practice-tracker/internal/service"
)

func newImportFixture(t *testing.T) (*service.ImportService, taskFixture) {
	t.Helper()
	fx := newTaskFixture(t)
	return service.NewImportService(fx.taskRepo, fx.userRepo, fx.svc), fx
}

func TestImportIsIdempotent(t *testing.T) {
	svc, fx := newImportFixture(t)
	ctx := context.Background()

	rows := []excel.Row{
		{
			FullName:     "Иванов Иван Иванович",
			PracticeName: "Производственная практика",
			Description:  "Сдать отчёт",
			EndDate:      time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			FullName:    "Петров Пётр Петрович",
			Description: "Сдать дневник",
			EndDate:     time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC),
		},
	}

	first, err := svc.Import(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Added)
	assert.Equal(t, 0, first.Duplicates)

	second, err := svc.Import(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 2, second.Duplicates)

	export, err := fx.svc.ExportRows(ctx)
	require.NoError(t, err)
	assert.Len(t, export, 2)
}

func TestImportCreatesChatlessOwner(t *testing.T) {
	svc, fx := newImportFixture(t)
	ctx := context.Background()

	_, err := svc.Import(ctx, []excel.Row{{
		FullName:    "Иванов Иван Иванович",
		Description: "Сдать отчёт",
		EndDate:     time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
		Username:    "@ivanov",
		Phone:       "+79990001122",
	}})
	require.NoError(t, err)

	owners, err := fx.userRepo.FindByFullName(ctx, "Иванов Иван Иванович")
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.Nil(t, owners[0].TelegramID)
	assert.Equal(t, "@ivanov", owners[0].Username)
	assert.Equal(t, "+79990001122", owners[0].Phone)
}

func TestImportReusesExistingOwner(t *testing.T) {
	svc, fx := newImportFixture(t)
	ctx := context.Background()

	existing := createUser(t, fx.db, "Иванов Иван Иванович", int64p(100))

	_, err := svc.Import(ctx, []excel.Row{{
		FullName:    "Иванов Иван Иванович",
		Description: "Сдать отчёт",
		EndDate:     time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)

	tasks, err := fx.svc.ListForOwner(ctx, existing.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Сдать отчёт", tasks[0].Description)
}

func TestImportSeedsReminders(t *testing.T) {
	svc, fx := newImportFixture(t)
	ctx := context.Background()

	_, err := svc.Import(ctx, []excel.Row{{
		FullName:    "Иванов Иван Иванович",
		Description: "Сдать отчёт",
		EndDate:     time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)

	owners, err := fx.userRepo.FindByFullName(ctx, "Иванов Иван Иванович")
	require.NoError(t, err)
	require.Len(t, owners, 1)
	tasks, err := fx.svc.ListForOwner(ctx, owners[0].ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].NextReminder)
	assert.WithinDuration(t, time.Date(2025, 7, 8, 9, 0, 0, 0, time.UTC), *tasks[0].NextReminder, time.Second)
}
