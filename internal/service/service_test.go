package service_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"practice-tracker/internal/model"
	"practice-tracker/internal/repository"
)

// setupDB opens a fresh in-memory sqlite database per test. The name is
// derived from the test so parallel tests never share state.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := repository.NewDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, fullName string, telegramID *int64) model.User {
	t.Helper()
	user := model.User{FullName: fullName, TelegramID: telegramID}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func int64p(v int64) *int64 {
	return &v
}
