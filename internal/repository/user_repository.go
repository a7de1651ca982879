package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"practice-tracker/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByFullName returns every user with the exact full name. Duplicates
// are the caller's problem to surface.
func (r *UserRepository) FindByFullName(ctx context.Context, fullName string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("full_name = ?", strings.TrimSpace(fullName)).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// RegisterFromTelegram links a chat identity to a user record. An already
// registered user gets a profile refresh. Otherwise a single chat-less
// record with the same full name (created by bulk import) is claimed;
// several such records yield ErrAmbiguousName, and none means a new user.
func (r *UserRepository) RegisterFromTelegram(ctx context.Context, telegramID int64, fullName, username string) (*model.User, error) {
	db := r.db.WithContext(ctx)
	fullName = strings.TrimSpace(fullName)

	var user model.User
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"full_name": fullName,
			"username":  username,
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Fall through to name matching below.
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}

	var unlinked []model.User
	if err := db.Where("full_name = ? AND telegram_id IS NULL", fullName).
		Order("id ASC").Find(&unlinked).Error; err != nil {
		return nil, fmt.Errorf("find user by name: %w", err)
	}

	switch len(unlinked) {
	case 0:
		user = model.User{TelegramID: &telegramID, FullName: fullName, Username: username}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	case 1:
		user = unlinked[0]
		updates := map[string]interface{}{
			"telegram_id": telegramID,
			"username":    username,
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("link user: %w", err)
		}
		user.TelegramID = &telegramID
		user.Username = username
		return &user, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousName, fullName)
	}
}

// GetOrCreateByFullName resolves an owner for intake: the oldest record
// with the exact name wins, otherwise a chat-less user is created. Such
// users cannot be notified until they register through the bot.
func (r *UserRepository) GetOrCreateByFullName(ctx context.Context, fullName, username, phone string) (*model.User, error) {
	db := r.db.WithContext(ctx)
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, fmt.Errorf("full name is required")
	}

	var user model.User
	err := db.Where("full_name = ?", fullName).Order("id ASC").First(&user).Error
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{FullName: fullName, Username: username, Phone: phone}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user by name: %w", err)
	}
}

func (r *UserRepository) SetAdmin(ctx context.Context, userID uint, isAdmin bool) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("is_admin", isAdmin)
	if res.Error != nil {
		return fmt.Errorf("set admin: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// WipeExceptAdmins removes every non-admin user. Their tasks are removed
// separately via TaskRepository.WipeAll.
func (r *UserRepository) WipeExceptAdmins(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Where("is_admin = ?", false).Delete(&model.User{}).Error; err != nil {
		return fmt.Errorf("wipe users: %w", err)
	}
	return nil
}
