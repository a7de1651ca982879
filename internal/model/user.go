package model

import "time"

// User is a task owner. Bulk-imported users have no TelegramID until they
// register through the bot, which links the chat identity to the existing
// record with the same full name. FullName is a search key, not unique:
// duplicates are surfaced to the caller, never resolved silently.
type User struct {
	ID         uint   `gorm:"primaryKey"`
	TelegramID *int64 `gorm:"uniqueIndex"`
	FullName   string `gorm:"index"`
	Username   string
	Phone      string
	IsAdmin    bool `gorm:"default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasChat reports whether the user can receive bot messages.
func (u *User) HasChat() bool {
	return u.TelegramID != nil
}
