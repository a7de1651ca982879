package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken string
	DatabaseURL   string
	AdminID       int64
	ReminderTime  string // HH:MM wall-clock time of the daily reminder pass
	Location      *time.Location
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is picked up if present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		TelegramToken: strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		ReminderTime:  strings.TrimSpace(os.Getenv("REMINDER_TIME")),
		Location:      time.Local,
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "tasks.db"
	}
	if cfg.ReminderTime == "" {
		cfg.ReminderTime = "09:00"
	}

	if raw := strings.TrimSpace(os.Getenv("ADMIN_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("ADMIN_ID must be a Telegram user id: %w", err)
		}
		cfg.AdminID = id
	}

	if tz := strings.TrimSpace(os.Getenv("TIMEZONE")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("load timezone %q: %w", tz, err)
		}
		cfg.Location = loc
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("BOT_TOKEN is required")
	}

	return cfg, nil
}
