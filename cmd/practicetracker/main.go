package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"practice-tracker/internal/bot"
	"practice-tracker/internal/config"
	"practice-tracker/internal/repository"
	"practice-tracker/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	if err := repository.SeedAdmin(db, cfg.AdminID); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	taskSvc := service.NewTaskService(taskRepo, userRepo)
	importSvc := service.NewImportService(taskRepo, userRepo, taskSvc)
	reminderSvc := service.NewReminderService(taskRepo)

	telegramBot, err := bot.New(cfg.TelegramToken, userRepo, taskSvc, importSvc, &cfg)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	scheduler := service.NewSchedulerService(cfg.Location)
	if _, err := scheduler.ScheduleDaily(cfg.ReminderTime, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		sent, err := reminderSvc.SendDueReminders(jobCtx, telegramBot, time.Now().In(cfg.Location))
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("reminder pass: %v", err)
			return
		}
		log.Printf("[info] reminder pass delivered %d notifications", sent)
	}); err != nil {
		log.Fatalf("schedule reminders: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Println("Practice tracker bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
