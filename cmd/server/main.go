package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/sun1tar/todo-reminders/internal/config"
	handlers "github.com/sun1tar/todo-reminders/internal/http"
	"github.com/sun1tar/todo-reminders/internal/mailer"
	customMiddleware "github.com/sun1tar/todo-reminders/internal/middleware"
	"github.com/sun1tar/todo-reminders/internal/reminder"
	"github.com/sun1tar/todo-reminders/internal/repository"
	"github.com/sun1tar/todo-reminders/internal/service"
	"github.com/sun1tar/todo-reminders/shared/logger"
	"github.com/sun1tar/todo-reminders/shared/middleware"
)

// Каждые 30 минут - ширина окна напоминания
const reminderSchedule = "*/30 * * * *"

func main() {
	// .env не обязателен, системные переменные имеют приоритет
	_ = godotenv.Load()

	logrusLogger := logger.Init("todo-server")

	cfg, err := config.Load()
	if err != nil {
		logrusLogger.WithError(err).Fatal("failed to load config")
	}

	// Инициализация репозитория
	var repo *repository.SQLTaskRepository
	switch cfg.DB.Driver {
	case "postgres":
		repo, err = repository.NewPostgresTaskRepository(cfg.DB.DSN())
	case "sqlite3":
		repo, err = repository.NewSQLiteTaskRepository(cfg.DB.DSN())
	default:
		logrusLogger.Fatal("unsupported database driver: " + cfg.DB.Driver)
	}
	if err != nil {
		logrusLogger.WithError(err).Fatal("failed to connect to database")
	}
	defer repo.Close()

	taskService := service.NewTaskService(repo)
	taskHandler := handlers.NewTaskHandler(taskService, logrusLogger)

	// Серверный драйвер напоминаний: cron-тик поверх общего шедулера
	smtpMailer := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host: cfg.SMTP.Host,
		Port: cfg.SMTP.Port,
		User: cfg.SMTP.User,
		Pass: cfg.SMTP.Pass,
		From: cfg.SMTP.From,
	}, logger.WithComponent(logrusLogger, "mailer"))

	sched := reminder.NewScheduler(repo, smtpMailer, logger.WithComponent(logrusLogger, "reminder"))

	cronRunner := cron.New()
	_, err = cronRunner.AddFunc(reminderSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		sched.RunOnce(ctx, time.Now())
	})
	if err != nil {
		logrusLogger.WithError(err).Fatal("failed to schedule reminder sweep")
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	// Настройка роутера
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", taskHandler.Register)
	mux.HandleFunc("GET /api/tasks", taskHandler.ListTasks)
	mux.HandleFunc("POST /api/tasks", taskHandler.CreateTask)
	mux.HandleFunc("PUT /api/tasks/{id}", taskHandler.UpdateTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", taskHandler.DeleteTask)
	mux.HandleFunc("GET /healthz", taskHandler.Healthz)
	mux.Handle("GET /metrics", customMiddleware.MetricsHandler())

	// Цепочка middleware (порядок важен!)
	handler := middleware.RequestIDMiddleware(mux)
	handler = customMiddleware.SecurityHeadersMiddleware(handler)
	handler = customMiddleware.CORSMiddleware(handler)
	handler = customMiddleware.MetricsMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)

	addr := fmt.Sprintf(":%s", cfg.Port)
	logrusLogger.WithField("port", cfg.Port).Info("todo server starting")
	if err := http.ListenAndServe(addr, handler); err != nil {
		logrusLogger.WithError(err).Fatal("server failed")
	}
}
