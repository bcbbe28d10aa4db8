package repository

import (
	"context"

	"github.com/sun1tar/todo-reminders/internal/models"
)

type TaskRepository interface {
	// Пользователи
	Register(ctx context.Context, email string) error

	// CRUD задач; все операции ограничены email владельца
	List(ctx context.Context, email string) ([]models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id int64, email string) error
	GetByID(ctx context.Context, id int64, email string) (*models.Task, error)

	// Для шедулера напоминаний (скан по всем пользователям)
	PendingReminders(ctx context.Context) ([]models.Task, error)
	ClaimReminder(ctx context.Context, id int64) (bool, error)
	ReleaseReminder(ctx context.Context, id int64) error
}
