package service

import (
	"context"
	"errors"

	"github.com/sun1tar/todo-reminders/internal/models"
	"github.com/sun1tar/todo-reminders/internal/repository"
)

var (
	ErrInvalidEmail = errors.New("invalid email")
	ErrEmptyText    = errors.New("task text required")
)

type TaskService struct {
	repo repository.TaskRepository
}

func NewTaskService(repo repository.TaskRepository) *TaskService {
	return &TaskService{repo: repo}
}

func (s *TaskService) RegisterUser(ctx context.Context, email string) error {
	if !models.ValidEmail(email) {
		return ErrInvalidEmail
	}
	return s.repo.Register(ctx, email)
}

func (s *TaskService) List(ctx context.Context, email string) ([]models.Task, error) {
	return s.repo.List(ctx, email)
}

func (s *TaskService) Create(ctx context.Context, email string, task models.Task) (*models.Task, error) {
	task.UserEmail = email
	task.Normalize()
	if task.Text == "" {
		return nil, ErrEmptyText
	}
	// Новая задача начинает свой собственный цикл напоминания
	task.Notified = false

	if err := s.repo.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) Update(ctx context.Context, email string, id int64, task models.Task) (*models.Task, error) {
	task.ID = id
	task.UserEmail = email
	task.Normalize()
	if task.Text == "" {
		return nil, ErrEmptyText
	}

	// Репозиторий сбрасывает notified при любом обновлении
	if err := s.repo.Update(ctx, &task); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id, email)
}

func (s *TaskService) Delete(ctx context.Context, email string, id int64) error {
	return s.repo.Delete(ctx, id, email)
}
