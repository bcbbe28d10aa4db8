package session

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sun1tar/todo-reminders/internal/client"
	"github.com/sun1tar/todo-reminders/internal/localstore"
	"github.com/sun1tar/todo-reminders/internal/models"
	"github.com/sun1tar/todo-reminders/internal/reminder"
)

// TaskStore - единый интерфейс хранилища задач для UI и шедулера.
// Локальная и бэкенд-реализации взаимозаменяемы: порядок списка, набор
// полей и значения по умолчанию совпадают.
type TaskStore interface {
	List(ctx context.Context) ([]models.Task, error)
	Create(ctx context.Context, task models.Task) (models.Task, error)
	Update(ctx context.Context, task models.Task) (models.Task, error)
	Delete(ctx context.Context, id int64) error
}

// remoteStore адаптирует API-клиент под TaskStore, подставляя email сессии
type remoteStore struct {
	api   *client.Client
	email string
}

func (r *remoteStore) List(ctx context.Context) ([]models.Task, error) {
	return r.api.List(ctx, r.email)
}

func (r *remoteStore) Create(ctx context.Context, task models.Task) (models.Task, error) {
	return r.api.Create(ctx, r.email, task)
}

func (r *remoteStore) Update(ctx context.Context, task models.Task) (models.Task, error) {
	return r.api.Update(ctx, r.email, task)
}

func (r *remoteStore) Delete(ctx context.Context, id int64) error {
	return r.api.Delete(ctx, r.email, id)
}

// Session - контекст процесса вместо глобальных tasks/settings/useBackend.
// Владеет настройками, локальным хранилищем, API-клиентом и активным режимом.
type Session struct {
	logger *logrus.Entry

	local *localstore.Store
	api   *client.Client

	email      string
	useBackend bool

	sched *reminder.Scheduler
}

// Open загружает настройки и пробует включить бэкенд-режим. Недоступный
// бэкенд - не ошибка: остаёмся в локальном режиме.
func Open(ctx context.Context, local *localstore.Store, api *client.Client, logger *logrus.Entry) (*Session, error) {
	email, err := local.Email(ctx)
	if err != nil {
		// Повреждённые настройки читаем как пустые, не падаем
		logger.WithError(err).Warn("failed to load settings, starting clean")
		email = ""
	}

	s := &Session{
		logger: logger,
		local:  local,
		api:    api,
		email:  email,
	}
	s.probeBackend(ctx)
	return s, nil
}

// probeBackend проверяет доступность бэкенда и при успехе переключает режим,
// один раз перенося локальные задачи, если на бэкенде их ещё нет
func (s *Session) probeBackend(ctx context.Context) {
	s.useBackend = false
	if s.email == "" || s.api == nil {
		return
	}

	if err := s.api.Ping(ctx); err != nil {
		s.logger.WithError(err).Debug("backend unreachable, staying local")
		return
	}

	remote, err := s.api.List(ctx, s.email)
	if err != nil {
		s.logger.WithError(err).Debug("backend task fetch failed, staying local")
		return
	}

	if len(remote) == 0 {
		if err := s.migrateLocalTasks(ctx); err != nil {
			s.logger.WithError(err).Warn("local task migration failed")
		}
	}

	s.useBackend = true
	// Бэкенд напоминает сам - локальный таймер больше не нужен
	s.StopReminders()
	s.logger.Info("backend mode enabled")
}

func (s *Session) migrateLocalTasks(ctx context.Context) error {
	local, err := s.local.List(ctx)
	if err != nil {
		return err
	}
	// List отдаёт новые сверху; переносим в порядке создания
	for i := len(local) - 1; i >= 0; i-- {
		if _, err := s.api.Create(ctx, s.email, local[i]); err != nil {
			return fmt.Errorf("failed to migrate task %d: %w", local[i].ID, err)
		}
	}
	if len(local) > 0 {
		s.logger.WithField("count", len(local)).Info("local tasks migrated to backend")
	}
	return nil
}

// Store возвращает хранилище активного режима
func (s *Session) Store() TaskStore {
	if s.useBackend {
		return &remoteStore{api: s.api, email: s.email}
	}
	return s.local
}

func (s *Session) Email() string    { return s.email }
func (s *Session) UseBackend() bool { return s.useBackend }

// SetEmail сохраняет адрес локально, пытается зарегистрировать его на
// бэкенде и заново выбирает режим. Возвращает true, если бэкенд включился.
func (s *Session) SetEmail(ctx context.Context, email string) (bool, error) {
	if !models.ValidEmail(email) {
		return false, fmt.Errorf("invalid email address")
	}
	if err := s.local.SetEmail(ctx, email); err != nil {
		return false, err
	}
	s.email = email

	if s.api != nil {
		if err := s.api.Register(ctx, email); err != nil {
			s.logger.WithError(err).Debug("backend registration failed, staying local")
			s.useBackend = false
			return false, nil
		}
		s.probeBackend(ctx)
	}
	return s.useBackend, nil
}

// StartReminders включает локальный драйвер напоминаний. В бэкенд-режиме
// это no-op: напоминания шлёт сервер, двойной отправки быть не должно.
func (s *Session) StartReminders(ctx context.Context, notifier reminder.Notifier) {
	if s.useBackend || s.sched != nil {
		return
	}
	s.sched = reminder.NewScheduler(s.local, notifier, s.logger)
	s.sched.Start(ctx)
}

// StopReminders отменяет локальный таймер; идемпотентен
func (s *Session) StopReminders() {
	if s.sched == nil {
		return
	}
	s.sched.Stop()
	s.sched = nil
}

func (s *Session) Close() error {
	s.StopReminders()
	return s.local.Close()
}
