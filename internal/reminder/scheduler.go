package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/sun1tar/todo-reminders/internal/models"
)

const (
	// Lookahead - за сколько до срока уходит напоминание
	Lookahead = 24 * time.Hour
	// ScanInterval - период сканирования; равен ширине окна, поэтому каждая
	// задача попадает в окно ровно на одном тике
	ScanInterval = 30 * time.Minute
)

// Метрики шедулера
var (
	remindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reminders_sent_total",
		Help: "Total number of reminder emails sent",
	})
	reminderSendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reminder_send_failures_total",
		Help: "Total number of failed reminder sends",
	})
	reminderScans = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reminder_scans_total",
		Help: "Total number of reminder scan ticks",
	})
)

// Eligible сообщает, попадает ли задача в окно напоминания на момент now.
// Выполненные, уже уведомлённые и бессрочные задачи не участвуют. Окно
// закрыто с обеих сторон: 23.5ч <= срок-now <= 24ч.
func Eligible(t models.Task, now time.Time) bool {
	if t.Completed || t.Notified || t.DueInstant == nil {
		return false
	}
	diff := t.DueInstant.Sub(now)
	return diff <= Lookahead && diff >= Lookahead-ScanInterval
}

// Source - хранилище, которое шедулер сканирует и в котором отмечает отправку.
// ClaimReminder обязан быть атомарным (notified 0->1 ровно у одного вызова),
// это закрывает гонку двойной отправки при пересечении сканов.
type Source interface {
	PendingReminders(ctx context.Context) ([]models.Task, error)
	ClaimReminder(ctx context.Context, id int64) (bool, error)
	ReleaseReminder(ctx context.Context, id int64) error
}

// Notifier отправляет одно письмо-напоминание
type Notifier interface {
	Send(ctx context.Context, to string, task models.Task) error
}

type Scheduler struct {
	source   Source
	notifier Notifier
	logger   *logrus.Entry
	interval time.Duration

	mu       sync.Mutex // сериализует сканы
	stopOnce sync.Once
	started  bool
	stop     chan struct{}
	done     chan struct{}
}

func NewScheduler(source Source, notifier Notifier, logger *logrus.Entry) *Scheduler {
	return &Scheduler{
		source:   source,
		notifier: notifier,
		logger:   logger,
		interval: ScanInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// RunOnce выполняет один скан: выбирает кандидатов, фильтрует по окну,
// захватывает отметку notified и отправляет. Неудачная отправка снимает
// захват - задача будет переоценена на следующем тике.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminderScans.Inc()

	tasks, err := s.source.PendingReminders(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to scan pending reminders")
		return
	}

	for _, task := range tasks {
		if !Eligible(task, now) {
			continue
		}

		claimed, err := s.source.ClaimReminder(ctx, task.ID)
		if err != nil {
			s.logger.WithError(err).WithField("task_id", task.ID).Error("failed to claim reminder")
			continue
		}
		if !claimed {
			// Кто-то успел раньше (параллельный скан или другой процесс)
			continue
		}

		if err := s.notifier.Send(ctx, task.UserEmail, task); err != nil {
			reminderSendFailures.Inc()
			s.logger.WithError(err).WithFields(logrus.Fields{
				"task_id": task.ID,
				"to":      task.UserEmail,
			}).Warn("failed to send reminder, will retry on next scan")

			if relErr := s.source.ReleaseReminder(ctx, task.ID); relErr != nil {
				s.logger.WithError(relErr).WithField("task_id", task.ID).Error("failed to release reminder claim")
			}
			continue
		}

		remindersSent.Inc()
		s.logger.WithFields(logrus.Fields{
			"task_id": task.ID,
			"to":      task.UserEmail,
		}).Info("reminder sent")
	}
}

// Start запускает периодическое сканирование в отдельной горутине.
// Первый скан выполняется сразу, дальше - по тикеру.
func (s *Scheduler) Start(ctx context.Context) {
	s.started = true
	go func() {
		defer close(s.done)

		s.RunOnce(ctx, time.Now())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx, time.Now())
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop останавливает периодическое сканирование. Идемпотентен: повторный
// вызов безопасен. Блокируется до завершения текущего скана.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	if s.started {
		<-s.done
	}
}
