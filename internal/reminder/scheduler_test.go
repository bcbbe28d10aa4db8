package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sun1tar/todo-reminders/internal/models"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func taskDueAt(id int64, due time.Time) models.Task {
	d := due
	return models.Task{
		ID:         id,
		UserEmail:  "user@example.com",
		Text:       "write report",
		DueInstant: &d,
	}
}

// fakeSource - хранилище в памяти с атомарным захватом, как у реальных реализаций
type fakeSource struct {
	mu    sync.Mutex
	tasks map[int64]models.Task
}

func newFakeSource(tasks ...models.Task) *fakeSource {
	s := &fakeSource{tasks: make(map[int64]models.Task)}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	return s
}

func (s *fakeSource) PendingReminders(ctx context.Context) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Task
	for _, t := range s.tasks {
		if !t.Completed && !t.Notified && t.DueInstant != nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeSource) ClaimReminder(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.Notified || t.Completed {
		return false, nil
	}
	t.Notified = true
	s.tasks[id] = t
	return true, nil
}

func (s *fakeSource) ReleaseReminder(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil
	}
	t.Notified = false
	s.tasks[id] = t
	return nil
}

func (s *fakeSource) notified(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id].Notified
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []int64
	fail  bool
	fails int
}

func (n *fakeNotifier) Send(ctx context.Context, to string, task models.Task) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		n.fails++
		return errors.New("smtp: connection refused")
	}
	n.sent = append(n.sent, task.ID)
	return nil
}

func (n *fakeNotifier) sentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func TestEligible(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		task models.Task
		want bool
	}{
		{
			name: "exactly 24h out is eligible",
			task: taskDueAt(1, now.Add(24*time.Hour)),
			want: true,
		},
		{
			name: "exactly 23.5h out is eligible",
			task: taskDueAt(1, now.Add(23*time.Hour+30*time.Minute)),
			want: true,
		},
		{
			name: "23h29m out is outside the window",
			task: taskDueAt(1, now.Add(23*time.Hour+29*time.Minute)),
			want: false,
		},
		{
			name: "24h01m out is not yet eligible",
			task: taskDueAt(1, now.Add(24*time.Hour+time.Minute)),
			want: false,
		},
		{
			name: "overdue task is not eligible",
			task: taskDueAt(1, now.Add(-time.Hour)),
			want: false,
		},
		{
			name: "no due instant never eligible",
			task: models.Task{ID: 1, Text: "no date"},
			want: false,
		},
		{
			name: "completed task never eligible",
			task: func() models.Task {
				task := taskDueAt(1, now.Add(24*time.Hour))
				task.Completed = true
				return task
			}(),
			want: false,
		},
		{
			name: "already notified never eligible",
			task: func() models.Task {
				task := taskDueAt(1, now.Add(24*time.Hour))
				task.Notified = true
				return task
			}(),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Eligible(tt.task, now); got != tt.want {
				t.Errorf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunOnceSendsExactlyOnce(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	source := newFakeSource(taskDueAt(1, now.Add(24*time.Hour)))
	notifier := &fakeNotifier{}
	sched := NewScheduler(source, notifier, testLogger())

	sched.RunOnce(context.Background(), now)
	if notifier.sentCount() != 1 {
		t.Fatalf("sent %d reminders, want 1", notifier.sentCount())
	}
	if !source.notified(1) {
		t.Fatal("task not marked notified after send")
	}

	// Повторный скан в том же окне не должен отправить ещё раз
	sched.RunOnce(context.Background(), now.Add(time.Minute))
	if notifier.sentCount() != 1 {
		t.Fatalf("second scan re-sent: %d sends, want 1", notifier.sentCount())
	}
}

func TestRunOnceWindowMiss(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 31, 0, 0, time.Local)
	// Срок 2024-01-02T00:00 - до него 23ч29м, окно уже позади
	due := time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local)
	source := newFakeSource(taskDueAt(1, due))
	notifier := &fakeNotifier{}
	sched := NewScheduler(source, notifier, testLogger())

	sched.RunOnce(context.Background(), now)
	if notifier.sentCount() != 0 {
		t.Fatalf("sent %d reminders outside window, want 0", notifier.sentCount())
	}
	if source.notified(1) {
		t.Fatal("task marked notified without a send")
	}
}

func TestRunOnceReleasesClaimOnSendFailure(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	source := newFakeSource(taskDueAt(1, now.Add(24*time.Hour)))
	notifier := &fakeNotifier{fail: true}
	sched := NewScheduler(source, notifier, testLogger())

	sched.RunOnce(context.Background(), now)
	if source.notified(1) {
		t.Fatal("failed send must leave notified=false for retry")
	}

	// Транспорт починился: следующий скан в окне успешно отправляет
	notifier.fail = false
	sched.RunOnce(context.Background(), now.Add(10*time.Minute))
	if notifier.sentCount() != 1 {
		t.Fatalf("sent %d after transport recovered, want 1", notifier.sentCount())
	}
	if !source.notified(1) {
		t.Fatal("task not marked notified after successful retry")
	}
}

func TestRunOnceSkipsLostClaim(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	task := taskDueAt(1, now.Add(24*time.Hour))
	source := newFakeSource(task)
	notifier := &fakeNotifier{}
	sched := NewScheduler(source, notifier, testLogger())

	// Параллельный процесс уже захватил отметку между сканом и отправкой
	if claimed, _ := source.ClaimReminder(context.Background(), 1); !claimed {
		t.Fatal("setup: claim failed")
	}

	sched.RunOnce(context.Background(), now)
	if notifier.sentCount() != 0 {
		t.Fatalf("sent %d for an already claimed task, want 0", notifier.sentCount())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	source := newFakeSource()
	sched := NewScheduler(source, &fakeNotifier{}, testLogger())
	sched.Start(context.Background())

	sched.Stop()
	sched.Stop() // повторный Stop безопасен
}

func TestStopWithoutStart(t *testing.T) {
	sched := NewScheduler(newFakeSource(), &fakeNotifier{}, testLogger())
	sched.Stop()
}
