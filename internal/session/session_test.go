package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sun1tar/todo-reminders/internal/client"
	internalhttp "github.com/sun1tar/todo-reminders/internal/http"
	"github.com/sun1tar/todo-reminders/internal/localstore"
	"github.com/sun1tar/todo-reminders/internal/models"
	"github.com/sun1tar/todo-reminders/internal/repository"
	"github.com/sun1tar/todo-reminders/internal/service"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func newLocalStore(t *testing.T) *localstore.Store {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// newBackend поднимает настоящий серверный стек поверх sqlite
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	repo, err := repository.NewSQLiteTaskRepository(filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	handler := internalhttp.NewTaskHandler(service.NewTaskService(repo), l)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", handler.Register)
	mux.HandleFunc("GET /api/tasks", handler.ListTasks)
	mux.HandleFunc("POST /api/tasks", handler.CreateTask)
	mux.HandleFunc("PUT /api/tasks/{id}", handler.UpdateTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", handler.DeleteTask)
	mux.HandleFunc("GET /healthz", handler.Healthz)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newAPIClient(baseURL string) *client.Client {
	return client.NewClient(baseURL, 2*time.Second, testLogger())
}

func TestUnreachableBackendFallsBackToLocal(t *testing.T) {
	ctx := context.Background()
	local := newLocalStore(t)
	if err := local.SetEmail(ctx, "user@example.com"); err != nil {
		t.Fatalf("set email: %v", err)
	}

	// Порт заведомо мёртвый
	api := newAPIClient("http://127.0.0.1:1")
	sess, err := Open(ctx, local, api, testLogger())
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	defer sess.Close()

	if sess.UseBackend() {
		t.Fatal("session must stay local when backend is unreachable")
	}

	created, err := sess.Store().Create(ctx, models.Task{Text: "offline task"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tasks, err := sess.Store().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != created.ID {
		t.Fatalf("local CRUD broken: %+v", tasks)
	}
}

func TestBackendModeMigratesLocalTasksOnce(t *testing.T) {
	ctx := context.Background()
	srv := newBackend(t)

	local := newLocalStore(t)
	if err := local.SetEmail(ctx, "user@example.com"); err != nil {
		t.Fatalf("set email: %v", err)
	}
	for _, text := range []string{"oldest", "newest"} {
		if _, err := local.Create(ctx, models.Task{Text: text, DueDate: "2024-06-01"}); err != nil {
			t.Fatalf("seed local: %v", err)
		}
	}

	api := newAPIClient(srv.URL)
	if err := api.Register(ctx, "user@example.com"); err != nil {
		t.Fatalf("register: %v", err)
	}

	sess, err := Open(ctx, local, api, testLogger())
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	defer sess.Close()

	if !sess.UseBackend() {
		t.Fatal("session must switch to backend mode")
	}

	tasks, err := sess.Store().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("migrated %d tasks, want 2", len(tasks))
	}
	// Порядок создания сохранён: новые сверху
	if tasks[0].Text != "newest" || tasks[1].Text != "oldest" {
		t.Errorf("order after migration: [%s, %s]", tasks[0].Text, tasks[1].Text)
	}
	if tasks[0].DueInstant == nil {
		t.Error("due instant lost in migration")
	}

	// Повторная сессия не должна мигрировать ещё раз
	sess2, err := Open(ctx, local, api, testLogger())
	if err != nil {
		t.Fatalf("reopen session: %v", err)
	}
	defer sess2.Close()
	tasks, err = sess2.Store().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("second open duplicated tasks: %d", len(tasks))
	}
}

// Одинаковая последовательность операций в обоих режимах даёт эквивалентные
// списки (идентификаторы не сравниваем)
func TestLocalAndBackendStoresAreSubstitutable(t *testing.T) {
	ctx := context.Background()

	runOps := func(t *testing.T, store TaskStore) []models.Task {
		t.Helper()
		planned := 2.5
		first, err := store.Create(ctx, models.Task{Text: "  first  ", DueDate: "2024-06-01", DueTime: "7:30pm"})
		if err != nil {
			t.Fatalf("create first: %v", err)
		}
		second, err := store.Create(ctx, models.Task{Text: "second", PlannedEffort: &planned, EffortUnit: "minutes"})
		if err != nil {
			t.Fatalf("create second: %v", err)
		}
		third, err := store.Create(ctx, models.Task{Text: "third"})
		if err != nil {
			t.Fatalf("create third: %v", err)
		}

		first.Text = "first edited"
		first.DueDate = "2024-06-02"
		if _, err := store.Update(ctx, first); err != nil {
			t.Fatalf("update: %v", err)
		}
		second.Completed = true
		if _, err := store.Update(ctx, second); err != nil {
			t.Fatalf("complete: %v", err)
		}
		if err := store.Delete(ctx, third.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}

		tasks, err := store.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		return tasks
	}

	localTasks := runOps(t, newLocalStore(t))

	srv := newBackend(t)
	api := newAPIClient(srv.URL)
	if err := api.Register(ctx, "user@example.com"); err != nil {
		t.Fatalf("register: %v", err)
	}
	remoteTasks := runOps(t, &remoteStore{api: api, email: "user@example.com"})

	if len(localTasks) != len(remoteTasks) {
		t.Fatalf("list lengths differ: local %d, remote %d", len(localTasks), len(remoteTasks))
	}
	for i := range localTasks {
		l, r := localTasks[i], remoteTasks[i]
		if l.Text != r.Text || l.DueDate != r.DueDate || l.DueTime != r.DueTime ||
			l.EffortUnit != r.EffortUnit || l.Completed != r.Completed || l.Notified != r.Notified {
			t.Errorf("task %d differs:\nlocal  %+v\nremote %+v", i, l, r)
		}
		if (l.DueInstant == nil) != (r.DueInstant == nil) {
			t.Errorf("task %d due instant presence differs", i)
		}
		if l.DueInstant != nil && r.DueInstant != nil && !l.DueInstant.Equal(*r.DueInstant) {
			t.Errorf("task %d due instant: local %v, remote %v", i, l.DueInstant, r.DueInstant)
		}
		if (l.PlannedEffort == nil) != (r.PlannedEffort == nil) {
			t.Errorf("task %d planned effort presence differs", i)
		}
	}
}

func TestStartRemindersIsNoopInBackendMode(t *testing.T) {
	ctx := context.Background()
	srv := newBackend(t)

	local := newLocalStore(t)
	api := newAPIClient(srv.URL)

	sess, err := Open(ctx, local, api, testLogger())
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	defer sess.Close()

	enabled, err := sess.SetEmail(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("set email: %v", err)
	}
	if !enabled {
		t.Fatal("backend mode must be enabled after registration")
	}

	sess.StartReminders(ctx, nil)
	if sess.sched != nil {
		t.Fatal("local reminder driver must not run in backend mode")
	}

	// Повторная остановка безопасна
	sess.StopReminders()
	sess.StopReminders()
}

func TestSetEmailRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	sess, err := Open(ctx, newLocalStore(t), nil, testLogger())
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	defer sess.Close()

	if _, err := sess.SetEmail(ctx, "not-an-email"); err == nil {
		t.Fatal("invalid email must be rejected")
	}
	if _, err := sess.SetEmail(ctx, "user@example.com"); err != nil {
		t.Fatalf("valid email rejected: %v", err)
	}
	if sess.Email() != "user@example.com" {
		t.Errorf("email = %q", sess.Email())
	}
}
