package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sun1tar/todo-reminders/internal/models"
)

// Store - локальное персистентное хранилище клиента: задачи и настройки
// (email) живут в одном sqlite-файле двумя независимыми таблицами.
// Отсутствие файла или строк читается как пустое состояние, не как ошибка.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    text TEXT NOT NULL,
    due_date TEXT,
    due_time TEXT,
    due_iso TEXT,
    planned_time REAL,
    time_unit TEXT NOT NULL DEFAULT 'hours',
    completed INTEGER NOT NULL DEFAULT 0,
    notified INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Email возвращает сохранённый адрес (пустая строка, если не задан)
func (s *Store) Email(ctx context.Context) (string, error) {
	var email string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = 'email'`).Scan(&email)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return email, nil
}

func (s *Store) SetEmail(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES ('email', ?)
         ON CONFLICT (key) DO UPDATE SET value = excluded.value`, email)
	return err
}

const taskColumns = `id, text, due_date, due_time, due_iso, planned_time, time_unit, completed, notified, created_at`

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var (
		t       models.Task
		dueDate sql.NullString
		dueTime sql.NullString
		dueISO  sql.NullString
		planned sql.NullFloat64
		created sql.NullString
	)
	err := row.Scan(&t.ID, &t.Text, &dueDate, &dueTime, &dueISO,
		&planned, &t.EffortUnit, &t.Completed, &t.Notified, &created)
	if err != nil {
		return t, err
	}
	t.DueDate = dueDate.String
	t.DueTime = dueTime.String
	if dueISO.Valid {
		if ts, err := time.Parse(time.RFC3339, dueISO.String); err == nil {
			local := ts.Local()
			t.DueInstant = &local
		}
	}
	if planned.Valid {
		t.PlannedEffort = &planned.Float64
	}
	if created.Valid {
		if ts, err := time.Parse(time.RFC3339, created.String); err == nil {
			t.CreatedAt = ts
		}
	}
	return t, nil
}

func nullStr(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullInstant(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// List возвращает задачи в том же порядке, что и бэкенд: новые сверху
func (s *Store) List(ctx context.Context) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) Create(ctx context.Context, task models.Task) (models.Task, error) {
	task.Normalize()
	task.Notified = false
	task.CreatedAt = time.Now().UTC().Truncate(time.Second)

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (text, due_date, due_time, due_iso, planned_time, time_unit, completed, notified, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.Text, nullStr(task.DueDate), nullStr(task.DueTime), nullInstant(task.DueInstant),
		nullFloat(task.PlannedEffort), task.EffortUnit, task.Completed, task.Notified,
		task.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return task, err
	}
	task.ID, err = result.LastInsertId()
	return task, err
}

// Update перезаписывает задачу и сбрасывает notified - как PUT на бэкенде
func (s *Store) Update(ctx context.Context, task models.Task) (models.Task, error) {
	task.Normalize()
	task.Notified = false

	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET text = ?, due_date = ?, due_time = ?, due_iso = ?,
         planned_time = ?, time_unit = ?, completed = ?, notified = ? WHERE id = ?`,
		task.Text, nullStr(task.DueDate), nullStr(task.DueTime), nullInstant(task.DueInstant),
		nullFloat(task.PlannedEffort), task.EffortUnit, task.Completed, task.Notified, task.ID)
	if err != nil {
		return task, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return task, err
	}
	if rows == 0 {
		return task, sql.ErrNoRows
	}
	return task, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PendingReminders реализует источник для локального шедулера: единственный
// пользователь - хозяин файла, его email подставляется из настроек
func (s *Store) PendingReminders(ctx context.Context) ([]models.Task, error) {
	email, err := s.Email(ctx)
	if err != nil {
		return nil, err
	}
	if email == "" {
		// Без адреса напоминать некому
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE due_iso IS NOT NULL AND completed = 0 AND notified = 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		t.UserEmail = email
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) ClaimReminder(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET notified = 1 WHERE id = ? AND notified = 0 AND completed = 0`, id)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (s *Store) ReleaseReminder(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tasks SET notified = 0 WHERE id = ?`, id)
	return err
}
