package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sun1tar/todo-reminders/internal/models"
)

// SQLTaskRepository - общая реализация поверх database/sql. Диалектные
// различия (плейсхолдеры, RETURNING, upsert) закрыты полем driver.
type SQLTaskRepository struct {
	db     *sql.DB
	driver string // "postgres" или "sqlite3"
}

func (r *SQLTaskRepository) Close() error {
	return r.db.Close()
}

// rebind переводит ?-плейсхолдеры в $N для postgres
func (r *SQLTaskRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func (r *SQLTaskRepository) Register(ctx context.Context, email string) error {
	query := `INSERT INTO users (email, created_at) VALUES (?, ?) ON CONFLICT (email) DO NOTHING`
	if r.driver == "sqlite3" {
		query = `INSERT OR IGNORE INTO users (email, created_at) VALUES (?, ?)`
	}
	_, err := r.db.ExecContext(ctx, r.rebind(query), email, time.Now().UTC().Format(time.RFC3339))
	return err
}

const taskColumns = `id, user_email, text, due_date, due_time, due_iso, planned_time, time_unit, completed, notified, created_at`

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var (
		t       models.Task
		dueDate sql.NullString
		dueTime sql.NullString
		dueISO  sql.NullString
		planned sql.NullFloat64
		created sql.NullString
	)
	err := row.Scan(&t.ID, &t.UserEmail, &t.Text, &dueDate, &dueTime, &dueISO,
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

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
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

func (r *SQLTaskRepository) List(ctx context.Context, email string) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_email = ? ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), email)
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

func (r *SQLTaskRepository) Create(ctx context.Context, task *models.Task) error {
	task.CreatedAt = time.Now().UTC().Truncate(time.Second)
	query := `INSERT INTO tasks (user_email, text, due_date, due_time, due_iso, planned_time, time_unit, completed, notified, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := []any{
		task.UserEmail, task.Text, nullStr(task.DueDate), nullStr(task.DueTime),
		nullInstant(task.DueInstant), nullFloat(task.PlannedEffort), task.EffortUnit,
		task.Completed, task.Notified, task.CreatedAt.Format(time.RFC3339),
	}

	if r.driver == "postgres" {
		return r.db.QueryRowContext(ctx, r.rebind(query+` RETURNING id`), args...).Scan(&task.ID)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	task.ID, err = result.LastInsertId()
	return err
}

// Update перезаписывает все поля задачи и всегда сбрасывает notified:
// новый срок должен получить собственный цикл напоминания
func (r *SQLTaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `UPDATE tasks SET text = ?, due_date = ?, due_time = ?, due_iso = ?,
              planned_time = ?, time_unit = ?, completed = ?, notified = ?
              WHERE id = ? AND user_email = ?`
	task.Notified = false
	result, err := r.db.ExecContext(ctx, r.rebind(query),
		task.Text, nullStr(task.DueDate), nullStr(task.DueTime), nullInstant(task.DueInstant),
		nullFloat(task.PlannedEffort), task.EffortUnit, task.Completed, task.Notified,
		task.ID, task.UserEmail)
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

func (r *SQLTaskRepository) Delete(ctx context.Context, id int64, email string) error {
	query := `DELETE FROM tasks WHERE id = ? AND user_email = ?`
	result, err := r.db.ExecContext(ctx, r.rebind(query), id, email)
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

func (r *SQLTaskRepository) GetByID(ctx context.Context, id int64, email string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND user_email = ?`
	t, err := scanTask(r.db.QueryRowContext(ctx, r.rebind(query), id, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *SQLTaskRepository) PendingReminders(ctx context.Context) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
              WHERE due_iso IS NOT NULL AND completed = ? AND notified = ?`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), false, false)
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

// ClaimReminder атомарно помечает задачу уведомлённой. Условный UPDATE
// гарантирует, что ровно один сканер выиграет гонку.
func (r *SQLTaskRepository) ClaimReminder(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE tasks SET notified = ? WHERE id = ? AND notified = ? AND completed = ?`
	result, err := r.db.ExecContext(ctx, r.rebind(query), true, id, false, false)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *SQLTaskRepository) ReleaseReminder(ctx context.Context, id int64) error {
	query := `UPDATE tasks SET notified = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, r.rebind(query), false, id)
	return err
}
