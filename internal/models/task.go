package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/sun1tar/todo-reminders/internal/clock"
)

const (
	UnitHours   = "hours"
	UnitMinutes = "minutes"
)

type Task struct {
	ID            int64      `json:"id"`
	UserEmail     string     `json:"-"`
	Text          string     `json:"text"`
	DueDate       string     `json:"dueDate,omitempty"`
	DueTime       string     `json:"dueTime,omitempty"`
	DueInstant    *time.Time `json:"dueDateTimeISO,omitempty"`
	PlannedEffort *float64   `json:"plannedTime,omitempty"`
	EffortUnit    string     `json:"timeUnit"`
	Completed     bool       `json:"completed"`
	Notified      bool       `json:"notified"`
	CreatedAt     time.Time  `json:"-"`
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"-"`
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail проверяет адрес той же регуляркой, что и форма настроек
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Normalize приводит задачу к каноническому виду. Единственная точка входа
// для create и update: текст обрезается, единица усилия сводится к
// hours/minutes, dueDateTimeISO пересчитывается из даты и времени.
// Инвариант: дата есть <=> момент срока не nil.
func (t *Task) Normalize() {
	t.Text = strings.TrimSpace(t.Text)
	t.DueDate = strings.TrimSpace(t.DueDate)
	t.DueTime = strings.TrimSpace(t.DueTime)
	if t.EffortUnit != UnitMinutes {
		t.EffortUnit = UnitHours
	}
	if t.PlannedEffort != nil && *t.PlannedEffort < 0 {
		t.PlannedEffort = nil
	}
	t.DueInstant = clock.DueInstant(t.DueDate, t.DueTime)
}
