package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/sun1tar/todo-reminders/internal/models"
	"github.com/sun1tar/todo-reminders/internal/service"
	"github.com/sun1tar/todo-reminders/shared/middleware"
)

type TaskHandler struct {
	taskService *service.TaskService
	logger      *logrus.Logger
}

func NewTaskHandler(ts *service.TaskService, logger *logrus.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: ts,
		logger:      logger,
	}
}

func (h *TaskHandler) logEntry(r *http.Request, handler string) *logrus.Entry {
	return h.logger.WithFields(logrus.Fields{
		"component":  "http_handler",
		"handler":    handler,
		"request_id": middleware.GetRequestID(r.Context()),
	})
}

// Структуры запросов/ответов
type registerRequest struct {
	Email string `json:"email"`
}

type taskRequest struct {
	Email         string   `json:"email"`
	Text          string   `json:"text"`
	DueDate       string   `json:"dueDate"`
	DueTime       string   `json:"dueTime"`
	PlannedEffort *float64 `json:"plannedTime"`
	EffortUnit    string   `json:"timeUnit"`
	Completed     bool     `json:"completed"`
}

func (req *taskRequest) toTask() models.Task {
	return models.Task{
		Text:          req.Text,
		DueDate:       req.DueDate,
		DueTime:       req.DueTime,
		PlannedEffort: req.PlannedEffort,
		EffortUnit:    req.EffortUnit,
		Completed:     req.Completed,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Register обрабатывает POST /api/register
func (h *TaskHandler) Register(w http.ResponseWriter, r *http.Request) {
	logEntry := h.logEntry(r, "Register")

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logEntry.WithError(err).Warn("invalid request body")
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	err := h.taskService.RegisterUser(r.Context(), req.Email)
	if errors.Is(err, service.ErrInvalidEmail) {
		logEntry.Warn("invalid email")
		http.Error(w, `{"error":"Invalid email"}`, http.StatusBadRequest)
		return
	}
	if err != nil {
		logEntry.WithError(err).Error("failed to register user")
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	logEntry.WithField("email", req.Email).Info("user registered")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ListTasks обрабатывает GET /api/tasks?email=
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	logEntry := h.logEntry(r, "ListTasks")

	email := r.URL.Query().Get("email")
	if email == "" {
		http.Error(w, `{"error":"Missing email"}`, http.StatusBadRequest)
		return
	}

	tasks, err := h.taskService.List(r.Context(), email)
	if err != nil {
		logEntry.WithError(err).Error("failed to list tasks")
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	logEntry.WithField("count", len(tasks)).Debug("tasks listed")
	writeJSON(w, http.StatusOK, tasks)
}

// CreateTask обрабатывает POST /api/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	logEntry := h.logEntry(r, "CreateTask")

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logEntry.WithError(err).Warn("invalid request body")
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		http.Error(w, `{"error":"Missing email"}`, http.StatusBadRequest)
		return
	}

	task, err := h.taskService.Create(r.Context(), req.Email, req.toTask())
	if errors.Is(err, service.ErrEmptyText) {
		logEntry.Warn("task text required")
		http.Error(w, `{"error":"Task text required"}`, http.StatusBadRequest)
		return
	}
	if err != nil {
		logEntry.WithError(err).Error("failed to create task")
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	logEntry.WithField("task_id", task.ID).Info("task created")
	writeJSON(w, http.StatusOK, task)
}

// UpdateTask обрабатывает PUT /api/tasks/{id}
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	logEntry := h.logEntry(r, "UpdateTask")

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logEntry.WithError(err).Warn("invalid request body")
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		http.Error(w, `{"error":"Missing email"}`, http.StatusBadRequest)
		return
	}

	task, err := h.taskService.Update(r.Context(), req.Email, id, req.toTask())
	if errors.Is(err, service.ErrEmptyText) {
		http.Error(w, `{"error":"Task text required"}`, http.StatusBadRequest)
		return
	}
	if errors.Is(err, sql.ErrNoRows) {
		logEntry.WithField("task_id", id).Warn("task not found for update")
		http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		logEntry.WithError(err).Error("failed to update task")
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	logEntry.WithField("task_id", id).Info("task updated")
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask обрабатывает DELETE /api/tasks/{id}?email=
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	logEntry := h.logEntry(r, "DeleteTask")

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	email := r.URL.Query().Get("email")
	if email == "" {
		http.Error(w, `{"error":"Missing email"}`, http.StatusBadRequest)
		return
	}

	err = h.taskService.Delete(r.Context(), email, id)
	if errors.Is(err, sql.ErrNoRows) {
		logEntry.WithField("task_id", id).Warn("task not found for deletion")
		http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		logEntry.WithError(err).Error("failed to delete task")
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	logEntry.WithField("task_id", id).Info("task deleted")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Healthz обрабатывает GET /healthz - по нему клиент определяет доступность бэкенда
func (h *TaskHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
