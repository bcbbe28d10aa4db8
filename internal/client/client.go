package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sun1tar/todo-reminders/internal/models"
)

// Client - HTTP-клиент бэкенда. Любая транспортная ошибка отдаётся наверх:
// сессия интерпретирует её как "бэкенд недоступен, работаем локально".
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logrus.Entry
}

func NewClient(baseURL string, timeout time.Duration, logger *logrus.Entry) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type taskPayload struct {
	Email         string   `json:"email"`
	Text          string   `json:"text"`
	DueDate       string   `json:"dueDate"`
	DueTime       string   `json:"dueTime"`
	PlannedEffort *float64 `json:"plannedTime"`
	EffortUnit    string   `json:"timeUnit"`
	Completed     bool     `json:"completed"`
}

func payloadFrom(email string, task models.Task) taskPayload {
	return taskPayload{
		Email:         email,
		Text:          task.Text,
		DueDate:       task.DueDate,
		DueTime:       task.DueTime,
		PlannedEffort: task.PlannedEffort,
		EffortUnit:    task.EffortUnit,
		Completed:     task.Completed,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("backend returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("backend returned %d", resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// Ping - проба режима: доступен ли бэкенд вообще
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) Register(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/register", map[string]string{"email": email}, nil)
}

func (c *Client) List(ctx context.Context, email string) ([]models.Task, error) {
	var tasks []models.Task
	path := "/api/tasks?email=" + url.QueryEscape(email)
	if err := c.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) Create(ctx context.Context, email string, task models.Task) (models.Task, error) {
	var created models.Task
	err := c.do(ctx, http.MethodPost, "/api/tasks", payloadFrom(email, task), &created)
	return created, err
}

func (c *Client) Update(ctx context.Context, email string, task models.Task) (models.Task, error) {
	var updated models.Task
	path := fmt.Sprintf("/api/tasks/%d", task.ID)
	err := c.do(ctx, http.MethodPut, path, payloadFrom(email, task), &updated)
	return updated, err
}

func (c *Client) Delete(ctx context.Context, email string, id int64) error {
	path := fmt.Sprintf("/api/tasks/%d?email=%s", id, url.QueryEscape(email))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
