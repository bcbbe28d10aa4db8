package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sun1tar/todo-reminders/internal/models"
)

const defaultEmailJSBaseURL = "https://api.emailjs.com"

type EmailJSConfig struct {
	PublicKey  string
	ServiceID  string
	TemplateID string
	BaseURL    string // переопределяется в тестах
}

// EmailJSMailer - клиентский транспорт напоминаний через транзакционный
// почтовый API. Без ключей отправка логируется и пропускается.
type EmailJSMailer struct {
	cfg    EmailJSConfig
	http   *http.Client
	logger *logrus.Entry
}

func NewEmailJSMailer(cfg EmailJSConfig, logger *logrus.Entry) *EmailJSMailer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultEmailJSBaseURL
	}
	return &EmailJSMailer{
		cfg:    cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

func (m *EmailJSMailer) Send(ctx context.Context, to string, task models.Task) error {
	if m.cfg.PublicKey == "" || m.cfg.ServiceID == "" || m.cfg.TemplateID == "" {
		m.logger.WithField("to", to).Info("emailjs not configured, skip send")
		return nil
	}

	payload := emailJSRequest{
		ServiceID:  m.cfg.ServiceID,
		TemplateID: m.cfg.TemplateID,
		UserID:     m.cfg.PublicKey,
		TemplateParams: map[string]string{
			"to_email":      to,
			"task_title":    task.Text,
			"task_due_date": formatDueDate(task.DueInstant),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.cfg.BaseURL+"/api/v1.0/email/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("emailjs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("emailjs returned status %d", resp.StatusCode)
	}
	return nil
}
