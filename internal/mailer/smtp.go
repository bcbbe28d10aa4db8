package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/sun1tar/todo-reminders/internal/models"
)

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMTPMailer отправляет напоминания через SMTP. Без настроенного SMTP_HOST
// отправка логируется и пропускается - это не ошибка.
type SMTPMailer struct {
	cfg    SMTPConfig
	logger *logrus.Entry
}

func NewSMTPMailer(cfg SMTPConfig, logger *logrus.Entry) *SMTPMailer {
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &SMTPMailer{cfg: cfg, logger: logger}
}

func (m *SMTPMailer) Send(ctx context.Context, to string, task models.Task) error {
	if m.cfg.Host == "" {
		m.logger.WithFields(logrus.Fields{
			"to":      to,
			"subject": reminderSubject,
		}).Info("smtp not configured, skip send")
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", reminderSubject)
	msg.SetBody("text/html", reminderBody(task))

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.User, m.cfg.Pass)
	return dialer.DialAndSend(msg)
}
