package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/qline/queue-api/internal/config"
)

type smtpService struct {
	cfg    config.SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPService(cfg config.SMTPConfig) Service {
	return &smtpService{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *smtpService) SendInvite(_ context.Context, to, name, tempPassword string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYou've been invited to the queue dashboard.\nTemporary password: %s\n\nPlease sign in and change it.",
		name, tempPassword,
	)
	return s.send(to, "You're invited to the queue dashboard", body)
}

func (s *smtpService) SendCustom(_ context.Context, to, subject, content string) error {
	return s.send(to, subject, content)
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
