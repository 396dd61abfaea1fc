package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/wellness-api/internal/config"
)

var ErrDisabled = errors.New("email is not configured")

type Service interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// sender is the piece of gomail.Dialer the service uses.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPService struct {
	from   string
	dialer sender
}

// NewSMTPService returns ErrDisabled when host or sender address is missing.
func NewSMTPService(cfg config.SMTPConfig) (*SMTPService, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	return &SMTPService{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

func (s *SMTPService) Send(ctx context.Context, to []string, subject, body string) error {
	msg, err := buildMessage(s.from, to, subject, body)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		return context.DeadlineExceeded
	}
}

func buildMessage(from string, to []string, subject, body string) (*gomail.Message, error) {
	recipients := make([]string, 0, len(to))
	for _, addr := range to {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	if len(recipients) == 0 {
		return nil, errors.New("at least one recipient is required")
	}
	if strings.TrimSpace(subject) == "" {
		return nil, errors.New("subject is required")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return msg, nil
}
