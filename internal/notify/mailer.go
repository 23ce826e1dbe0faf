// Package notify доставляет готовые чеки покупателям по почте.
package notify

import (
	"context"
	"fmt"
	"os"

	"github.com/wneessen/go-mail"

	"stockbill/internal/config"
)

const (
	receiptSubject = "Your Receipt"
	receiptBody    = "Attached bill."
)

// Sender отправляет документ по пути path на адрес to.
type Sender interface {
	Send(ctx context.Context, to, path string) error
}

// Mailer отправляет чеки через SMTP с настроенными реквизитами.
type Mailer struct {
	cfg config.MailConfig
}

func NewMailer(cfg config.MailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

var _ Sender = (*Mailer)(nil)

func (m *Mailer) Send(ctx context.Context, to, path string) error {
	msg, err := m.buildMessage(to, path)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send receipt to %s: %w", to, err)
	}
	return nil
}

func (m *Mailer) buildMessage(to, path string) (*mail.Msg, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("receipt attachment: %w", err)
	}
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	msg.Subject(receiptSubject)
	msg.SetBodyString(mail.TypeTextPlain, receiptBody)
	msg.AttachFile(path)
	return msg, nil
}
