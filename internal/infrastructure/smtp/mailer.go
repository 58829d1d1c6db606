package smtp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/presswire-api/internal/config"
	"github.com/wneessen/go-mail"
)

// Mailer sends emails.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

type mailer struct {
	cfg config.SMTP
}

// NewMailer returns an SMTP mailer, or a logging mailer when no host is
// configured or the process is not in production.
func NewMailer(cfg *config.Config) Mailer {
	if cfg.SMTP.Host == "" || !cfg.Mode.IsProduction() {
		return LogMailer{}
	}
	return &mailer{cfg: cfg.SMTP}
}

func (m *mailer) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	msg, err := buildMessage(m.cfg.From, to, subject, htmlBody, textBody)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
	}
	if m.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Port 465 is implicit TLS; everything else negotiates STARTTLS.
		if m.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if m.cfg.Username != "" && m.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

func buildMessage(from, to, subject, htmlBody, textBody string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("setting from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, textBody)
	if htmlBody != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)
	}
	return msg, nil
}

// LogMailer logs messages instead of sending them. Development only: the
// text body may contain verification codes.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, subject, _, textBody string) error {
	slog.Info("email simulated", "to", to, "subject", subject, "body", textBody)
	return nil
}
