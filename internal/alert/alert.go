// Package alert delivers fatal-failure notifications. The structured log is
// the primary audit trail; email is an advisory secondary channel.
package alert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/errors"
)

const subject = "Stream Sentiment Pipeline alert"

// Mailer sends a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

// SMTPMailer delivers mail over implicit TLS using the environment-sourced
// alert settings. The alert address is both sender and recipient.
type SMTPMailer struct {
	cfg config.AlertConfig
}

func NewSMTPMailer(cfg config.AlertConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.Email); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	if err := msg.To(m.cfg.Email); err != nil {
		return fmt.Errorf("setting recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(m.cfg.SMTPServer,
		mail.WithPort(m.cfg.SMTPPort),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Email),
		mail.WithPassword(m.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("building smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// Notifier is the pipeline's alert channel. A delivery failure comes back as
// a typed notification error; callers log it and move on, it never masks the
// failure being reported.
type Notifier struct {
	mailer Mailer
	logger *slog.Logger
}

// NewNotifier builds the alert channel. A nil mailer disables email; alerts
// then surface in the log only.
func NewNotifier(mailer Mailer) *Notifier {
	return &Notifier{
		mailer: mailer,
		logger: slog.Default().With("component", "alert"),
	}
}

// Notify dispatches one alert for a fatal pipeline failure.
func (n *Notifier) Notify(ctx context.Context, message string) error {
	n.logger.Error("pipeline alert", "message", message)
	if n.mailer == nil {
		return nil
	}
	body := fmt.Sprintf("An error occurred and the pipeline stopped:\n\n%s\n", message)
	if err := n.mailer.Send(ctx, subject, body); err != nil {
		return apperrors.Newf(apperrors.ErrNotification, "alert", "sending alert email: %v", err)
	}
	n.logger.Info("alert email sent")
	return nil
}
