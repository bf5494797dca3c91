package email

import (
	"context"
	"fmt"

	"github.com/hlmaths/practice-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer delivers verification codes to users.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, purpose, code string) error
}

func subjectFor(purpose string) string {
	switch purpose {
	case model.PurposePasswordReset:
		return "Your password reset code"
	default:
		return "Your email verification code"
	}
}

func bodyFor(purpose, code string) string {
	return fmt.Sprintf(
		"Your code is %s.\n\nIt expires in 15 minutes and can only be used once. "+
			"If you did not request this, you can ignore this email.", code)
}

// ConsoleMailer logs codes instead of sending them. Used in development
// and whenever no Sendgrid API key is configured.
type ConsoleMailer struct {
	log zerolog.Logger
}

// NewConsoleMailer creates a ConsoleMailer.
func NewConsoleMailer(log zerolog.Logger) *ConsoleMailer {
	return &ConsoleMailer{log: log.With().Str("component", "console_mailer").Logger()}
}

func (m *ConsoleMailer) SendVerificationCode(_ context.Context, to, purpose, code string) error {
	m.log.Info().
		Str("to", to).
		Str("purpose", purpose).
		Str("code", code).
		Msg("Verification code (console delivery)")
	return nil
}

// SendgridMailer delivers codes through the Sendgrid API.
type SendgridMailer struct {
	client *sendgrid.Client
	from   string
	log    zerolog.Logger
}

// NewSendgridMailer creates a SendgridMailer.
func NewSendgridMailer(apiKey, from string, log zerolog.Logger) *SendgridMailer {
	return &SendgridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   from,
		log:    log.With().Str("component", "sendgrid_mailer").Logger(),
	}
}

func (m *SendgridMailer) SendVerificationCode(_ context.Context, to, purpose, code string) error {
	msg := mail.NewSingleEmail(
		mail.NewEmail("", m.from),
		subjectFor(purpose),
		mail.NewEmail("", to),
		bodyFor(purpose, code),
		"",
	)

	resp, err := m.client.Send(msg)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}

	m.log.Debug().Str("to", to).Str("purpose", purpose).Msg("Verification code sent")
	return nil
}
