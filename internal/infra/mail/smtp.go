// Package mail sends transactional email over SMTP.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var tracer = otel.Tracer("mail")

// Sender delivers a composed message. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends invitation emails through an SMTP relay.
type SMTPMailer struct {
	sender Sender
	from   string
	logger *zap.Logger
}

// NewSMTPMailer creates a mailer backed by a gomail dialer.
func NewSMTPMailer(host string, port int, user, pass, from string, logger *zap.Logger) *SMTPMailer {
	return NewMailer(gomail.NewDialer(host, port, user, pass), from, logger)
}

// NewMailer creates a mailer with a custom sender.
func NewMailer(sender Sender, from string, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{sender: sender, from: from, logger: logger}
}

var invitationTmpl = template.Must(template.New("invitation").Parse(`<p>Hello{{if .FirstName}} {{.FirstName}}{{end}},</p>
<p>You have been invited to join Agent Hub.</p>
<p>Your invitation code is <strong>{{.Code}}</strong>.</p>
<p><a href="{{.SignupLink}}">Create your account</a></p>
<p>This invitation expires on {{.ExpiresAt.Format "Jan 2, 2006"}}.</p>
`))

// SendInvitation renders and sends the invitation email.
func (m *SMTPMailer) SendInvitation(ctx context.Context, msg domain.InvitationEmail) error {
	_, span := tracer.Start(ctx, "SMTPMailer.SendInvitation")
	defer span.End()

	var html bytes.Buffer
	if err := invitationTmpl.Execute(&html, msg); err != nil {
		return fmt.Errorf("render invitation: %w", err)
	}

	message := gomail.NewMessage()
	message.SetHeader("From", m.from)
	message.SetHeader("To", msg.To)
	message.SetHeader("Subject", "You're invited to Agent Hub")
	message.SetBody("text/plain", fmt.Sprintf("Your invitation code is %s. Sign up at %s", msg.Code, msg.SignupLink))
	message.AddAlternative("text/html", html.String())

	if err := m.sender.DialAndSend(message); err != nil {
		m.logger.Error("failed to send invitation email", zap.String("to", msg.To), zap.Error(err))
		return &domain.ErrExternalService{Service: "smtp", Err: err}
	}

	m.logger.Info("invitation email sent", zap.String("to", msg.To))
	return nil
}
