package mail_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/mail"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type captureSender struct {
	sent []*gomail.Message
	err  error
}

func (s *captureSender) DialAndSend(m ...*gomail.Message) error {
	s.sent = append(s.sent, m...)
	return s.err
}

func TestSendInvitation(t *testing.T) {
	sender := &captureSender{}
	m := mail.NewMailer(sender, "Agent Hub <no-reply@agenthub.test>", zap.NewNop())

	err := m.SendInvitation(context.Background(), domain.InvitationEmail{
		To:         "new.agent@example.com",
		FirstName:  "Dana",
		Code:       "AB12CD34",
		SignupLink: "https://app.example.com/auth/signup?code=AB12CD34",
		ExpiresAt:  time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.sent))
	}

	msg := sender.sent[0]
	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "new.agent@example.com" {
		t.Errorf("unexpected To header: %v", got)
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("write message: %v", err)
	}
	body := buf.String()
	for _, want := range []string{"AB12CD34", "Mar 8, 2026", "Hello Dana"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q", want)
		}
	}
}

func TestSendInvitation_SenderFailure(t *testing.T) {
	sender := &captureSender{err: errors.New("connection refused")}
	m := mail.NewMailer(sender, "no-reply@agenthub.test", zap.NewNop())

	err := m.SendInvitation(context.Background(), domain.InvitationEmail{To: "x@example.com", Code: "ZZZZ9999"})
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
}
