package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/cache"
	"github.com/boddenberg/agent-hub-bfa-go/internal/service"

	"go.uber.org/zap"
)

func TestNotificationCreate_StoresPayload(t *testing.T) {
	f := newFixture()

	n, err := f.notifier.Create(context.Background(), agentA, &domain.NotificationRequest{
		UserID:  "agent-a",
		Type:    "reminder",
		Title:   "Call the buyer",
		Message: "Follow up on the offer",
		Data:    map[string]any{"property_id": "prop-1"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var data map[string]string
	if err := json.Unmarshal(n.Data, &data); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if data["property_id"] != "prop-1" {
		t.Errorf("unexpected payload: %v", data)
	}
}

func TestNotificationCreate_Rules(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.notifier.Create(ctx, agentA, &domain.NotificationRequest{UserID: "agent-b", Type: "x", Title: "x", Message: "x"})
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden notifying someone else, got %v", err)
	}

	if _, err := f.notifier.Create(ctx, admin, &domain.NotificationRequest{UserID: "agent-b", Type: "x", Title: "x", Message: "x"}); err != nil {
		t.Errorf("expected admin to notify anyone, got %v", err)
	}

	n, err := f.notifier.Create(ctx, agentA, &domain.NotificationRequest{Type: "x", Title: "x", Message: "x"})
	if err != nil || n.UserID != "agent-a" {
		t.Errorf("expected recipient to default to the caller, got %+v, %v", n, err)
	}

	_, err = f.notifier.Create(ctx, agentA, &domain.NotificationRequest{UserID: "agent-a", Type: "x", Title: "x"})
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) || ve.Field != "message" {
		t.Errorf("expected message validation error, got %v", err)
	}
}

func TestNotify_SwallowsFailures(t *testing.T) {
	f := newFixture()
	f.notifications.err = errStoreDown

	f.notifier.Notify(context.Background(), &domain.NotificationRequest{UserID: "agent-a", Type: "x", Title: "x", Message: "x"})
}

func TestMarkRead_RecipientOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	n, _ := f.notifier.Create(ctx, agentA, &domain.NotificationRequest{UserID: "agent-a", Type: "x", Title: "x", Message: "x"})

	if err := f.notifier.MarkRead(ctx, agentB, n.ID); err == nil {
		t.Fatal("expected another user to be refused")
	}
	if err := f.notifier.MarkRead(ctx, agentA, n.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	count, _ := f.notifier.UnreadCount(ctx, "agent-a")
	if count.Count != 0 {
		t.Errorf("expected 0 unread, got %d", count.Count)
	}
}

func TestMarkAllRead(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.notifier.Notify(ctx, &domain.NotificationRequest{UserID: "agent-a", Type: "x", Title: "x", Message: "x"})
	}

	unread, _ := f.notifier.List(ctx, "agent-a", true, 1, 0)
	if len(unread) != 3 {
		t.Fatalf("expected 3 unread, got %d", len(unread))
	}
	if err := f.notifier.MarkAllRead(ctx, "agent-a"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	unread, _ = f.notifier.List(ctx, "agent-a", true, 1, 0)
	if len(unread) != 0 {
		t.Errorf("expected none unread, got %d", len(unread))
	}
}

func TestReminderWorker_NotifiesOncePerInstallment(t *testing.T) {
	f := newFixture()
	today := time.Now().Format("2006-01-02")
	later := time.Now().AddDate(0, 2, 0).Format("2006-01-02")
	f.installments.items = []domain.CommissionInstallment{
		{ID: "due", AgentID: "agent-a", InstallmentNumber: 1, Amount: 5000, ScheduledDate: today, Status: domain.InstallmentStatusPending},
		{ID: "paid", AgentID: "agent-a", Amount: 5000, ScheduledDate: today, Status: domain.InstallmentStatusPaid},
		{ID: "later", AgentID: "agent-a", Amount: 5000, ScheduledDate: later, Status: domain.InstallmentStatusPending},
	}

	w := service.NewReminderWorker(f.installments, f.notifier, cache.New[bool](time.Hour), time.Hour, 72*time.Hour, zap.NewNop())

	sent, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 reminder, got %d", sent)
	}

	sent, _ = w.RunOnce(context.Background())
	if sent != 0 {
		t.Errorf("expected no repeat reminder, got %d", sent)
	}
	if n := f.notifications.byType(domain.NotificationInstallmentDue); len(n) != 1 || n[0].RelatedID != "due" {
		t.Errorf("unexpected reminders: %+v", n)
	}
}

func TestReminderWorker_RunStopsOnCancel(t *testing.T) {
	f := newFixture()
	w := service.NewReminderWorker(f.installments, f.notifier, cache.New[bool](time.Hour), time.Millisecond, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestReminderWorker_ZeroIntervalFallsBack(t *testing.T) {
	f := newFixture()
	w := service.NewReminderWorker(f.installments, f.notifier, cache.New[bool](time.Hour), 0, 0, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
