package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/commission"
	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/port"

	"go.uber.org/zap"
)

// ReminderWorker periodically tells agents about pending installments that
// fall due within the lookahead window. Each installment is announced once
// per cache TTL.
type ReminderWorker struct {
	installments port.InstallmentStore
	notifier     *NotificationService
	sent         port.Cache[bool]
	interval     time.Duration
	lookahead    time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

const (
	defaultReminderInterval  = time.Hour
	defaultReminderLookahead = 72 * time.Hour
)

// NewReminderWorker creates the reminder worker. Non-positive durations fall
// back to hourly checks over a three day window.
func NewReminderWorker(installments port.InstallmentStore, notifier *NotificationService, sent port.Cache[bool], interval, lookahead time.Duration, logger *zap.Logger) *ReminderWorker {
	if interval <= 0 {
		interval = defaultReminderInterval
	}
	if lookahead <= 0 {
		lookahead = defaultReminderLookahead
	}
	return &ReminderWorker{
		installments: installments,
		notifier:     notifier,
		sent:         sent,
		interval:     interval,
		lookahead:    lookahead,
		logger:       logger,
		now:          time.Now,
	}
}

// Run checks once at start, then on every tick until ctx is cancelled.
func (w *ReminderWorker) Run(ctx context.Context) {
	w.logger.Info("installment reminder worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("lookahead", w.lookahead),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			w.logger.Error("installment reminder cycle failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			w.logger.Info("installment reminder worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce sends reminders for the current window and returns how many were sent.
func (w *ReminderWorker) RunOnce(ctx context.Context) (int, error) {
	now := w.now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := now.Add(w.lookahead)

	due, err := w.installments.ListInstallmentsDue(ctx, from, to, domain.InstallmentStatusPending)
	if err != nil {
		return 0, fmt.Errorf("list installments due: %w", err)
	}

	sent := 0
	for _, inst := range due {
		key := "reminder:" + inst.ID
		if _, ok := w.sent.Get(key); ok {
			continue
		}

		w.notifier.Notify(ctx, &domain.NotificationRequest{
			UserID: inst.AgentID,
			Type:   domain.NotificationInstallmentDue,
			Title:  "Commission Installment Due",
			Message: fmt.Sprintf("Installment %d of %s is scheduled for %s.",
				inst.InstallmentNumber, commission.FormatCurrency(inst.Amount), inst.ScheduledDate),
			RelatedID: inst.ID,
			Data: map[string]any{
				"transaction_id": inst.TransactionID,
				"scheduled_date": inst.ScheduledDate,
				"amount":         inst.Amount,
			},
		})
		w.sent.Set(key, true)
		sent++
	}

	if sent > 0 {
		w.logger.Info("installment reminders sent", zap.Int("count", sent))
	}
	return sent, nil
}
