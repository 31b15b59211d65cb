package supabase

import (
	"context"
	"fmt"
	"sort"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
)

// ============================================================
// Payment schedules (implements port.ScheduleStore)
// ============================================================

const scheduleSelect = "select=*,installments:schedule_installments(*)"

func (c *Client) ListPaymentSchedules(ctx context.Context) ([]domain.PaymentSchedule, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPaymentSchedules")
	defer span.End()

	body, err := c.query(ctx, "commission_payment_schedules", "commission_payment_schedules?"+scheduleSelect+"&order=name.asc")
	if err != nil {
		return nil, err
	}
	schedules, err := decodeRows[domain.PaymentSchedule](body, "commission_payment_schedules")
	if err != nil {
		return nil, err
	}
	for i := range schedules {
		sortSlots(&schedules[i])
	}
	return schedules, nil
}

func (c *Client) GetPaymentSchedule(ctx context.Context, scheduleID string) (*domain.PaymentSchedule, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetPaymentSchedule")
	defer span.End()

	return c.getSchedule(ctx, fmt.Sprintf("commission_payment_schedules?id=%s&%s&limit=1", eq(scheduleID), scheduleSelect), scheduleID)
}

func (c *Client) GetDefaultPaymentSchedule(ctx context.Context) (*domain.PaymentSchedule, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetDefaultPaymentSchedule")
	defer span.End()

	return c.getSchedule(ctx, "commission_payment_schedules?is_default=is.true&"+scheduleSelect+"&limit=1", "default")
}

func (c *Client) getSchedule(ctx context.Context, path, id string) (*domain.PaymentSchedule, error) {
	body, err := c.query(ctx, "commission_payment_schedules", path)
	if err != nil {
		return nil, err
	}
	s, err := decodeFirst[domain.PaymentSchedule](body, "commission_payment_schedule")
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, &domain.ErrNotFound{Resource: "payment_schedule", ID: id}
	}
	sortSlots(s)
	return s, nil
}

// CreatePaymentSchedule inserts the schedule row, then its slots in one bulk insert.
func (c *Client) CreatePaymentSchedule(ctx context.Context, s *domain.PaymentSchedule) (*domain.PaymentSchedule, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreatePaymentSchedule")
	defer span.End()

	var created *domain.PaymentSchedule
	err := c.mutate(ctx, "commission_payment_schedules", func() error {
		body, err := c.doPost(ctx, "commission_payment_schedules", map[string]any{
			"name":        s.Name,
			"description": s.Description,
			"is_default":  false,
		})
		if err != nil {
			return err
		}
		created, err = decodeFirst[domain.PaymentSchedule](body, "commission_payment_schedule")
		if err != nil {
			return err
		}
		if created == nil {
			return fmt.Errorf("no result from commission_payment_schedules insert")
		}

		rows := make([]map[string]any, 0, len(s.Installments))
		for _, slot := range s.Installments {
			rows = append(rows, map[string]any{
				"schedule_id":            created.ID,
				"installment_number":     slot.InstallmentNumber,
				"percentage":             slot.Percentage,
				"days_after_transaction": slot.DaysAfterTransaction,
				"description":            slot.Description,
			})
		}
		body, err = c.doPost(ctx, "schedule_installments", rows)
		if err != nil {
			return err
		}
		created.Installments, err = decodeRows[domain.ScheduleInstallment](body, "schedule_installments")
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &domain.ErrConflict{Message: fmt.Sprintf("payment schedule %q already exists", s.Name)}
		}
		return nil, err
	}
	sortSlots(created)
	return created, nil
}

func (c *Client) DeletePaymentSchedule(ctx context.Context, scheduleID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeletePaymentSchedule")
	defer span.End()

	return c.mutate(ctx, "commission_payment_schedules", func() error {
		if err := c.doDelete(ctx, "schedule_installments?schedule_id="+eq(scheduleID)); err != nil {
			return err
		}
		return c.doDelete(ctx, "commission_payment_schedules?id="+eq(scheduleID))
	})
}

// SetDefaultPaymentSchedule clears the current default, then flags the new one.
func (c *Client) SetDefaultPaymentSchedule(ctx context.Context, scheduleID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.SetDefaultPaymentSchedule")
	defer span.End()

	return c.mutate(ctx, "commission_payment_schedules", func() error {
		if _, err := c.doPatch(ctx, "commission_payment_schedules?is_default=is.true", map[string]any{"is_default": false}); err != nil {
			return err
		}
		_, err := c.doPatch(ctx, "commission_payment_schedules?id="+eq(scheduleID), map[string]any{"is_default": true})
		return err
	})
}

func sortSlots(s *domain.PaymentSchedule) {
	if s.Installments == nil {
		s.Installments = []domain.ScheduleInstallment{}
	}
	sort.SliceStable(s.Installments, func(i, j int) bool {
		return s.Installments[i].InstallmentNumber < s.Installments[j].InstallmentNumber
	})
}
