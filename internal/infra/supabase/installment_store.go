package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Commission installments & forecast projections
// (implements port.InstallmentStore, port.ForecastStore)
// ============================================================

// InsertInstallments bulk-inserts generated installments in a single request.
func (c *Client) InsertInstallments(ctx context.Context, rows []domain.CommissionInstallment) ([]domain.CommissionInstallment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertInstallments")
	defer span.End()
	span.SetAttributes(attribute.Int("installments.count", len(rows)))

	payload := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		payload = append(payload, map[string]any{
			"transaction_id":     r.TransactionID,
			"agent_id":           r.AgentID,
			"installment_number": r.InstallmentNumber,
			"amount":             r.Amount,
			"percentage":         r.Percentage,
			"scheduled_date":     r.ScheduledDate,
			"status":             r.Status,
			"notes":              r.Notes,
		})
	}

	var body []byte
	err := c.mutate(ctx, "commission_installments", func() (err error) {
		body, err = c.doPost(ctx, "commission_installments", payload)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &domain.ErrConflict{Message: "installments already exist for this transaction"}
		}
		return nil, err
	}
	return decodeRows[domain.CommissionInstallment](body, "commission_installments")
}

func (c *Client) GetInstallment(ctx context.Context, installmentID string) (*domain.CommissionInstallment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetInstallment")
	defer span.End()

	body, err := c.query(ctx, "commission_installments", fmt.Sprintf("commission_installments?id=%s&limit=1", eq(installmentID)))
	if err != nil {
		return nil, err
	}
	inst, err := decodeFirst[domain.CommissionInstallment](body, "commission_installment")
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, &domain.ErrNotFound{Resource: "installment", ID: installmentID}
	}
	return inst, nil
}

func (c *Client) UpdateInstallment(ctx context.Context, installmentID string, updates map[string]any) (*domain.CommissionInstallment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateInstallment")
	defer span.End()

	var body []byte
	err := c.mutate(ctx, "commission_installments", func() (err error) {
		body, err = c.doPatch(ctx, "commission_installments?id="+eq(installmentID), updates)
		return err
	})
	if err != nil {
		return nil, err
	}
	inst, err := decodeFirst[domain.CommissionInstallment](body, "commission_installment")
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, &domain.ErrNotFound{Resource: "installment", ID: installmentID}
	}
	return inst, nil
}

func (c *Client) ListInstallmentsByTransaction(ctx context.Context, transactionID string) ([]domain.CommissionInstallment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListInstallmentsByTransaction")
	defer span.End()

	path := fmt.Sprintf("commission_installments?transaction_id=%s&order=installment_number.asc", eq(transactionID))
	body, err := c.query(ctx, "commission_installments", path)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.CommissionInstallment](body, "commission_installments")
}

func (c *Client) ListInstallmentsByAgent(ctx context.Context, agentID string) ([]domain.CommissionInstallment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListInstallmentsByAgent")
	defer span.End()

	path := fmt.Sprintf("commission_installments?agent_id=%s&order=scheduled_date.asc", eq(agentID))
	body, err := c.query(ctx, "commission_installments", path)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.CommissionInstallment](body, "commission_installments")
}

// ListInstallmentsDue returns installments scheduled within [from, to] with the given status.
func (c *Client) ListInstallmentsDue(ctx context.Context, from, to time.Time, status string) ([]domain.CommissionInstallment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListInstallmentsDue")
	defer span.End()

	path := fmt.Sprintf("commission_installments?scheduled_date=gte.%s&scheduled_date=lte.%s&status=%s&order=scheduled_date.asc",
		from.Format("2006-01-02"), to.Format("2006-01-02"), eq(status))
	body, err := c.query(ctx, "commission_installments", path)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.CommissionInstallment](body, "commission_installments")
}

// --- Forecast projections ---

func (c *Client) DeleteProjections(ctx context.Context, agentID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteProjections")
	defer span.End()

	return c.mutate(ctx, "forecast_projections", func() error {
		return c.doDelete(ctx, "forecast_projections?agent_id="+eq(agentID))
	})
}

func (c *Client) InsertProjections(ctx context.Context, rows []domain.ForecastProjection) ([]domain.ForecastProjection, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertProjections")
	defer span.End()
	span.SetAttributes(attribute.Int("projections.count", len(rows)))

	payload := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		payload = append(payload, map[string]any{
			"projected_transaction_id": r.ProjectedTransactionID,
			"agent_id":                 r.AgentID,
			"installment_number":       r.InstallmentNumber,
			"amount":                   r.Amount,
			"percentage":               r.Percentage,
			"scheduled_date":           r.ScheduledDate,
			"transaction_date":         r.TransactionDate,
			"status":                   r.Status,
		})
	}

	var body []byte
	err := c.mutate(ctx, "forecast_projections", func() (err error) {
		body, err = c.doPost(ctx, "forecast_projections", payload)
		return err
	})
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.ForecastProjection](body, "forecast_projections")
}
