package supabase

import (
	"context"
	"fmt"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Property transactions (implements port.TransactionStore)
// ============================================================

func (c *Client) CreateTransaction(ctx context.Context, tx *domain.PropertyTransaction) (*domain.PropertyTransaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("agent.id", tx.AgentID))

	row := map[string]any{
		"property_id":            tx.PropertyID,
		"agent_id":               tx.AgentID,
		"transaction_type":       tx.TransactionType,
		"transaction_date":       tx.TransactionDate,
		"transaction_value":      tx.TransactionValue,
		"commission_rate":        tx.CommissionRate,
		"commission_amount":      tx.CommissionAmount,
		"agent_percentage":       tx.AgentPercentage,
		"agent_share":            tx.AgentShare,
		"agency_share":           tx.AgencyShare,
		"co_broking":             tx.CoBroking,
		"co_agency_name":         tx.CoAgencyName,
		"co_broking_split":       tx.CoBrokingSplit,
		"buyer_name":             tx.BuyerName,
		"seller_name":            tx.SellerName,
		"payment_schedule_id":    tx.PaymentScheduleID,
		"installments_generated": false,
		"status":                 tx.Status,
		"notes":                  tx.Notes,
	}

	var body []byte
	err := c.mutate(ctx, "property_transactions", func() (err error) {
		body, err = c.doPost(ctx, "property_transactions", row)
		return err
	})
	if err != nil {
		return nil, err
	}
	created, err := decodeFirst[domain.PropertyTransaction](body, "property_transaction")
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("no result from property_transactions insert")
	}
	return created, nil
}

func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*domain.PropertyTransaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", transactionID))

	body, err := c.query(ctx, "property_transactions", fmt.Sprintf("property_transactions?id=%s&limit=1", eq(transactionID)))
	if err != nil {
		return nil, err
	}
	tx, err := decodeFirst[domain.PropertyTransaction](body, "property_transaction")
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}
	return tx, nil
}

func (c *Client) ListTransactionsByAgent(ctx context.Context, agentID string, limit int) ([]domain.PropertyTransaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTransactionsByAgent")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}
	path := fmt.Sprintf("property_transactions?agent_id=%s&order=created_at.desc&limit=%d", eq(agentID), limit)
	body, err := c.query(ctx, "property_transactions", path)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.PropertyTransaction](body, "property_transactions")
}

func (c *Client) MarkInstallmentsGenerated(ctx context.Context, transactionID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.MarkInstallmentsGenerated")
	defer span.End()

	return c.mutate(ctx, "property_transactions", func() error {
		_, err := c.doPatch(ctx, "property_transactions?id="+eq(transactionID), map[string]any{
			"installments_generated": true,
		})
		return err
	})
}
