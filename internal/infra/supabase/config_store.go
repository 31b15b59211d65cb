package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
)

// ============================================================
// System configuration (implements port.ConfigStore)
// ============================================================

type systemConfigRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (c *Client) GetSystemConfig(ctx context.Context, key string) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetSystemConfig")
	defer span.End()

	body, err := c.query(ctx, "system_configuration", fmt.Sprintf("system_configuration?key=%s&select=key,value&limit=1", eq(key)))
	if err != nil {
		return "", err
	}
	row, err := decodeFirst[systemConfigRow](body, "system_configuration")
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", &domain.ErrNotFound{Resource: "system_configuration", ID: key}
	}
	return row.Value, nil
}

// SetSystemConfig upserts a key on its primary key.
func (c *Client) SetSystemConfig(ctx context.Context, key, value string) error {
	ctx, span := tracer.Start(ctx, "Supabase.SetSystemConfig")
	defer span.End()

	row := map[string]any{
		"key":        key,
		"value":      value,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	return c.mutate(ctx, "system_configuration", func() error {
		_, err := c.doUpsert(ctx, "system_configuration?on_conflict=key", row)
		return err
	})
}
