package supabase

import (
	"context"

	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/resilience"
)

// callRPC invokes a Postgres function through PostgREST. The functions used
// here are read-only, so they get the same retry treatment as queries.
func (c *Client) callRPC(ctx context.Context, fn string, args map[string]any) ([]byte, error) {
	var body []byte
	err := c.guard(ctx, "rpc/"+fn, func() error {
		return resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			b, err := c.doPost(ctx, "rpc/"+fn, args)
			if err != nil {
				return markPermanent(err)
			}
			body = b
			return nil
		})
	})
	return body, err
}
