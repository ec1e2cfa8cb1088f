package wavecast

import (
	"context"

	"github.com/wavecast/wavecast-go/pkg/access"
	"github.com/wavecast/wavecast-go/pkg/metrics"
)

// Grant requests a scoped access-manager token for req, spec.md §8
// scenario 6. Requests are signed only when the client was configured
// with a secret key; otherwise they go out unsigned and it is up to
// the deployment whether the server accepts them.
func (c *Client) Grant(ctx context.Context, req *access.GrantRequest) (string, error) {
	outcome := "error"
	defer func() { metrics.GrantRequestsTotal.WithLabelValues(outcome).Inc() }()

	token, err := c.access.Grant(ctx, req)
	if err != nil {
		return "", err
	}
	outcome = "ok"
	return token, nil
}

// Revoke invalidates a previously granted token.
func (c *Client) Revoke(ctx context.Context, token string) error {
	outcome := "error"
	defer func() { metrics.GrantRequestsTotal.WithLabelValues(outcome).Inc() }()

	if err := c.access.Revoke(ctx, token); err != nil {
		return err
	}
	outcome = "ok"
	return nil
}
