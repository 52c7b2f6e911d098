// Package infra boots the Postgres database used by tracker store
// integration tests.
package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"claimdesk/claim"
	"claimdesk/db"
	"claimdesk/trackerstore"
)

// Harness owns the lifecycle of the test database and its pool.
type Harness struct {
	container *PGContainer
	pool      *pgxpool.Pool
}

// NewHarness starts (or reuses) Postgres and applies the tracker schema.
func NewHarness(ctx context.Context) (*Harness, error) {
	container, dsn, err := StartPostgres(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("start postgres: %w", err)
	}

	pool, err := db.NewPool(ctx, dsn, db.WithMaxConns(8), db.WithConnLifetime(30*time.Second, 5*time.Minute))
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("create pool: %w", err)
	}

	h := &Harness{container: container, pool: pool}
	if err := trackerstore.Migrate(ctx, pool); err != nil {
		h.Close(ctx)
		return nil, err
	}
	return h, nil
}

// Pool exposes the configured pgx pool.
func (h *Harness) Pool() *pgxpool.Pool {
	return h.pool
}

// Seed stores recs through the tracker service, in order, and returns them
// with their assigned ids.
func (h *Harness) Seed(ctx context.Context, recs ...claim.Record) ([]claim.Record, error) {
	svc := trackerstore.NewService(trackerstore.NewRepository(h.pool))
	out := make([]claim.Record, 0, len(recs))
	for _, rec := range recs {
		stored, err := svc.Create(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("seed claim for %s: %w", rec.MobileNo, err)
		}
		out = append(out, stored)
	}
	return out, nil
}

// Close tears down resources.
func (h *Harness) Close(ctx context.Context) {
	if h.pool != nil {
		h.pool.Close()
	}
	_ = h.container.Terminate(ctx)
}

// Reset empties the claims table.
func (h *Harness) Reset(ctx context.Context) error {
	if _, err := h.pool.Exec(ctx, "TRUNCATE TABLE claims"); err != nil {
		return fmt.Errorf("truncate claims: %w", err)
	}
	return nil
}
