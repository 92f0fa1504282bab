package postgres

import (
	"context"
	"errors"
	"fmt"
)

var errSchemaMissing = errors.New("ledger schema not migrated")

// HealthCheck reports the database healthy when it answers and the ledger
// tables exist.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	var migrated bool
	err := h.pool.QueryRow(ctx,
		`SELECT to_regclass('public.transactions') IS NOT NULL`,
	).Scan(&migrated)
	if err != nil {
		return fmt.Errorf("pinging postgres: %w", err)
	}
	if !migrated {
		return errSchemaMissing
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "postgresql"
}
