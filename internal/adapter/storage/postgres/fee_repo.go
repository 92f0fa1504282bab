package postgres

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"
)

// FeeRepo implements ports.FeeRepository over the earned_fees table.
type FeeRepo struct {
	pool Pool
}

// NewFeeRepo creates a new FeeRepo.
func NewFeeRepo(pool Pool) *FeeRepo {
	return &FeeRepo{pool: pool}
}

// Create inserts one earned-fee row.
func (r *FeeRepo) Create(ctx context.Context, f *domain.FeeEntry) error {
	query := `INSERT INTO earned_fees (id, transaction_id, branch_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.pool.Exec(ctx, query, f.ID, f.TransactionID, f.BranchID, f.Amount, f.CreatedAt); err != nil {
		return fmt.Errorf("insert earned fee: %w", err)
	}
	return nil
}

// ListAll returns the whole fee ledger, oldest first.
func (r *FeeRepo) ListAll(ctx context.Context) ([]domain.FeeEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, transaction_id, branch_id, amount, created_at FROM earned_fees ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list earned fees: %w", err)
	}
	defer rows.Close()

	var fees []domain.FeeEntry
	for rows.Next() {
		var f domain.FeeEntry
		if err := rows.Scan(&f.ID, &f.TransactionID, &f.BranchID, &f.Amount, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan earned fee row: %w", err)
		}
		fees = append(fees, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate earned fee rows: %w", err)
	}
	return fees, nil
}
