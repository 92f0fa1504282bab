package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const branchColumns = `id, name, status, opening_balance, cash_balance, earned_fees_balance, created_at, updated_at`

// BranchRepo implements ports.BranchRepository.
type BranchRepo struct {
	pool Pool
}

// NewBranchRepo creates a new BranchRepo.
func NewBranchRepo(pool Pool) *BranchRepo {
	return &BranchRepo{pool: pool}
}

// Create inserts a new branch cash account.
func (r *BranchRepo) Create(ctx context.Context, b *domain.Branch) error {
	query := `INSERT INTO branches (` + branchColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		b.ID, b.Name, b.Status, b.OpeningBalance, b.CashBalance, b.EarnedFeesBalance,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert branch: %w", err)
	}
	return nil
}

// GetByID fetches a branch by its UUID.
func (r *BranchRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Branch, error) {
	query := `SELECT ` + branchColumns + ` FROM branches WHERE id = $1`

	b, err := scanBranch(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get branch by id: %w", err)
	}
	return b, nil
}

// ListAll returns every branch.
func (r *BranchRepo) ListAll(ctx context.Context) ([]domain.Branch, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+branchColumns+` FROM branches ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()

	var branches []domain.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan branch row: %w", err)
		}
		branches = append(branches, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate branch rows: %w", err)
	}
	return branches, nil
}

// IncrementCash adds delta to the branch cash balance and returns the new value.
func (r *BranchRepo) IncrementCash(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	return r.increment(ctx,
		`UPDATE branches SET cash_balance = cash_balance + $1, updated_at = NOW() WHERE id = $2 RETURNING cash_balance`,
		id, delta)
}

// IncrementFees adds delta to the earned fees balance and returns the new value.
func (r *BranchRepo) IncrementFees(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	return r.increment(ctx,
		`UPDATE branches SET earned_fees_balance = earned_fees_balance + $1, updated_at = NOW() WHERE id = $2 RETURNING earned_fees_balance`,
		id, delta)
}

func (r *BranchRepo) increment(ctx context.Context, query string, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var value decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, delta, id).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("branch %s: %w", id, ports.ErrRowNotFound)
		}
		return decimal.Zero, fmt.Errorf("increment branch balance: %w", err)
	}
	return value, nil
}

func scanBranch(row pgx.Row) (*domain.Branch, error) {
	b := &domain.Branch{}
	err := row.Scan(
		&b.ID, &b.Name, &b.Status, &b.OpeningBalance, &b.CashBalance, &b.EarnedFeesBalance,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}
