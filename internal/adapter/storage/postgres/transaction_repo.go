package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, type, status, amount, fee_percentage, fee, wallet_id, to_wallet_id,
	branch_id, employee_id, source, notes, created_at, updated_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new transaction. A taken id yields ports.ErrDuplicateTransaction.
func (r *TransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.Type, t.Status, t.Amount, t.FeePercentage, t.FeeAmount, t.WalletID, t.ToWalletID,
		t.BranchID, t.EmployeeID, t.Source, t.Notes, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicateTransaction
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// UpdateStatus sets the approval status of a transaction. updatedAt comes
// from the caller so the row matches the struct it returns.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, updatedAt time.Time) error {
	query := `UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, status, updatedAt, id)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", id, ports.ErrRowNotFound)
	}
	return nil
}

// UpdateAmount replaces the amount and status of a transaction.
func (r *TransactionRepo) UpdateAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal, status domain.TransactionStatus, updatedAt time.Time) error {
	query := `UPDATE transactions SET amount = $1, status = $2, updated_at = $3 WHERE id = $4`

	tag, err := r.pool.Exec(ctx, query, amount, status, updatedAt, id)
	if err != nil {
		return fmt.Errorf("update transaction amount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", id, ports.ErrRowNotFound)
	}
	return nil
}

// SumAmountsSince totals amounts per source wallet for transactions created at or after since.
// Every status counts.
func (r *TransactionRepo) SumAmountsSince(ctx context.Context, since time.Time) (map[uuid.UUID]decimal.Decimal, error) {
	query := `SELECT wallet_id, COALESCE(SUM(amount), 0) FROM transactions
		WHERE created_at >= $1 GROUP BY wallet_id`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("sum transaction amounts: %w", err)
	}
	defer rows.Close()

	totals := make(map[uuid.UUID]decimal.Decimal)
	for rows.Next() {
		var walletID uuid.UUID
		var total decimal.Decimal
		if err := rows.Scan(&walletID, &total); err != nil {
			return nil, fmt.Errorf("scan transaction total: %w", err)
		}
		totals[walletID] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction totals: %w", err)
	}
	return totals, nil
}

// LatestWalletForBranch returns the wallet of the most recently created transaction in a branch.
func (r *TransactionRepo) LatestWalletForBranch(ctx context.Context, branchID uuid.UUID) (*uuid.UUID, error) {
	query := `SELECT wallet_id FROM transactions WHERE branch_id = $1 ORDER BY created_at DESC LIMIT 1`

	var walletID uuid.UUID
	if err := r.pool.QueryRow(ctx, query, branchID).Scan(&walletID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest wallet for branch: %w", err)
	}
	return &walletID, nil
}

// ListAll returns every transaction, oldest first.
func (r *TransactionRepo) ListAll(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.Type, &t.Status, &t.Amount, &t.FeePercentage, &t.FeeAmount, &t.WalletID, &t.ToWalletID,
		&t.BranchID, &t.EmployeeID, &t.Source, &t.Notes, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
