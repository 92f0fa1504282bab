package postgres

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const cashColumns = `id, branch_id, wallet_id, employee_id, type, funding_source, amount, notes, created_at`

// CashTransactionRepo implements ports.CashTransactionRepository.
type CashTransactionRepo struct {
	pool Pool
}

// NewCashTransactionRepo creates a new CashTransactionRepo.
func NewCashTransactionRepo(pool Pool) *CashTransactionRepo {
	return &CashTransactionRepo{pool: pool}
}

// Create inserts a branch cash movement.
func (r *CashTransactionRepo) Create(ctx context.Context, ct *domain.CashTransaction) error {
	query := `INSERT INTO cash_transactions (` + cashColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		ct.ID, ct.BranchID, ct.WalletID, ct.EmployeeID, ct.Type, ct.FundingSource,
		ct.Amount, ct.Notes, ct.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert cash transaction: %w", err)
	}
	return nil
}

// ListByBranch returns a branch's cash movements, newest first.
func (r *CashTransactionRepo) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]domain.CashTransaction, error) {
	query := `SELECT ` + cashColumns + ` FROM cash_transactions WHERE branch_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, branchID)
	if err != nil {
		return nil, fmt.Errorf("list cash transactions: %w", err)
	}
	return collectCashTransactions(rows)
}

// ListAll returns every cash movement, oldest first.
func (r *CashTransactionRepo) ListAll(ctx context.Context) ([]domain.CashTransaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+cashColumns+` FROM cash_transactions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list cash transactions: %w", err)
	}
	return collectCashTransactions(rows)
}

func collectCashTransactions(rows pgx.Rows) ([]domain.CashTransaction, error) {
	defer rows.Close()

	var out []domain.CashTransaction
	for rows.Next() {
		var ct domain.CashTransaction
		err := rows.Scan(
			&ct.ID, &ct.BranchID, &ct.WalletID, &ct.EmployeeID, &ct.Type, &ct.FundingSource,
			&ct.Amount, &ct.Notes, &ct.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cash transaction row: %w", err)
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cash transaction rows: %w", err)
	}
	return out, nil
}
