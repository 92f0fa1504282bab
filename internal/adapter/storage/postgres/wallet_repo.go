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

const walletColumns = `id, branch_id, name, provider, status, balance, opening_balance,
	daily_limit, monthly_limit, min_transaction_amount, max_transaction_amount,
	commission_percentage, min_commission, max_commission, can_send, can_receive, created_at, updated_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet into the database.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.BranchID, w.Name, w.Provider, w.Status, w.Balance, w.OpeningBalance,
		w.DailyLimit, w.MonthlyLimit, w.MinTransactionAmount, w.MaxTransactionAmount,
		w.CommissionPercentage, w.MinCommission, w.MaxCommission, w.CanSend, w.CanReceive,
		w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID.
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by id: %w", err)
	}
	return w, nil
}

// ListByBranch returns every wallet of a branch, oldest first.
func (r *WalletRepo) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE branch_id = $1 ORDER BY created_at`
	return r.list(ctx, query, branchID)
}

// ListAll returns every wallet.
func (r *WalletRepo) ListAll(ctx context.Context) ([]domain.Wallet, error) {
	return r.list(ctx, `SELECT `+walletColumns+` FROM wallets ORDER BY created_at`)
}

// IncrementBalance adds delta to the wallet balance in one statement and returns the new balance.
func (r *WalletRepo) IncrementBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	query := `UPDATE wallets SET balance = balance + $1, updated_at = NOW() WHERE id = $2 RETURNING balance`

	var balance decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, delta, id).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("wallet %s: %w", id, ports.ErrRowNotFound)
		}
		return decimal.Zero, fmt.Errorf("increment wallet balance: %w", err)
	}
	return balance, nil
}

func (r *WalletRepo) list(ctx context.Context, query string, args ...any) ([]domain.Wallet, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		wallets = append(wallets, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}
	return wallets, nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.BranchID, &w.Name, &w.Provider, &w.Status, &w.Balance, &w.OpeningBalance,
		&w.DailyLimit, &w.MonthlyLimit, &w.MinTransactionAmount, &w.MaxTransactionAmount,
		&w.CommissionPercentage, &w.MinCommission, &w.MaxCommission, &w.CanSend, &w.CanReceive,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}
