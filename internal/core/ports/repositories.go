package ports

//go:generate mockgen -source=repositories.go -destination=mocks/repositories_mock.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrRowNotFound is returned by increment operations when the target row does not exist.
var ErrRowNotFound = errors.New("row not found")

// WalletRepository defines persistence operations for wallets.
// Balance changes go through IncrementBalance only; it is a single atomic
// `balance = balance + delta` statement, never a read-modify-write.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]domain.Wallet, error)
	ListAll(ctx context.Context) ([]domain.Wallet, error)
	IncrementBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
}

// BranchRepository defines persistence operations for branch cash accounts.
type BranchRepository interface {
	Create(ctx context.Context, branch *domain.Branch) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Branch, error)
	ListAll(ctx context.Context) ([]domain.Branch, error)
	IncrementCash(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	IncrementFees(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
}

// TransactionRepository defines persistence operations for transactions.
type TransactionRepository interface {
	Create(ctx context.Context, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, updatedAt time.Time) error
	UpdateAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal, status domain.TransactionStatus, updatedAt time.Time) error
	// SumAmountsSince totals transaction amounts per source wallet created at or after since.
	SumAmountsSince(ctx context.Context, since time.Time) (map[uuid.UUID]decimal.Decimal, error)
	// LatestWalletForBranch returns the wallet of the newest transaction in the branch, or nil.
	LatestWalletForBranch(ctx context.Context, branchID uuid.UUID) (*uuid.UUID, error)
	ListAll(ctx context.Context) ([]domain.Transaction, error)
}

// ErrDuplicateTransaction is returned by TransactionRepository.Create when the id is taken.
var ErrDuplicateTransaction = errors.New("transaction id already exists")

// AuditFilter narrows an audit log listing. Zero values mean "any".
type AuditFilter struct {
	TransactionID *uuid.UUID
	BranchID      *uuid.UUID
	Limit         int
}

// AuditRepository is append-only: there is no update or delete.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error)
}

// FeeRepository persists the earned-fee ledger.
type FeeRepository interface {
	Create(ctx context.Context, entry *domain.FeeEntry) error
	ListAll(ctx context.Context) ([]domain.FeeEntry, error)
}

// CashTransactionRepository persists branch cash movements.
type CashTransactionRepository interface {
	Create(ctx context.Context, ct *domain.CashTransaction) error
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]domain.CashTransaction, error)
	ListAll(ctx context.Context) ([]domain.CashTransaction, error)
}

// BackupRepository stores encrypted ledger snapshots.
type BackupRepository interface {
	Create(ctx context.Context, backup *domain.Backup) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Backup, error)
	// List returns backups newest first, without payloads.
	List(ctx context.Context) ([]domain.Backup, error)
}

// SnapshotRestorer writes a whole snapshot back in one database transaction.
type SnapshotRestorer interface {
	Restore(ctx context.Context, snapshot *domain.Snapshot) error
}

// Locker serializes operations that touch the same ledger rows.
// Lock blocks until every key is held or ctx is done.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}
