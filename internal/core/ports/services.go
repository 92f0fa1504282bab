package ports

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BackupCipher seals and opens backup payloads (AES-256-GCM).
type BackupCipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(actorID uuid.UUID, role string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	ActorID uuid.UUID
	Role    string
}

// Roles carried in tokens.
const (
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

// --- Service Ports (Business Logic) ---

// RankingService picks wallets able to carry a requested transaction.
type RankingService interface {
	RankWallets(ctx context.Context, req RankRequest) ([]domain.Suggestion, error)
	LatestUsedWallet(ctx context.Context, branchID uuid.UUID) (*uuid.UUID, error)
}

// RankRequest holds input for wallet ranking.
type RankRequest struct {
	Type         string
	Amount       decimal.Decimal
	BranchID     uuid.UUID
	SafetyMargin decimal.Decimal
}

// TransactionService creates transactions and moves them through approval.
type TransactionService interface {
	CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*domain.Transaction, error)
	SetTransactionStatus(ctx context.Context, req SetStatusRequest) (*domain.Transaction, error)
	EditTransactionAmount(ctx context.Context, req EditAmountRequest) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
}

// CreateTransactionRequest holds input for a new transaction.
type CreateTransactionRequest struct {
	ID            uuid.UUID
	Type          string
	Status        string
	Amount        decimal.Decimal
	FeePercentage decimal.Decimal
	FeeAmount     decimal.Decimal
	WalletID      uuid.UUID
	ToWalletID    *uuid.UUID
	BranchID      uuid.UUID
	EmployeeID    uuid.UUID
	Source        *string
	Notes         *string
}

// SetStatusRequest holds input for approving or rejecting a transaction.
type SetStatusRequest struct {
	ID              uuid.UUID
	Status          string
	ActorID         *uuid.UUID
	RejectionReason *string
}

// EditAmountRequest holds input for correcting a transaction amount.
type EditAmountRequest struct {
	ID      uuid.UUID
	Amount  decimal.Decimal
	ActorID *uuid.UUID
	Reason  string
}

// AuditService writes and reads the audit trail.
type AuditService interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error)
}

// WalletService manages wallets and manual balance adjustments.
type WalletService interface {
	CreateWallet(ctx context.Context, req CreateWalletRequest) (*domain.Wallet, error)
	GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	ListWallets(ctx context.Context, branchID uuid.UUID) ([]domain.Wallet, error)
	AdjustBalance(ctx context.Context, req AdjustBalanceRequest) (*domain.Wallet, error)
}

// CreateWalletRequest holds input for a new wallet.
type CreateWalletRequest struct {
	BranchID             uuid.UUID
	Name                 string
	Provider             string
	Status               string
	OpeningBalance       decimal.Decimal
	DailyLimit           decimal.Decimal
	MonthlyLimit         decimal.Decimal
	MinTransactionAmount decimal.Decimal
	MaxTransactionAmount decimal.Decimal
	CommissionPercentage decimal.Decimal
	MinCommission        decimal.Decimal
	MaxCommission        decimal.Decimal
	CanSend              *bool
	CanReceive           *bool
}

// AdjustBalanceRequest holds input for a manual balance correction.
type AdjustBalanceRequest struct {
	WalletID uuid.UUID
	Delta    decimal.Decimal
	ActorID  *uuid.UUID
	Reason   string
}

// BranchService manages branch cash accounts.
type BranchService interface {
	CreateBranch(ctx context.Context, req CreateBranchRequest) (*domain.Branch, error)
	GetBranch(ctx context.Context, id uuid.UUID) (*domain.Branch, error)
}

// CreateBranchRequest holds input for a new branch.
type CreateBranchRequest struct {
	Name           string
	OpeningBalance decimal.Decimal
}

// CashService records branch cash movements.
type CashService interface {
	CreateCashTransaction(ctx context.Context, req CreateCashTransactionRequest) (*domain.CashTransaction, error)
	ListCashTransactions(ctx context.Context, branchID uuid.UUID) ([]domain.CashTransaction, error)
}

// CreateCashTransactionRequest holds input for a branch cash movement.
type CreateCashTransactionRequest struct {
	BranchID      uuid.UUID
	WalletID      *uuid.UUID
	EmployeeID    uuid.UUID
	Type          string
	FundingSource string
	Amount        decimal.Decimal
	Notes         *string
}

// BackupService exports and restores encrypted ledger snapshots.
type BackupService interface {
	CreateBackup(ctx context.Context, name string, kind domain.BackupKind, createdBy *uuid.UUID) (*domain.Backup, error)
	ListBackups(ctx context.Context) ([]domain.Backup, error)
	RestoreBackup(ctx context.Context, id uuid.UUID) (map[string]int, error)
}
