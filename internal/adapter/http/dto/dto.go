package dto

import (
	"wallet-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// Amounts are decoded by decimal.Decimal, which accepts both JSON numbers
// and strings. Range checks on them happen in the services.

// CreateBranchRequest is the request body for a new branch.
type CreateBranchRequest struct {
	Name           string          `json:"name" binding:"required,max=100"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// CreateWalletRequest is the request body for a new wallet.
type CreateWalletRequest struct {
	BranchID             string          `json:"branch_id" binding:"required,uuid"`
	Name                 string          `json:"name" binding:"required,max=100"`
	Provider             string          `json:"provider" binding:"required,max=50"`
	Status               string          `json:"status" binding:"omitempty,wallet_status"`
	OpeningBalance       decimal.Decimal `json:"opening_balance"`
	DailyLimit           decimal.Decimal `json:"daily_limit"`
	MonthlyLimit         decimal.Decimal `json:"monthly_limit"`
	MinTransactionAmount decimal.Decimal `json:"min_transaction_amount"`
	MaxTransactionAmount decimal.Decimal `json:"max_transaction_amount"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	MinCommission        decimal.Decimal `json:"min_commission"`
	MaxCommission        decimal.Decimal `json:"max_commission"`
	CanSend              *bool           `json:"can_send,omitempty"`
	CanReceive           *bool           `json:"can_receive,omitempty"`
}

// AdjustBalanceRequest is the request body for a manual balance correction.
type AdjustBalanceRequest struct {
	Delta  decimal.Decimal `json:"delta"`
	Reason string          `json:"reason" binding:"required,max=500"`
}

// CreateTransactionRequest is the request body for a new transaction.
// ID is optional; the server assigns one when it is empty.
type CreateTransactionRequest struct {
	ID            string          `json:"id" binding:"omitempty,uuid"`
	Type          string          `json:"type" binding:"required,tx_type" sanitize:"-"`
	Status        string          `json:"status" binding:"omitempty,oneof=Draft Pending Approved Rejected"`
	Amount        decimal.Decimal `json:"amount"`
	FeePercentage decimal.Decimal `json:"fee_percentage"`
	Fee           decimal.Decimal `json:"fee"`
	WalletID      string          `json:"wallet_id" binding:"required,uuid"`
	ToWalletID    *string         `json:"to_wallet_id,omitempty" binding:"omitempty,uuid"`
	BranchID      string          `json:"branch_id" binding:"required,uuid"`
	Source        *string         `json:"source,omitempty" binding:"omitempty,max=100"`
	Notes         *string         `json:"notes,omitempty" binding:"omitempty,max=1000"`
}

// SetStatusRequest is the request body for approving or rejecting a transaction.
type SetStatusRequest struct {
	Status          string  `json:"status" binding:"required"`
	RejectionReason *string `json:"rejection_reason,omitempty" binding:"omitempty,max=500"`
}

// EditAmountRequest is the request body for correcting a transaction amount.
type EditAmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" binding:"required,max=500"`
}

// CreateCashTransactionRequest is the request body for a branch cash movement.
type CreateCashTransactionRequest struct {
	BranchID      string          `json:"branch_id" binding:"required,uuid"`
	WalletID      *string         `json:"wallet_id,omitempty" binding:"omitempty,uuid"`
	Type          string          `json:"type" binding:"required,cash_type" sanitize:"-"`
	FundingSource string          `json:"funding_source" binding:"required,oneof=Cash Wallet"`
	Amount        decimal.Decimal `json:"amount"`
	Notes         *string         `json:"notes,omitempty" binding:"omitempty,max=1000"`
}

// CreateBackupRequest is the request body for an on-demand backup.
type CreateBackupRequest struct {
	Name string `json:"name" binding:"omitempty,max=100,safe_id"`
	Kind string `json:"kind" binding:"omitempty,oneof=manual automatic"`
}

// SuggestionsQuery holds the query string of the wallet suggestion endpoint.
type SuggestionsQuery struct {
	Type         string `form:"type" binding:"required,tx_type"`
	Amount       string `form:"amount" binding:"required"`
	SafetyMargin string `form:"safety_margin"`
}

// AuditQuery holds the query string of the audit listing.
type AuditQuery struct {
	TransactionID string `form:"transaction_id" binding:"omitempty,uuid"`
	BranchID      string `form:"branch_id" binding:"omitempty,uuid"`
	Limit         int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// SuggestionsResponse lists ranked wallets; Recommended is the first
// feasible one, if any.
type SuggestionsResponse struct {
	Suggestions []domain.Suggestion `json:"suggestions"`
	Recommended *string             `json:"recommended_wallet_id"`
}

// LatestWalletResponse names the wallet used by the branch's newest transaction.
type LatestWalletResponse struct {
	WalletID *string `json:"wallet_id"`
}

// RestoreResponse reports how many rows each table received.
type RestoreResponse struct {
	BackupID string         `json:"backup_id"`
	Restored map[string]int `json:"restored"`
}

// ListResponse wraps a collection.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// NewListResponse never returns a nil Items slice.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}
