package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletStatus represents the operating state of a wallet.
type WalletStatus string

const (
	WalletStatusActive      WalletStatus = "active"
	WalletStatusFrozen      WalletStatus = "frozen"
	WalletStatusArchived    WalletStatus = "archived"
	WalletStatusReceiveOnly WalletStatus = "receive_only"
	WalletStatusSendOnly    WalletStatus = "send_only"
)

// ParseWalletStatus returns the WalletStatus matching s exactly.
func ParseWalletStatus(s string) (WalletStatus, error) {
	switch st := WalletStatus(s); st {
	case WalletStatusActive, WalletStatusFrozen, WalletStatusArchived,
		WalletStatusReceiveOnly, WalletStatusSendOnly:
		return st, nil
	}
	return "", fmt.Errorf("unknown wallet status %q", s)
}

// DefaultDirections derives the send/receive flags a new wallet gets from its status.
func DefaultDirections(status WalletStatus) (canSend, canReceive bool) {
	return status != WalletStatusReceiveOnly, status != WalletStatusSendOnly
}

// Wallet is an electronic-money account held at a branch.
// Balance only moves through approved transactions or audited manual adjustments.
type Wallet struct {
	ID                   uuid.UUID       `json:"id"`
	BranchID             uuid.UUID       `json:"branch_id"`
	Name                 string          `json:"name"`
	Provider             string          `json:"provider"`
	Status               WalletStatus    `json:"status"`
	Balance              decimal.Decimal `json:"balance"`
	OpeningBalance       decimal.Decimal `json:"opening_balance"`
	DailyLimit           decimal.Decimal `json:"daily_limit"`
	MonthlyLimit         decimal.Decimal `json:"monthly_limit"`
	MinTransactionAmount decimal.Decimal `json:"min_transaction_amount"`
	MaxTransactionAmount decimal.Decimal `json:"max_transaction_amount"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	MinCommission        decimal.Decimal `json:"min_commission"`
	MaxCommission        decimal.Decimal `json:"max_commission"`
	CanSend              bool            `json:"can_send"`
	CanReceive           bool            `json:"can_receive"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Accepts reports whether the wallet is open for the given direction.
func (w *Wallet) Accepts(d Direction) bool {
	switch d {
	case DirectionReceive:
		return w.CanReceive
	case DirectionSend:
		return w.CanSend
	}
	return false
}
