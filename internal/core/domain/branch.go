package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BranchStatus represents the state of a branch cash account.
type BranchStatus string

const (
	BranchStatusActive BranchStatus = "active"
	BranchStatusClosed BranchStatus = "closed"
)

// Branch holds the physical cash till of a branch and its earned fees.
type Branch struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	Status            BranchStatus    `json:"status"`
	OpeningBalance    decimal.Decimal `json:"opening_balance"`
	CashBalance       decimal.Decimal `json:"cash_balance"`
	EarnedFeesBalance decimal.Decimal `json:"earned_fees_balance"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// IsActive returns true if the branch is open.
func (b *Branch) IsActive() bool {
	return b.Status == BranchStatusActive
}
