package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement at a branch.
type TransactionType string

const (
	TransactionTypeCashOut          TransactionType = "Cash Out"
	TransactionTypeCashIn           TransactionType = "Cash In"
	TransactionTypeIncomingTransfer TransactionType = "Incoming Transfer"
	TransactionTypeInternalTransfer TransactionType = "Internal Transfer"
	TransactionTypeBankDeposit      TransactionType = "ATM/Bank Deposit"
)

// TransactionTypes lists every supported transaction type.
var TransactionTypes = []TransactionType{
	TransactionTypeCashOut,
	TransactionTypeCashIn,
	TransactionTypeIncomingTransfer,
	TransactionTypeInternalTransfer,
	TransactionTypeBankDeposit,
}

// ParseTransactionType returns the TransactionType matching s exactly.
func ParseTransactionType(s string) (TransactionType, error) {
	for _, t := range TransactionTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// Direction is the flow of funds relative to the wallet.
type Direction int

const (
	// DirectionReceive means money flows into the wallet.
	DirectionReceive Direction = iota + 1
	// DirectionSend means money flows out of the wallet.
	DirectionSend
)

func (d Direction) String() string {
	switch d {
	case DirectionReceive:
		return "receive"
	case DirectionSend:
		return "send"
	}
	return "unknown"
}

// Direction reports whether the wallet has to receive or send funds for this type.
func (t TransactionType) Direction() Direction {
	switch t {
	case TransactionTypeCashOut, TransactionTypeIncomingTransfer, TransactionTypeBankDeposit:
		return DirectionReceive
	case TransactionTypeCashIn, TransactionTypeInternalTransfer:
		return DirectionSend
	}
	return 0
}

// TransactionStatus represents the approval state of a transaction.
type TransactionStatus string

const (
	TransactionStatusDraft    TransactionStatus = "Draft"
	TransactionStatusPending  TransactionStatus = "Pending"
	TransactionStatusApproved TransactionStatus = "Approved"
	TransactionStatusRejected TransactionStatus = "Rejected"
)

// ParseTransactionStatus returns the TransactionStatus matching s exactly.
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch st := TransactionStatus(s); st {
	case TransactionStatusDraft, TransactionStatusPending, TransactionStatusApproved, TransactionStatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown transaction status %q", s)
}

// Transaction is a unit of financial activity recorded against a wallet.
// Rows are never deleted.
type Transaction struct {
	ID            uuid.UUID         `json:"id"`
	Type          TransactionType   `json:"type"`
	Status        TransactionStatus `json:"status"`
	Amount        decimal.Decimal   `json:"amount"`
	FeePercentage decimal.Decimal   `json:"fee_percentage"`
	FeeAmount     decimal.Decimal   `json:"fee"`
	WalletID      uuid.UUID         `json:"wallet_id"`
	ToWalletID    *uuid.UUID        `json:"to_wallet_id,omitempty"`
	BranchID      uuid.UUID         `json:"branch_id"`
	EmployeeID    uuid.UUID         `json:"employee_id"`
	Source        *string           `json:"source,omitempty"`
	Notes         *string           `json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// IsApproved returns true once the balance effects have been posted.
func (t *Transaction) IsApproved() bool {
	return t.Status == TransactionStatusApproved
}

// FeeFromPercentage computes amount * pct / 100 rounded to two places.
func FeeFromPercentage(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
}
