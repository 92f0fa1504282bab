package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FundingSource is where a cash transaction draws its money from.
type FundingSource string

const (
	FundingCash   FundingSource = "Cash"
	FundingWallet FundingSource = "Wallet"
)

// CashTransactionType is the expense or movement category of a cash transaction.
type CashTransactionType string

const (
	CashTypeAccountTransfer CashTransactionType = "Transfer Between Accounts"
	CashTypeWalletTransfer  CashTransactionType = "Transfer to Wallet"
	CashTypePurchases       CashTransactionType = "Purchases"
	CashTypeBills           CashTransactionType = "Bills"
	CashTypeRent            CashTransactionType = "Rent"
	CashTypePettyCash       CashTransactionType = "Petty Cash"
	CashTypeHospitality     CashTransactionType = "Hospitality"
	CashTypeOthers          CashTransactionType = "Others"
)

// ParseCashTransactionType returns the CashTransactionType matching s exactly.
func ParseCashTransactionType(s string) (CashTransactionType, error) {
	switch t := CashTransactionType(s); t {
	case CashTypeAccountTransfer, CashTypeWalletTransfer, CashTypePurchases, CashTypeBills,
		CashTypeRent, CashTypePettyCash, CashTypeHospitality, CashTypeOthers:
		return t, nil
	}
	return "", fmt.Errorf("unknown cash transaction type %q", s)
}

// ParseFundingSource returns the FundingSource matching s exactly.
func ParseFundingSource(s string) (FundingSource, error) {
	switch f := FundingSource(s); f {
	case FundingCash, FundingWallet:
		return f, nil
	}
	return "", fmt.Errorf("unknown funding source %q", s)
}

// CashTransaction is a branch-level cash movement such as a purchase or a bill.
type CashTransaction struct {
	ID            uuid.UUID           `json:"id"`
	BranchID      uuid.UUID           `json:"branch_id"`
	WalletID      *uuid.UUID          `json:"wallet_id,omitempty"`
	EmployeeID    uuid.UUID           `json:"employee_id"`
	Type          CashTransactionType `json:"type"`
	FundingSource FundingSource       `json:"funding_source"`
	Amount        decimal.Decimal     `json:"amount"`
	Notes         *string             `json:"notes,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// FeeEntry is a row of the earned-fee ledger written when a fee is collected.
type FeeEntry struct {
	ID            uuid.UUID       `json:"id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	BranchID      uuid.UUID       `json:"branch_id"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
}
