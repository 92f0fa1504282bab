package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EffectTarget names the ledger column an effect moves.
type EffectTarget string

const (
	TargetWalletBalance EffectTarget = "wallet_balance"
	TargetBranchCash    EffectTarget = "branch_cash"
	TargetBranchFees    EffectTarget = "branch_fees"
)

// Effect is one atomic signed increment of a single ledger row.
type Effect struct {
	Target EffectTarget
	RowID  uuid.UUID
	Delta  decimal.Decimal
}

func (e Effect) String() string {
	return fmt.Sprintf("%s[%s] %s", e.Target, e.RowID, e.Delta.String())
}

// EffectPlan is the ordered list of row mutations an approved transaction posts.
// Fee is the amount booked into the earned-fee ledger; zero means no fee row.
type EffectPlan struct {
	TransactionID uuid.UUID
	BranchID      uuid.UUID
	Steps         []Effect
	Fee           decimal.Decimal
}

// RecordsFee reports whether a fee ledger row must be written.
func (p EffectPlan) RecordsFee() bool {
	return p.Fee.IsPositive()
}

// WalletIDs returns the distinct wallets touched by the plan, in step order.
func (p EffectPlan) WalletIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, s := range p.Steps {
		if s.Target != TargetWalletBalance {
			continue
		}
		if _, ok := seen[s.RowID]; ok {
			continue
		}
		seen[s.RowID] = struct{}{}
		ids = append(ids, s.RowID)
	}
	return ids
}

// PlanEffects derives the balance mutations for an approved transaction.
// Steps with a zero delta are omitted.
//
//	Cash Out          wallet +amount, cash -(amount-fee), fees +fee, fee row
//	Cash In           cash +(amount-fee), wallet -(amount-fee), fees +fee, fee row
//	Incoming Transfer wallet +amount
//	Internal Transfer source -amount, destination +amount, cash -fee
//	ATM/Bank Deposit  cash -amount, wallet +amount, cash -fee
func PlanEffects(tx *Transaction) (EffectPlan, error) {
	plan := EffectPlan{TransactionID: tx.ID, BranchID: tx.BranchID, Fee: decimal.Zero}
	amount, fee := tx.Amount, tx.FeeAmount
	net := amount.Sub(fee)

	add := func(target EffectTarget, row uuid.UUID, delta decimal.Decimal) {
		if delta.IsZero() {
			return
		}
		plan.Steps = append(plan.Steps, Effect{Target: target, RowID: row, Delta: delta})
	}

	switch tx.Type {
	case TransactionTypeCashOut:
		add(TargetWalletBalance, tx.WalletID, amount)
		add(TargetBranchCash, tx.BranchID, net.Neg())
		add(TargetBranchFees, tx.BranchID, fee)
		plan.Fee = fee
	case TransactionTypeCashIn:
		add(TargetBranchCash, tx.BranchID, net)
		add(TargetWalletBalance, tx.WalletID, net.Neg())
		add(TargetBranchFees, tx.BranchID, fee)
		plan.Fee = fee
	case TransactionTypeIncomingTransfer:
		add(TargetWalletBalance, tx.WalletID, amount)
	case TransactionTypeInternalTransfer:
		add(TargetWalletBalance, tx.WalletID, amount.Neg())
		if tx.ToWalletID != nil {
			add(TargetWalletBalance, *tx.ToWalletID, amount)
		}
		if fee.IsPositive() {
			add(TargetBranchCash, tx.BranchID, fee.Neg())
		}
	case TransactionTypeBankDeposit:
		add(TargetBranchCash, tx.BranchID, amount.Neg())
		add(TargetWalletBalance, tx.WalletID, amount)
		if fee.IsPositive() {
			add(TargetBranchCash, tx.BranchID, fee.Neg())
		}
	default:
		return EffectPlan{}, fmt.Errorf("no effect rule for transaction type %q", tx.Type)
	}

	if !plan.Fee.IsPositive() {
		plan.Fee = decimal.Zero
	}
	return plan, nil
}
