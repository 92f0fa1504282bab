package postgres

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// SnapshotRepo implements ports.SnapshotRestorer.
type SnapshotRepo struct {
	pool Pool
}

// NewSnapshotRepo creates a new SnapshotRepo.
func NewSnapshotRepo(pool Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

// Restore writes every table of the snapshot in one database transaction.
// Ledger rows are upserted. Audit rows are only inserted when missing.
func (r *SnapshotRepo) Restore(ctx context.Context, s *domain.Snapshot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin restore: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, b := range s.Branches {
		_, err := tx.Exec(ctx, `INSERT INTO branches (`+branchColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status,
			opening_balance = EXCLUDED.opening_balance, cash_balance = EXCLUDED.cash_balance,
			earned_fees_balance = EXCLUDED.earned_fees_balance, updated_at = EXCLUDED.updated_at`,
			b.ID, b.Name, b.Status, b.OpeningBalance, b.CashBalance, b.EarnedFeesBalance, b.CreatedAt, b.UpdatedAt)
		if err != nil {
			return fmt.Errorf("restore branch %s: %w", b.ID, err)
		}
	}

	for _, w := range s.Wallets {
		_, err := tx.Exec(ctx, `INSERT INTO wallets (`+walletColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			ON CONFLICT (id) DO UPDATE SET branch_id = EXCLUDED.branch_id, name = EXCLUDED.name,
			provider = EXCLUDED.provider, status = EXCLUDED.status, balance = EXCLUDED.balance,
			opening_balance = EXCLUDED.opening_balance, daily_limit = EXCLUDED.daily_limit,
			monthly_limit = EXCLUDED.monthly_limit, min_transaction_amount = EXCLUDED.min_transaction_amount,
			max_transaction_amount = EXCLUDED.max_transaction_amount,
			commission_percentage = EXCLUDED.commission_percentage, min_commission = EXCLUDED.min_commission,
			max_commission = EXCLUDED.max_commission, can_send = EXCLUDED.can_send,
			can_receive = EXCLUDED.can_receive, updated_at = EXCLUDED.updated_at`,
			w.ID, w.BranchID, w.Name, w.Provider, w.Status, w.Balance, w.OpeningBalance,
			w.DailyLimit, w.MonthlyLimit, w.MinTransactionAmount, w.MaxTransactionAmount,
			w.CommissionPercentage, w.MinCommission, w.MaxCommission, w.CanSend, w.CanReceive,
			w.CreatedAt, w.UpdatedAt)
		if err != nil {
			return fmt.Errorf("restore wallet %s: %w", w.ID, err)
		}
	}

	for _, t := range s.Transactions {
		_, err := tx.Exec(ctx, `INSERT INTO transactions (`+transactionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (id) DO UPDATE SET type = EXCLUDED.type, status = EXCLUDED.status,
			amount = EXCLUDED.amount, fee_percentage = EXCLUDED.fee_percentage, fee = EXCLUDED.fee,
			wallet_id = EXCLUDED.wallet_id, to_wallet_id = EXCLUDED.to_wallet_id,
			branch_id = EXCLUDED.branch_id, employee_id = EXCLUDED.employee_id, source = EXCLUDED.source,
			notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at`,
			t.ID, t.Type, t.Status, t.Amount, t.FeePercentage, t.FeeAmount, t.WalletID, t.ToWalletID,
			t.BranchID, t.EmployeeID, t.Source, t.Notes, t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("restore transaction %s: %w", t.ID, err)
		}
	}

	for _, e := range s.AuditEntries {
		if err := restoreAuditEntry(ctx, tx, &e); err != nil {
			return err
		}
	}

	for _, f := range s.FeeEntries {
		_, err := tx.Exec(ctx, `INSERT INTO earned_fees (id, transaction_id, branch_id, amount, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET amount = EXCLUDED.amount`,
			f.ID, f.TransactionID, f.BranchID, f.Amount, f.CreatedAt)
		if err != nil {
			return fmt.Errorf("restore earned fee %s: %w", f.ID, err)
		}
	}

	for _, ct := range s.CashTransactions {
		_, err := tx.Exec(ctx, `INSERT INTO cash_transactions (`+cashColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET wallet_id = EXCLUDED.wallet_id, type = EXCLUDED.type,
			funding_source = EXCLUDED.funding_source, amount = EXCLUDED.amount, notes = EXCLUDED.notes`,
			ct.ID, ct.BranchID, ct.WalletID, ct.EmployeeID, ct.Type, ct.FundingSource,
			ct.Amount, ct.Notes, ct.CreatedAt)
		if err != nil {
			return fmt.Errorf("restore cash transaction %s: %w", ct.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit restore: %w", err)
	}
	return nil
}

// restoreAuditEntry never touches an existing audit row.
func restoreAuditEntry(ctx context.Context, tx pgx.Tx, e *domain.AuditEntry) error {
	metadata, err := marshalMetadata(e.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `INSERT INTO audit_logs (`+auditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.TransactionID, string(e.Operation), e.ResourceType, e.ResourceID, e.ActorID, e.BranchID,
		e.OldValue, e.NewValue, e.ApprovalStatus, e.Reason, metadata, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("restore audit log %s: %w", e.ID, err)
	}
	return nil
}
