package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeRepo_CreateAndList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewFeeRepo(mock)
	f := &domain.FeeEntry{
		ID: uuid.New(), TransactionID: uuid.New(), BranchID: uuid.New(),
		Amount: decimal.RequireFromString("20"), CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectExec("INSERT INTO earned_fees").
		WithArgs(f.ID, f.TransactionID, f.BranchID, f.Amount, f.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT .+ FROM earned_fees").
		WillReturnRows(pgxmock.NewRows([]string{"id", "transaction_id", "branch_id", "amount", "created_at"}).
			AddRow(f.ID, f.TransactionID, f.BranchID, f.Amount, f.CreatedAt))

	require.NoError(t, repo.Create(context.Background(), f))
	fees, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, fees, 1)
	assert.Equal(t, f.TransactionID, fees[0].TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newTestCashTransaction(branchID uuid.UUID) *domain.CashTransaction {
	return &domain.CashTransaction{
		ID:            uuid.New(),
		BranchID:      branchID,
		EmployeeID:    uuid.New(),
		Type:          domain.CashTypeBills,
		FundingSource: domain.FundingCash,
		Amount:        decimal.RequireFromString("150"),
		Notes:         strPtr("electricity"),
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func cashRowColumns() []string {
	return []string{"id", "branch_id", "wallet_id", "employee_id", "type", "funding_source", "amount", "notes", "created_at"}
}

func TestCashTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCashTransactionRepo(mock)
	ct := newTestCashTransaction(uuid.New())

	mock.ExpectExec("INSERT INTO cash_transactions").
		WithArgs(ct.ID, ct.BranchID, ct.WalletID, ct.EmployeeID, ct.Type, ct.FundingSource,
			ct.Amount, ct.Notes, ct.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), ct))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCashTransactionRepo_ListByBranch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCashTransactionRepo(mock)
	branchID := uuid.New()
	ct := newTestCashTransaction(branchID)

	mock.ExpectQuery("SELECT .+ FROM cash_transactions WHERE branch_id").
		WithArgs(branchID).
		WillReturnRows(pgxmock.NewRows(cashRowColumns()).AddRow(
			ct.ID, ct.BranchID, ct.WalletID, ct.EmployeeID, ct.Type, ct.FundingSource,
			ct.Amount, ct.Notes, ct.CreatedAt))

	list, err := repo.ListByBranch(context.Background(), branchID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.CashTypeBills, list[0].Type)
	assert.Nil(t, list[0].WalletID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackupRepo_CreateGetList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBackupRepo(mock)
	takenAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	b := &domain.Backup{
		ID:        uuid.New(),
		Name:      "nightly",
		Kind:      domain.BackupAutomatic,
		Payload:   "c2VhbGVk",
		Metadata:  domain.BackupMetadata{TableCounts: map[string]int{"wallets": 2}, TakenAt: takenAt},
		CreatedAt: takenAt,
	}
	metadata := []byte(`{"table_counts":{"wallets":2},"taken_at":"2024-05-01T10:00:00Z"}`)

	mock.ExpectExec("INSERT INTO backups").
		WithArgs(b.ID, b.Name, b.Kind, b.CreatedBy, b.Payload, metadata, b.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT .+ FROM backups WHERE id").
		WithArgs(b.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "kind", "created_by", "payload", "metadata", "created_at"}).
			AddRow(b.ID, b.Name, b.Kind, b.CreatedBy, b.Payload, metadata, b.CreatedAt))
	mock.ExpectQuery("SELECT .+ FROM backups ORDER BY created_at DESC").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "kind", "created_by", "metadata", "created_at"}).
			AddRow(b.ID, b.Name, b.Kind, b.CreatedBy, metadata, b.CreatedAt))

	require.NoError(t, repo.Create(context.Background(), b))

	got, err := repo.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c2VhbGVk", got.Payload)
	assert.Equal(t, 2, got.Metadata.TableCounts["wallets"])

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Payload)
	assert.True(t, takenAt.Equal(list[0].Metadata.TakenAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackupRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBackupRepo(mock)
	id := uuid.New()
	mock.ExpectQuery("SELECT .+ FROM backups WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "kind", "created_by", "payload", "metadata", "created_at"}))

	got, err := repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

// anyArgs matches a statement with n bind parameters.
func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestSnapshotRepo_Restore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSnapshotRepo(mock)
	branch := newTestBranch()
	wallet := newTestWallet(branch.ID)
	txn := newTestTransaction(branch.ID, wallet.ID)
	entry := newTestAuditEntry()
	fee := domain.FeeEntry{ID: uuid.New(), TransactionID: txn.ID, BranchID: branch.ID, Amount: txn.FeeAmount}
	cash := newTestCashTransaction(branch.ID)

	snap := &domain.Snapshot{
		Branches:         []domain.Branch{*branch},
		Wallets:          []domain.Wallet{*wallet},
		Transactions:     []domain.Transaction{*txn},
		AuditEntries:     []domain.AuditEntry{*entry},
		FeeEntries:       []domain.FeeEntry{fee},
		CashTransactions: []domain.CashTransaction{*cash},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO branches .+ ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs(anyArgs(8)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO wallets .+ ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs(anyArgs(18)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO transactions .+ ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs(anyArgs(14)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO audit_logs .+ ON CONFLICT \\(id\\) DO NOTHING").
		WithArgs(anyArgs(13)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec("INSERT INTO earned_fees").
		WithArgs(fee.ID, txn.ID, branch.ID, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO cash_transactions").
		WithArgs(anyArgs(9)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	// The deferred Rollback still runs after Commit.
	mock.ExpectRollback()

	require.NoError(t, repo.Restore(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepo_Restore_RollsBackOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSnapshotRepo(mock)
	snap := &domain.Snapshot{
		Branches: []domain.Branch{*newTestBranch()},
		Wallets:  []domain.Wallet{*newTestWallet(uuid.New())},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO branches").
		WithArgs(anyArgs(8)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(anyArgs(18)...).
		WillReturnError(errors.New("foreign key violation"))
	mock.ExpectRollback()

	err = repo.Restore(context.Background(), snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restore wallet")
	assert.NoError(t, mock.ExpectationsWereMet())
}
