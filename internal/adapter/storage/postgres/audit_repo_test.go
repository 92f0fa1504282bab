package postgres

import (
	"context"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func auditRowColumns() []string {
	return []string{"id", "transaction_id", "operation", "resource_type", "resource_id", "actor_id", "branch_id",
		"old_value", "new_value", "approval_status", "reason", "metadata", "created_at"}
}

func newTestAuditEntry() *domain.AuditEntry {
	txID, branchID, actorID := uuid.New(), uuid.New(), uuid.New()
	amount := decimal.RequireFromString("1000")
	status := domain.TransactionStatusApproved
	return &domain.AuditEntry{
		ID:             uuid.New(),
		TransactionID:  &txID,
		Operation:      domain.AuditOpApproval,
		ResourceType:   domain.ResourceTransaction,
		ResourceID:     &txID,
		ActorID:        &actorID,
		BranchID:       &branchID,
		OldValue:       &amount,
		NewValue:       &amount,
		ApprovalStatus: &status,
		Metadata:       map[string]any{"previous_status": "Pending"},
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestAuditRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepository(mock)
	e := newTestAuditEntry()

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(e.ID, e.TransactionID, "approval", e.ResourceType, e.ResourceID, e.ActorID, e.BranchID,
			e.OldValue, e.NewValue, e.ApprovalStatus, e.Reason,
			[]byte(`{"previous_status":"Pending"}`), e.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), e)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create_SystemActorWithoutMetadata(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepository(mock)
	e := newTestAuditEntry()
	e.ActorID = nil
	e.Metadata = nil

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(e.ID, e.TransactionID, "approval", e.ResourceType, e.ResourceID, e.ActorID, e.BranchID,
			e.OldValue, e.NewValue, e.ApprovalStatus, e.Reason, []byte(nil), e.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_List_ByTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepository(mock)
	e := newTestAuditEntry()

	mock.ExpectQuery(`SELECT .+ FROM audit_logs WHERE transaction_id = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs(*e.TransactionID, 50).
		WillReturnRows(pgxmock.NewRows(auditRowColumns()).AddRow(
			e.ID, e.TransactionID, e.Operation, e.ResourceType, e.ResourceID, e.ActorID, e.BranchID,
			e.OldValue, e.NewValue, e.ApprovalStatus, e.Reason,
			[]byte(`{"previous_status":"Pending"}`), e.CreatedAt,
		))

	entries, err := repo.List(context.Background(), ports.AuditFilter{TransactionID: e.TransactionID, Limit: 50})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditOpApproval, entries[0].Operation)
	assert.Equal(t, "Pending", entries[0].Metadata["previous_status"])
	require.NotNil(t, entries[0].NewValue)
	assert.Equal(t, "1000", entries[0].NewValue.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_List_NoFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepository(mock)

	mock.ExpectQuery(`SELECT .+ FROM audit_logs ORDER BY created_at DESC$`).
		WillReturnRows(pgxmock.NewRows(auditRowColumns()))

	entries, err := repo.List(context.Background(), ports.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}
