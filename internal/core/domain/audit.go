package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuditOperation is the category of an audited change.
type AuditOperation string

const (
	AuditOpCreation  AuditOperation = "creation"
	AuditOpEdit      AuditOperation = "edit"
	AuditOpApproval  AuditOperation = "approval"
	AuditOpRejection AuditOperation = "rejection"
	AuditOpRestore   AuditOperation = "restore"
)

// Audited resource types.
const (
	ResourceTransaction     = "transaction"
	ResourceWallet          = "wallet"
	ResourceCashTransaction = "cash_transaction"
	ResourceBackup          = "backup"
)

// AuditEntry is an append-only record of a financial or administrative change.
// Entries are never updated or deleted once written.
type AuditEntry struct {
	ID             uuid.UUID          `json:"id"`
	TransactionID  *uuid.UUID         `json:"transaction_id,omitempty"`
	Operation      AuditOperation     `json:"operation"`
	ResourceType   string             `json:"resource_type"`
	ResourceID     *uuid.UUID         `json:"resource_id,omitempty"`
	ActorID        *uuid.UUID         `json:"actor_id,omitempty"` // nil = system
	BranchID       *uuid.UUID         `json:"branch_id,omitempty"`
	OldValue       *decimal.Decimal   `json:"old_value,omitempty"`
	NewValue       *decimal.Decimal   `json:"new_value,omitempty"`
	ApprovalStatus *TransactionStatus `json:"approval_status,omitempty"`
	Reason         *string            `json:"reason,omitempty"`
	Metadata       map[string]any     `json:"metadata,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// Actor returns the actor id for logging, or "system" when absent.
func (e *AuditEntry) Actor() string {
	if e.ActorID == nil {
		return "system"
	}
	return e.ActorID.String()
}

// OperationFor maps a target status to its audit operation.
func OperationFor(status TransactionStatus) AuditOperation {
	if status == TransactionStatusApproved {
		return AuditOpApproval
	}
	return AuditOpRejection
}
