package domain

import (
	"time"

	"github.com/google/uuid"
)

// BackupKind tells manual backups from ones taken by the system.
type BackupKind string

const (
	BackupManual    BackupKind = "manual"
	BackupAutomatic BackupKind = "automatic"
)

// Backup is an encrypted snapshot of the ledger tables.
type Backup struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Kind      BackupKind     `json:"kind"`
	CreatedBy *uuid.UUID     `json:"created_by,omitempty"`
	Payload   string         `json:"-"` // encrypted snapshot JSON
	Metadata  BackupMetadata `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// BackupMetadata describes what a backup contains.
type BackupMetadata struct {
	TableCounts map[string]int `json:"table_counts"`
	TakenAt     time.Time      `json:"taken_at"`
}

// Snapshot is the plaintext content of a backup.
type Snapshot struct {
	Branches         []Branch          `json:"branches"`
	Wallets          []Wallet          `json:"wallets"`
	Transactions     []Transaction     `json:"transactions"`
	AuditEntries     []AuditEntry      `json:"audit_logs"`
	FeeEntries       []FeeEntry        `json:"earned_fees"`
	CashTransactions []CashTransaction `json:"cash_transactions"`
}

// Counts returns the row count per table.
func (s *Snapshot) Counts() map[string]int {
	return map[string]int{
		"branches":          len(s.Branches),
		"wallets":           len(s.Wallets),
		"transactions":      len(s.Transactions),
		"audit_logs":        len(s.AuditEntries),
		"earned_fees":       len(s.FeeEntries),
		"cash_transactions": len(s.CashTransactions),
	}
}
