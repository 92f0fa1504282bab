package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LedgerStore groups the repositories a storage driver provides.
type LedgerStore struct {
	Branches         ports.BranchRepository
	Wallets          ports.WalletRepository
	Transactions     ports.TransactionRepository
	Audit            ports.AuditRepository
	Fees             ports.FeeRepository
	CashTransactions ports.CashTransactionRepository
	Backups          ports.BackupRepository
	Restorer         ports.SnapshotRestorer
}

// BackupServiceImpl implements ports.BackupService.
type BackupServiceImpl struct {
	store  LedgerStore
	cipher ports.BackupCipher
	now    func() time.Time
	log    zerolog.Logger
}

// NewBackupService creates a new BackupServiceImpl.
func NewBackupService(store LedgerStore, cipher ports.BackupCipher, log zerolog.Logger) *BackupServiceImpl {
	return &BackupServiceImpl{store: store, cipher: cipher, now: time.Now, log: log}
}

// CreateBackup exports every ledger table, encrypts the snapshot and stores it.
func (s *BackupServiceImpl) CreateBackup(ctx context.Context, name string, kind domain.BackupKind, createdBy *uuid.UUID) (*domain.Backup, error) {
	if kind != domain.BackupManual && kind != domain.BackupAutomatic {
		return nil, apperror.Validation(fmt.Sprintf("unknown backup kind %q", kind))
	}

	now := s.now().UTC()
	if name == "" {
		name = "backup-" + now.Format("20060102-150405")
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	plaintext, err := json.Marshal(snap)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("encode snapshot: %w", err))
	}
	payload, err := s.cipher.Encrypt(plaintext)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt snapshot: %w", err))
	}

	backup := &domain.Backup{
		ID:        uuid.New(),
		Name:      name,
		Kind:      kind,
		CreatedBy: createdBy,
		Payload:   payload,
		Metadata:  domain.BackupMetadata{TableCounts: snap.Counts(), TakenAt: now},
		CreatedAt: now,
	}
	if err := s.store.Backups.Create(ctx, backup); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("store backup: %w", err))
	}

	s.log.Info().
		Str("backup_id", backup.ID.String()).
		Str("kind", string(kind)).
		Interface("counts", backup.Metadata.TableCounts).
		Msg("backup created")

	return backup, nil
}

func (s *BackupServiceImpl) snapshot(ctx context.Context) (*domain.Snapshot, error) {
	var (
		snap domain.Snapshot
		err  error
	)
	if snap.Branches, err = s.store.Branches.ListAll(ctx); err != nil {
		return nil, fmt.Errorf("export branches: %w", err)
	}
	if snap.Wallets, err = s.store.Wallets.ListAll(ctx); err != nil {
		return nil, fmt.Errorf("export wallets: %w", err)
	}
	if snap.Transactions, err = s.store.Transactions.ListAll(ctx); err != nil {
		return nil, fmt.Errorf("export transactions: %w", err)
	}
	if snap.AuditEntries, err = s.store.Audit.List(ctx, ports.AuditFilter{}); err != nil {
		return nil, fmt.Errorf("export audit log: %w", err)
	}
	if snap.FeeEntries, err = s.store.Fees.ListAll(ctx); err != nil {
		return nil, fmt.Errorf("export fee ledger: %w", err)
	}
	if snap.CashTransactions, err = s.store.CashTransactions.ListAll(ctx); err != nil {
		return nil, fmt.Errorf("export cash transactions: %w", err)
	}
	return &snap, nil
}

// ListBackups returns stored backups newest first, without payloads.
func (s *BackupServiceImpl) ListBackups(ctx context.Context) ([]domain.Backup, error) {
	list, err := s.store.Backups.List(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list backups: %w", err))
	}
	if list == nil {
		list = []domain.Backup{}
	}
	return list, nil
}

// RestoreBackup decrypts a backup and writes it back in one database
// transaction. It returns the restored row count per table.
func (s *BackupServiceImpl) RestoreBackup(ctx context.Context, id uuid.UUID) (map[string]int, error) {
	backup, err := s.store.Backups.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get backup: %w", err))
	}
	if backup == nil {
		return nil, apperror.ErrNotFound("backup")
	}

	plaintext, err := s.cipher.Decrypt(backup.Payload)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("decrypt backup: %w", err))
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(plaintext, &snap); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("decode snapshot: %w", err))
	}

	if err := s.store.Restorer.Restore(ctx, &snap); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("restore snapshot: %w", err))
	}

	counts := snap.Counts()
	s.log.Warn().
		Str("backup_id", id.String()).
		Interface("counts", counts).
		Msg("ledger restored from backup")
	return counts, nil
}

var _ ports.BackupService = (*BackupServiceImpl)(nil)
