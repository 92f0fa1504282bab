package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BackupRepo implements ports.BackupRepository.
type BackupRepo struct {
	pool Pool
}

// NewBackupRepo creates a new BackupRepo.
func NewBackupRepo(pool Pool) *BackupRepo {
	return &BackupRepo{pool: pool}
}

// Create stores an encrypted backup with its metadata.
func (r *BackupRepo) Create(ctx context.Context, b *domain.Backup) error {
	metadata, err := json.Marshal(b.Metadata)
	if err != nil {
		return fmt.Errorf("encode backup metadata: %w", err)
	}

	query := `INSERT INTO backups (id, name, kind, created_by, payload, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.pool.Exec(ctx, query, b.ID, b.Name, b.Kind, b.CreatedBy, b.Payload, metadata, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert backup: %w", err)
	}
	return nil
}

// GetByID fetches a backup including its payload.
func (r *BackupRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Backup, error) {
	query := `SELECT id, name, kind, created_by, payload, metadata, created_at FROM backups WHERE id = $1`

	b := &domain.Backup{}
	var metadata []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.Name, &b.Kind, &b.CreatedBy, &b.Payload, &metadata, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get backup by id: %w", err)
	}
	if err := json.Unmarshal(metadata, &b.Metadata); err != nil {
		return nil, fmt.Errorf("decode backup metadata: %w", err)
	}
	return b, nil
}

// List returns backups newest first, without payloads.
func (r *BackupRepo) List(ctx context.Context) ([]domain.Backup, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, kind, created_by, metadata, created_at FROM backups ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []domain.Backup
	for rows.Next() {
		var b domain.Backup
		var metadata []byte
		if err := rows.Scan(&b.ID, &b.Name, &b.Kind, &b.CreatedBy, &metadata, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan backup row: %w", err)
		}
		if err := json.Unmarshal(metadata, &b.Metadata); err != nil {
			return nil, fmt.Errorf("decode backup metadata: %w", err)
		}
		backups = append(backups, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backup rows: %w", err)
	}
	return backups, nil
}
