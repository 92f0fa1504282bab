package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const auditColumns = `id, transaction_id, operation, resource_type, resource_id, actor_id, branch_id,
	old_value, new_value, approval_status, reason, metadata, created_at`

type auditRepo struct {
	pool Pool
}

// NewAuditRepository creates a PostgreSQL-backed AuditRepository.
func NewAuditRepository(pool Pool) ports.AuditRepository {
	return &auditRepo{pool: pool}
}

func (r *auditRepo) Create(ctx context.Context, e *domain.AuditEntry) error {
	metadata, err := marshalMetadata(e.Metadata)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_logs (`+auditColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.TransactionID, string(e.Operation), e.ResourceType, e.ResourceID, e.ActorID, e.BranchID,
		e.OldValue, e.NewValue, e.ApprovalStatus, e.Reason, metadata, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// List returns matching entries, newest first.
func (r *auditRepo) List(ctx context.Context, filter ports.AuditFilter) ([]domain.AuditEntry, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if filter.TransactionID != nil {
		conditions = append(conditions, fmt.Sprintf("transaction_id = $%d", argIdx))
		args = append(args, *filter.TransactionID)
		argIdx++
	}
	if filter.BranchID != nil {
		conditions = append(conditions, fmt.Sprintf("branch_id = $%d", argIdx))
		args = append(args, *filter.BranchID)
		argIdx++
	}

	query := `SELECT ` + auditColumns + ` FROM audit_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return entries, nil
}

func scanAuditEntry(row pgx.Row) (*domain.AuditEntry, error) {
	e := &domain.AuditEntry{}
	var metadata []byte
	err := row.Scan(
		&e.ID, &e.TransactionID, &e.Operation, &e.ResourceType, &e.ResourceID, &e.ActorID, &e.BranchID,
		&e.OldValue, &e.NewValue, &e.ApprovalStatus, &e.Reason, &metadata, &e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan audit row: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode audit metadata: %w", err)
		}
	}
	return e, nil
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode audit metadata: %w", err)
	}
	return b, nil
}
