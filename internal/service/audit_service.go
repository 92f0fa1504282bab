package service

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

type auditService struct {
	repo ports.AuditRepository
	now  func() time.Time
	log  zerolog.Logger
}

// NewAuditService creates the audit trail writer.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, now: time.Now, log: log}
}

// Append writes exactly one audit row. It runs synchronously so the caller
// learns about a lost audit record instead of it vanishing in a goroutine.
func (s *auditService) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if entry.ResourceType == "" {
		entry.ResourceType = domain.ResourceTransaction
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.log.Error().Err(err).
			Str("operation", string(entry.Operation)).
			Str("actor", entry.Actor()).
			Msg("failed to persist audit entry")
		return apperror.ErrDatabaseError(fmt.Errorf("append audit entry: %w", err))
	}

	ev := s.log.Info().
		Str("operation", string(entry.Operation)).
		Str("resource_type", entry.ResourceType).
		Str("actor", entry.Actor())
	if entry.TransactionID != nil {
		ev = ev.Str("tx_id", entry.TransactionID.String())
	}
	ev.Msg("audit")
	return nil
}

// List returns entries newest first. Limit defaults to 100 and is capped at 500.
func (s *auditService) List(ctx context.Context, filter ports.AuditFilter) ([]domain.AuditEntry, error) {
	switch {
	case filter.Limit < 0:
		return nil, apperror.Validation("limit must not be negative")
	case filter.Limit == 0:
		filter.Limit = defaultAuditLimit
	case filter.Limit > maxAuditLimit:
		filter.Limit = maxAuditLimit
	}

	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list audit entries: %w", err))
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	return entries, nil
}
