package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type branchService struct {
	repo ports.BranchRepository
	now  func() time.Time
	log  zerolog.Logger
}

// NewBranchService creates the branch cash account service.
func NewBranchService(repo ports.BranchRepository, log zerolog.Logger) ports.BranchService {
	return &branchService{repo: repo, now: time.Now, log: log}
}

func (s *branchService) CreateBranch(ctx context.Context, req ports.CreateBranchRequest) (*domain.Branch, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("branch name is required")
	}
	if req.OpeningBalance.IsNegative() {
		return nil, apperror.Validation("opening balance must not be negative")
	}

	now := s.now().UTC()
	branch := &domain.Branch{
		ID:                uuid.New(),
		Name:              name,
		Status:            domain.BranchStatusActive,
		OpeningBalance:    req.OpeningBalance,
		CashBalance:       req.OpeningBalance,
		EarnedFeesBalance: decimal.Zero,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, branch); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create branch: %w", err))
	}

	s.log.Info().Str("branch_id", branch.ID.String()).Str("name", name).Msg("branch created")
	return branch, nil
}

func (s *branchService) GetBranch(ctx context.Context, id uuid.UUID) (*domain.Branch, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get branch: %w", err))
	}
	if b == nil {
		return nil, apperror.ErrNotFound("branch")
	}
	return b, nil
}
