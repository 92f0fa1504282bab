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

// CashServiceImpl implements ports.CashService.
type CashServiceImpl struct {
	cashRepo   ports.CashTransactionRepository
	branchRepo ports.BranchRepository
	walletRepo ports.WalletRepository
	audit      ports.AuditService
	now        func() time.Time
	log        zerolog.Logger
}

// NewCashService creates a new CashServiceImpl.
func NewCashService(
	cashRepo ports.CashTransactionRepository,
	branchRepo ports.BranchRepository,
	walletRepo ports.WalletRepository,
	audit ports.AuditService,
	log zerolog.Logger,
) *CashServiceImpl {
	return &CashServiceImpl{
		cashRepo:   cashRepo,
		branchRepo: branchRepo,
		walletRepo: walletRepo,
		audit:      audit,
		now:        time.Now,
		log:        log,
	}
}

// CreateCashTransaction records a branch cash movement. Cash-funded entries
// draw down the till; wallet-funded entries are recorded only.
func (s *CashServiceImpl) CreateCashTransaction(ctx context.Context, req ports.CreateCashTransactionRequest) (*domain.CashTransaction, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	category, err := domain.ParseCashTransactionType(req.Type)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	funding, err := domain.ParseFundingSource(req.FundingSource)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if req.BranchID == uuid.Nil || req.EmployeeID == uuid.Nil {
		return nil, apperror.Validation("branch id and employee id are required")
	}
	if funding == domain.FundingWallet && req.WalletID == nil {
		return nil, apperror.Validation("wallet id is required for wallet-funded entries")
	}

	branch, err := s.branchRepo.GetByID(ctx, req.BranchID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get branch: %w", err))
	}
	if branch == nil {
		return nil, apperror.ErrNotFound("branch")
	}
	if req.WalletID != nil {
		w, err := s.walletRepo.GetByID(ctx, *req.WalletID)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
		}
		if w == nil {
			return nil, apperror.ErrNotFound("wallet")
		}
	}

	ct := &domain.CashTransaction{
		ID:            uuid.New(),
		BranchID:      req.BranchID,
		WalletID:      req.WalletID,
		EmployeeID:    req.EmployeeID,
		Type:          category,
		FundingSource: funding,
		Amount:        req.Amount,
		Notes:         req.Notes,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.cashRepo.Create(ctx, ct); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create cash transaction: %w", err))
	}

	metadata := map[string]any{
		"type":           string(category),
		"funding_source": string(funding),
	}
	if funding == domain.FundingCash {
		cash, err := s.branchRepo.IncrementCash(ctx, ct.BranchID, ct.Amount.Neg())
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("draw branch cash: %w", err))
		}
		metadata["cash_balance"] = cash.String()
	}

	employee := req.EmployeeID
	amount := ct.Amount
	if err := s.audit.Append(ctx, &domain.AuditEntry{
		Operation:    domain.AuditOpCreation,
		ResourceType: domain.ResourceCashTransaction,
		ResourceID:   &ct.ID,
		ActorID:      &employee,
		BranchID:     &ct.BranchID,
		NewValue:     &amount,
		Reason:       req.Notes,
		Metadata:     metadata,
	}); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("cash_tx_id", ct.ID.String()).
		Str("branch_id", ct.BranchID.String()).
		Str("type", string(category)).
		Str("funding", string(funding)).
		Str("amount", ct.Amount.String()).
		Msg("cash transaction recorded")

	return ct, nil
}

// ListCashTransactions returns a branch's cash movements, newest first.
func (s *CashServiceImpl) ListCashTransactions(ctx context.Context, branchID uuid.UUID) ([]domain.CashTransaction, error) {
	list, err := s.cashRepo.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list cash transactions: %w", err))
	}
	if list == nil {
		list = []domain.CashTransaction{}
	}
	return list, nil
}
