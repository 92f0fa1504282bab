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

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	branchRepo ports.BranchRepository
	audit      ports.AuditService
	locker     ports.Locker
	now        func() time.Time
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	branchRepo ports.BranchRepository,
	audit ports.AuditService,
	locker ports.Locker,
	log zerolog.Logger,
) *WalletServiceImpl {
	if locker == nil {
		locker = NoopLocker{}
	}
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		branchRepo: branchRepo,
		audit:      audit,
		locker:     locker,
		now:        time.Now,
		log:        log,
	}
}

// CreateWallet registers a wallet at a branch. Balance starts at the opening
// balance and direction flags default from the status unless given.
func (s *WalletServiceImpl) CreateWallet(ctx context.Context, req ports.CreateWalletRequest) (*domain.Wallet, error) {
	status := domain.WalletStatusActive
	if req.Status != "" {
		st, err := domain.ParseWalletStatus(req.Status)
		if err != nil {
			return nil, apperror.Validation(err.Error())
		}
		status = st
	}
	if err := validateWalletRequest(req); err != nil {
		return nil, err
	}

	branch, err := s.branchRepo.GetByID(ctx, req.BranchID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get branch: %w", err))
	}
	if branch == nil {
		return nil, apperror.ErrNotFound("branch")
	}

	canSend, canReceive := domain.DefaultDirections(status)
	if req.CanSend != nil {
		canSend = *req.CanSend
	}
	if req.CanReceive != nil {
		canReceive = *req.CanReceive
	}

	now := s.now().UTC()
	wallet := &domain.Wallet{
		ID:                   uuid.New(),
		BranchID:             req.BranchID,
		Name:                 strings.TrimSpace(req.Name),
		Provider:             strings.TrimSpace(req.Provider),
		Status:               status,
		Balance:              req.OpeningBalance,
		OpeningBalance:       req.OpeningBalance,
		DailyLimit:           req.DailyLimit,
		MonthlyLimit:         req.MonthlyLimit,
		MinTransactionAmount: req.MinTransactionAmount,
		MaxTransactionAmount: req.MaxTransactionAmount,
		CommissionPercentage: req.CommissionPercentage,
		MinCommission:        req.MinCommission,
		MaxCommission:        req.MaxCommission,
		CanSend:              canSend,
		CanReceive:           canReceive,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create wallet: %w", err))
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("branch_id", wallet.BranchID.String()).
		Str("provider", wallet.Provider).
		Msg("wallet created")

	return wallet, nil
}

func validateWalletRequest(req ports.CreateWalletRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return apperror.Validation("wallet name is required")
	}
	if strings.TrimSpace(req.Provider) == "" {
		return apperror.Validation("wallet provider is required")
	}
	if req.BranchID == uuid.Nil {
		return apperror.Validation("branch id is required")
	}

	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"opening_balance", req.OpeningBalance},
		{"daily_limit", req.DailyLimit},
		{"monthly_limit", req.MonthlyLimit},
		{"min_transaction_amount", req.MinTransactionAmount},
		{"max_transaction_amount", req.MaxTransactionAmount},
		{"commission_percentage", req.CommissionPercentage},
		{"min_commission", req.MinCommission},
		{"max_commission", req.MaxCommission},
	} {
		if f.value.IsNegative() {
			return apperror.Validation(f.name + " must not be negative")
		}
	}

	if req.MaxTransactionAmount.IsPositive() && req.MinTransactionAmount.GreaterThan(req.MaxTransactionAmount) {
		return apperror.Validation("min_transaction_amount exceeds max_transaction_amount")
	}
	if req.MaxCommission.IsPositive() && req.MinCommission.GreaterThan(req.MaxCommission) {
		return apperror.Validation("min_commission exceeds max_commission")
	}
	return nil
}

// GetWallet fetches a wallet by id.
func (s *WalletServiceImpl) GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	w, err := s.walletRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return w, nil
}

// ListWallets returns the wallets of a branch.
func (s *WalletServiceImpl) ListWallets(ctx context.Context, branchID uuid.UUID) ([]domain.Wallet, error) {
	wallets, err := s.walletRepo.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list wallets: %w", err))
	}
	if wallets == nil {
		wallets = []domain.Wallet{}
	}
	return wallets, nil
}

// AdjustBalance applies a manual correction through the same atomic increment
// used by approvals, and audits it as an edit of the wallet.
func (s *WalletServiceImpl) AdjustBalance(ctx context.Context, req ports.AdjustBalanceRequest) (*domain.Wallet, error) {
	if req.Delta.IsZero() {
		return nil, apperror.ErrInvalidAmount()
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, apperror.Validation("adjustment reason is required")
	}

	unlock, err := s.locker.Lock(ctx, "wallet:"+req.WalletID.String())
	if err != nil {
		return nil, apperror.ErrLockTimeout(err)
	}
	defer unlock()

	wallet, err := s.GetWallet(ctx, req.WalletID)
	if err != nil {
		return nil, err
	}

	newBalance, err := s.walletRepo.IncrementBalance(ctx, wallet.ID, req.Delta)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("adjust wallet balance: %w", err))
	}
	oldBalance := newBalance.Sub(req.Delta)

	if err := s.audit.Append(ctx, &domain.AuditEntry{
		Operation:    domain.AuditOpEdit,
		ResourceType: domain.ResourceWallet,
		ResourceID:   &wallet.ID,
		ActorID:      req.ActorID,
		BranchID:     &wallet.BranchID,
		OldValue:     &oldBalance,
		NewValue:     &newBalance,
		Reason:       &reason,
		Metadata:     map[string]any{"delta": req.Delta.String()},
	}); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("delta", req.Delta.String()).
		Str("new_balance", newBalance.String()).
		Msg("wallet balance adjusted")

	wallet.Balance = newBalance
	wallet.UpdatedAt = s.now().UTC()
	return wallet, nil
}
