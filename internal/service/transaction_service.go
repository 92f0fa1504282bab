package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TransactionServiceImpl implements ports.TransactionService: the mutation
// engine that records transactions, moves them through approval and posts
// their balance effects.
type TransactionServiceImpl struct {
	txRepo     ports.TransactionRepository
	walletRepo ports.WalletRepository
	branchRepo ports.BranchRepository
	feeRepo    ports.FeeRepository
	audit      ports.AuditService
	locker     ports.Locker
	now        func() time.Time
	log        zerolog.Logger
}

// NewTransactionService creates a new TransactionServiceImpl.
// A nil locker means no serialization.
func NewTransactionService(
	txRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	branchRepo ports.BranchRepository,
	feeRepo ports.FeeRepository,
	audit ports.AuditService,
	locker ports.Locker,
	log zerolog.Logger,
) *TransactionServiceImpl {
	if locker == nil {
		locker = NoopLocker{}
	}
	return &TransactionServiceImpl{
		txRepo:     txRepo,
		walletRepo: walletRepo,
		branchRepo: branchRepo,
		feeRepo:    feeRepo,
		audit:      audit,
		locker:     locker,
		now:        time.Now,
		log:        log,
	}
}

// WithClock overrides the time source.
func (s *TransactionServiceImpl) WithClock(now func() time.Time) *TransactionServiceImpl {
	s.now = now
	return s
}

// CreateTransaction validates and records a new transaction, audits it, and
// posts its effects immediately when it is created already Approved.
func (s *TransactionServiceImpl) CreateTransaction(ctx context.Context, req ports.CreateTransactionRequest) (*domain.Transaction, error) {
	tx, err := s.buildTransaction(req)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, tx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.checkReferences(ctx, tx); err != nil {
		return nil, err
	}

	if err := s.txRepo.Create(ctx, tx); err != nil {
		if errors.Is(err, ports.ErrDuplicateTransaction) {
			return nil, apperror.ErrDuplicateTransaction()
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create transaction: %w", err))
	}

	employee := tx.EmployeeID
	status := tx.Status
	amount := tx.Amount
	metadata := map[string]any{"type": string(tx.Type), "notes": nil}
	if tx.Notes != nil {
		metadata["notes"] = *tx.Notes
	}
	auditErr := s.audit.Append(ctx, &domain.AuditEntry{
		TransactionID:  &tx.ID,
		Operation:      domain.AuditOpCreation,
		ResourceType:   domain.ResourceTransaction,
		ResourceID:     &tx.ID,
		ActorID:        &employee,
		BranchID:       &tx.BranchID,
		NewValue:       &amount,
		ApprovalStatus: &status,
		Metadata:       metadata,
	})

	s.log.Info().
		Str("tx_id", tx.ID.String()).
		Str("type", string(tx.Type)).
		Str("status", string(tx.Status)).
		Str("amount", tx.Amount.String()).
		Str("fee", tx.FeeAmount.String()).
		Msg("transaction created")

	if tx.IsApproved() {
		if err := s.applyEffects(ctx, tx); err != nil {
			return nil, err
		}
	}
	if auditErr != nil {
		return nil, s.auditFailed(tx, auditErr)
	}
	return tx, nil
}

func (s *TransactionServiceImpl) buildTransaction(req ports.CreateTransactionRequest) (*domain.Transaction, error) {
	if req.ID == uuid.Nil {
		return nil, apperror.Validation("transaction id is required")
	}
	txType, err := domain.ParseTransactionType(req.Type)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	status, err := domain.ParseTransactionStatus(req.Status)
	if err != nil {
		return nil, apperror.ErrInvalidStatus(req.Status)
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.FeePercentage.IsNegative() || req.FeeAmount.IsNegative() {
		return nil, apperror.Validation("fee must not be negative")
	}
	switch {
	case req.WalletID == uuid.Nil:
		return nil, apperror.Validation("wallet id is required")
	case req.BranchID == uuid.Nil:
		return nil, apperror.Validation("branch id is required")
	case req.EmployeeID == uuid.Nil:
		return nil, apperror.Validation("employee id is required")
	}

	fee := req.FeeAmount
	if fee.IsZero() && req.FeePercentage.IsPositive() {
		fee = domain.FeeFromPercentage(req.Amount, req.FeePercentage)
	}
	if (txType == domain.TransactionTypeCashIn || txType == domain.TransactionTypeCashOut) && fee.GreaterThan(req.Amount) {
		return nil, apperror.Validation("fee must not exceed amount")
	}

	toWallet := req.ToWalletID
	if txType == domain.TransactionTypeInternalTransfer {
		if toWallet != nil && *toWallet == req.WalletID {
			return nil, apperror.Validation("destination wallet must differ from source wallet")
		}
	} else {
		toWallet = nil
	}

	now := s.now().UTC()
	return &domain.Transaction{
		ID:            req.ID,
		Type:          txType,
		Status:        status,
		Amount:        req.Amount,
		FeePercentage: req.FeePercentage,
		FeeAmount:     fee,
		WalletID:      req.WalletID,
		ToWalletID:    toWallet,
		BranchID:      req.BranchID,
		EmployeeID:    req.EmployeeID,
		Source:        req.Source,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// checkReferences makes sure every row an approval would touch exists.
func (s *TransactionServiceImpl) checkReferences(ctx context.Context, tx *domain.Transaction) error {
	wallets := []uuid.UUID{tx.WalletID}
	if tx.ToWalletID != nil {
		wallets = append(wallets, *tx.ToWalletID)
	}
	for _, id := range wallets {
		w, err := s.walletRepo.GetByID(ctx, id)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
		}
		if w == nil {
			return apperror.ErrNotFound("wallet")
		}
	}

	b, err := s.branchRepo.GetByID(ctx, tx.BranchID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("get branch: %w", err))
	}
	if b == nil {
		return apperror.ErrNotFound("branch")
	}
	return nil
}

// SetTransactionStatus approves or rejects a transaction. Effects are posted
// only on the first transition into Approved.
func (s *TransactionServiceImpl) SetTransactionStatus(ctx context.Context, req ports.SetStatusRequest) (*domain.Transaction, error) {
	status, err := domain.ParseTransactionStatus(req.Status)
	if err != nil || (status != domain.TransactionStatusApproved && status != domain.TransactionStatusRejected) {
		return nil, apperror.ErrInvalidStatus(req.Status)
	}

	tx, unlock, err := s.loadLocked(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	previous := tx.Status
	updatedAt := s.now().UTC()
	if err := s.txRepo.UpdateStatus(ctx, tx.ID, status, updatedAt); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("update transaction status: %w", err))
	}
	tx.Status = status
	tx.UpdatedAt = updatedAt

	// The status is already saved, so effects must be posted even when the
	// audit write fails; otherwise a retry would see Approved and skip them.
	amount := tx.Amount
	auditErr := s.audit.Append(ctx, &domain.AuditEntry{
		TransactionID:  &tx.ID,
		Operation:      domain.OperationFor(status),
		ResourceType:   domain.ResourceTransaction,
		ResourceID:     &tx.ID,
		ActorID:        req.ActorID,
		BranchID:       &tx.BranchID,
		OldValue:       &amount,
		NewValue:       &amount,
		ApprovalStatus: &status,
		Reason:         req.RejectionReason,
		Metadata:       map[string]any{"previous_status": string(previous)},
	})

	s.log.Info().
		Str("tx_id", tx.ID.String()).
		Str("from", string(previous)).
		Str("to", string(status)).
		Msg("transaction status changed")

	if status == domain.TransactionStatusApproved && previous != domain.TransactionStatusApproved {
		if err := s.applyEffects(ctx, tx); err != nil {
			return nil, err
		}
	}
	if auditErr != nil {
		return nil, s.auditFailed(tx, auditErr)
	}
	return tx, nil
}

func (s *TransactionServiceImpl) auditFailed(tx *domain.Transaction, err error) error {
	s.log.Error().Err(err).
		Str("tx_id", tx.ID.String()).
		Str("status", string(tx.Status)).
		Msg("audit write failed after transaction was saved")
	return err
}

// EditTransactionAmount corrects the amount and sends the transaction back to
// Pending. Effects already posted for the old amount stay in place.
func (s *TransactionServiceImpl) EditTransactionAmount(ctx context.Context, req ports.EditAmountRequest) (*domain.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.Reason == "" {
		return nil, apperror.Validation("edit reason is required")
	}

	tx, unlock, err := s.loadLocked(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	previousAmount, previousStatus := tx.Amount, tx.Status
	pending := domain.TransactionStatusPending
	updatedAt := s.now().UTC()
	if err := s.txRepo.UpdateAmount(ctx, tx.ID, req.Amount, pending, updatedAt); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("update transaction amount: %w", err))
	}
	tx.Amount = req.Amount
	tx.Status = pending
	tx.UpdatedAt = updatedAt

	newAmount := req.Amount
	reason := req.Reason
	if err := s.audit.Append(ctx, &domain.AuditEntry{
		TransactionID:  &tx.ID,
		Operation:      domain.AuditOpEdit,
		ResourceType:   domain.ResourceTransaction,
		ResourceID:     &tx.ID,
		ActorID:        req.ActorID,
		BranchID:       &tx.BranchID,
		OldValue:       &previousAmount,
		NewValue:       &newAmount,
		ApprovalStatus: &pending,
		Reason:         &reason,
		Metadata: map[string]any{
			"previous_amount": previousAmount.String(),
			"new_amount":      newAmount.String(),
			"previous_status": string(previousStatus),
		},
	}); err != nil {
		return nil, err
	}

	ev := s.log.Info()
	if previousStatus == domain.TransactionStatusApproved {
		ev = s.log.Warn().Bool("effects_not_reversed", true)
	}
	ev.Str("tx_id", tx.ID.String()).
		Str("old_amount", previousAmount.String()).
		Str("new_amount", newAmount.String()).
		Msg("transaction amount edited")

	return tx, nil
}

// GetTransaction fetches a transaction by id.
func (s *TransactionServiceImpl) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	tx, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get transaction: %w", err))
	}
	if tx == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	return tx, nil
}

// loadLocked reads the transaction to learn its wallets, locks them, then
// reads it again so decisions are made on the state seen under the lock.
func (s *TransactionServiceImpl) loadLocked(ctx context.Context, id uuid.UUID) (*domain.Transaction, func(), error) {
	tx, err := s.GetTransaction(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	unlock, err := s.lock(ctx, tx)
	if err != nil {
		return nil, nil, err
	}

	tx, err = s.GetTransaction(ctx, id)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return tx, unlock, nil
}

func (s *TransactionServiceImpl) lock(ctx context.Context, tx *domain.Transaction) (func(), error) {
	wallets := []uuid.UUID{tx.WalletID}
	if tx.ToWalletID != nil {
		wallets = append(wallets, *tx.ToWalletID)
	}
	unlock, err := s.locker.Lock(ctx, lockKeys(tx.ID, wallets...)...)
	if err != nil {
		return nil, apperror.ErrLockTimeout(err)
	}
	return unlock, nil
}

// applyEffects posts the plan step by step. A failing step stops the run and
// leaves earlier steps applied; the error says how far it got.
func (s *TransactionServiceImpl) applyEffects(ctx context.Context, tx *domain.Transaction) error {
	plan, err := domain.PlanEffects(tx)
	if err != nil {
		return apperror.InternalError(err)
	}

	for i, step := range plan.Steps {
		balance, err := s.increment(ctx, step)
		if err != nil {
			s.log.Error().Err(err).
				Str("tx_id", tx.ID.String()).
				Str("effect", step.String()).
				Int("applied", i).
				Int("total", len(plan.Steps)).
				Msg("effect failed, ledger partially updated")
			return apperror.ErrDatabaseError(fmt.Errorf("apply effect %d/%d %s: %w", i+1, len(plan.Steps), step, err))
		}

		s.log.Info().
			Str("tx_id", tx.ID.String()).
			Str("target", string(step.Target)).
			Str("row_id", step.RowID.String()).
			Str("delta", step.Delta.String()).
			Str("new_balance", balance.String()).
			Msg("effect applied")
	}

	if plan.RecordsFee() {
		entry := &domain.FeeEntry{
			ID:            uuid.New(),
			TransactionID: tx.ID,
			BranchID:      tx.BranchID,
			Amount:        plan.Fee,
			CreatedAt:     s.now().UTC(),
		}
		if err := s.feeRepo.Create(ctx, entry); err != nil {
			s.log.Error().Err(err).Str("tx_id", tx.ID.String()).Msg("fee ledger row not written after balance effects")
			return apperror.ErrDatabaseError(fmt.Errorf("record earned fee: %w", err))
		}
	}
	return nil
}

func (s *TransactionServiceImpl) increment(ctx context.Context, e domain.Effect) (decimal.Decimal, error) {
	switch e.Target {
	case domain.TargetWalletBalance:
		return s.walletRepo.IncrementBalance(ctx, e.RowID, e.Delta)
	case domain.TargetBranchCash:
		return s.branchRepo.IncrementCash(ctx, e.RowID, e.Delta)
	case domain.TargetBranchFees:
		return s.branchRepo.IncrementFees(ctx, e.RowID, e.Delta)
	}
	return decimal.Zero, fmt.Errorf("unknown effect target %q", e.Target)
}
