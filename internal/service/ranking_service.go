package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RankingServiceImpl implements ports.RankingService.
type RankingServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	loc        *time.Location
	now        func() time.Time
	log        zerolog.Logger
}

// NewRankingService creates a ranking service. "Today" for daily limits
// starts at midnight in loc.
func NewRankingService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	loc *time.Location,
	log zerolog.Logger,
) *RankingServiceImpl {
	if loc == nil {
		loc = time.UTC
	}
	return &RankingServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		loc:        loc,
		now:        time.Now,
		log:        log,
	}
}

// WithClock overrides the time source.
func (s *RankingServiceImpl) WithClock(now func() time.Time) *RankingServiceImpl {
	s.now = now
	return s
}

func (s *RankingServiceImpl) startOfDay() time.Time {
	t := s.now().In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// RankWallets evaluates every wallet of the branch against the request and
// returns them recommended first, then by descending balance.
func (s *RankingServiceImpl) RankWallets(ctx context.Context, req ports.RankRequest) ([]domain.Suggestion, error) {
	txType, err := domain.ParseTransactionType(req.Type)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.SafetyMargin.IsNegative() {
		return nil, apperror.Validation("safety margin must not be negative")
	}
	if req.BranchID == uuid.Nil {
		return nil, apperror.Validation("branch id is required")
	}

	wallets, err := s.walletRepo.ListByBranch(ctx, req.BranchID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list wallets: %w", err))
	}

	since := s.startOfDay()
	totals, err := s.txRepo.SumAmountsSince(ctx, since)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("sum today's transactions: %w", err))
	}

	dir := txType.Direction()
	suggestions := make([]domain.Suggestion, 0, len(wallets))
	for i := range wallets {
		w := &wallets[i]
		remaining := w.DailyLimit.Sub(totals[w.ID])
		warning := checkFeasibility(w, dir, req.Amount, req.SafetyMargin, remaining)

		suggestions = append(suggestions, domain.Suggestion{
			WalletID:            w.ID,
			Provider:            w.Provider,
			AvailableBalance:    w.Balance,
			RemainingDailyLimit: decimal.Max(remaining, decimal.Zero),
			IsRecommended:       warning == "",
			Warning:             warning,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.IsRecommended != b.IsRecommended {
			return a.IsRecommended
		}
		return a.AvailableBalance.GreaterThan(b.AvailableBalance)
	})

	s.log.Debug().
		Str("branch_id", req.BranchID.String()).
		Str("type", string(txType)).
		Str("amount", req.Amount.String()).
		Time("since", since).
		Int("candidates", len(suggestions)).
		Msg("ranked wallets")

	return suggestions, nil
}

// checkFeasibility returns the warning of the first failed check, or "".
func checkFeasibility(w *domain.Wallet, dir domain.Direction, amount, margin, remaining decimal.Decimal) string {
	switch {
	case dir == domain.DirectionReceive && !w.CanReceive:
		return domain.WarnReceiveUnavailable
	case dir == domain.DirectionSend && !w.CanSend:
		return domain.WarnSendUnavailable
	case dir == domain.DirectionSend && w.Balance.LessThan(amount.Add(margin)):
		return domain.WarnInsufficientFunds
	case remaining.LessThan(amount):
		return domain.WarnDailyLimit
	}
	return ""
}

// LatestUsedWallet returns the wallet of the branch's most recent transaction, or nil.
func (s *RankingServiceImpl) LatestUsedWallet(ctx context.Context, branchID uuid.UUID) (*uuid.UUID, error) {
	id, err := s.txRepo.LatestWalletForBranch(ctx, branchID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("latest wallet for branch: %w", err))
	}
	return id, nil
}
