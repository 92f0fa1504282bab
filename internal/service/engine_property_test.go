package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"wallet-ledger/internal/adapter/storage/memory"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ledgerHarness wires the real engine to the in-memory store.
type ledgerHarness struct {
	store   *memory.Store
	txSvc   *TransactionServiceImpl
	ranking *RankingServiceImpl
	branch  uuid.UUID
	now     time.Time
}

func newLedgerHarness(t *testing.T, locker ports.Locker) *ledgerHarness {
	t.Helper()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store := memory.NewStore().WithClock(clock)
	audit := NewAuditService(store.Audit(), zerolog.Nop())
	h := &ledgerHarness{
		store: store,
		txSvc: NewTransactionService(store.Transactions(), store.Wallets(), store.Branches(),
			store.Fees(), audit, locker, zerolog.Nop()).WithClock(clock),
		ranking: NewRankingService(store.Wallets(), store.Transactions(), time.UTC, zerolog.Nop()).WithClock(clock),
		branch:  uuid.New(),
		now:     now,
	}
	require.NoError(t, store.Branches().Create(context.Background(), &domain.Branch{
		ID: h.branch, Name: "Main", Status: domain.BranchStatusActive, CashBalance: decimal.Zero,
	}))
	return h
}

func (h *ledgerHarness) addWallet(t *testing.T, balance, dailyLimit string) uuid.UUID {
	t.Helper()
	w := &domain.Wallet{
		ID: uuid.New(), BranchID: h.branch, Provider: "Vodafone", Status: domain.WalletStatusActive,
		Balance: dec(balance), DailyLimit: dec(dailyLimit), CanSend: true, CanReceive: true,
	}
	require.NoError(t, h.store.Wallets().Create(context.Background(), w))
	return w.ID
}

func (h *ledgerHarness) setCash(t *testing.T, amount string) {
	t.Helper()
	b, err := h.store.Branches().GetByID(context.Background(), h.branch)
	require.NoError(t, err)
	_, err = h.store.Branches().IncrementCash(context.Background(), h.branch, dec(amount).Sub(b.CashBalance))
	require.NoError(t, err)
}

func (h *ledgerHarness) balance(t *testing.T, wallet uuid.UUID) decimal.Decimal {
	t.Helper()
	w, err := h.store.Wallets().GetByID(context.Background(), wallet)
	require.NoError(t, err)
	return w.Balance
}

func (h *ledgerHarness) branchState(t *testing.T) *domain.Branch {
	t.Helper()
	b, err := h.store.Branches().GetByID(context.Background(), h.branch)
	require.NoError(t, err)
	return b
}

func (h *ledgerHarness) create(t *testing.T, txType domain.TransactionType, status domain.TransactionStatus, wallet uuid.UUID, to *uuid.UUID, amount, fee string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := h.txSvc.CreateTransaction(context.Background(), ports.CreateTransactionRequest{
		ID: id, Type: string(txType), Status: string(status),
		Amount: dec(amount), FeeAmount: dec(fee),
		WalletID: wallet, ToWalletID: to, BranchID: h.branch, EmployeeID: uuid.New(),
	})
	require.NoError(t, err)
	return id
}

func (h *ledgerHarness) auditFor(t *testing.T, txID uuid.UUID) []domain.AuditEntry {
	t.Helper()
	entries, err := h.store.Audit().List(context.Background(), ports.AuditFilter{TransactionID: &txID})
	require.NoError(t, err)
	return entries
}

// Property 1: every approved transaction moves the ledger by exactly the
// table for its type, so totals can be recomputed independently.
func TestEngineProperty_BalanceConservation(t *testing.T) {
	h := newLedgerHarness(t, nil)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	wallets := []uuid.UUID{
		h.addWallet(t, "100000", "1000000"),
		h.addWallet(t, "100000", "1000000"),
		h.addWallet(t, "100000", "1000000"),
	}
	h.setCash(t, "100000")

	expWallet := map[uuid.UUID]decimal.Decimal{}
	for _, w := range wallets {
		expWallet[w] = dec("100000")
	}
	expCash, expFees := dec("100000"), decimal.Zero
	feeRows := 0

	for i := 0; i < 200; i++ {
		txType := domain.TransactionTypes[rng.Intn(len(domain.TransactionTypes))]
		src := wallets[rng.Intn(len(wallets))]
		amount := decimal.NewFromInt(int64(rng.Intn(900) + 100))
		fee := decimal.NewFromInt(int64(rng.Intn(20)))
		var to *uuid.UUID
		if txType == domain.TransactionTypeInternalTransfer {
			dst := wallets[(indexOf(wallets, src)+1)%len(wallets)]
			to = &dst
		}

		id := h.create(t, txType, domain.TransactionStatusPending, src, to, amount.String(), fee.String())
		_, err := h.txSvc.SetTransactionStatus(ctx, ports.SetStatusRequest{ID: id, Status: "Approved"})
		require.NoError(t, err)

		net := amount.Sub(fee)
		switch txType {
		case domain.TransactionTypeCashOut:
			expWallet[src] = expWallet[src].Add(amount)
			expCash = expCash.Sub(net)
			expFees = expFees.Add(fee)
			if fee.IsPositive() {
				feeRows++
			}
		case domain.TransactionTypeCashIn:
			expCash = expCash.Add(net)
			expWallet[src] = expWallet[src].Sub(net)
			expFees = expFees.Add(fee)
			if fee.IsPositive() {
				feeRows++
			}
		case domain.TransactionTypeIncomingTransfer:
			expWallet[src] = expWallet[src].Add(amount)
		case domain.TransactionTypeInternalTransfer:
			expWallet[src] = expWallet[src].Sub(amount)
			expWallet[*to] = expWallet[*to].Add(amount)
			expCash = expCash.Sub(fee)
		case domain.TransactionTypeBankDeposit:
			expCash = expCash.Sub(amount).Sub(fee)
			expWallet[src] = expWallet[src].Add(amount)
		}
	}

	for _, w := range wallets {
		assert.True(t, expWallet[w].Equal(h.balance(t, w)), "wallet %s: want %s got %s", w, expWallet[w], h.balance(t, w))
	}
	b := h.branchState(t)
	assert.True(t, expCash.Equal(b.CashBalance), "cash: want %s got %s", expCash, b.CashBalance)
	assert.True(t, expFees.Equal(b.EarnedFeesBalance))

	fees, err := h.store.Fees().ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, fees, feeRows)
}

func indexOf(ids []uuid.UUID, id uuid.UUID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// Property 2: approving an already approved transaction posts nothing.
func TestEngineProperty_IdempotentApproval(t *testing.T) {
	h := newLedgerHarness(t, nil)
	ctx := context.Background()
	w := h.addWallet(t, "0", "100000")
	h.setCash(t, "5000")

	id := h.create(t, domain.TransactionTypeCashOut, domain.TransactionStatusPending, w, nil, "1000", "20")
	for i := 0; i < 3; i++ {
		_, err := h.txSvc.SetTransactionStatus(ctx, ports.SetStatusRequest{ID: id, Status: "Approved"})
		require.NoError(t, err)
	}

	assert.True(t, dec("1000").Equal(h.balance(t, w)))
	assert.True(t, dec("4020").Equal(h.branchState(t).CashBalance))
	fees, err := h.store.Fees().ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, fees, 1)

	// Creating approved, then approving again, also posts once.
	id2 := h.create(t, domain.TransactionTypeIncomingTransfer, domain.TransactionStatusApproved, w, nil, "50", "0")
	_, err = h.txSvc.SetTransactionStatus(ctx, ports.SetStatusRequest{ID: id2, Status: "Approved"})
	require.NoError(t, err)
	assert.True(t, dec("1050").Equal(h.balance(t, w)))
}

// Property 2 under contention: with a keyed lock, racing approvals post once.
func TestEngineProperty_ConcurrentApprovalsWithLock(t *testing.T) {
	h := newLedgerHarness(t, NewLocalLocker(5*time.Second))
	ctx := context.Background()
	w := h.addWallet(t, "0", "100000")

	id := h.create(t, domain.TransactionTypeIncomingTransfer, domain.TransactionStatusPending, w, nil, "300", "0")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.txSvc.SetTransactionStatus(ctx, ports.SetStatusRequest{ID: id, Status: "Approved"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, dec("300").Equal(h.balance(t, w)))
	assert.Len(t, h.auditFor(t, id), 17) // one creation + 16 approvals
}

// Property 3: recommended wallets come first, each group by descending balance.
func TestEngineProperty_RankingOrder(t *testing.T) {
	h := newLedgerHarness(t, nil)
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 40; i++ {
		h.addWallet(t, decimal.NewFromInt(int64(rng.Intn(5000))).String(), decimal.NewFromInt(int64(rng.Intn(3000))).String())
	}

	for _, txType := range domain.TransactionTypes {
		got, err := h.ranking.RankWallets(context.Background(), ports.RankRequest{
			Type: string(txType), Amount: dec("1000"), BranchID: h.branch,
		})
		require.NoError(t, err)
		require.Len(t, got, 40)

		for i := 1; i < len(got); i++ {
			prev, cur := got[i-1], got[i]
			if prev.IsRecommended == cur.IsRecommended {
				assert.False(t, cur.AvailableBalance.GreaterThan(prev.AvailableBalance))
			} else {
				assert.True(t, prev.IsRecommended, "non-recommended before recommended at %d", i)
			}
		}
	}
}

// Property 4: a recommended wallet always has room left in today's limit.
func TestEngineProperty_DailyLimitEnforcement(t *testing.T) {
	h := newLedgerHarness(t, nil)
	rng := rand.New(rand.NewSource(3))

	var wallets []uuid.UUID
	for i := 0; i < 10; i++ {
		wallets = append(wallets, h.addWallet(t, "100000", "2000"))
	}
	for i := 0; i < 30; i++ {
		w := wallets[rng.Intn(len(wallets))]
		h.create(t, domain.TransactionTypeIncomingTransfer, domain.TransactionStatusPending, w, nil,
			decimal.NewFromInt(int64(rng.Intn(400)+1)).String(), "0")
	}

	amount := dec("500")
	got, err := h.ranking.RankWallets(context.Background(), ports.RankRequest{
		Type: "Incoming Transfer", Amount: amount, BranchID: h.branch,
	})
	require.NoError(t, err)

	totals, err := h.store.Transactions().SumAmountsSince(context.Background(), h.now.Truncate(24*time.Hour))
	require.NoError(t, err)
	for _, s := range got {
		remaining := dec("2000").Sub(totals[s.WalletID])
		if s.IsRecommended {
			assert.False(t, remaining.LessThan(amount))
		} else {
			assert.Equal(t, domain.WarnDailyLimit, s.Warning)
		}
	}
}

// Property 5: Cash Out 1000 with fee 20.
func TestEngineProperty_FeeAccounting(t *testing.T) {
	h := newLedgerHarness(t, nil)
	w := h.addWallet(t, "0", "100000")
	h.setCash(t, "0")

	id := h.create(t, domain.TransactionTypeCashOut, domain.TransactionStatusApproved, w, nil, "1000", "20")

	assert.True(t, dec("1000").Equal(h.balance(t, w)))
	b := h.branchState(t)
	assert.True(t, dec("-980").Equal(b.CashBalance))
	assert.True(t, dec("20").Equal(b.EarnedFeesBalance))

	fees, err := h.store.Fees().ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, fees, 1)
	assert.Equal(t, id, fees[0].TransactionID)
	assert.True(t, dec("20").Equal(fees[0].Amount))
}

// Property 6: each successful operation adds exactly one audit row.
func TestEngineProperty_AuditCompleteness(t *testing.T) {
	h := newLedgerHarness(t, nil)
	ctx := context.Background()
	w := h.addWallet(t, "10000", "100000")

	id := h.create(t, domain.TransactionTypeCashIn, domain.TransactionStatusDraft, w, nil, "100", "1")
	require.Len(t, h.auditFor(t, id), 1)

	_, err := h.txSvc.EditTransactionAmount(ctx, ports.EditAmountRequest{ID: id, Amount: dec("120"), Reason: "recount"})
	require.NoError(t, err)
	require.Len(t, h.auditFor(t, id), 2)

	_, err = h.txSvc.SetTransactionStatus(ctx, ports.SetStatusRequest{ID: id, Status: "Rejected"})
	require.NoError(t, err)
	require.Len(t, h.auditFor(t, id), 3)

	_, err = h.txSvc.SetTransactionStatus(ctx, ports.SetStatusRequest{ID: id, Status: "Approved"})
	require.NoError(t, err)

	entries := h.auditFor(t, id)
	require.Len(t, entries, 4)
	ops := map[domain.AuditOperation]int{}
	for _, e := range entries {
		ops[e.Operation]++
	}
	assert.Equal(t, map[domain.AuditOperation]int{
		domain.AuditOpCreation: 1, domain.AuditOpEdit: 1, domain.AuditOpRejection: 1, domain.AuditOpApproval: 1,
	}, ops)

	// Failed operations write nothing.
	_, err = h.txSvc.SetTransactionStatus(ctx, ports.SetStatusRequest{ID: id, Status: "Pending"})
	require.Error(t, err)
	assert.Len(t, h.auditFor(t, id), 4)
}

// Property 7: internal transfer scenario.
func TestEngineProperty_InternalTransferScenario(t *testing.T) {
	h := newLedgerHarness(t, nil)
	a := h.addWallet(t, "5000", "100000")
	b := h.addWallet(t, "1000", "100000")
	h.setCash(t, "2000")

	h.create(t, domain.TransactionTypeInternalTransfer, domain.TransactionStatusApproved, a, &b, "500", "10")

	assert.True(t, dec("4500").Equal(h.balance(t, a)))
	assert.True(t, dec("1500").Equal(h.balance(t, b)))
	assert.True(t, dec("1990").Equal(h.branchState(t).CashBalance))
	fees, err := h.store.Fees().ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fees)
}

// Property 8: daily limit 1000, 950 used today, 100 requested.
func TestEngineProperty_InfeasibleRanking(t *testing.T) {
	h := newLedgerHarness(t, nil)
	w := h.addWallet(t, "100000", "1000")
	h.create(t, domain.TransactionTypeIncomingTransfer, domain.TransactionStatusPending, w, nil, "950", "0")

	got, err := h.ranking.RankWallets(context.Background(), ports.RankRequest{
		Type: "Cash Out", Amount: dec("100"), BranchID: h.branch,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].IsRecommended)
	assert.Equal(t, domain.WarnDailyLimit, got[0].Warning)
	assert.True(t, dec("50").Equal(got[0].RemainingDailyLimit))
}

// Editing an approved transaction does not reverse what it already posted.
// Re-approving then posts the new amount on top.
func TestEngine_EditAfterApprovalKeepsPostedEffects(t *testing.T) {
	h := newLedgerHarness(t, nil)
	ctx := context.Background()
	w := h.addWallet(t, "0", "100000")

	id := h.create(t, domain.TransactionTypeIncomingTransfer, domain.TransactionStatusApproved, w, nil, "400", "0")
	require.True(t, dec("400").Equal(h.balance(t, w)))

	edited, err := h.txSvc.EditTransactionAmount(ctx, ports.EditAmountRequest{ID: id, Amount: dec("300"), Reason: "overstated"})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, edited.Status)
	assert.True(t, dec("400").Equal(h.balance(t, w)))

	_, err = h.txSvc.SetTransactionStatus(ctx, ports.SetStatusRequest{ID: id, Status: "Approved"})
	require.NoError(t, err)
	assert.True(t, dec("700").Equal(h.balance(t, w)))
}

func TestEngine_RejectAfterApprovalKeepsPostedEffects(t *testing.T) {
	h := newLedgerHarness(t, nil)
	w := h.addWallet(t, "0", "100000")

	id := h.create(t, domain.TransactionTypeIncomingTransfer, domain.TransactionStatusApproved, w, nil, "250", "0")
	_, err := h.txSvc.SetTransactionStatus(context.Background(), ports.SetStatusRequest{ID: id, Status: "Rejected"})
	require.NoError(t, err)
	assert.True(t, dec("250").Equal(h.balance(t, w)))
}

// failingAudit fails the n-th Append and forwards every other call.
type failingAudit struct {
	ports.AuditService
	failOn int
	calls  int
}

func (a *failingAudit) Append(ctx context.Context, e *domain.AuditEntry) error {
	a.calls++
	if a.calls == a.failOn {
		return errors.New("audit down")
	}
	return a.AuditService.Append(ctx, e)
}

// A failed audit write after the status is saved must not strand an Approved
// transaction without its effects: retrying the approval posts nothing twice.
func TestEngine_ApprovalSurvivesAuditFailure(t *testing.T) {
	h := newLedgerHarness(t, nil)
	ctx := context.Background()
	audit := &failingAudit{AuditService: NewAuditService(h.store.Audit(), zerolog.Nop()), failOn: 2}
	h.txSvc.audit = audit
	w := h.addWallet(t, "100", "100000")

	id := h.create(t, domain.TransactionTypeIncomingTransfer, domain.TransactionStatusPending, w, nil, "50", "0")

	_, err := h.txSvc.SetTransactionStatus(ctx, ports.SetStatusRequest{ID: id, Status: "Approved"})
	require.Error(t, err)
	assert.True(t, dec("150").Equal(h.balance(t, w)))

	got, err := h.txSvc.SetTransactionStatus(ctx, ports.SetStatusRequest{ID: id, Status: "Approved"})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusApproved, got.Status)
	assert.True(t, dec("150").Equal(h.balance(t, w)))
}

func TestEngine_ApprovedCreateSurvivesAuditFailure(t *testing.T) {
	h := newLedgerHarness(t, nil)
	ctx := context.Background()
	h.txSvc.audit = &failingAudit{AuditService: NewAuditService(h.store.Audit(), zerolog.Nop()), failOn: 1}
	w := h.addWallet(t, "100", "100000")

	_, err := h.txSvc.CreateTransaction(ctx, ports.CreateTransactionRequest{
		ID: uuid.New(), Type: string(domain.TransactionTypeIncomingTransfer), Status: string(domain.TransactionStatusApproved),
		Amount: dec("50"), WalletID: w, BranchID: h.branch, EmployeeID: uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, dec("150").Equal(h.balance(t, w)))
}
