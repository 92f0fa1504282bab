// Package memory is an in-process ledger store used for local development and
// engine tests. It honours the same contracts as the Postgres repositories:
// missing rows read as nil, increments are atomic, audit rows are append-only.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store holds every ledger table behind one mutex.
type Store struct {
	mu           sync.RWMutex
	branches     map[uuid.UUID]domain.Branch
	wallets      map[uuid.UUID]domain.Wallet
	transactions map[uuid.UUID]domain.Transaction
	audit        []domain.AuditEntry
	fees         []domain.FeeEntry
	cash         []domain.CashTransaction
	backups      map[uuid.UUID]domain.Backup
	now          func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		branches:     make(map[uuid.UUID]domain.Branch),
		wallets:      make(map[uuid.UUID]domain.Wallet),
		transactions: make(map[uuid.UUID]domain.Transaction),
		backups:      make(map[uuid.UUID]domain.Backup),
		now:          time.Now,
	}
}

// WithClock replaces the timestamp source. Used by tests that pin "today".
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Wallets() *WalletRepo { return &WalletRepo{s: s} }
func (s *Store) Branches() *BranchRepo { return &BranchRepo{s: s} }
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s: s} }
func (s *Store) Audit() *AuditRepo { return &AuditRepo{s: s} }
func (s *Store) Fees() *FeeRepo { return &FeeRepo{s: s} }
func (s *Store) CashTransactions() *CashTransactionRepo { return &CashTransactionRepo{s: s} }
func (s *Store) Backups() *BackupRepo { return &BackupRepo{s: s} }

// stamp fills CreatedAt when the caller left it zero.
func (s *Store) stamp(t *time.Time) {
	if t.IsZero() {
		*t = s.now()
	}
}

// --- Wallets ---

type WalletRepo struct{ s *Store }

var _ ports.WalletRepository = (*WalletRepo)(nil)

func (r *WalletRepo) Create(_ context.Context, w *domain.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.wallets[w.ID]; ok {
		return fmt.Errorf("wallet %s already exists", w.ID)
	}
	r.s.stamp(&w.CreatedAt)
	w.UpdatedAt = w.CreatedAt
	r.s.wallets[w.ID] = *w
	return nil
}

func (r *WalletRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *WalletRepo) ListByBranch(_ context.Context, branchID uuid.UUID) ([]domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Wallet
	for _, w := range r.s.wallets {
		if w.BranchID == branchID {
			out = append(out, w)
		}
	}
	sortByCreated(out, func(w domain.Wallet) (time.Time, string) { return w.CreatedAt, w.ID.String() })
	return out, nil
}

func (r *WalletRepo) ListAll(_ context.Context) ([]domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Wallet, 0, len(r.s.wallets))
	for _, w := range r.s.wallets {
		out = append(out, w)
	}
	sortByCreated(out, func(w domain.Wallet) (time.Time, string) { return w.CreatedAt, w.ID.String() })
	return out, nil
}

func (r *WalletRepo) IncrementBalance(_ context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("increment wallet %s: %w", id, ports.ErrRowNotFound)
	}
	w.Balance = w.Balance.Add(delta)
	w.UpdatedAt = r.s.now()
	r.s.wallets[id] = w
	return w.Balance, nil
}

// --- Branches ---

type BranchRepo struct{ s *Store }

var _ ports.BranchRepository = (*BranchRepo)(nil)

func (r *BranchRepo) Create(_ context.Context, b *domain.Branch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.branches[b.ID]; ok {
		return fmt.Errorf("branch %s already exists", b.ID)
	}
	r.s.stamp(&b.CreatedAt)
	b.UpdatedAt = b.CreatedAt
	r.s.branches[b.ID] = *b
	return nil
}

func (r *BranchRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Branch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.branches[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *BranchRepo) ListAll(_ context.Context) ([]domain.Branch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Branch, 0, len(r.s.branches))
	for _, b := range r.s.branches {
		out = append(out, b)
	}
	sortByCreated(out, func(b domain.Branch) (time.Time, string) { return b.CreatedAt, b.ID.String() })
	return out, nil
}

func (r *BranchRepo) IncrementCash(_ context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	return r.increment(id, "cash_balance", delta, func(b *domain.Branch) *decimal.Decimal { return &b.CashBalance })
}

func (r *BranchRepo) IncrementFees(_ context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	return r.increment(id, "earned_fees_balance", delta, func(b *domain.Branch) *decimal.Decimal { return &b.EarnedFeesBalance })
}

func (r *BranchRepo) increment(id uuid.UUID, column string, delta decimal.Decimal, field func(*domain.Branch) *decimal.Decimal) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.branches[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("increment %s of branch %s: %w", column, id, ports.ErrRowNotFound)
	}
	f := field(&b)
	*f = f.Add(delta)
	b.UpdatedAt = r.s.now()
	r.s.branches[id] = b
	return *f, nil
}

// --- Transactions ---

type TransactionRepo struct{ s *Store }

var _ ports.TransactionRepository = (*TransactionRepo)(nil)

func (r *TransactionRepo) Create(_ context.Context, tx *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.transactions[tx.ID]; ok {
		return fmt.Errorf("insert transaction %s: %w", tx.ID, ports.ErrDuplicateTransaction)
	}
	r.s.stamp(&tx.CreatedAt)
	tx.UpdatedAt = tx.CreatedAt
	r.s.transactions[tx.ID] = *tx
	return nil
}

func (r *TransactionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	tx, ok := r.s.transactions[id]
	if !ok {
		return nil, nil
	}
	return &tx, nil
}

func (r *TransactionRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.TransactionStatus, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.transactions[id]
	if !ok {
		return fmt.Errorf("update status of transaction %s: %w", id, ports.ErrRowNotFound)
	}
	tx.Status = status
	tx.UpdatedAt = updatedAt
	r.s.transactions[id] = tx
	return nil
}

func (r *TransactionRepo) UpdateAmount(_ context.Context, id uuid.UUID, amount decimal.Decimal, status domain.TransactionStatus, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.transactions[id]
	if !ok {
		return fmt.Errorf("update amount of transaction %s: %w", id, ports.ErrRowNotFound)
	}
	tx.Amount = amount
	tx.Status = status
	tx.UpdatedAt = updatedAt
	r.s.transactions[id] = tx
	return nil
}

func (r *TransactionRepo) SumAmountsSince(_ context.Context, since time.Time) (map[uuid.UUID]decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	totals := make(map[uuid.UUID]decimal.Decimal)
	for _, tx := range r.s.transactions {
		if tx.CreatedAt.Before(since) {
			continue
		}
		totals[tx.WalletID] = totals[tx.WalletID].Add(tx.Amount)
	}
	return totals, nil
}

func (r *TransactionRepo) LatestWalletForBranch(_ context.Context, branchID uuid.UUID) (*uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var latest *domain.Transaction
	for _, tx := range r.s.transactions {
		if tx.BranchID != branchID {
			continue
		}
		if latest == nil || tx.CreatedAt.After(latest.CreatedAt) {
			tx := tx
			latest = &tx
		}
	}
	if latest == nil {
		return nil, nil
	}
	id := latest.WalletID
	return &id, nil
}

func (r *TransactionRepo) ListAll(_ context.Context) ([]domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Transaction, 0, len(r.s.transactions))
	for _, tx := range r.s.transactions {
		out = append(out, tx)
	}
	sortByCreated(out, func(tx domain.Transaction) (time.Time, string) { return tx.CreatedAt, tx.ID.String() })
	return out, nil
}

// --- Audit ---

type AuditRepo struct{ s *Store }

var _ ports.AuditRepository = (*AuditRepo)(nil)

func (r *AuditRepo) Create(_ context.Context, e *domain.AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stamp(&e.CreatedAt)
	r.s.audit = append(r.s.audit, *e)
	return nil
}

// List returns entries newest first; entries with equal timestamps keep reverse insertion order.
func (r *AuditRepo) List(_ context.Context, f ports.AuditFilter) ([]domain.AuditEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.AuditEntry
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		e := r.s.audit[i]
		if f.TransactionID != nil && (e.TransactionID == nil || *e.TransactionID != *f.TransactionID) {
			continue
		}
		if f.BranchID != nil && (e.BranchID == nil || *e.BranchID != *f.BranchID) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// --- Fees ---

type FeeRepo struct{ s *Store }

var _ ports.FeeRepository = (*FeeRepo)(nil)

func (r *FeeRepo) Create(_ context.Context, e *domain.FeeEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stamp(&e.CreatedAt)
	r.s.fees = append(r.s.fees, *e)
	return nil
}

func (r *FeeRepo) ListAll(_ context.Context) ([]domain.FeeEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.FeeEntry(nil), r.s.fees...), nil
}

// --- Cash transactions ---

type CashTransactionRepo struct{ s *Store }

var _ ports.CashTransactionRepository = (*CashTransactionRepo)(nil)

func (r *CashTransactionRepo) Create(_ context.Context, ct *domain.CashTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stamp(&ct.CreatedAt)
	r.s.cash = append(r.s.cash, *ct)
	return nil
}

func (r *CashTransactionRepo) ListByBranch(_ context.Context, branchID uuid.UUID) ([]domain.CashTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.CashTransaction
	for i := len(r.s.cash) - 1; i >= 0; i-- {
		if r.s.cash[i].BranchID == branchID {
			out = append(out, r.s.cash[i])
		}
	}
	return out, nil
}

func (r *CashTransactionRepo) ListAll(_ context.Context) ([]domain.CashTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.CashTransaction(nil), r.s.cash...), nil
}

// --- Backups ---

type BackupRepo struct{ s *Store }

var _ ports.BackupRepository = (*BackupRepo)(nil)

func (r *BackupRepo) Create(_ context.Context, b *domain.Backup) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stamp(&b.CreatedAt)
	r.s.backups[b.ID] = *b
	return nil
}

func (r *BackupRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Backup, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.backups[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *BackupRepo) List(_ context.Context) ([]domain.Backup, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Backup, 0, len(r.s.backups))
	for _, b := range r.s.backups {
		b.Payload = ""
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- Restore ---

var _ ports.SnapshotRestorer = (*Store)(nil)

// Restore upserts every ledger row of the snapshot under a single lock.
// Audit entries already present (by id) are left untouched.
func (s *Store) Restore(_ context.Context, snap *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range snap.Branches {
		s.branches[b.ID] = b
	}
	for _, w := range snap.Wallets {
		s.wallets[w.ID] = w
	}
	for _, tx := range snap.Transactions {
		s.transactions[tx.ID] = tx
	}

	seenAudit := make(map[uuid.UUID]struct{}, len(s.audit))
	for _, e := range s.audit {
		seenAudit[e.ID] = struct{}{}
	}
	for _, e := range snap.AuditEntries {
		if _, ok := seenAudit[e.ID]; ok {
			continue
		}
		s.audit = append(s.audit, e)
	}

	s.fees = upsertByID(s.fees, snap.FeeEntries, func(e domain.FeeEntry) uuid.UUID { return e.ID })
	s.cash = upsertByID(s.cash, snap.CashTransactions, func(c domain.CashTransaction) uuid.UUID { return c.ID })
	return nil
}

func upsertByID[T any](existing, incoming []T, id func(T) uuid.UUID) []T {
	index := make(map[uuid.UUID]int, len(existing))
	for i, e := range existing {
		index[id(e)] = i
	}
	for _, in := range incoming {
		if i, ok := index[id(in)]; ok {
			existing[i] = in
			continue
		}
		index[id(in)] = len(existing)
		existing = append(existing, in)
	}
	return existing
}

func sortByCreated[T any](rows []T, key func(T) (time.Time, string)) {
	sort.Slice(rows, func(i, j int) bool {
		ti, idi := key(rows[i])
		tj, idj := key(rows[j])
		if ti.Equal(tj) {
			return idi < idj
		}
		return ti.Before(tj)
	})
}
