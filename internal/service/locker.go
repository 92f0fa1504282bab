package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
)

// NoopLocker performs no serialization. Concurrent approvals of the same
// transaction may both post effects; see the ledger.serialization setting.
type NoopLocker struct{}

// Lock returns immediately.
func (NoopLocker) Lock(context.Context, ...string) (func(), error) {
	return func() {}, nil
}

var errLocalLockTimeout = errors.New("local lock acquisition timed out")

// LocalLocker is an in-process keyed mutex for single-instance deployments.
type LocalLocker struct {
	mu      sync.Mutex
	slots   map[string]*lockSlot
	timeout time.Duration
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker creates a keyed mutex whose Lock gives up after timeout.
func NewLocalLocker(timeout time.Duration) *LocalLocker {
	return &LocalLocker{slots: make(map[string]*lockSlot), timeout: timeout}
}

// Lock acquires keys in the order given.
func (l *LocalLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	held := make([]string, 0, len(keys))
	for _, k := range keys {
		s := l.ref(k)
		select {
		case s.ch <- struct{}{}:
			held = append(held, k)
		case <-ctx.Done():
			l.unref(k)
			l.release(held)
			return nil, fmt.Errorf("lock %s: %w", k, errLocalLockTimeout)
		}
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(held) }) }, nil
}

func (l *LocalLocker) ref(key string) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.slots[key]
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *LocalLocker) release(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.mu.Lock()
		s := l.slots[keys[i]]
		l.mu.Unlock()
		<-s.ch
		l.unref(keys[i])
	}
}

var (
	_ ports.Locker = NoopLocker{}
	_ ports.Locker = (*LocalLocker)(nil)
)

// lockKeys returns the sorted, deduplicated keys for a transaction and the wallets it touches.
func lockKeys(txID uuid.UUID, walletIDs ...uuid.UUID) []string {
	set := map[string]struct{}{"tx:" + txID.String(): {}}
	for _, id := range walletIDs {
		if id == uuid.Nil {
			continue
		}
		set["wallet:"+id.String()] = struct{}{}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
