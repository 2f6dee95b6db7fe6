// Package memory implements the repository interfaces in process. It backs local runs with
// STORAGE_DRIVER=memory and the service tests. Row locks are held until the surrounding tx ends
// and a failed tx undoes its writes, mirroring the Postgres repositories.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	repo "github.com/baharkarakas/wallet-transfer/internal/repository"
	"github.com/baharkarakas/wallet-transfer/internal/models"
)

type Store struct {
	mu        sync.Mutex
	wallets   map[string]models.Wallet
	entries   []models.LedgerEntry
	transfers map[string]models.Transfer
	tOrder    []string
	deposits  map[string]models.Deposit
	payouts   map[string]models.Payout
	audit     []models.AuditEvent

	locksMu     sync.Mutex
	locks       map[string]chan struct{}
	lockTimeout time.Duration
}

func NewStore(lockTimeout time.Duration) *Store {
	return &Store{
		wallets:     map[string]models.Wallet{},
		transfers:   map[string]models.Transfer{},
		deposits:    map[string]models.Deposit{},
		payouts:     map[string]models.Payout{},
		locks:       map[string]chan struct{}{},
		lockTimeout: lockTimeout,
	}
}

// Repositories returns the store as a driver set, interchangeable with the Postgres one.
func (s *Store) Repositories() repo.Repositories {
	return repo.Repositories{
		Tx:            s,
		Wallets:       walletsRepo{s},
		LedgerEntries: ledgerRepo{s},
		Transfers:     transfersRepo{s},
		Deposits:      depositsRepo{s},
		Payouts:       payoutsRepo{s},
		AuditLogs:     auditRepo{s},
	}
}

type txKey struct{}

type tx struct {
	held []string
	undo []func()
}

func txFrom(ctx context.Context) *tx {
	t, _ := ctx.Value(txKey{}).(*tx)
	return t
}

// WithTx joins an outer tx when ctx carries one. Anything short of fn returning nil,
// a panic included, runs the undo log before the row locks go.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	t := &tx{}
	defer s.release(t)
	committed := false
	defer func() {
		if !committed {
			s.rollback(t)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) rollback(t *tx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// record registers an undo step; callers hold s.mu.
func record(ctx context.Context, undo func()) {
	if t := txFrom(ctx); t != nil {
		t.undo = append(t.undo, undo)
	}
}

func (s *Store) lockRow(ctx context.Context, key string) error {
	t := txFrom(ctx)
	if t == nil {
		return apperr.New(apperr.KindInternal, "lock %s outside transaction", key)
	}
	for _, h := range t.held {
		if h == key {
			return nil
		}
	}

	s.locksMu.Lock()
	ch, ok := s.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[key] = ch
	}
	s.locksMu.Unlock()

	var timeout <-chan time.Time
	if s.lockTimeout > 0 {
		timer := time.NewTimer(s.lockTimeout)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case ch <- struct{}{}:
		t.held = append(t.held, key)
		return nil
	case <-timeout:
		return apperr.New(apperr.KindLockTimeout, "lock %s: timed out", key)
	case <-ctx.Done():
		return apperr.Wrap(apperr.KindLockTimeout, ctx.Err(), "lock "+key)
	}
}

func (s *Store) release(t *tx) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	for _, key := range t.held {
		<-s.locks[key]
	}
	t.held = nil
}

// AuditEvents returns what the audit repository stored.
func (s *Store) AuditEvents() []models.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditEvent(nil), s.audit...)
}
