package memory

import (
	"context"
	"slices"
	"time"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type walletsRepo struct{ s *Store }

func (r walletsRepo) Create(ctx context.Context, w models.Wallet) (models.Wallet, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Currency == "" {
		w.Currency = models.DefaultCurrency
	}
	if w.Status == "" {
		w.Status = models.WalletActive
	}
	if w.Balance.IsNegative() {
		return models.Wallet{}, apperr.New(apperr.KindBadRequest, "negative opening balance")
	}
	now := time.Now()
	w.CreatedAt, w.UpdatedAt = now, now

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.wallets[w.ID]; ok {
		return models.Wallet{}, apperr.New(apperr.KindDuplicateRequest, "wallet %s already exists", w.ID)
	}
	r.s.wallets[w.ID] = w
	record(ctx, func() { delete(r.s.wallets, w.ID) })
	return w, nil
}

func (r walletsRepo) Get(_ context.Context, id string) (models.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return models.Wallet{}, apperr.New(apperr.KindNotFound, "wallet %s not found", id)
	}
	return w, nil
}

func (r walletsRepo) LockForUpdate(ctx context.Context, id string) (models.Wallet, error) {
	if _, err := r.Get(ctx, id); err != nil {
		return models.Wallet{}, err
	}
	if err := r.s.lockRow(ctx, "wallet:"+id); err != nil {
		return models.Wallet{}, err
	}
	return r.Get(ctx, id)
}

func (r walletsRepo) ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return decimal.Zero, apperr.New(apperr.KindNotFound, "wallet %s not found", id)
	}
	next := w.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, apperr.New(apperr.KindInsufficientFunds, "wallet %s: insufficient funds", id)
	}
	if next.GreaterThanOrEqual(models.MaxAmount) {
		return decimal.Zero, apperr.New(apperr.KindBadRequest, "wallet %s: balance out of range", id)
	}
	prev := w
	w.Balance = next
	w.UpdatedAt = time.Now()
	r.s.wallets[id] = w
	record(ctx, func() { r.s.wallets[id] = prev })
	return next, nil
}

type ledgerRepo struct{ s *Store }

func (r ledgerRepo) Append(ctx context.Context, e models.LedgerEntry) (models.LedgerEntry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = time.Now()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.wallets[e.WalletID]; !ok {
		return models.LedgerEntry{}, apperr.New(apperr.KindNotFound, "wallet %s not found", e.WalletID)
	}
	r.s.entries = append(r.s.entries, e)
	record(ctx, func() { r.s.entries = slices.DeleteFunc(r.s.entries, func(x models.LedgerEntry) bool { return x.ID == e.ID }) })
	return e, nil
}

func (r ledgerRepo) ListByWallet(_ context.Context, walletID string, limit, offset int) ([]models.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.LedgerEntry
	for i := len(r.s.entries) - 1; i >= 0; i-- {
		if r.s.entries[i].WalletID == walletID {
			out = append(out, r.s.entries[i])
		}
	}
	return page(out, limit, offset), nil
}

func (r ledgerRepo) ListByRef(_ context.Context, ref models.Ref) ([]models.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range r.s.entries {
		if e.RefType == ref.Type && e.RefID == ref.ID {
			out = append(out, e)
		}
	}
	return out, nil
}

func page[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

type transfersRepo struct{ s *Store }

func (r transfersRepo) Create(ctx context.Context, t models.Transfer) (models.Transfer, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.transfers {
		if other.IdempotencyKey == t.IdempotencyKey && other.Status != models.StatusFailed {
			return models.Transfer{}, apperr.New(apperr.KindDuplicateRequest, "transfer with key %q already exists", t.IdempotencyKey)
		}
	}
	for _, id := range []string{t.SourceWalletID, t.DestWalletID} {
		if _, ok := r.s.wallets[id]; !ok {
			return models.Transfer{}, apperr.New(apperr.KindNotFound, "wallet %s not found", id)
		}
	}
	r.s.transfers[t.ID] = t
	r.s.tOrder = append(r.s.tOrder, t.ID)
	record(ctx, func() {
		delete(r.s.transfers, t.ID)
		r.s.tOrder = slices.DeleteFunc(r.s.tOrder, func(id string) bool { return id == t.ID })
	})
	return t, nil
}

func (r transfersRepo) Get(_ context.Context, id string) (models.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.transfers[id]
	if !ok {
		return models.Transfer{}, apperr.New(apperr.KindNotFound, "transfer %s not found", id)
	}
	return t, nil
}

func (r transfersRepo) ListByWallet(_ context.Context, walletID string, limit, offset int) ([]models.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Transfer
	for i := len(r.s.tOrder) - 1; i >= 0; i-- {
		t := r.s.transfers[r.s.tOrder[i]]
		if t.SourceWalletID == walletID || t.DestWalletID == walletID {
			out = append(out, t)
		}
	}
	return page(out, limit, offset), nil
}

func (r transfersRepo) UpdateStatus(ctx context.Context, id string, from, to models.Status, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.transfers[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "transfer %s not found", id)
	}
	if !models.CanTransition(from, to) {
		return apperr.New(apperr.KindInvalidState, "transfers %s: %s -> %s not allowed", id, from, to)
	}
	if t.Status != from {
		return apperr.New(apperr.KindInvalidState, "transfers %s is %s, not %s", id, t.Status, from)
	}
	prev := t
	t.Status, t.FailureReason, t.UpdatedAt = to, reason, time.Now()
	r.s.transfers[id] = t
	record(ctx, func() { r.s.transfers[id] = prev })
	return nil
}

type depositsRepo struct{ s *Store }

func (r depositsRepo) Create(ctx context.Context, d models.Deposit) (models.Deposit, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now()
	d.CreatedAt, d.UpdatedAt = now, now

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.deposits {
		if other.PgTrxID == d.PgTrxID && other.Status != models.StatusFailed {
			return models.Deposit{}, apperr.New(apperr.KindDuplicateRequest, "deposit %q already exists", d.PgTrxID)
		}
	}
	if _, ok := r.s.wallets[d.WalletID]; !ok {
		return models.Deposit{}, apperr.New(apperr.KindNotFound, "wallet %s not found", d.WalletID)
	}
	r.s.deposits[d.ID] = d
	record(ctx, func() { delete(r.s.deposits, d.ID) })
	return d, nil
}

func (r depositsRepo) Get(_ context.Context, id string) (models.Deposit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.deposits[id]
	if !ok {
		return models.Deposit{}, apperr.New(apperr.KindNotFound, "deposit %s not found", id)
	}
	return d, nil
}

func (r depositsRepo) UpdateStatus(ctx context.Context, id string, from, to models.Status, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.deposits[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "deposit %s not found", id)
	}
	if !models.CanTransition(from, to) {
		return apperr.New(apperr.KindInvalidState, "deposits %s: %s -> %s not allowed", id, from, to)
	}
	if d.Status != from {
		return apperr.New(apperr.KindInvalidState, "deposits %s is %s, not %s", id, d.Status, from)
	}
	prev := d
	d.Status, d.FailureReason, d.UpdatedAt = to, reason, time.Now()
	r.s.deposits[id] = d
	record(ctx, func() { r.s.deposits[id] = prev })
	return nil
}

type payoutsRepo struct{ s *Store }

func (r payoutsRepo) Create(ctx context.Context, p models.Payout) (models.Payout, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.payouts {
		if other.IdempotencyKey == p.IdempotencyKey && other.Status != models.StatusFailed {
			return models.Payout{}, apperr.New(apperr.KindDuplicateRequest, "payout with key %q already exists", p.IdempotencyKey)
		}
	}
	if _, ok := r.s.wallets[p.WalletID]; !ok {
		return models.Payout{}, apperr.New(apperr.KindNotFound, "wallet %s not found", p.WalletID)
	}
	r.s.payouts[p.ID] = p
	record(ctx, func() { delete(r.s.payouts, p.ID) })
	return p, nil
}

func (r payoutsRepo) Get(_ context.Context, id string) (models.Payout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payouts[id]
	if !ok {
		return models.Payout{}, apperr.New(apperr.KindNotFound, "payout %s not found", id)
	}
	return p, nil
}

func (r payoutsRepo) LockForUpdate(ctx context.Context, id string) (models.Payout, error) {
	if _, err := r.Get(ctx, id); err != nil {
		return models.Payout{}, err
	}
	if err := r.s.lockRow(ctx, "payout:"+id); err != nil {
		return models.Payout{}, err
	}
	return r.Get(ctx, id)
}

func (r payoutsRepo) UpdateStatus(ctx context.Context, id string, from, to models.Status, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payouts[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "payout %s not found", id)
	}
	if !models.CanPayoutTransition(from, to) {
		return apperr.New(apperr.KindInvalidState, "payouts %s: %s -> %s not allowed", id, from, to)
	}
	if p.Status != from {
		return apperr.New(apperr.KindInvalidState, "payouts %s is %s, not %s", id, p.Status, from)
	}
	prev := p
	p.Status, p.FailureReason, p.UpdatedAt = to, reason, time.Now()
	r.s.payouts[id] = p
	record(ctx, func() { r.s.payouts[id] = prev })
	return nil
}

type auditRepo struct{ s *Store }

func (r auditRepo) Create(_ context.Context, e models.AuditEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, have := range r.s.audit {
		if e.ID != "" && have.ID == e.ID {
			return nil
		}
	}
	r.s.audit = append(r.s.audit, e)
	return nil
}
