package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	"github.com/baharkarakas/wallet-transfer/internal/guard"
	"github.com/baharkarakas/wallet-transfer/internal/guard/guardtest"
	"github.com/baharkarakas/wallet-transfer/internal/logger"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	repo "github.com/baharkarakas/wallet-transfer/internal/repository"
	"github.com/baharkarakas/wallet-transfer/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type auditRecord struct {
	Action, Principal, Reference, Message string
	Result                                models.AuditResult
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []auditRecord
}

func (a *recordingAuditor) RecordSuccess(action, principal, reference string) {
	a.add(auditRecord{Action: action, Principal: principal, Reference: reference, Result: models.AuditSuccess})
}

func (a *recordingAuditor) RecordFailure(action, principal, reference, message string) {
	a.add(auditRecord{Action: action, Principal: principal, Reference: reference, Message: message, Result: models.AuditFail})
}

func (a *recordingAuditor) add(r auditRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, r)
}

func (a *recordingAuditor) all() []auditRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]auditRecord(nil), a.events...)
}

type notification struct {
	TransferID, ReceiverID, Currency string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) TransferCompleted(t models.Transfer, receiverID, currency string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{TransferID: t.ID, ReceiverID: receiverID, Currency: currency})
}

type harness struct {
	store    *memory.Store
	repos    repo.Repositories
	kv       *guardtest.KV
	audit    *recordingAuditor
	notifier *recordingNotifier
	deps     Deps

	transfers *TransferService
	deposits  *DepositService
	payouts   *PayoutService
	wallets   *WalletService
}

func newHarness(t *testing.T, policy Policy) *harness {
	t.Helper()
	h := &harness{
		store:    memory.NewStore(5 * time.Second),
		kv:       guardtest.NewKV(),
		audit:    &recordingAuditor{},
		notifier: &recordingNotifier{},
	}
	h.repos = h.store.Repositories()
	h.deps = Deps{
		Tx:        h.repos.Tx,
		Wallets:   h.repos.Wallets,
		Entries:   h.repos.LedgerEntries,
		Transfers: h.repos.Transfers,
		Deposits:  h.repos.Deposits,
		Payouts:   h.repos.Payouts,
		Limiter:   guard.NewRateLimiter(h.kv),
		Idem:      guard.NewIdempotency(h.kv),
		Audit:     h.audit,
		Notifier:  h.notifier,
		Policy:    policy,
		Log:       logger.Discard(),
	}
	h.transfers = NewTransferService(h.deps)
	h.deposits = NewDepositService(h.deps)
	h.payouts = NewPayoutService(h.deps)
	h.wallets = NewWalletService(h.deps)
	return h
}

func defaultPolicy() Policy {
	return Policy{
		IdempotencyTTL:    5 * time.Minute,
		TransferRateLimit: 60,
		PayoutRateLimit:   10,
		// long enough that no test straddles a window boundary
		RateWindow: time.Hour,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (h *harness) wallet(t *testing.T, user, balance string) models.Wallet {
	t.Helper()
	w, err := h.repos.Wallets.Create(context.Background(), models.Wallet{UserID: user, Balance: dec(balance)})
	require.NoError(t, err)
	return w
}

func (h *harness) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	w, err := h.repos.Wallets.Get(context.Background(), id)
	require.NoError(t, err)
	return w.Balance
}

func TestTransferMovesFunds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultPolicy())
	a := h.wallet(t, "alice", "100")
	b := h.wallet(t, "bob", "0")

	res, err := h.transfers.Create(ctx, "alice", TransferRequest{
		SourceWalletID: a.ID,
		DestWalletID:   b.ID,
		Amount:         dec("40"),
		IdempotencyKey: "k-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, res.Status)
	assert.True(t, h.balance(t, a.ID).Equal(dec("60")))
	assert.True(t, h.balance(t, b.ID).Equal(dec("40")))

	tr, err := h.transfers.Get(ctx, res.TransferID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tr.Status)
	assert.Equal(t, "alice", tr.Principal)

	entries, err := h.repos.LedgerEntries.ListByRef(ctx, models.Ref{Type: models.RefTransfer, ID: res.TransferID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.Debit, entries[0].Direction)
	assert.True(t, entries[0].BalanceAfter.Equal(dec("60")))
	assert.Equal(t, models.Credit, entries[1].Direction)
	assert.True(t, entries[1].BalanceAfter.Equal(dec("40")))

	events := h.audit.all()
	require.Len(t, events, 1)
	assert.Equal(t, auditRecord{Action: models.ActionTransferCreate, Principal: "alice", Reference: res.TransferID, Result: models.AuditSuccess}, events[0])

	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, notification{TransferID: res.TransferID, ReceiverID: "bob", Currency: models.DefaultCurrency}, h.notifier.sent[0])

	assert.True(t, h.kv.Has("idem:transfer:k-1"))
}

func TestTransferDuplicateKeyIsRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultPolicy())
	a := h.wallet(t, "alice", "100")
	b := h.wallet(t, "bob", "0")
	req := TransferRequest{SourceWalletID: a.ID, DestWalletID: b.ID, Amount: dec("40"), IdempotencyKey: "k-1"}

	_, err := h.transfers.Create(ctx, "alice", req)
	require.NoError(t, err)
	_, err = h.transfers.Create(ctx, "alice", req)
	assert.ErrorIs(t, err, apperr.ErrDuplicateRequest)

	assert.True(t, h.balance(t, a.ID).Equal(dec("60")))
	assert.Len(t, h.audit.all(), 1)
	list, err := h.transfers.ListByWallet(ctx, a.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTransferDuplicateKeyCaughtByStoreAfterClaimExpired(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultPolicy())
	a := h.wallet(t, "alice", "100")
	b := h.wallet(t, "bob", "0")
	req := TransferRequest{SourceWalletID: a.ID, DestWalletID: b.ID, Amount: dec("40"), IdempotencyKey: "k-1"}

	_, err := h.transfers.Create(ctx, "alice", req)
	require.NoError(t, err)

	// claim gone, row still there
	start := time.Now()
	h.kv.Now = func() time.Time { return start.Add(10 * time.Minute) }

	_, err = h.transfers.Create(ctx, "alice", req)
	assert.ErrorIs(t, err, apperr.ErrDuplicateRequest)
	assert.True(t, h.balance(t, a.ID).Equal(dec("60")))
	assert.Len(t, h.audit.all(), 1)
	assert.False(t, h.kv.Has("idem:transfer:k-1"))
}

func TestTransferInsufficientFundsThenRetrySameKey(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultPolicy())
	a := h.wallet(t, "alice", "100")
	b := h.wallet(t, "bob", "0")

	res, err := h.transfers.Create(ctx, "alice", TransferRequest{SourceWalletID: a.ID, DestWalletID: b.ID, Amount: dec("150"), IdempotencyKey: "k-1"})
	require.ErrorIs(t, err, apperr.ErrInsufficientFunds)
	assert.Equal(t, models.StatusFailed, res.Status)

	failed, err := h.transfers.Get(ctx, res.TransferID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.NotEmpty(t, failed.FailureReason)
	assert.True(t, h.balance(t, a.ID).Equal(dec("100")))
	assert.True(t, h.balance(t, b.ID).IsZero())
	assert.False(t, h.kv.Has("idem:transfer:k-1"))

	entries, err := h.repos.LedgerEntries.ListByWallet(ctx, a.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	retry, err := h.transfers.Create(ctx, "alice", TransferRequest{SourceWalletID: a.ID, DestWalletID: b.ID, Amount: dec("50"), IdempotencyKey: "k-1"})
	require.NoError(t, err)
	assert.NotEqual(t, res.TransferID, retry.TransferID)
	assert.True(t, h.balance(t, a.ID).Equal(dec("50")))
	assert.True(t, h.balance(t, b.ID).Equal(dec("50")))

	events := h.audit.all()
	require.Len(t, events, 2)
	assert.Equal(t, models.AuditFail, events[0].Result)
	assert.Equal(t, res.TransferID, events[0].Reference)
	assert.Contains(t, events[0].Message, "insufficient funds")
	assert.Equal(t, models.AuditSuccess, events[1].Result)
}

func TestTransferRateLimit(t *testing.T) {
	ctx := context.Background()
	p := defaultPolicy()
	p.TransferRateLimit = 3
	h := newHarness(t, p)
	a := h.wallet(t, "alice", "100")
	b := h.wallet(t, "bob", "0")

	for i := 0; i < 3; i++ {
		_, err := h.transfers.Create(ctx, "alice", TransferRequest{SourceWalletID: a.ID, DestWalletID: b.ID, Amount: dec("1"), IdempotencyKey: fmt.Sprintf("k-%d", i)})
		require.NoError(t, err)
	}
	_, err := h.transfers.Create(ctx, "alice", TransferRequest{SourceWalletID: a.ID, DestWalletID: b.ID, Amount: dec("1"), IdempotencyKey: "k-3"})
	assert.ErrorIs(t, err, apperr.ErrRateLimitExceeded)

	assert.Len(t, h.audit.all(), 3)
	assert.False(t, h.kv.Has("idem:transfer:k-3"))
	assert.True(t, h.balance(t, a.ID).Equal(dec("97")))

	// the limit is per source wallet
	_, err = h.transfers.Create(ctx, "bob", TransferRequest{SourceWalletID: b.ID, DestWalletID: a.ID, Amount: dec("1"), IdempotencyKey: "k-4"})
	assert.NoError(t, err)
}

func TestTransferValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultPolicy())
	a := h.wallet(t, "alice", "100")
	b := h.wallet(t, "bob", "0")
	long := make([]byte, 129)
	for i := range long {
		long[i] = 'k'
	}

	cases := []struct {
		name string
		req  TransferRequest
	}{
		{"missing source", TransferRequest{DestWalletID: b.ID, Amount: dec("1"), IdempotencyKey: "k"}},
		{"missing dest", TransferRequest{SourceWalletID: a.ID, Amount: dec("1"), IdempotencyKey: "k"}},
		{"same wallet", TransferRequest{SourceWalletID: a.ID, DestWalletID: a.ID, Amount: dec("1"), IdempotencyKey: "k"}},
		{"zero amount", TransferRequest{SourceWalletID: a.ID, DestWalletID: b.ID, Amount: dec("0"), IdempotencyKey: "k"}},
		{"negative amount", TransferRequest{SourceWalletID: a.ID, DestWalletID: b.ID, Amount: dec("-5"), IdempotencyKey: "k"}},
		{"three decimals", TransferRequest{SourceWalletID: a.ID, DestWalletID: b.ID, Amount: dec("1.001"), IdempotencyKey: "k"}},
		{"missing key", TransferRequest{SourceWalletID: a.ID, DestWalletID: b.ID, Amount: dec("1")}},
		{"long key", TransferRequest{SourceWalletID: a.ID, DestWalletID: b.ID, Amount: dec("1"), IdempotencyKey: string(long)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.transfers.Create(ctx, "alice", tc.req)
			assert.ErrorIs(t, err, apperr.ErrBadRequest)
		})
	}

	assert.Empty(t, h.audit.all())
	list, err := h.transfers.ListByWallet(ctx, a.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTransferFailuresInsideBodyAreAudited(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultPolicy())
	a := h.wallet(t, "alice", "100")
	usd, err := h.repos.Wallets.Create(ctx, models.Wallet{UserID: "carol", Currency: "USD"})
	require.NoError(t, err)
	closed, err := h.repos.Wallets.Create(ctx, models.Wallet{UserID: "dave", Status: models.WalletClosed})
	require.NoError(t, err)

	cases := []struct {
		name   string
		dest   string
		target error
	}{
		{"currency mismatch", usd.ID, apperr.ErrBadRequest},
		{"closed wallet", closed.ID, apperr.ErrBadRequest},
		{"unknown wallet", "no-such-wallet", apperr.ErrNotFound},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key := fmt.Sprintf("k-%d", i)
			_, err := h.transfers.Create(ctx, "alice", TransferRequest{SourceWalletID: a.ID, DestWalletID: tc.dest, Amount: dec("10"), IdempotencyKey: key})
			assert.ErrorIs(t, err, tc.target)
			assert.False(t, h.kv.Has("idem:transfer:"+key))
		})
	}

	assert.True(t, h.balance(t, a.ID).Equal(dec("100")))
	events := h.audit.all()
	require.Len(t, events, len(cases))
	for _, ev := range events {
		assert.Equal(t, models.AuditFail, ev.Result)
		assert.NotEmpty(t, ev.Reference)
	}
	// no record exists for the unknown wallet, so the key stands in
	assert.Equal(t, "k-2", events[2].Reference)
	assert.Empty(t, h.notifier.sent)
}

func TestConcurrentOpposingTransfers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultPolicy())
	a := h.wallet(t, "alice", "1000")
	b := h.wallet(t, "bob", "1000")

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src, dst := a.ID, b.ID
			if i%2 == 1 {
				src, dst = dst, src
			}
			_, err := h.transfers.Create(ctx, "p", TransferRequest{SourceWalletID: src, DestWalletID: dst, Amount: dec("10"), IdempotencyKey: fmt.Sprintf("c-%d", i)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.True(t, h.balance(t, a.ID).Equal(dec("1000")))
	assert.True(t, h.balance(t, b.ID).Equal(dec("1000")))
	entries, err := h.repos.LedgerEntries.ListByWallet(ctx, a.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, entries, n)
	assert.Len(t, h.audit.all(), n)
}

func TestConcurrentDrainNeverOverdraws(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultPolicy())
	a := h.wallet(t, "alice", "100")
	b := h.wallet(t, "bob", "0")

	const n = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, insufficient := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.transfers.Create(ctx, "alice", TransferRequest{SourceWalletID: a.ID, DestWalletID: b.ID, Amount: dec("15"), IdempotencyKey: fmt.Sprintf("d-%d", i)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperr.KindOf(err) == apperr.KindInsufficientFunds:
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 6, ok)
	assert.Equal(t, n-6, insufficient)
	assert.True(t, h.balance(t, a.ID).Equal(dec("10")))
	assert.True(t, h.balance(t, b.ID).Equal(dec("90")))
}

func TestDepositConfirm(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultPolicy())
	w := h.wallet(t, "alice", "0")
	req := DepositRequest{WalletID: w.ID, PgTrxID: "pg-1", VirtualAccount: "va-1", Amount: dec("25.50")}

	d, err := h.deposits.Confirm(ctx, "gateway", req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, d.Status)
	assert.True(t, h.balance(t, w.ID).Equal(dec("25.50")))

	_, err = h.deposits.Confirm(ctx, "gateway", req)
	assert.ErrorIs(t, err, apperr.ErrDuplicateRequest)
	assert.True(t, h.balance(t, w.ID).Equal(dec("25.50")))

	stored, err := h.deposits.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)

	events := h.audit.all()
	require.Len(t, events, 1)
	assert.Equal(t, models.ActionDepositConfirm, events[0].Action)
	assert.Equal(t, d.ID, events[0].Reference)
}

func TestDepositToClosedWalletFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultPolicy())
	w, err := h.repos.Wallets.Create(ctx, models.Wallet{UserID: "alice", Status: models.WalletClosed})
	require.NoError(t, err)

	d, err := h.deposits.Confirm(ctx, "gateway", DepositRequest{WalletID: w.ID, PgTrxID: "pg-1", Amount: dec("10")})
	require.ErrorIs(t, err, apperr.ErrBadRequest)
	stored, err := h.deposits.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)
	assert.True(t, h.balance(t, w.ID).IsZero())
	assert.Equal(t, models.AuditFail, h.audit.all()[0].Result)
}

func TestPayoutLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultPolicy())
	w := h.wallet(t, "alice", "100")

	paid, err := h.payouts.Request(ctx, "alice", PayoutRequest{WalletID: w.ID, BankCode: "004", AccountNo: "123", Amount: dec("30"), IdempotencyKey: "p-1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, paid.Status)
	assert.True(t, h.balance(t, w.ID).Equal(dec("70")))

	refunded, err := h.payouts.Request(ctx, "alice", PayoutRequest{WalletID: w.ID, BankCode: "004", AccountNo: "123", Amount: dec("20"), IdempotencyKey: "p-2"})
	require.NoError(t, err)
	assert.True(t, h.balance(t, w.ID).Equal(dec("50")))

	got, err := h.payouts.Settle(ctx, "bank", paid.ID, SettleRequest{Succeeded: true})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, got.Status)
	assert.True(t, h.balance(t, w.ID).Equal(dec("50")))

	got, err = h.payouts.Settle(ctx, "bank", refunded.ID, SettleRequest{Succeeded: false, Reason: "account closed"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "account closed", got.FailureReason)
	assert.True(t, h.balance(t, w.ID).Equal(dec("70")))

	_, err = h.payouts.Settle(ctx, "bank", paid.ID, SettleRequest{Succeeded: false})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	assert.True(t, h.balance(t, w.ID).Equal(dec("70")))

	entries, err := h.repos.LedgerEntries.ListByRef(ctx, models.Ref{Type: models.RefPayout, ID: refunded.ID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.Debit, entries[0].Direction)
	assert.Equal(t, models.Credit, entries[1].Direction)

	var actions []string
	for _, ev := range h.audit.all() {
		actions = append(actions, ev.Action+"/"+string(ev.Result))
	}
	assert.Equal(t, []string{
		"PAYOUT_REQUEST/SUCCESS",
		"PAYOUT_REQUEST/SUCCESS",
		"PAYOUT_SETTLE/SUCCESS",
		"PAYOUT_SETTLE/SUCCESS",
		"PAYOUT_SETTLE/FAIL",
	}, actions)
}

func TestPayoutInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultPolicy())
	w := h.wallet(t, "alice", "10")

	p, err := h.payouts.Request(ctx, "alice", PayoutRequest{WalletID: w.ID, BankCode: "004", AccountNo: "123", Amount: dec("30"), IdempotencyKey: "p-1"})
	require.ErrorIs(t, err, apperr.ErrInsufficientFunds)
	assert.Equal(t, models.StatusFailed, p.Status)

	_, err = h.payouts.Settle(ctx, "bank", p.ID, SettleRequest{Succeeded: true})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	assert.True(t, h.balance(t, w.ID).Equal(dec("10")))
}

func TestWalletOpenAndEntries(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultPolicy())

	w, err := h.wallets.Open(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCurrency, w.Currency)
	assert.Equal(t, models.WalletActive, w.Status)
	assert.True(t, w.Balance.IsZero())

	_, err = h.deposits.Confirm(ctx, "gateway", DepositRequest{WalletID: w.ID, PgTrxID: "pg-1", Amount: dec("5")})
	require.NoError(t, err)
	_, err = h.deposits.Confirm(ctx, "gateway", DepositRequest{WalletID: w.ID, PgTrxID: "pg-2", Amount: dec("7")})
	require.NoError(t, err)

	entries, err := h.wallets.Entries(ctx, w.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].BalanceAfter.Equal(dec("12")))
	assert.True(t, entries[1].BalanceAfter.Equal(dec("5")))

	_, err = h.wallets.Entries(ctx, "missing", 10, 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = h.wallets.Open(ctx, "", "KRW")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

// faultyEntries panics on appends of one direction.
type faultyEntries struct {
	repo.LedgerEntries
	on models.Direction
}

func (f faultyEntries) Append(ctx context.Context, e models.LedgerEntry) (models.LedgerEntry, error) {
	if e.Direction == f.on {
		panic("ledger write fault")
	}
	return f.LedgerEntries.Append(ctx, e)
}

func TestTransferUnexpectedFaultRollsBackAndFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultPolicy())
	a := h.wallet(t, "alice", "100")
	b := h.wallet(t, "bob", "0")
	d := h.deps
	d.Entries = faultyEntries{LedgerEntries: h.repos.LedgerEntries, on: models.Credit}
	faulty := NewTransferService(d)
	req := TransferRequest{SourceWalletID: a.ID, DestWalletID: b.ID, Amount: dec("40"), IdempotencyKey: "k1"}

	res, err := faulty.Create(ctx, "alice", req)
	require.ErrorIs(t, err, apperr.ErrInternal)
	assert.Equal(t, models.StatusFailed, res.Status)

	assert.True(t, h.balance(t, a.ID).Equal(dec("100")))
	assert.True(t, h.balance(t, b.ID).IsZero())
	entries, err := h.repos.LedgerEntries.ListByWallet(ctx, a.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	tr, err := h.transfers.Get(ctx, res.TransferID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, tr.Status)
	assert.Contains(t, tr.FailureReason, "unexpected fault")

	events := h.audit.all()
	require.Len(t, events, 1)
	assert.Equal(t, models.AuditFail, events[0].Result)
	assert.Equal(t, res.TransferID, events[0].Reference)
	assert.False(t, h.kv.Has("idem:transfer:k1"))
	assert.Empty(t, h.notifier.sent)

	retry, err := h.transfers.Create(ctx, "alice", req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, retry.Status)
	assert.True(t, h.balance(t, a.ID).Equal(dec("60")))
	assert.True(t, h.balance(t, b.ID).Equal(dec("40")))
}

func TestDepositUnexpectedFaultRollsBackAndFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultPolicy())
	w := h.wallet(t, "alice", "0")
	d := h.deps
	d.Entries = faultyEntries{LedgerEntries: h.repos.LedgerEntries, on: models.Credit}

	dep, err := NewDepositService(d).Confirm(ctx, "pg-webhook", DepositRequest{WalletID: w.ID, PgTrxID: "pg-1", Amount: dec("10")})
	require.ErrorIs(t, err, apperr.ErrInternal)
	assert.Equal(t, models.StatusFailed, dep.Status)
	assert.True(t, h.balance(t, w.ID).IsZero())
	assert.False(t, h.kv.Has("idem:deposit:pg-1"))

	got, err := h.deposits.Get(ctx, dep.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	require.Len(t, h.audit.all(), 1)
	assert.Equal(t, models.AuditFail, h.audit.all()[0].Result)
}
