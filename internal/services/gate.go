package services

import (
	"context"
	"slices"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	repo "github.com/baharkarakas/wallet-transfer/internal/repository"
)

// Gate serializes balance mutations per wallet. Locks live as long as the tx in ctx.
type Gate struct {
	wallets repo.Wallets
}

func NewGate(w repo.Wallets) *Gate { return &Gate{wallets: w} }

// Handle holds the wallets as they were when their locks were granted.
type Handle struct {
	wallets map[string]models.Wallet
}

func (h Handle) Wallet(id string) models.Wallet { return h.wallets[id] }

// AcquireExclusive locks each distinct id in ascending order. Two callers locking an
// overlapping set therefore always queue instead of deadlocking.
func (g *Gate) AcquireExclusive(ctx context.Context, ids ...string) (Handle, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	h := Handle{wallets: make(map[string]models.Wallet, len(sorted))}
	for _, id := range sorted {
		w, err := g.wallets.LockForUpdate(ctx, id)
		if err != nil {
			return Handle{}, err
		}
		if w.Status != models.WalletActive {
			return Handle{}, apperr.New(apperr.KindBadRequest, "wallet %s is %s", id, w.Status)
		}
		h.wallets[id] = w
	}
	return h, nil
}
