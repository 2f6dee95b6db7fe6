package services

import (
	"context"
	"strings"

	"github.com/baharkarakas/wallet-transfer/internal/models"
	repo "github.com/baharkarakas/wallet-transfer/internal/repository"
	"github.com/baharkarakas/wallet-transfer/internal/validate"
)

type WalletService struct {
	wallets repo.Wallets
	ledger  *Ledger
}

func NewWalletService(d Deps) *WalletService {
	return &WalletService{wallets: d.Wallets, ledger: NewLedger(d.Wallets, d.Entries)}
}

// Open creates an empty active wallet owned by userID.
func (s *WalletService) Open(ctx context.Context, userID, currency string) (models.Wallet, error) {
	if err := validate.Check(
		validate.Required("user_id", userID),
		validate.MaxLen("currency", currency, 3),
	); err != nil {
		return models.Wallet{}, err
	}
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return s.wallets.Create(ctx, models.Wallet{
		UserID:   userID,
		Currency: strings.ToUpper(currency),
		Status:   models.WalletActive,
	})
}

func (s *WalletService) Get(ctx context.Context, id string) (models.Wallet, error) {
	return s.wallets.Get(ctx, id)
}

func (s *WalletService) Entries(ctx context.Context, id string, limit, offset int) ([]models.LedgerEntry, error) {
	return s.ledger.Entries(ctx, id, limit, offset)
}
