package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ShailySarker/digital-wallet-backend/internal/models"
)

// Store runs a function inside one atomic unit. Every wallet mutation
// and the ledger row it produces commit together or not at all.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of operations available inside an atomic unit.
// WalletForUpdate takes a row lock; callers that touch two wallets must
// acquire the locks in ascending account-ID order to avoid deadlock.
type Tx interface {
	AccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	// AccountByIdentity matches any of the given identifiers against
	// email or phone. Used for recipient resolution.
	AccountByIdentity(ctx context.Context, identifiers []string) (*models.Account, error)
	InsertAccount(ctx context.Context, a *models.Account) error
	UpdateAccount(ctx context.Context, a *models.Account) error

	InsertWallet(ctx context.Context, w *models.Wallet) error
	WalletByAccount(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error)
	WalletForUpdate(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error)
	WalletByIDForUpdate(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error)
	SetWalletBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error
	SetWalletStatus(ctx context.Context, walletID uuid.UUID, status models.WalletStatus) error

	InsertTransaction(ctx context.Context, t *models.Transaction) error
}
