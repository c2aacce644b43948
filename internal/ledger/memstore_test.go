package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
	"github.com/ShailySarker/digital-wallet-backend/internal/repository"
)

// memStore is an in-memory Store for engine tests. InTx serializes
// units with a mutex and rolls back by restoring a snapshot, so the
// commit-or-nothing behavior matches the real store.
type memStore struct {
	mu           sync.Mutex
	accounts     map[uuid.UUID]*models.Account
	wallets      map[uuid.UUID]*models.Wallet // keyed by wallet ID
	transactions []models.Transaction
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[uuid.UUID]*models.Account),
		wallets:  make(map[uuid.UUID]*models.Wallet),
	}
}

func (s *memStore) InTx(_ context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.clone()
	if err := fn(&memTx{store: s}); err != nil {
		s.accounts = snapshot.accounts
		s.wallets = snapshot.wallets
		s.transactions = snapshot.transactions
		return err
	}
	return nil
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	for id, a := range s.accounts {
		cp := *a
		c.accounts[id] = &cp
	}
	for id, w := range s.wallets {
		cp := *w
		c.wallets[id] = &cp
	}
	c.transactions = append([]models.Transaction(nil), s.transactions...)
	return c
}

func (s *memStore) addAccount(a models.Account, balance decimal.Decimal, status models.WalletStatus) (accountID, walletID uuid.UUID) {
	a.ID = uuid.New()
	s.accounts[a.ID] = &a
	w := &models.Wallet{
		ID:        uuid.New(),
		AccountID: a.ID,
		Balance:   balance,
		Status:    status,
	}
	s.wallets[w.ID] = w
	return a.ID, w.ID
}

func (s *memStore) walletByAccount(accountID uuid.UUID) *models.Wallet {
	for _, w := range s.wallets {
		if w.AccountID == accountID {
			return w
		}
	}
	return nil
}

type memTx struct {
	store *memStore
}

func (t *memTx) AccountByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	a, ok := t.store.accounts[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "account not found")
	}
	cp := *a
	return &cp, nil
}

func (t *memTx) AccountByIdentity(_ context.Context, identifiers []string) (*models.Account, error) {
	for _, a := range t.store.accounts {
		for _, ident := range identifiers {
			if a.Email == ident || a.Phone == ident {
				cp := *a
				return &cp, nil
			}
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "account not found")
}

func (t *memTx) InsertAccount(_ context.Context, a *models.Account) error {
	cp := *a
	t.store.accounts[a.ID] = &cp
	return nil
}

func (t *memTx) UpdateAccount(_ context.Context, a *models.Account) error {
	if _, ok := t.store.accounts[a.ID]; !ok {
		return apperr.New(apperr.KindNotFound, "account not found")
	}
	cp := *a
	t.store.accounts[a.ID] = &cp
	return nil
}

func (t *memTx) InsertWallet(_ context.Context, w *models.Wallet) error {
	cp := *w
	t.store.wallets[w.ID] = &cp
	return nil
}

func (t *memTx) WalletByAccount(_ context.Context, accountID uuid.UUID) (*models.Wallet, error) {
	return t.WalletForUpdate(context.Background(), accountID)
}

func (t *memTx) WalletForUpdate(_ context.Context, accountID uuid.UUID) (*models.Wallet, error) {
	w := t.store.walletByAccount(accountID)
	if w == nil {
		return nil, apperr.New(apperr.KindNotFound, "wallet not found")
	}
	cp := *w
	return &cp, nil
}

func (t *memTx) WalletByIDForUpdate(_ context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	w, ok := t.store.wallets[walletID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "wallet not found")
	}
	cp := *w
	return &cp, nil
}

func (t *memTx) SetWalletBalance(_ context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	w, ok := t.store.wallets[walletID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "wallet not found")
	}
	if balance.IsNegative() {
		return apperr.New(apperr.KindInternal, "balance constraint violated")
	}
	w.Balance = balance
	return nil
}

func (t *memTx) SetWalletStatus(_ context.Context, walletID uuid.UUID, status models.WalletStatus) error {
	w, ok := t.store.wallets[walletID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "wallet not found")
	}
	w.Status = status
	return nil
}

func (t *memTx) InsertTransaction(_ context.Context, txn *models.Transaction) error {
	t.store.transactions = append(t.store.transactions, *txn)
	return nil
}
