// Package ledger implements the money-movement operations. Every
// operation runs inside one atomic unit: precondition checks, balance
// mutations, and exactly one transaction row, committed together or
// rolled back together.
package ledger

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
	"github.com/ShailySarker/digital-wallet-backend/internal/authz"
	"github.com/ShailySarker/digital-wallet-backend/internal/config"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
	"github.com/ShailySarker/digital-wallet-backend/internal/repository"
)

// Publisher emits a best-effort event after a unit commits. Publishing
// failures never affect committed state.
type Publisher interface {
	PublishTransaction(ctx context.Context, event models.TransactionEvent) error
}

type Engine struct {
	store     repository.Store
	policy    config.WalletPolicy
	publisher Publisher // optional
}

func NewEngine(store repository.Store, policy config.WalletPolicy, publisher Publisher) *Engine {
	return &Engine{store: store, policy: policy, publisher: publisher}
}

// Deposit credits the caller's own wallet. The transaction row is
// self-referential: from == to == the caller's wallet.
func (e *Engine) Deposit(ctx context.Context, actorID uuid.UUID, amount decimal.Decimal) (*models.Wallet, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	if amount.LessThan(e.policy.MinDeposit) {
		return nil, apperr.Newf(apperr.KindInvalidAmount, "minimum deposit amount is %s", e.policy.MinDeposit)
	}

	var wallet *models.Wallet
	var txn *models.Transaction
	err := e.store.InTx(ctx, func(tx repository.Tx) error {
		actor, err := tx.AccountByID(ctx, actorID)
		if err != nil {
			return err
		}
		if err := authz.Allow(actor, authz.OpDeposit); err != nil {
			return err
		}

		wallet, err = tx.WalletForUpdate(ctx, actorID)
		if err != nil {
			return err
		}
		if wallet.Status == models.WalletBlocked {
			return apperr.New(apperr.KindInvalidState, "wallet is blocked")
		}

		wallet.Balance = wallet.Balance.Add(amount)
		if err := tx.SetWalletBalance(ctx, wallet.ID, wallet.Balance); err != nil {
			return err
		}

		txn = newTransaction(wallet.ID, wallet.ID, amount, decimal.Zero, decimal.Zero,
			models.TransactionTypeDeposit, actorID)
		return tx.InsertTransaction(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, txn)
	return wallet, nil
}

// Withdraw debits the caller's own wallet.
func (e *Engine) Withdraw(ctx context.Context, actorID uuid.UUID, amount decimal.Decimal) (*models.Wallet, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	if amount.LessThan(e.policy.MinWithdraw) {
		return nil, apperr.Newf(apperr.KindInvalidAmount, "minimum withdraw amount is %s", e.policy.MinWithdraw)
	}

	var wallet *models.Wallet
	var txn *models.Transaction
	err := e.store.InTx(ctx, func(tx repository.Tx) error {
		actor, err := tx.AccountByID(ctx, actorID)
		if err != nil {
			return err
		}
		if err := authz.Allow(actor, authz.OpWithdraw); err != nil {
			return err
		}

		wallet, err = tx.WalletForUpdate(ctx, actorID)
		if err != nil {
			return err
		}
		if wallet.Status == models.WalletBlocked {
			return apperr.New(apperr.KindInvalidState, "wallet is blocked")
		}
		if wallet.Balance.LessThan(amount) {
			return apperr.New(apperr.KindInvalidAmount, "insufficient balance")
		}

		wallet.Balance = wallet.Balance.Sub(amount)
		if err := tx.SetWalletBalance(ctx, wallet.ID, wallet.Balance); err != nil {
			return err
		}

		txn = newTransaction(wallet.ID, wallet.ID, amount, decimal.Zero, decimal.Zero,
			models.TransactionTypeWithdraw, actorID)
		return tx.InsertTransaction(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, txn)
	return wallet, nil
}

// SendResult carries both wallet snapshots after a transfer.
type SendResult struct {
	SenderWallet    *models.Wallet `json:"sender_wallet"`
	RecipientWallet *models.Wallet `json:"recipient_wallet"`
}

// Send moves amount from the caller to a recipient resolved by phone or
// email. The sender pays amount plus the transfer fee; the recipient is
// credited amount only. The fee is retained by the system, not credited
// to any wallet.
func (e *Engine) Send(ctx context.Context, senderID uuid.UUID, recipientLookup string, amount decimal.Decimal) (*SendResult, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	fee := percentOf(amount, e.policy.FeeRate)

	var result SendResult
	var txn *models.Transaction
	err := e.store.InTx(ctx, func(tx repository.Tx) error {
		sender, err := tx.AccountByID(ctx, senderID)
		if err != nil {
			return err
		}
		if err := authz.Allow(sender, authz.OpSend); err != nil {
			return err
		}

		recipient, err := tx.AccountByIdentity(ctx, e.lookupIdentifiers(recipientLookup))
		if err != nil {
			return err
		}
		if recipient.Role == models.RoleAdmin {
			return apperr.New(apperr.KindForbidden, "receiver account is not a user or agent")
		}
		if recipient.ID == senderID {
			return apperr.New(apperr.KindForbidden, "cannot send money to yourself")
		}
		if err := authz.CheckCounterparty(recipient, ""); err != nil {
			return err
		}

		senderWallet, recipientWallet, err := lockPair(ctx, tx, senderID, recipient.ID)
		if err != nil {
			return err
		}
		if senderWallet.Status == models.WalletBlocked {
			return apperr.New(apperr.KindInvalidState, "sender wallet is blocked")
		}
		if recipientWallet.Status == models.WalletBlocked {
			return apperr.New(apperr.KindInvalidState, "recipient wallet is blocked")
		}

		total := amount.Add(fee)
		if senderWallet.Balance.LessThan(total) {
			return apperr.New(apperr.KindInvalidAmount, "insufficient balance")
		}

		senderWallet.Balance = senderWallet.Balance.Sub(total)
		if err := tx.SetWalletBalance(ctx, senderWallet.ID, senderWallet.Balance); err != nil {
			return err
		}
		recipientWallet.Balance = recipientWallet.Balance.Add(amount)
		if err := tx.SetWalletBalance(ctx, recipientWallet.ID, recipientWallet.Balance); err != nil {
			return err
		}

		txn = newTransaction(senderWallet.ID, recipientWallet.ID, amount, fee, decimal.Zero,
			models.TransactionTypeSend, senderID)
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}

		result = SendResult{SenderWallet: senderWallet, RecipientWallet: recipientWallet}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, txn)
	return &result, nil
}

// CashInResult carries both wallet snapshots after an agent-mediated
// deposit or withdrawal.
type CashInResult struct {
	AgentWallet *models.Wallet `json:"agent_wallet"`
	UserWallet  *models.Wallet `json:"user_wallet"`
}

// CashIn moves amount from the agent's wallet into a user's wallet.
// No fee or commission applies.
func (e *Engine) CashIn(ctx context.Context, agentID uuid.UUID, userPhone string, amount decimal.Decimal) (*CashInResult, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}

	var result CashInResult
	var txn *models.Transaction
	err := e.store.InTx(ctx, func(tx repository.Tx) error {
		agent, err := tx.AccountByID(ctx, agentID)
		if err != nil {
			return err
		}
		if err := authz.Allow(agent, authz.OpCashIn); err != nil {
			return err
		}

		user, err := tx.AccountByIdentity(ctx, models.PhoneVariants(userPhone, e.policy.PhonePrefix))
		if err != nil {
			return err
		}
		if user.ID == agentID {
			return apperr.New(apperr.KindForbidden, "cannot cash-in to yourself")
		}
		if err := authz.CheckCounterparty(user, models.RoleUser); err != nil {
			return err
		}

		agentWallet, userWallet, err := lockPair(ctx, tx, agentID, user.ID)
		if err != nil {
			return err
		}
		if agentWallet.Status == models.WalletBlocked {
			return apperr.New(apperr.KindInvalidState, "agent wallet is blocked")
		}
		if userWallet.Status == models.WalletBlocked {
			return apperr.New(apperr.KindInvalidState, "user wallet is blocked")
		}
		if agentWallet.Balance.LessThan(amount) {
			return apperr.New(apperr.KindInvalidAmount, "insufficient balance")
		}

		agentWallet.Balance = agentWallet.Balance.Sub(amount)
		if err := tx.SetWalletBalance(ctx, agentWallet.ID, agentWallet.Balance); err != nil {
			return err
		}
		userWallet.Balance = userWallet.Balance.Add(amount)
		if err := tx.SetWalletBalance(ctx, userWallet.ID, userWallet.Balance); err != nil {
			return err
		}

		txn = newTransaction(agentWallet.ID, userWallet.ID, amount, decimal.Zero, decimal.Zero,
			models.TransactionTypeCashIn, agentID)
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}

		result = CashInResult{AgentWallet: agentWallet, UserWallet: userWallet}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, txn)
	return &result, nil
}

// CashOut moves amount from a user's wallet to the agent's wallet. The
// user pays amount plus commission; the agent is credited amount only.
// The commission is retained by the system.
func (e *Engine) CashOut(ctx context.Context, agentID uuid.UUID, userPhone string, amount decimal.Decimal) (*CashInResult, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	commission := percentOf(amount, e.policy.CommissionRate)

	var result CashInResult
	var txn *models.Transaction
	err := e.store.InTx(ctx, func(tx repository.Tx) error {
		agent, err := tx.AccountByID(ctx, agentID)
		if err != nil {
			return err
		}
		if err := authz.Allow(agent, authz.OpCashOut); err != nil {
			return err
		}

		user, err := tx.AccountByIdentity(ctx, models.PhoneVariants(userPhone, e.policy.PhonePrefix))
		if err != nil {
			return err
		}
		if user.ID == agentID {
			return apperr.New(apperr.KindForbidden, "cannot cash-out from yourself")
		}
		if err := authz.CheckCounterparty(user, models.RoleUser); err != nil {
			return err
		}

		agentWallet, userWallet, err := lockPair(ctx, tx, agentID, user.ID)
		if err != nil {
			return err
		}
		if agentWallet.Status == models.WalletBlocked {
			return apperr.New(apperr.KindInvalidState, "agent wallet is blocked")
		}
		if userWallet.Status == models.WalletBlocked {
			return apperr.New(apperr.KindInvalidState, "user wallet is blocked")
		}

		total := amount.Add(commission)
		if userWallet.Balance.LessThan(total) {
			return apperr.New(apperr.KindInvalidAmount, "insufficient balance")
		}

		userWallet.Balance = userWallet.Balance.Sub(total)
		if err := tx.SetWalletBalance(ctx, userWallet.ID, userWallet.Balance); err != nil {
			return err
		}
		agentWallet.Balance = agentWallet.Balance.Add(amount)
		if err := tx.SetWalletBalance(ctx, agentWallet.ID, agentWallet.Balance); err != nil {
			return err
		}

		txn = newTransaction(userWallet.ID, agentWallet.ID, amount, decimal.Zero, commission,
			models.TransactionTypeCashOut, agentID)
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}

		result = CashInResult{AgentWallet: agentWallet, UserWallet: userWallet}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, txn)
	return &result, nil
}

// SetWalletStatus force-blocks or unblocks a wallet. Admin only.
// Setting the status it already has is a conflict.
func (e *Engine) SetWalletStatus(ctx context.Context, actorID, walletID uuid.UUID, status models.WalletStatus) (*models.Wallet, error) {
	if status != models.WalletBlocked && status != models.WalletUnblocked {
		return nil, apperr.Newf(apperr.KindInvalidState, "unknown wallet status %q", status)
	}

	var wallet *models.Wallet
	err := e.store.InTx(ctx, func(tx repository.Tx) error {
		actor, err := tx.AccountByID(ctx, actorID)
		if err != nil {
			return err
		}
		if err := authz.Allow(actor, authz.OpForceWallet); err != nil {
			return err
		}

		wallet, err = tx.WalletByIDForUpdate(ctx, walletID)
		if err != nil {
			return err
		}
		if wallet.Status == status {
			return apperr.Newf(apperr.KindConflict, "wallet is already %s", status)
		}

		wallet.Status = status
		return tx.SetWalletStatus(ctx, wallet.ID, status)
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// lockPair locks both wallets in ascending account-ID order so that
// concurrent cross-transfers can never deadlock, then returns them in
// the caller's (first, second) order.
func lockPair(ctx context.Context, tx repository.Tx, firstAccount, secondAccount uuid.UUID) (*models.Wallet, *models.Wallet, error) {
	a, b := firstAccount, secondAccount
	swapped := false
	if b.String() < a.String() {
		a, b = b, a
		swapped = true
	}

	wa, err := tx.WalletForUpdate(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	wb, err := tx.WalletForUpdate(ctx, b)
	if err != nil {
		return nil, nil, err
	}
	if swapped {
		wa, wb = wb, wa
	}
	return wa, wb, nil
}

// percentOf computes amount * rate / 100, rounded half-up at the
// smallest currency unit. The same rule applies to every operation.
func percentOf(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
}

func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.New(apperr.KindInvalidAmount, "amount must be greater than 0")
	}
	return nil
}

func newTransaction(from, to uuid.UUID, amount, fee, commission decimal.Decimal,
	txType models.TransactionType, initiatedBy uuid.UUID) *models.Transaction {
	return &models.Transaction{
		ID:          uuid.New(),
		FromWallet:  from,
		ToWallet:    to,
		Amount:      amount,
		Fee:         fee,
		Commission:  commission,
		Type:        txType,
		Status:      models.TransactionStatusSuccess,
		InitiatedBy: initiatedBy,
		CreatedAt:   time.Now().UTC(),
	}
}

// lookupIdentifiers builds the recipient match set for Send: the raw
// input (email match) plus phone normalization variants.
func (e *Engine) lookupIdentifiers(lookup string) []string {
	variants := models.PhoneVariants(lookup, e.policy.PhonePrefix)
	seen := map[string]bool{}
	var out []string
	for _, v := range variants {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func (e *Engine) publish(ctx context.Context, txn *models.Transaction) {
	if e.publisher == nil || txn == nil {
		return
	}
	event := models.TransactionEvent{
		TransactionID: txn.ID,
		FromWallet:    txn.FromWallet,
		ToWallet:      txn.ToWallet,
		Amount:        txn.Amount,
		Fee:           txn.Fee,
		Commission:    txn.Commission,
		Type:          txn.Type,
		Status:        txn.Status,
		InitiatedBy:   txn.InitiatedBy,
		Timestamp:     txn.CreatedAt,
	}
	if err := e.publisher.PublishTransaction(ctx, event); err != nil {
		log.Printf("WARN: publish transaction event: %v", err)
	}
}
