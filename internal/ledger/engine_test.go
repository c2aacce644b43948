package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
	"github.com/ShailySarker/digital-wallet-backend/internal/config"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
	"github.com/ShailySarker/digital-wallet-backend/internal/repository"
)

func testPolicy() config.WalletPolicy {
	return config.WalletPolicy{
		InitialBalance: decimal.NewFromInt(50),
		MinDeposit:     decimal.NewFromInt(200),
		MinWithdraw:    decimal.NewFromInt(100),
		FeeRate:        decimal.NewFromInt(1),
		CommissionRate: decimal.NewFromInt(2),
		PhonePrefix:    "+88",
	}
}

func userAccount(phone string) models.Account {
	state := models.ActiveUnblocked
	return models.Account{
		Name:        "Test User",
		Email:       phone + "@example.com",
		Phone:       phone,
		Role:        models.RoleUser,
		ActiveState: &state,
	}
}

func agentAccount(phone string) models.Account {
	state := models.ApprovalApproved
	rate := decimal.NewFromInt(2)
	return models.Account{
		Name:           "Test Agent",
		Email:          phone + "@agent.example.com",
		Phone:          phone,
		Role:           models.RoleAgent,
		ApprovalState:  &state,
		CommissionRate: &rate,
	}
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestDeposit(t *testing.T) {
	store := newMemStore()
	userID, _ := store.addAccount(userAccount("01711111111"), d("50"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	wallet, err := engine.Deposit(context.Background(), userID, d("200"))
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(d("250")), "got %s", wallet.Balance)

	require.Len(t, store.transactions, 1)
	txn := store.transactions[0]
	assert.Equal(t, models.TransactionTypeDeposit, txn.Type)
	assert.Equal(t, txn.FromWallet, txn.ToWallet)
	assert.True(t, txn.Fee.IsZero())
	assert.True(t, txn.Commission.IsZero())
}

func TestDepositBelowMinimum(t *testing.T) {
	store := newMemStore()
	userID, _ := store.addAccount(userAccount("01711111111"), d("50"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	_, err := engine.Deposit(context.Background(), userID, d("199.99"))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidAmount))

	assert.Empty(t, store.transactions, "failed deposit must not write a transaction")
	assert.True(t, store.walletByAccount(userID).Balance.Equal(d("50")))
}

func TestDepositNonPositiveAmount(t *testing.T) {
	store := newMemStore()
	userID, _ := store.addAccount(userAccount("01711111111"), d("50"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	for _, amount := range []decimal.Decimal{decimal.Zero, d("-10")} {
		_, err := engine.Deposit(context.Background(), userID, amount)
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidAmount))
	}
	assert.Empty(t, store.transactions)
}

func TestDepositRoleForbidden(t *testing.T) {
	store := newMemStore()
	agentID, _ := store.addAccount(agentAccount("01722222222"), d("500"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	_, err := engine.Deposit(context.Background(), agentID, d("200"))
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestWithdraw(t *testing.T) {
	store := newMemStore()
	userID, _ := store.addAccount(userAccount("01711111111"), d("500"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	wallet, err := engine.Withdraw(context.Background(), userID, d("100"))
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(d("400")), "got %s", wallet.Balance)

	require.Len(t, store.transactions, 1)
	assert.Equal(t, models.TransactionTypeWithdraw, store.transactions[0].Type)
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	store := newMemStore()
	userID, _ := store.addAccount(userAccount("01711111111"), d("150"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	_, err := engine.Withdraw(context.Background(), userID, d("200"))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidAmount))

	assert.Empty(t, store.transactions)
	assert.True(t, store.walletByAccount(userID).Balance.Equal(d("150")))
}

func TestWithdrawBlockedWallet(t *testing.T) {
	store := newMemStore()
	userID, _ := store.addAccount(userAccount("01711111111"), d("500"), models.WalletBlocked)
	engine := NewEngine(store, testPolicy(), nil)

	_, err := engine.Withdraw(context.Background(), userID, d("100"))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))

	assert.Empty(t, store.transactions, "blocked wallet must not produce a transaction")
	assert.True(t, store.walletByAccount(userID).Balance.Equal(d("500")))
}

func TestSend(t *testing.T) {
	store := newMemStore()
	senderID, _ := store.addAccount(userAccount("01711111111"), d("1000"), models.WalletUnblocked)
	recipientID, _ := store.addAccount(userAccount("01722222222"), d("200"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	result, err := engine.Send(context.Background(), senderID, "01722222222", d("200"))
	require.NoError(t, err)

	// fee is 1% of 200 = 2; sender pays 202, recipient gets 200
	assert.True(t, result.SenderWallet.Balance.Equal(d("798")), "sender got %s", result.SenderWallet.Balance)
	assert.True(t, result.RecipientWallet.Balance.Equal(d("400")), "recipient got %s", result.RecipientWallet.Balance)
	assert.True(t, store.walletByAccount(recipientID).Balance.Equal(d("400")))

	require.Len(t, store.transactions, 1)
	txn := store.transactions[0]
	assert.Equal(t, models.TransactionTypeSend, txn.Type)
	assert.True(t, txn.Fee.Equal(d("2")), "fee got %s", txn.Fee)
	assert.Equal(t, senderID, txn.InitiatedBy)
}

func TestSendByNormalizedPhone(t *testing.T) {
	store := newMemStore()
	senderID, _ := store.addAccount(userAccount("01711111111"), d("1000"), models.WalletUnblocked)
	store.addAccount(userAccount("+8801722222222"), d("0"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	// stored with country prefix, looked up without
	_, err := engine.Send(context.Background(), senderID, "01722222222", d("100"))
	require.NoError(t, err)
}

func TestSendByEmail(t *testing.T) {
	store := newMemStore()
	senderID, _ := store.addAccount(userAccount("01711111111"), d("1000"), models.WalletUnblocked)
	store.addAccount(userAccount("01722222222"), d("0"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	_, err := engine.Send(context.Background(), senderID, "01722222222@example.com", d("100"))
	require.NoError(t, err)
}

func TestSendToSelf(t *testing.T) {
	store := newMemStore()
	senderID, _ := store.addAccount(userAccount("01711111111"), d("1000"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	_, err := engine.Send(context.Background(), senderID, "01711111111", d("100"))
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	assert.Empty(t, store.transactions)
}

func TestSendToAdmin(t *testing.T) {
	store := newMemStore()
	senderID, _ := store.addAccount(userAccount("01711111111"), d("1000"), models.WalletUnblocked)
	admin := models.Account{Name: "Admin", Email: "admin@wallet.local", Phone: "admin", Role: models.RoleAdmin}
	store.addAccount(admin, d("0"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	_, err := engine.Send(context.Background(), senderID, "admin@wallet.local", d("100"))
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestSendInsufficientForAmountPlusFee(t *testing.T) {
	store := newMemStore()
	// exactly the amount but not the fee
	senderID, _ := store.addAccount(userAccount("01711111111"), d("200"), models.WalletUnblocked)
	store.addAccount(userAccount("01722222222"), d("0"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	_, err := engine.Send(context.Background(), senderID, "01722222222", d("200"))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidAmount))
	assert.Empty(t, store.transactions)
	assert.True(t, store.walletByAccount(senderID).Balance.Equal(d("200")))
}

func TestSendRecipientBlocked(t *testing.T) {
	store := newMemStore()
	senderID, _ := store.addAccount(userAccount("01711111111"), d("1000"), models.WalletUnblocked)
	store.addAccount(userAccount("01722222222"), d("0"), models.WalletBlocked)
	engine := NewEngine(store, testPolicy(), nil)

	_, err := engine.Send(context.Background(), senderID, "01722222222", d("100"))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
	assert.Empty(t, store.transactions)
}

func TestCashIn(t *testing.T) {
	store := newMemStore()
	agentID, _ := store.addAccount(agentAccount("01733333333"), d("1000"), models.WalletUnblocked)
	userID, _ := store.addAccount(userAccount("01711111111"), d("50"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	result, err := engine.CashIn(context.Background(), agentID, "01711111111", d("300"))
	require.NoError(t, err)

	// no fee or commission on cash-in
	assert.True(t, result.AgentWallet.Balance.Equal(d("700")))
	assert.True(t, result.UserWallet.Balance.Equal(d("350")))
	assert.True(t, store.walletByAccount(userID).Balance.Equal(d("350")))

	require.Len(t, store.transactions, 1)
	txn := store.transactions[0]
	assert.Equal(t, models.TransactionTypeCashIn, txn.Type)
	assert.True(t, txn.Fee.IsZero())
	assert.True(t, txn.Commission.IsZero())
}

func TestCashInByUserForbidden(t *testing.T) {
	store := newMemStore()
	userID, _ := store.addAccount(userAccount("01711111111"), d("1000"), models.WalletUnblocked)
	store.addAccount(userAccount("01722222222"), d("50"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	_, err := engine.CashIn(context.Background(), userID, "01722222222", d("100"))
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestCashInToAgentRejected(t *testing.T) {
	store := newMemStore()
	agentID, _ := store.addAccount(agentAccount("01733333333"), d("1000"), models.WalletUnblocked)
	store.addAccount(agentAccount("01744444444"), d("50"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	_, err := engine.CashIn(context.Background(), agentID, "01744444444", d("100"))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestCashOut(t *testing.T) {
	store := newMemStore()
	agentID, _ := store.addAccount(agentAccount("01733333333"), d("100"), models.WalletUnblocked)
	userID, _ := store.addAccount(userAccount("01711111111"), d("300"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	result, err := engine.CashOut(context.Background(), agentID, "01711111111", d("100"))
	require.NoError(t, err)

	// commission is 2% of 100 = 2; user pays 102, agent gets 100, the
	// commission is retained by the system
	assert.True(t, result.UserWallet.Balance.Equal(d("198")), "user got %s", result.UserWallet.Balance)
	assert.True(t, result.AgentWallet.Balance.Equal(d("200")), "agent got %s", result.AgentWallet.Balance)
	assert.True(t, store.walletByAccount(userID).Balance.Equal(d("198")))

	require.Len(t, store.transactions, 1)
	txn := store.transactions[0]
	assert.Equal(t, models.TransactionTypeCashOut, txn.Type)
	assert.True(t, txn.Commission.Equal(d("2")), "commission got %s", txn.Commission)
	assert.Equal(t, agentID, txn.InitiatedBy)
}

func TestCashOutInsufficientForCommission(t *testing.T) {
	store := newMemStore()
	agentID, _ := store.addAccount(agentAccount("01733333333"), d("100"), models.WalletUnblocked)
	userID, _ := store.addAccount(userAccount("01711111111"), d("100"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	_, err := engine.CashOut(context.Background(), agentID, "01711111111", d("100"))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidAmount))
	assert.Empty(t, store.transactions)
	assert.True(t, store.walletByAccount(userID).Balance.Equal(d("100")))
}

func TestSuspendedAgentCannotCashIn(t *testing.T) {
	store := newMemStore()
	agent := agentAccount("01733333333")
	suspended := models.ApprovalSuspended
	agent.ApprovalState = &suspended
	agentID, _ := store.addAccount(agent, d("1000"), models.WalletUnblocked)
	store.addAccount(userAccount("01711111111"), d("50"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	_, err := engine.CashIn(context.Background(), agentID, "01711111111", d("100"))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestSetWalletStatus(t *testing.T) {
	store := newMemStore()
	admin := models.Account{Name: "Admin", Email: "admin@wallet.local", Phone: "admin", Role: models.RoleAdmin}
	adminID, _ := store.addAccount(admin, d("0"), models.WalletUnblocked)
	_, walletID := store.addAccount(userAccount("01711111111"), d("50"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	wallet, err := engine.SetWalletStatus(context.Background(), adminID, walletID, models.WalletBlocked)
	require.NoError(t, err)
	assert.Equal(t, models.WalletBlocked, wallet.Status)

	// setting the same status again is a conflict
	_, err = engine.SetWalletStatus(context.Background(), adminID, walletID, models.WalletBlocked)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestSetWalletStatusNonAdmin(t *testing.T) {
	store := newMemStore()
	userID, walletID := store.addAccount(userAccount("01711111111"), d("50"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	_, err := engine.SetWalletStatus(context.Background(), userID, walletID, models.WalletBlocked)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

// TestMoneyConservation checks that across a mix of transfers, wallet
// balances plus retained fees and commissions add up to the starting
// total.
func TestMoneyConservation(t *testing.T) {
	store := newMemStore()
	senderID, _ := store.addAccount(userAccount("01711111111"), d("1000"), models.WalletUnblocked)
	store.addAccount(userAccount("01722222222"), d("500"), models.WalletUnblocked)
	agentID, _ := store.addAccount(agentAccount("01733333333"), d("700"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	start := d("2200")

	_, err := engine.Send(context.Background(), senderID, "01722222222", d("250"))
	require.NoError(t, err)
	_, err = engine.CashIn(context.Background(), agentID, "01711111111", d("100"))
	require.NoError(t, err)
	_, err = engine.CashOut(context.Background(), agentID, "01722222222", d("200"))
	require.NoError(t, err)

	balances := decimal.Zero
	for _, w := range store.wallets {
		assert.False(t, w.Balance.IsNegative(), "wallet %s went negative", w.ID)
		balances = balances.Add(w.Balance)
	}
	retained := decimal.Zero
	for _, txn := range store.transactions {
		retained = retained.Add(txn.Fee).Add(txn.Commission)
	}
	assert.True(t, balances.Add(retained).Equal(start),
		"balances %s + retained %s != %s", balances, retained, start)
}

// TestConcurrentDeposits runs parallel deposits against one wallet and
// checks that no update is lost.
func TestConcurrentDeposits(t *testing.T) {
	store := newMemStore()
	userID, _ := store.addAccount(userAccount("01711111111"), d("50"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Deposit(context.Background(), userID, d("200"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	want := d("50").Add(d("200").Mul(decimal.NewFromInt(n)))
	assert.True(t, store.walletByAccount(userID).Balance.Equal(want),
		"got %s want %s", store.walletByAccount(userID).Balance, want)
	assert.Len(t, store.transactions, n)
}

// TestConcurrentCrossTransfers sends money in both directions between
// the same two wallets in parallel; with ordered lock acquisition this
// must finish without deadlock and conserve money.
func TestConcurrentCrossTransfers(t *testing.T) {
	store := newMemStore()
	aID, _ := store.addAccount(userAccount("01711111111"), d("10000"), models.WalletUnblocked)
	bID, _ := store.addAccount(userAccount("01722222222"), d("10000"), models.WalletUnblocked)
	engine := NewEngine(store, testPolicy(), nil)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Send(context.Background(), aID, "01722222222", d("10"))
			assert.NoError(t, err)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Send(context.Background(), bID, "01711111111", d("10"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// each side sent and received n*10, paying n*0.10 in fees
	fees := d("0.10").Mul(decimal.NewFromInt(n))
	want := d("10000").Sub(fees)
	assert.True(t, store.walletByAccount(aID).Balance.Equal(want))
	assert.True(t, store.walletByAccount(bID).Balance.Equal(want))
}

func TestLockPairOrdering(t *testing.T) {
	store := newMemStore()
	aID, _ := store.addAccount(userAccount("01711111111"), d("100"), models.WalletUnblocked)
	bID, _ := store.addAccount(userAccount("01722222222"), d("200"), models.WalletUnblocked)

	// regardless of argument order the same wallets come back in the
	// caller's order
	err := store.InTx(context.Background(), func(tx repository.Tx) error {
		wa, wb, err := lockPair(context.Background(), tx, aID, bID)
		require.NoError(t, err)
		assert.Equal(t, aID, wa.AccountID)
		assert.Equal(t, bID, wb.AccountID)

		wb2, wa2, err := lockPair(context.Background(), tx, bID, aID)
		require.NoError(t, err)
		assert.Equal(t, bID, wb2.AccountID)
		assert.Equal(t, aID, wa2.AccountID)
		return nil
	})
	require.NoError(t, err)
}

func TestPercentOf(t *testing.T) {
	cases := []struct {
		amount, rate, want string
	}{
		{"200", "1", "2"},
		{"100", "2", "2"},
		{"50.5", "1", "0.51"},  // 0.505 rounds half-up
		{"33.33", "1", "0.33"}, // 0.3333 rounds down
		{"0.01", "1", "0"},     // 0.0001 rounds to zero
		{"999.99", "2", "20"},  // 19.9998 rounds up
	}
	for _, tc := range cases {
		got := percentOf(d(tc.amount), d(tc.rate))
		assert.True(t, got.Equal(d(tc.want)), "percentOf(%s, %s) = %s, want %s",
			tc.amount, tc.rate, got, tc.want)
	}
}
