package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
)

var walletRowColumns = []string{"id", "account_id", "balance", "status", "created_at", "updated_at"}

var accountRowColumns = []string{
	"id", "name", "email", "phone", "nid_number", "password_hash", "role",
	"active_state", "approval_state", "commission_rate", "verified", "deleted",
	"created_at", "updated_at",
}

func walletRow(id, accountID uuid.UUID, balance string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(walletRowColumns).
		AddRow(id, accountID, balance, "UNBLOCKED", now, now)
}

func TestInTxCommit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	walletID := uuid.New()
	accountID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM wallets WHERE account_id = \$1 FOR UPDATE`).
		WithArgs(accountID).
		WillReturnRows(walletRow(walletID, accountID, "100.00"))
	mock.ExpectExec(`UPDATE wallets SET balance = \$2`).
		WithArgs(walletID, "300").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewPostgresStore(db)
	err = store.InTx(context.Background(), func(tx Tx) error {
		wallet, err := tx.WalletForUpdate(context.Background(), accountID)
		if err != nil {
			return err
		}
		assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(100)))
		return tx.SetWalletBalance(context.Background(), wallet.ID, decimal.NewFromInt(300))
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxRollbackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	store := NewPostgresStore(db)
	wantErr := apperr.New(apperr.KindInvalidAmount, "insufficient balance")
	err = store.InTx(context.Background(), func(tx Tx) error {
		return wantErr
	})
	assert.True(t, errors.Is(err, wantErr) || apperr.IsKind(err, apperr.KindInvalidAmount))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	accountID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM wallets WHERE account_id = \$1 FOR UPDATE`).
		WithArgs(accountID).
		WillReturnRows(sqlmock.NewRows(walletRowColumns))
	mock.ExpectRollback()

	store := NewPostgresStore(db)
	err = store.InTx(context.Background(), func(tx Tx) error {
		_, err := tx.WalletForUpdate(context.Background(), accountID)
		return err
	})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetWalletBalanceNoRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	walletID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE wallets SET balance = \$2`).
		WithArgs(walletID, "50").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	store := NewPostgresStore(db)
	err = store.InTx(context.Background(), func(tx Tx) error {
		return tx.SetWalletBalance(context.Background(), walletID, decimal.NewFromInt(50))
	})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanAccountNullableFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	now := time.Now().UTC()
	rows := sqlmock.NewRows(accountRowColumns).
		AddRow(id, "Agent", "agent@example.com", "01733333333", "1234567890",
			"hash", "AGENT", nil, "APPROVED", "2.5", true, false, now, now)

	mock.ExpectQuery(`(?s)SELECT .+ FROM accounts WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(rows)

	repo := NewPostgresAccountRepository(db)
	account, err := repo.ByID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, models.RoleAgent, account.Role)
	assert.Nil(t, account.ActiveState)
	require.NotNil(t, account.ApprovalState)
	assert.Equal(t, models.ApprovalApproved, *account.ApprovalState)
	require.NotNil(t, account.CommissionRate)
	assert.True(t, account.CommissionRate.Equal(decimal.RequireFromString("2.5")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT .+ FROM accounts WHERE email = \$1`).
		WithArgs("missing@example.com").
		WillReturnRows(sqlmock.NewRows(accountRowColumns))

	repo := NewPostgresAccountRepository(db)
	_, err = repo.ByEmail(context.Background(), "missing@example.com")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAccountUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO accounts`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	now := time.Now().UTC()
	state := models.ActiveUnblocked
	account := &models.Account{
		ID: uuid.New(), Name: "Dup", Email: "dup@example.com", Phone: "01700000000",
		NIDNumber: "111", PasswordHash: "hash", Role: models.RoleUser,
		ActiveState: &state, CreatedAt: now, UpdatedAt: now,
	}

	store := NewPostgresStore(db)
	err = store.InTx(context.Background(), func(tx Tx) error {
		return tx.InsertAccount(context.Background(), account)
	})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM accounts WHERE role = \$1`).
		WithArgs(models.RoleUser).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	id := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery(`(?s)SELECT .+ FROM accounts WHERE role = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs(models.RoleUser, 10, 0).
		WillReturnRows(sqlmock.NewRows(accountRowColumns).
			AddRow(id, "User", "user@example.com", "01711111111", "222",
				"hash", "USER", "UNBLOCKED", nil, nil, false, false, now, now))

	repo := NewPostgresAccountRepository(db)
	accounts, meta, err := repo.List(context.Background(), models.AccountFilter{
		Role:     models.RoleUser,
		SortDesc: true,
	})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, id, accounts[0].ID)
	assert.Equal(t, int64(1), meta.Total)
	assert.Equal(t, 1, meta.Page)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	walletID := uuid.New()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM transactions WHERE \(from_wallet = \$1 OR to_wallet = \$1\)`).
		WithArgs(walletID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	txnID := uuid.New()
	otherWallet := uuid.New()
	initiator := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery(`(?s)SELECT .+ FROM transactions WHERE \(from_wallet = \$1 OR to_wallet = \$1\) ORDER BY created_at DESC, id ASC LIMIT \$2 OFFSET \$3`).
		WithArgs(walletID, 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "from_wallet", "to_wallet", "amount", "fee", "commission",
			"type", "status", "initiated_by", "created_at",
		}).AddRow(txnID, walletID, otherWallet, "200.00", "2.00", "0", "SEND", "SUCCESS", initiator, now))

	repo := NewPostgresTransactionRepository(db)
	txns, meta, err := repo.List(context.Background(), models.TransactionFilter{
		WalletID: walletID,
		SortDesc: true,
	})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.True(t, txns[0].Amount.Equal(decimal.NewFromInt(200)))
	assert.True(t, txns[0].Fee.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, int64(2), meta.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionOrderWhitelist(t *testing.T) {
	// unknown sort columns fall back to created_at
	assert.Equal(t, " ORDER BY created_at ASC, id ASC", transactionOrder("; DROP TABLE", false))
	assert.Equal(t, " ORDER BY amount DESC, id ASC", transactionOrder("amount", true))
	assert.Equal(t, " ORDER BY commission ASC, id ASC", transactionOrder("commission", false))
}

func TestAccountOrderWhitelist(t *testing.T) {
	assert.Equal(t, " ORDER BY created_at ASC", accountOrder("password_hash", false))
	assert.Equal(t, " ORDER BY name DESC", accountOrder("name", true))
}

func TestNormalizePage(t *testing.T) {
	page, limit := normalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, limit)

	page, limit = normalizePage(3, 500)
	assert.Equal(t, 3, page)
	assert.Equal(t, 10, limit)

	page, limit = normalizePage(2, 25)
	assert.Equal(t, 2, page)
	assert.Equal(t, 25, limit)
}

func TestAgentCommissionSum(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	agentID := uuid.New()
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(commission\), 0\)`).
		WithArgs(agentID).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("14.50"))

	repo := NewPostgresReportingRepository(db)
	sum, err := repo.AgentCommissionSum(context.Background(), agentID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.RequireFromString("14.50")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleCounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT role, COUNT\(\*\) FROM accounts WHERE NOT deleted GROUP BY role`).
		WillReturnRows(sqlmock.NewRows([]string{"role", "count"}).
			AddRow("USER", 42).
			AddRow("AGENT", 7).
			AddRow("ADMIN", 1))

	repo := NewPostgresReportingRepository(db)
	counts, err := repo.RoleCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), counts[models.RoleUser])
	assert.Equal(t, int64(7), counts[models.RoleAgent])
	assert.Equal(t, int64(1), counts[models.RoleAdmin])
	assert.NoError(t, mock.ExpectationsWereMet())
}
