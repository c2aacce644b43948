package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
)

const accountColumns = `id, name, email, phone, nid_number, password_hash, role,
	active_state, approval_state, commission_rate, verified, deleted, created_at, updated_at`

const walletColumns = `id, account_id, balance, status, created_at, updated_at`

// PostgresStore implements Store on top of database/sql transactions.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// InTx begins a database transaction, runs fn, and commits. Any error
// from fn rolls the whole unit back before it surfaces.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback()

	if err := fn(&pgTx{tx: dbTx}); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) AccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (t *pgTx) AccountByIdentity(ctx context.Context, identifiers []string) (*models.Account, error) {
	if len(identifiers) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "account not found")
	}
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE email = ANY($1) OR phone = ANY($1)`, pq.Array(identifiers))
	return scanAccount(row)
}

func (t *pgTx) InsertAccount(ctx context.Context, a *models.Account) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, a.Name, a.Email, a.Phone, a.NIDNumber, a.PasswordHash, a.Role,
		activeStateValue(a.ActiveState), approvalStateValue(a.ApprovalState),
		decimalValue(a.CommissionRate), a.Verified, a.Deleted, a.CreatedAt, a.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperr.Wrap(apperr.KindConflict, "email, phone or NID is already used", err)
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("insert account: %w", err))
	}
	return nil
}

func (t *pgTx) UpdateAccount(ctx context.Context, a *models.Account) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE accounts
		 SET name = $2, email = $3, phone = $4, nid_number = $5, password_hash = $6,
		     active_state = $7, approval_state = $8, commission_rate = $9,
		     verified = $10, deleted = $11, updated_at = $12
		 WHERE id = $1`,
		a.ID, a.Name, a.Email, a.Phone, a.NIDNumber, a.PasswordHash,
		activeStateValue(a.ActiveState), approvalStateValue(a.ApprovalState),
		decimalValue(a.CommissionRate), a.Verified, a.Deleted, a.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperr.Wrap(apperr.KindConflict, "email, phone or NID is already used", err)
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("update account: %w", err))
	}
	return requireRow(res, "account not found")
}

func (t *pgTx) InsertWallet(ctx context.Context, w *models.Wallet) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO wallets (`+walletColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		w.ID, w.AccountID, w.Balance.String(), w.Status, w.CreatedAt, w.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperr.Wrap(apperr.KindConflict, "account already has a wallet", err)
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("insert wallet: %w", err))
	}
	return nil
}

func (t *pgTx) WalletByAccount(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE account_id = $1`, accountID)
	return scanWallet(row)
}

func (t *pgTx) WalletForUpdate(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE account_id = $1 FOR UPDATE`, accountID)
	return scanWallet(row)
}

func (t *pgTx) WalletByIDForUpdate(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, walletID)
	return scanWallet(row)
}

func (t *pgTx) SetWalletBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE wallets SET balance = $2, updated_at = NOW() WHERE id = $1`,
		walletID, balance.String(),
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("set balance: %w", err))
	}
	return requireRow(res, "wallet not found")
}

func (t *pgTx) SetWalletStatus(ctx context.Context, walletID uuid.UUID, status models.WalletStatus) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE wallets SET status = $2, updated_at = NOW() WHERE id = $1`,
		walletID, status,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("set wallet status: %w", err))
	}
	return requireRow(res, "wallet not found")
}

func (t *pgTx) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO transactions (id, from_wallet, to_wallet, amount, fee, commission,
		                           type, status, initiated_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		txn.ID, txn.FromWallet, txn.ToWallet, txn.Amount.String(), txn.Fee.String(),
		txn.Commission.String(), txn.Type, txn.Status, txn.InitiatedBy, txn.CreatedAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("insert transaction: %w", err))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Scan helpers
// ---------------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a              models.Account
		activeState    sql.NullString
		approvalState  sql.NullString
		commissionRate sql.NullString
	)
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.Phone, &a.NIDNumber, &a.PasswordHash, &a.Role,
		&activeState, &approvalState, &commissionRate,
		&a.Verified, &a.Deleted, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "account not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("scan account: %w", err))
	}
	if activeState.Valid {
		s := models.ActiveState(activeState.String)
		a.ActiveState = &s
	}
	if approvalState.Valid {
		s := models.ApprovalState(approvalState.String)
		a.ApprovalState = &s
	}
	if commissionRate.Valid {
		rate, err := decimal.NewFromString(commissionRate.String)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("parse commission rate: %w", err))
		}
		a.CommissionRate = &rate
	}
	return &a, nil
}

func scanWallet(row rowScanner) (*models.Wallet, error) {
	var (
		w          models.Wallet
		balanceStr string
	)
	err := row.Scan(&w.ID, &w.AccountID, &balanceStr, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "wallet not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("scan wallet: %w", err))
	}
	w.Balance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("parse balance: %w", err))
	}
	return &w, nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		t             models.Transaction
		amountStr     string
		feeStr        string
		commissionStr string
	)
	err := row.Scan(
		&t.ID, &t.FromWallet, &t.ToWallet, &amountStr, &feeStr, &commissionStr,
		&t.Type, &t.Status, &t.InitiatedBy, &t.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "transaction not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("scan transaction: %w", err))
	}
	if t.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("parse amount: %w", err))
	}
	if t.Fee, err = decimal.NewFromString(feeStr); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("parse fee: %w", err))
	}
	if t.Commission, err = decimal.NewFromString(commissionStr); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("parse commission: %w", err))
	}
	return &t, nil
}

func requireRow(res sql.Result, notFoundMsg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("rows affected: %w", err))
	}
	if n == 0 {
		return apperr.New(apperr.KindNotFound, notFoundMsg)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func activeStateValue(s *models.ActiveState) any {
	if s == nil {
		return nil
	}
	return string(*s)
}

func approvalStateValue(s *models.ApprovalState) any {
	if s == nil {
		return nil
	}
	return string(*s)
}

func decimalValue(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}
