package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
)

const transactionColumns = `id, from_wallet, to_wallet, amount, fee, commission,
	type, status, initiated_by, created_at`

// TransactionRepository is read-only: ledger rows are inserted inside
// atomic units and never touched afterwards.
type TransactionRepository interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, *models.PageMeta, error)
}

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

func (r *PostgresTransactionRepository) ByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

func (r *PostgresTransactionRepository) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, *models.PageMeta, error) {
	where, args := transactionWhere(filter)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("count transactions: %w", err))
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	query := `SELECT ` + transactionColumns + ` FROM transactions` + where +
		transactionOrder(filter.SortBy, filter.SortDesc) +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("list transactions: %w", err))
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, nil, err
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("list transactions: %w", err))
	}

	meta := &models.PageMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
	}
	return txns, meta, nil
}

func transactionWhere(filter models.TransactionFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.WalletID != uuid.Nil {
		args = append(args, filter.WalletID)
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(from_wallet = $%d OR to_wallet = $%d)`, n, n))
	}
	if filter.InitiatedBy != uuid.Nil {
		add(`initiated_by = $%d`, filter.InitiatedBy)
	}
	if filter.Type != "" {
		add(`type = $%d`, filter.Type)
	}
	if filter.Status != "" {
		add(`status = $%d`, filter.Status)
	}
	if !filter.From.IsZero() {
		add(`created_at >= $%d`, filter.From)
	}
	if !filter.To.IsZero() {
		add(`created_at < $%d`, filter.To)
	}
	if filter.MinCommission.IsPositive() {
		add(`commission >= $%d`, filter.MinCommission.String())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func transactionOrder(sortBy string, desc bool) string {
	col := "created_at"
	switch sortBy {
	case "amount", "commission", "created_at":
		col = sortBy
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	// Secondary key keeps pagination stable across equal values.
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", col, dir)
}
