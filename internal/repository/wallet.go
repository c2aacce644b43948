package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
)

// WalletRepository defines read access to wallets outside atomic units.
// Mutations go through Store.InTx only.
type WalletRepository interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	ByAccount(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error)
	List(ctx context.Context, page, limit int) ([]models.Wallet, *models.PageMeta, error)
}

type PostgresWalletRepository struct {
	db *sql.DB
}

func NewPostgresWalletRepository(db *sql.DB) *PostgresWalletRepository {
	return &PostgresWalletRepository{db: db}
}

func (r *PostgresWalletRepository) ByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)
	return scanWallet(row)
}

func (r *PostgresWalletRepository) ByAccount(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE account_id = $1`, accountID)
	return scanWallet(row)
}

func (r *PostgresWalletRepository) List(ctx context.Context, page, limit int) ([]models.Wallet, *models.PageMeta, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wallets`).Scan(&total); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("count wallets: %w", err))
	}

	page, limit = normalizePage(page, limit)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+walletColumns+` FROM wallets ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("list wallets: %w", err))
	}
	defer rows.Close()

	var wallets []models.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, nil, err
		}
		wallets = append(wallets, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("list wallets: %w", err))
	}

	meta := &models.PageMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
	}
	return wallets, meta, nil
}
