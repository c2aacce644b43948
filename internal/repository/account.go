package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
)

// AccountRepository defines read access to accounts outside atomic units.
type AccountRepository interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	ByEmail(ctx context.Context, email string) (*models.Account, error)
	ByIdentity(ctx context.Context, identifiers []string) (*models.Account, error)
	List(ctx context.Context, filter models.AccountFilter) ([]models.Account, *models.PageMeta, error)
	Counts(ctx context.Context, role models.Role) (*models.AccountCounts, error)
}

type PostgresAccountRepository struct {
	db *sql.DB
}

func NewPostgresAccountRepository(db *sql.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

func (r *PostgresAccountRepository) ByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *PostgresAccountRepository) ByEmail(ctx context.Context, email string) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row)
}

func (r *PostgresAccountRepository) ByIdentity(ctx context.Context, identifiers []string) (*models.Account, error) {
	if len(identifiers) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "account not found")
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE email = ANY($1) OR phone = ANY($1)`, pq.Array(identifiers))
	return scanAccount(row)
}

// List returns accounts matching the filter plus pagination metadata.
// Filter fields are enumerated; no caller-supplied column names reach
// the query except through the sort whitelist.
func (r *PostgresAccountRepository) List(ctx context.Context, filter models.AccountFilter) ([]models.Account, *models.PageMeta, error) {
	where, args := accountWhere(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM accounts` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("count accounts: %w", err))
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	query := `SELECT ` + accountColumns + ` FROM accounts` + where +
		accountOrder(filter.SortBy, filter.SortDesc) +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("list accounts: %w", err))
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, nil, err
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("list accounts: %w", err))
	}

	meta := &models.PageMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
	}
	return accounts, meta, nil
}

// Counts returns the per-status breakdown for one role.
func (r *PostgresAccountRepository) Counts(ctx context.Context, role models.Role) (*models.AccountCounts, error) {
	var c models.AccountCounts
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE active_state = 'UNBLOCKED'),
		        COUNT(*) FILTER (WHERE active_state = 'BLOCKED'),
		        COUNT(*) FILTER (WHERE approval_state = 'APPROVED'),
		        COUNT(*) FILTER (WHERE approval_state = 'SUSPENDED'),
		        COUNT(*) FILTER (WHERE verified),
		        COUNT(*) FILTER (WHERE deleted)
		 FROM accounts WHERE role = $1`, role,
	).Scan(&c.Total, &c.Active, &c.Blocked, &c.Approved, &c.Suspended, &c.Verified, &c.Deleted)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("count accounts: %w", err))
	}
	return &c, nil
}

func accountWhere(filter models.AccountFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Role != "" {
		add(`role = $%d`, filter.Role)
	}
	if filter.ActiveState != "" {
		add(`active_state = $%d`, filter.ActiveState)
	}
	if filter.ApprovalState != "" {
		add(`approval_state = $%d`, filter.ApprovalState)
	}
	if filter.Verified != nil {
		add(`verified = $%d`, *filter.Verified)
	}
	if filter.Deleted != nil {
		add(`deleted = $%d`, *filter.Deleted)
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			`(name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d OR nid_number ILIKE $%d)`,
			n, n, n, n))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func accountOrder(sortBy string, desc bool) string {
	col := "created_at"
	switch sortBy {
	case "name", "email", "created_at":
		col = sortBy
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", col, dir)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}
