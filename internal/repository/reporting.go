package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
)

// TypeTotal is one row of a grouped-by-type aggregate.
type TypeTotal struct {
	Type       models.TransactionType `json:"type"`
	Count      int64                  `json:"count"`
	Amount     decimal.Decimal        `json:"amount"`
	Fee        decimal.Decimal        `json:"fee"`
	Commission decimal.Decimal        `json:"commission"`
}

// ReportingRepository runs read-only aggregations over committed state.
// None of its queries take row locks.
type ReportingRepository interface {
	TotalsByType(ctx context.Context) ([]TypeTotal, error)
	AgentTotals(ctx context.Context, walletID uuid.UUID) ([]TypeTotal, error)
	AgentCommissionSum(ctx context.Context, agentID uuid.UUID) (decimal.Decimal, error)
	RoleCounts(ctx context.Context) (map[models.Role]int64, error)
}

type PostgresReportingRepository struct {
	db *sql.DB
}

func NewPostgresReportingRepository(db *sql.DB) *PostgresReportingRepository {
	return &PostgresReportingRepository{db: db}
}

// TotalsByType returns system-wide transaction counts and sums grouped
// by transaction type.
func (r *PostgresReportingRepository) TotalsByType(ctx context.Context) ([]TypeTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT type, COUNT(*), COALESCE(SUM(amount), 0),
		        COALESCE(SUM(fee), 0), COALESCE(SUM(commission), 0)
		 FROM transactions
		 WHERE status = 'SUCCESS'
		 GROUP BY type ORDER BY type`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("totals by type: %w", err))
	}
	defer rows.Close()
	return scanTypeTotals(rows)
}

// AgentTotals returns cash totals grouped by type for transactions where
// the agent's wallet is either party.
func (r *PostgresReportingRepository) AgentTotals(ctx context.Context, walletID uuid.UUID) ([]TypeTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT type, COUNT(*), COALESCE(SUM(amount), 0),
		        COALESCE(SUM(fee), 0), COALESCE(SUM(commission), 0)
		 FROM transactions
		 WHERE status = 'SUCCESS' AND (from_wallet = $1 OR to_wallet = $1)
		 GROUP BY type ORDER BY type`, walletID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("agent totals: %w", err))
	}
	defer rows.Close()
	return scanTypeTotals(rows)
}

// AgentCommissionSum returns the total commission across all cash-outs
// the agent initiated.
func (r *PostgresReportingRepository) AgentCommissionSum(ctx context.Context, agentID uuid.UUID) (decimal.Decimal, error) {
	var sumStr string
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(commission), 0)
		 FROM transactions
		 WHERE status = 'SUCCESS' AND initiated_by = $1 AND commission > 0`,
		agentID).Scan(&sumStr)
	if err != nil {
		return decimal.Zero, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("commission sum: %w", err))
	}
	sum, err := decimal.NewFromString(sumStr)
	if err != nil {
		return decimal.Zero, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("parse commission sum: %w", err))
	}
	return sum, nil
}

// RoleCounts returns how many non-deleted accounts exist per role.
func (r *PostgresReportingRepository) RoleCounts(ctx context.Context) (map[models.Role]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role, COUNT(*) FROM accounts WHERE NOT deleted GROUP BY role`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("role counts: %w", err))
	}
	defer rows.Close()

	counts := make(map[models.Role]int64)
	for rows.Next() {
		var role models.Role
		var n int64
		if err := rows.Scan(&role, &n); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("scan role count: %w", err))
		}
		counts[role] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("role counts: %w", err))
	}
	return counts, nil
}

func scanTypeTotals(rows *sql.Rows) ([]TypeTotal, error) {
	var totals []TypeTotal
	for rows.Next() {
		var (
			t             TypeTotal
			amountStr     string
			feeStr        string
			commissionStr string
		)
		if err := rows.Scan(&t.Type, &t.Count, &amountStr, &feeStr, &commissionStr); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("scan totals: %w", err))
		}
		var err error
		if t.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("parse amount sum: %w", err))
		}
		if t.Fee, err = decimal.NewFromString(feeStr); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("parse fee sum: %w", err))
		}
		if t.Commission, err = decimal.NewFromString(commissionStr); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("parse commission sum: %w", err))
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("scan totals: %w", err))
	}
	return totals, nil
}
