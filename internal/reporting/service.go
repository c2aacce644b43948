// Package reporting answers read-only queries over committed ledger
// state. It never mutates and never blocks ledger writers.
package reporting

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
	"github.com/ShailySarker/digital-wallet-backend/internal/repository"
)

type Service struct {
	transactions repository.TransactionRepository
	wallets      repository.WalletRepository
	reports      repository.ReportingRepository
}

func NewService(transactions repository.TransactionRepository,
	wallets repository.WalletRepository, reports repository.ReportingRepository) *Service {
	return &Service{transactions: transactions, wallets: wallets, reports: reports}
}

// Transaction returns one ledger entry. Non-admin callers may only see
// entries their own wallet participates in.
func (s *Service) Transaction(ctx context.Context, caller models.Claims, id uuid.UUID) (*models.Transaction, error) {
	txn, err := s.transactions.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role == models.RoleAdmin {
		return txn, nil
	}

	wallet, err := s.wallets.ByAccount(ctx, caller.AccountID)
	if err != nil {
		return nil, err
	}
	if txn.FromWallet != wallet.ID && txn.ToWallet != wallet.ID && txn.InitiatedBy != caller.AccountID {
		return nil, apperr.New(apperr.KindForbidden, "not a party to this transaction")
	}
	return txn, nil
}

// History returns the caller's own transaction history.
func (s *Service) History(ctx context.Context, caller models.Claims, filter models.TransactionFilter) ([]models.Transaction, *models.PageMeta, error) {
	wallet, err := s.wallets.ByAccount(ctx, caller.AccountID)
	if err != nil {
		return nil, nil, err
	}
	filter.WalletID = wallet.ID
	filter.InitiatedBy = uuid.Nil
	return s.transactions.List(ctx, filter)
}

// AllTransactions is the admin-wide history view.
func (s *Service) AllTransactions(ctx context.Context, caller models.Claims, filter models.TransactionFilter) ([]models.Transaction, *models.PageMeta, error) {
	if caller.Role != models.RoleAdmin {
		return nil, nil, apperr.New(apperr.KindForbidden, "only ADMIN may view all transactions")
	}
	return s.transactions.List(ctx, filter)
}

// AgentReport summarizes an agent's cash activity.
type AgentReport struct {
	Totals          []repository.TypeTotal `json:"totals"`
	CommissionTotal decimal.Decimal        `json:"commission_total"`
}

// AgentSummary returns per-type cash totals for the agent's wallet and
// the commission sum across cash-outs the agent initiated.
func (s *Service) AgentSummary(ctx context.Context, caller models.Claims) (*AgentReport, error) {
	if caller.Role != models.RoleAgent {
		return nil, apperr.New(apperr.KindForbidden, "only AGENT may view commission reports")
	}

	wallet, err := s.wallets.ByAccount(ctx, caller.AccountID)
	if err != nil {
		return nil, err
	}
	totals, err := s.reports.AgentTotals(ctx, wallet.ID)
	if err != nil {
		return nil, err
	}
	commission, err := s.reports.AgentCommissionSum(ctx, caller.AccountID)
	if err != nil {
		return nil, err
	}
	return &AgentReport{Totals: totals, CommissionTotal: commission}, nil
}

// CommissionHistory lists the cash-out entries that earned commission,
// newest first.
func (s *Service) CommissionHistory(ctx context.Context, caller models.Claims, page, limit int) ([]models.Transaction, *models.PageMeta, error) {
	if caller.Role != models.RoleAgent {
		return nil, nil, apperr.New(apperr.KindForbidden, "only AGENT may view commission reports")
	}
	filter := models.TransactionFilter{
		InitiatedBy:   caller.AccountID,
		MinCommission: decimal.New(1, -2), // anything at or above one cent
		SortBy:        "created_at",
		SortDesc:      true,
		Page:          page,
		Limit:         limit,
	}
	return s.transactions.List(ctx, filter)
}

// Overview is the admin dashboard aggregate.
type Overview struct {
	Accounts     map[models.Role]int64  `json:"accounts"`
	Transactions []repository.TypeTotal `json:"transactions"`
}

// AdminOverview returns role counts and system-wide transaction totals.
func (s *Service) AdminOverview(ctx context.Context, caller models.Claims) (*Overview, error) {
	if caller.Role != models.RoleAdmin {
		return nil, apperr.New(apperr.KindForbidden, "only ADMIN may view the overview")
	}

	roles, err := s.reports.RoleCounts(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.reports.TotalsByType(ctx)
	if err != nil {
		return nil, err
	}
	return &Overview{Accounts: roles, Transactions: totals}, nil
}
