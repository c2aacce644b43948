package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "DEPOSIT"
	TransactionTypeWithdraw TransactionType = "WITHDRAW"
	TransactionTypeSend     TransactionType = "SEND"
	TransactionTypeCashIn   TransactionType = "CASH_IN"
	TransactionTypeCashOut  TransactionType = "CASH_OUT"
)

type TransactionStatus string

const (
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

// Transaction is one append-only ledger entry. Rows are never updated
// or deleted. For DEPOSIT and WITHDRAW, FromWallet == ToWallet.
type Transaction struct {
	ID          uuid.UUID         `json:"id"`
	FromWallet  uuid.UUID         `json:"from_wallet"`
	ToWallet    uuid.UUID         `json:"to_wallet"`
	Amount      decimal.Decimal   `json:"amount"`
	Fee         decimal.Decimal   `json:"fee"`
	Commission  decimal.Decimal   `json:"commission"`
	Type        TransactionType   `json:"type"`
	Status      TransactionStatus `json:"status"`
	InitiatedBy uuid.UUID         `json:"initiated_by"`
	CreatedAt   time.Time         `json:"created_at"`
}

// TransactionFilter drives the history view. Sort fields are
// whitelisted in the repository; anything else falls back to created_at.
type TransactionFilter struct {
	WalletID      uuid.UUID // matches either side
	InitiatedBy   uuid.UUID
	Type          TransactionType
	Status        TransactionStatus
	From          time.Time
	To            time.Time
	MinCommission decimal.Decimal
	SortBy        string // created_at | amount | commission
	SortDesc      bool
	Page          int
	Limit         int
}

// PageMeta is the pagination envelope returned with every listing.
type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// TransactionEvent is published to NATS after a ledger unit commits.
type TransactionEvent struct {
	TransactionID uuid.UUID         `json:"transaction_id"`
	FromWallet    uuid.UUID         `json:"from_wallet"`
	ToWallet      uuid.UUID         `json:"to_wallet"`
	Amount        decimal.Decimal   `json:"amount"`
	Fee           decimal.Decimal   `json:"fee"`
	Commission    decimal.Decimal   `json:"commission"`
	Type          TransactionType   `json:"type"`
	Status        TransactionStatus `json:"status"`
	InitiatedBy   uuid.UUID         `json:"initiated_by"`
	Timestamp     time.Time         `json:"timestamp"`
}
