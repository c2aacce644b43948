package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletStatus string

const (
	WalletBlocked   WalletStatus = "BLOCKED"
	WalletUnblocked WalletStatus = "UNBLOCKED"
)

// Wallet is the mutable balance record owned by exactly one account.
// Balance never goes below zero; the database enforces the same check.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	AccountID uuid.UUID       `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	Status    WalletStatus    `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
