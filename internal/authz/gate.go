// Package authz is the pure decision layer consulted before every
// ledger mutation and admin operation. No I/O happens here.
package authz

import (
	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
)

// Operation names a guarded action.
type Operation string

const (
	OpDeposit        Operation = "deposit"
	OpWithdraw       Operation = "withdraw"
	OpSend           Operation = "send"
	OpCashIn         Operation = "cash_in"
	OpCashOut        Operation = "cash_out"
	OpListAccounts   Operation = "list_accounts"
	OpListWallets    Operation = "list_wallets"
	OpForceWallet    Operation = "force_wallet_status"
	OpViewAllLedger  Operation = "view_all_transactions"
	OpViewCommission Operation = "view_commissions"
)

// roleSets maps each operation to the roles allowed to invoke it.
var roleSets = map[Operation][]models.Role{
	OpDeposit:        {models.RoleUser},
	OpWithdraw:       {models.RoleUser},
	OpSend:           {models.RoleUser},
	OpCashIn:         {models.RoleAgent},
	OpCashOut:        {models.RoleAgent},
	OpListAccounts:   {models.RoleAdmin},
	OpListWallets:    {models.RoleAdmin},
	OpForceWallet:    {models.RoleAdmin},
	OpViewAllLedger:  {models.RoleAdmin},
	OpViewCommission: {models.RoleAgent},
}

// CheckCaller rejects callers that are blocked, suspended, or deleted,
// regardless of the operation.
func CheckCaller(caller *models.Account) error {
	if caller == nil {
		return apperr.New(apperr.KindUnauthorized, "account does not exist")
	}
	if caller.Deleted {
		return apperr.New(apperr.KindInvalidState, "account is deleted")
	}
	if caller.ActiveState != nil && *caller.ActiveState == models.ActiveBlocked {
		return apperr.New(apperr.KindInvalidState, "account is blocked")
	}
	if caller.ApprovalState != nil && *caller.ApprovalState == models.ApprovalSuspended {
		return apperr.New(apperr.KindInvalidState, "agent is suspended")
	}
	return nil
}

// Allow decides whether the caller may invoke op. It combines the
// caller-state check with role-set membership.
func Allow(caller *models.Account, op Operation) error {
	if err := CheckCaller(caller); err != nil {
		return err
	}
	allowed, ok := roleSets[op]
	if !ok {
		return apperr.Newf(apperr.KindForbidden, "unknown operation %q", op)
	}
	for _, role := range allowed {
		if caller.Role == role {
			return nil
		}
	}
	return apperr.Newf(apperr.KindForbidden, "%s is not permitted to %s", caller.Role, op)
}

// CheckCounterparty validates the other side of a two-party operation:
// it must exist, hold the expected role when one is required, and be in
// an operable state.
func CheckCounterparty(target *models.Account, wantRole models.Role) error {
	if target == nil {
		return apperr.New(apperr.KindNotFound, "account not found")
	}
	if wantRole != "" && target.Role != wantRole {
		return apperr.Newf(apperr.KindInvalidState, "target account is not a %s", wantRole)
	}
	if !target.Operable() {
		return apperr.New(apperr.KindInvalidState, "target account is blocked, suspended or deleted")
	}
	return nil
}
