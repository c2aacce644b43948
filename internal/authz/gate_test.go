package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
)

func user(state models.ActiveState) *models.Account {
	return &models.Account{Role: models.RoleUser, ActiveState: &state}
}

func agent(state models.ApprovalState) *models.Account {
	return &models.Account{Role: models.RoleAgent, ApprovalState: &state}
}

func admin() *models.Account {
	return &models.Account{Role: models.RoleAdmin}
}

func TestCheckCaller(t *testing.T) {
	tests := []struct {
		name    string
		account *models.Account
		wantErr apperr.Kind
		ok      bool
	}{
		{"nil account", nil, apperr.KindUnauthorized, false},
		{"active user", user(models.ActiveUnblocked), 0, true},
		{"blocked user", user(models.ActiveBlocked), apperr.KindInvalidState, false},
		{"approved agent", agent(models.ApprovalApproved), 0, true},
		{"pending agent", agent(models.ApprovalPending), 0, true},
		{"suspended agent", agent(models.ApprovalSuspended), apperr.KindInvalidState, false},
		{"admin", admin(), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCaller(tt.account)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperr.IsKind(err, tt.wantErr), "got %v", err)
			}
		})
	}
}

func TestCheckCallerDeleted(t *testing.T) {
	a := user(models.ActiveUnblocked)
	a.Deleted = true
	err := CheckCaller(a)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestAllow(t *testing.T) {
	tests := []struct {
		name    string
		account *models.Account
		op      Operation
		ok      bool
	}{
		{"user deposit", user(models.ActiveUnblocked), OpDeposit, true},
		{"user withdraw", user(models.ActiveUnblocked), OpWithdraw, true},
		{"user send", user(models.ActiveUnblocked), OpSend, true},
		{"user cash-in", user(models.ActiveUnblocked), OpCashIn, false},
		{"user list accounts", user(models.ActiveUnblocked), OpListAccounts, false},
		{"agent cash-in", agent(models.ApprovalApproved), OpCashIn, true},
		{"agent cash-out", agent(models.ApprovalApproved), OpCashOut, true},
		{"agent deposit", agent(models.ApprovalApproved), OpDeposit, false},
		{"agent commission view", agent(models.ApprovalApproved), OpViewCommission, true},
		{"admin force wallet", admin(), OpForceWallet, true},
		{"admin list accounts", admin(), OpListAccounts, true},
		{"admin deposit", admin(), OpDeposit, false},
		{"admin send", admin(), OpSend, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Allow(tt.account, tt.op)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "got %v", err)
			}
		})
	}
}

func TestAllowBlockedBeforeRole(t *testing.T) {
	// state check takes precedence over role membership
	err := Allow(user(models.ActiveBlocked), OpDeposit)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestAllowUnknownOperation(t *testing.T) {
	err := Allow(admin(), Operation("unknown"))
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestCheckCounterparty(t *testing.T) {
	assert.NoError(t, CheckCounterparty(user(models.ActiveUnblocked), models.RoleUser))
	assert.NoError(t, CheckCounterparty(agent(models.ApprovalApproved), ""))

	err := CheckCounterparty(nil, models.RoleUser)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	err = CheckCounterparty(agent(models.ApprovalApproved), models.RoleUser)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))

	err = CheckCounterparty(user(models.ActiveBlocked), models.RoleUser)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}
