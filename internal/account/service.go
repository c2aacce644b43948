// Package account owns identity, role, and approval/block state. The
// account and its wallet are always created in the same atomic unit.
package account

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
	"github.com/ShailySarker/digital-wallet-backend/internal/authz"
	"github.com/ShailySarker/digital-wallet-backend/internal/config"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
	"github.com/ShailySarker/digital-wallet-backend/internal/repository"
)

type Service struct {
	store      repository.Store
	accounts   repository.AccountRepository
	policy     config.WalletPolicy
	bcryptCost int
}

func NewService(store repository.Store, accounts repository.AccountRepository,
	policy config.WalletPolicy, bcryptCost int) *Service {
	return &Service{
		store:      store,
		accounts:   accounts,
		policy:     policy,
		bcryptCost: bcryptCost,
	}
}

// Register creates an account and its wallet atomically. Only USER and
// AGENT may self-register; agents start PENDING with the configured
// commission rate, users start UNBLOCKED.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.Account, error) {
	if req.Email == "" || req.Phone == "" || req.Password == "" || req.NIDNumber == "" || req.Name == "" {
		return nil, apperr.New(apperr.KindInvalidState, "missing required fields")
	}
	if req.Role != models.RoleUser && req.Role != models.RoleAgent {
		return nil, apperr.New(apperr.KindForbidden, "only USER and AGENT can self-register")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "internal server error", err)
	}

	now := time.Now().UTC()
	account := &models.Account{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        strings.TrimSpace(req.Phone),
		NIDNumber:    req.NIDNumber,
		PasswordHash: string(hash),
		Role:         req.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	switch req.Role {
	case models.RoleUser:
		state := models.ActiveUnblocked
		account.ActiveState = &state
	case models.RoleAgent:
		state := models.ApprovalPending
		account.ApprovalState = &state
		rate := s.policy.CommissionRate
		account.CommissionRate = &rate
	}

	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		if err := tx.InsertAccount(ctx, account); err != nil {
			return err
		}
		wallet := &models.Wallet{
			ID:        uuid.New(),
			AccountID: account.ID,
			Balance:   s.policy.InitialBalance,
			Status:    models.WalletUnblocked,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.InsertWallet(ctx, wallet)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Update applies a partial patch with field-level authorization:
// privileged fields (state, approval, commission, verified, deleted)
// require an ADMIN caller; identity fields may only be changed by the
// account owner, or by an ADMIN when the target is not an admin.
// State transitions cascade to the owned wallet's status.
func (s *Service) Update(ctx context.Context, caller models.Claims, targetID uuid.UUID, patch models.UpdateAccountRequest) (*models.Account, error) {
	if patch.TouchesPrivileged() && caller.Role != models.RoleAdmin {
		return nil, apperr.Newf(apperr.KindForbidden,
			"%s is not authorized to update state, approval, commission or deletion", caller.Role)
	}
	if patch.TouchesIdentity() && caller.AccountID != targetID && caller.Role != models.RoleAdmin {
		return nil, apperr.New(apperr.KindForbidden, "only the account owner may change identity fields")
	}

	var updated *models.Account
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		target, err := tx.AccountByID(ctx, targetID)
		if err != nil {
			return err
		}
		if patch.TouchesIdentity() && caller.Role == models.RoleAdmin &&
			caller.AccountID != targetID && target.Role != models.RoleUser && target.Role != models.RoleAgent {
			return apperr.New(apperr.KindForbidden, "admins may not change another admin's identity fields")
		}

		if err := s.applyIdentity(ctx, tx, target, &patch); err != nil {
			return err
		}
		if err := applyPrivileged(target, &patch); err != nil {
			return err
		}

		target.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateAccount(ctx, target); err != nil {
			return err
		}

		if err := cascadeWalletStatus(ctx, tx, target, &patch); err != nil {
			return err
		}

		updated = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) applyIdentity(ctx context.Context, tx repository.Tx, target *models.Account, patch *models.UpdateAccountRequest) error {
	if patch.Name != nil {
		target.Name = *patch.Name
	}
	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if email != target.Email {
			// Uniqueness is re-checked here; the unique index is the
			// backstop for concurrent registrations.
			if _, err := tx.AccountByIdentity(ctx, []string{email}); err == nil {
				return apperr.New(apperr.KindConflict, "email address already exists")
			} else if !apperr.IsKind(err, apperr.KindNotFound) {
				return err
			}
			target.Email = email
		}
	}
	if patch.Phone != nil {
		phone := strings.TrimSpace(*patch.Phone)
		if phone != target.Phone {
			if _, err := tx.AccountByIdentity(ctx, []string{phone}); err == nil {
				return apperr.New(apperr.KindConflict, "phone number already exists")
			} else if !apperr.IsKind(err, apperr.KindNotFound) {
				return err
			}
			target.Phone = phone
		}
	}
	if patch.NIDNumber != nil {
		target.NIDNumber = *patch.NIDNumber
	}
	if patch.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), s.bcryptCost)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "internal server error", err)
		}
		target.PasswordHash = string(hash)
	}
	return nil
}

// applyPrivileged sets admin-only fields, scrubbing the ones the target
// role does not use so the role invariant holds.
func applyPrivileged(target *models.Account, patch *models.UpdateAccountRequest) error {
	if patch.ActiveState != nil {
		if target.Role != models.RoleUser {
			return apperr.New(apperr.KindInvalidState, "active state applies to USER accounts only")
		}
		target.ActiveState = patch.ActiveState
	}
	if patch.ApprovalState != nil {
		if target.Role != models.RoleAgent {
			return apperr.New(apperr.KindInvalidState, "approval state applies to AGENT accounts only")
		}
		target.ApprovalState = patch.ApprovalState
	}
	if patch.CommissionRate != nil {
		if target.Role != models.RoleAgent {
			return apperr.New(apperr.KindInvalidState, "commission rate applies to AGENT accounts only")
		}
		target.CommissionRate = patch.CommissionRate
	}
	if patch.Verified != nil {
		target.Verified = *patch.Verified
	}
	if patch.Deleted != nil {
		target.Deleted = *patch.Deleted
	}
	return nil
}

// cascadeWalletStatus mirrors account state onto the owned wallet:
// SUSPENDED or BLOCKED blocks the wallet, APPROVED or UNBLOCKED
// unblocks it. Admins have no wallet.
func cascadeWalletStatus(ctx context.Context, tx repository.Tx, target *models.Account, patch *models.UpdateAccountRequest) error {
	if target.Role == models.RoleAdmin {
		return nil
	}

	var status models.WalletStatus
	switch {
	case patch.ApprovalState != nil && *patch.ApprovalState == models.ApprovalSuspended,
		patch.ActiveState != nil && *patch.ActiveState == models.ActiveBlocked:
		status = models.WalletBlocked
	case patch.ApprovalState != nil && *patch.ApprovalState == models.ApprovalApproved,
		patch.ActiveState != nil && *patch.ActiveState == models.ActiveUnblocked:
		status = models.WalletUnblocked
	default:
		return nil
	}

	wallet, err := tx.WalletForUpdate(ctx, target.ID)
	if err != nil {
		return err
	}
	if wallet.Status == status {
		return nil
	}
	return tx.SetWalletStatus(ctx, wallet.ID, status)
}

// Profile returns the account for the authenticated caller.
func (s *Service) Profile(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	return s.accounts.ByID(ctx, accountID)
}

// Get returns any account by ID. Admin only; enforced at the edge.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.accounts.ByID(ctx, id)
}

// Lookup resolves an account by phone (with normalization variants) or
// email, for pre-transfer recipient checks. Admin accounts are never
// returned.
func (s *Service) Lookup(ctx context.Context, identifier string) (*models.Account, error) {
	account, err := s.accounts.ByIdentity(ctx, models.PhoneVariants(identifier, s.policy.PhonePrefix))
	if err != nil {
		return nil, err
	}
	if account.Role == models.RoleAdmin {
		return nil, apperr.New(apperr.KindNotFound, "account not found")
	}
	return account, nil
}

// List returns the admin directory with per-status counts for the
// filtered role.
func (s *Service) List(ctx context.Context, caller models.Claims, filter models.AccountFilter) ([]models.Account, *models.PageMeta, *models.AccountCounts, error) {
	if caller.Role != models.RoleAdmin {
		return nil, nil, nil, apperr.New(apperr.KindForbidden, "only ADMIN may list accounts")
	}

	accounts, meta, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, nil, nil, err
	}

	var counts *models.AccountCounts
	if filter.Role != "" {
		counts, err = s.accounts.Counts(ctx, filter.Role)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return accounts, meta, counts, nil
}

// CheckCaller loads the caller's current account state and runs the
// authorization gate's state checks. Used by the auth middleware so a
// blocked or deleted account cannot keep using an old token.
func (s *Service) CheckCaller(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	account, err := s.accounts.ByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckCaller(account); err != nil {
		return nil, err
	}
	return account, nil
}

// SeedAdmin creates the configured admin account if it does not exist.
// Admins have no wallet.
func (s *Service) SeedAdmin(ctx context.Context, email, password string) error {
	if _, err := s.accounts.ByEmail(ctx, email); err == nil {
		return nil
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "internal server error", err)
	}

	now := time.Now().UTC()
	admin := &models.Account{
		ID:           uuid.New(),
		Name:         "Admin",
		Email:        strings.ToLower(email),
		Phone:        "admin",
		NIDNumber:    "admin",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		Verified:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		return tx.InsertAccount(ctx, admin)
	})
	if err != nil {
		return err
	}
	log.Printf("seeded admin account %s", email)
	return nil
}
