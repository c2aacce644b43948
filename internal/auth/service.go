// Package auth implements credentials login, token refresh and
// revocation, and the password lifecycle. Outbound email leaves the
// system as a NATS message; SMTP is somebody else's problem.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
	"github.com/ShailySarker/digital-wallet-backend/internal/authz"
	"github.com/ShailySarker/digital-wallet-backend/internal/events"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
	"github.com/ShailySarker/digital-wallet-backend/internal/repository"
)

// Mailer sends outbound mail. The production implementation publishes
// to NATS for the notification worker.
type Mailer interface {
	SendEmail(ctx context.Context, msg events.EmailMessage) error
}

type Service struct {
	accounts    repository.AccountRepository
	store       repository.Store
	sessions    repository.SessionRepository
	tokens      *TokenIssuer
	mailer      Mailer // optional
	bcryptCost  int
	frontendURL string
	jwtExpiry   time.Duration
	refreshTTL  time.Duration
}

func NewService(accounts repository.AccountRepository, store repository.Store,
	sessions repository.SessionRepository, tokens *TokenIssuer, mailer Mailer,
	bcryptCost int, frontendURL string, jwtExpiry, refreshTTL time.Duration) *Service {
	return &Service{
		accounts:    accounts,
		store:       store,
		sessions:    sessions,
		tokens:      tokens,
		mailer:      mailer,
		bcryptCost:  bcryptCost,
		frontendURL: frontendURL,
		jwtExpiry:   jwtExpiry,
		refreshTTL:  refreshTTL,
	}
}

// LoginResult is the login response payload.
type LoginResult struct {
	Tokens  *models.TokenPair `json:"tokens"`
	Account *models.Account   `json:"account"`
}

// Login validates credentials and account state, then issues a token
// pair and persists the session.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.accounts.ByEmail(ctx, email)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, apperr.New(apperr.KindUnauthorized, "incorrect email or password")
	}
	if err != nil {
		return nil, err
	}
	if err := authz.CheckCaller(account); err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, apperr.New(apperr.KindUnauthorized, "incorrect email or password")
	}

	pair, err := s.tokens.IssuePair(account)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &repository.Session{
		ID:        generateID(),
		AccountID: account.ID.String(),
		Token:     pair.AccessToken,
		ExpiresAt: now.Add(s.jwtExpiry),
		CreatedAt: now,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	if err := s.sessions.CacheSession(ctx, pair.AccessToken, session.AccountID, s.jwtExpiry); err != nil {
		log.Printf("WARN: cache session: %v", err)
	}

	return &LoginResult{Tokens: pair, Account: account}, nil
}

// Refresh exchanges a valid, unrevoked refresh token for a new pair.
// The old refresh token is revoked so it cannot be replayed.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	blacklisted, err := s.sessions.IsTokenBlacklisted(ctx, refreshToken)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "internal server error", err)
	}
	if blacklisted {
		return nil, apperr.New(apperr.KindUnauthorized, "token has been revoked")
	}

	claims, err := s.tokens.Verify(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.ByID(ctx, claims.AccountID)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckCaller(account); err != nil {
		return nil, err
	}

	if err := s.sessions.BlacklistToken(ctx, refreshToken, s.refreshTTL); err != nil {
		log.Printf("WARN: blacklist refresh token: %v", err)
	}
	return s.tokens.IssuePair(account)
}

// Logout revokes the access token and removes the session.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	if err := s.sessions.BlacklistToken(ctx, accessToken, s.jwtExpiry); err != nil {
		log.Printf("WARN: blacklist token: %v", err)
	}
	if err := s.sessions.DeleteSession(ctx, accessToken); err != nil {
		return err
	}
	if err := s.sessions.InvalidateCachedSession(ctx, accessToken); err != nil {
		log.Printf("WARN: invalidate cached session: %v", err)
	}
	return nil
}

// VerifyAccess checks an access token's signature and revocation state.
func (s *Service) VerifyAccess(ctx context.Context, accessToken string) (*models.Claims, error) {
	blacklisted, err := s.sessions.IsTokenBlacklisted(ctx, accessToken)
	if err != nil {
		// Redis being down must not lock everyone out; the signature
		// check below still applies.
		log.Printf("WARN: check token blacklist: %v", err)
	} else if blacklisted {
		return nil, apperr.New(apperr.KindUnauthorized, "token has been revoked")
	}
	return s.tokens.Verify(accessToken, tokenTypeAccess)
}

// ChangePassword verifies the old password before setting the new one.
func (s *Service) ChangePassword(ctx context.Context, caller models.Claims, oldPassword, newPassword string) error {
	if newPassword == "" {
		return apperr.New(apperr.KindInvalidState, "new password is required")
	}

	return s.store.InTx(ctx, func(tx repository.Tx) error {
		account, err := tx.AccountByID(ctx, caller.AccountID)
		if err != nil {
			return err
		}
		if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(oldPassword)) != nil {
			return apperr.New(apperr.KindUnauthorized, "old password does not match")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "internal server error", err)
		}
		account.PasswordHash = string(hash)
		account.UpdatedAt = time.Now().UTC()
		return tx.UpdateAccount(ctx, account)
	})
}

// ForgotPassword emails a short-lived reset link to a verified,
// operable account.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.accounts.ByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !account.Verified {
		return apperr.New(apperr.KindInvalidState, "account is not verified")
	}
	if err := authz.CheckCaller(account); err != nil {
		return err
	}

	resetToken, err := s.tokens.IssueResetToken(account)
	if err != nil {
		return err
	}
	resetLink := fmt.Sprintf("%s/reset-password?id=%s&token=%s", s.frontendURL, account.ID, resetToken)

	if s.mailer == nil {
		log.Printf("WARN: no mailer configured, dropping reset email for %s", email)
		return nil
	}
	return s.mailer.SendEmail(ctx, events.EmailMessage{
		To:       account.Email,
		Subject:  "Password Reset",
		Template: "forgot-password",
		Data: map[string]string{
			"name":       account.Name,
			"reset_link": resetLink,
		},
	})
}

// ResetPassword sets a new password given a valid reset token. The
// token subject must match the claimed account.
func (s *Service) ResetPassword(ctx context.Context, resetToken, accountID, newPassword string) error {
	claims, err := s.tokens.Verify(resetToken, tokenTypeReset)
	if err != nil {
		return err
	}
	if claims.AccountID.String() != accountID {
		return apperr.New(apperr.KindUnauthorized, "reset token does not match account")
	}
	if newPassword == "" {
		return apperr.New(apperr.KindInvalidState, "new password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "internal server error", err)
	}

	if err := s.store.InTx(ctx, func(tx repository.Tx) error {
		account, err := tx.AccountByID(ctx, claims.AccountID)
		if err != nil {
			return err
		}
		account.PasswordHash = string(hash)
		account.UpdatedAt = time.Now().UTC()
		return tx.UpdateAccount(ctx, account)
	}); err != nil {
		return err
	}

	// Old sessions die with the password.
	return s.sessions.DeleteSessionsByAccount(ctx, claims.AccountID.String())
}

func generateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
