package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
	tokenTypeReset   = "reset"

	resetTokenTTL = 10 * time.Minute
)

// TokenIssuer signs and verifies HS256 token pairs.
type TokenIssuer struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewTokenIssuer(secret string, accessExpiry, refreshExpiry time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func (i *TokenIssuer) IssuePair(account *models.Account) (*models.TokenPair, error) {
	access, err := i.sign(account.ID, account.Email, account.Role, tokenTypeAccess, i.accessExpiry)
	if err != nil {
		return nil, err
	}
	refresh, err := i.sign(account.ID, account.Email, account.Role, tokenTypeRefresh, i.refreshExpiry)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueResetToken signs a short-lived token for the password-reset link.
func (i *TokenIssuer) IssueResetToken(account *models.Account) (string, error) {
	return i.sign(account.ID, account.Email, account.Role, tokenTypeReset, resetTokenTTL)
}

func (i *TokenIssuer) sign(id uuid.UUID, email string, role models.Role, tokenType string, expiry time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"account_id": id.String(),
		"email":      email,
		"role":       string(role),
		"type":       tokenType,
		"iat":        now.Unix(),
		"exp":        now.Add(expiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to issue token", err)
	}
	return signed, nil
}

// Verify parses a token, checks the HMAC signature and expiry, and
// requires the given token type.
func (i *TokenIssuer) Verify(tokenStr, wantType string) (*models.Claims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid or expired token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid token claims")
	}
	if tokenType, _ := mapClaims["type"].(string); tokenType != wantType {
		return nil, apperr.Newf(apperr.KindUnauthorized, "not a %s token", wantType)
	}

	idStr, _ := mapClaims["account_id"].(string)
	accountID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid token claims")
	}
	email, _ := mapClaims["email"].(string)
	role, _ := mapClaims["role"].(string)

	return &models.Claims{
		AccountID: accountID,
		Email:     email,
		Role:      models.Role(role),
	}, nil
}
