package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/admin-console-api/internal/models"
	appErrors "github.com/noah-isme/admin-console-api/pkg/errors"
)

// TokenIdentity is the account snapshot embedded into issued tokens.
type TokenIdentity struct {
	UserID          string
	Username        string
	DeptID          string
	DataScope       models.DataScope
	Roles           []string
	SecurityVersion int64
}

// TokenCodec creates and parses signed claim-bearing tokens. It is stateless:
// revocation and security-version checks belong to the session manager.
type TokenCodec struct {
	secret []byte
	issuer string
}

// NewTokenCodec constructs a codec for the given signing secret.
func NewTokenCodec(secret, issuer string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), issuer: issuer}
}

// Issue signs a token of the given type carrying the identity claims.
func (c *TokenCodec) Issue(identity TokenIdentity, tokenType string, ttl time.Duration) (string, error) {
	issuedAt := time.Now().UTC()
	claims := &models.AccessClaims{
		TokenType:       tokenType,
		UserID:          identity.UserID,
		Username:        identity.Username,
		DeptID:          identity.DeptID,
		DataScope:       identity.DataScope,
		Roles:           identity.Roles,
		SecurityVersion: identity.SecurityVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   identity.UserID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}
	return signed, nil
}

// Parse verifies signature and expiry and returns the embedded claims.
// Expired-but-valid tokens fail with TOKEN_EXPIRED; anything else that does
// not verify fails with TOKEN_MALFORMED.
func (c *TokenCodec) Parse(tokenString string) (*models.AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrTokenExpired.Code, appErrors.ErrTokenExpired.Status, appErrors.ErrTokenExpired.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrTokenMalformed.Code, appErrors.ErrTokenMalformed.Status, appErrors.ErrTokenMalformed.Message)
	}

	claims, ok := token.Claims.(*models.AccessClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrTokenMalformed, "invalid token claims")
	}

	return claims, nil
}

// Remaining reports how long the parsed claims stay valid. Zero or negative
// means the token already expired.
func Remaining(claims *models.AccessClaims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	return time.Until(claims.ExpiresAt.Time)
}
