package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Token types embedded in signed claims. A refresh token can never be used as
// an access token and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// AccessClaims is the fixed claim set carried by every issued token. The
// security version records the per-account counter the token was minted
// against; a token whose version trails the account's current counter is
// stale regardless of signature and expiry.
type AccessClaims struct {
	TokenType       string    `json:"token_type"`
	UserID          string    `json:"user_id"`
	Username        string    `json:"username"`
	DeptID          string    `json:"dept_id"`
	DataScope       DataScope `json:"data_scope"`
	Roles           []string  `json:"roles"`
	SecurityVersion int64     `json:"security_version"`
	jwt.RegisteredClaims
}

// TokenPair is the credential set returned on login and refresh. It is never
// mutated; a refresh supersedes it with a new pair.
type TokenPair struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// LoginRequest holds credentials plus the login challenge answer.
type LoginRequest struct {
	Username      string `json:"username" validate:"required"`
	Password      string `json:"password" validate:"required"`
	ChallengeID   string `json:"challenge_id" validate:"required"`
	ChallengeCode string `json:"challenge_code" validate:"required"`
	IP            string `json:"-"`
	UserAgent     string `json:"-"`
}

// RefreshRequest exchanges a refresh token for a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ChangePasswordRequest payload for updating the current user's password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	DeptID    string    `json:"dept_id"`
	DataScope DataScope `json:"data_scope"`
	Roles     []string  `json:"roles"`
}

// ChallengeInfo is returned when a new login challenge is generated. Image
// challenges embed the rendered picture as a base64 data string; SMS/email
// challenges deliver out of band and leave Rendered empty.
type ChallengeInfo struct {
	ChallengeID string `json:"challenge_id"`
	Rendered    string `json:"rendered_challenge,omitempty"`
	ExpiresIn   int64  `json:"expires_in"`
}
