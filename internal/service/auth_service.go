package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/admin-console-api/internal/models"
	appErrors "github.com/noah-isme/admin-console-api/pkg/errors"
)

type userDirectory interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type revocationStore interface {
	Blacklist(ctx context.Context, token string, remaining time.Duration) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)
	GetSecurityVersion(ctx context.Context, userID string) (int64, error)
	BumpSecurityVersion(ctx context.Context, userID string) (int64, error)
}

type challengeValidator interface {
	Validate(ctx context.Context, id, answer string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// AuthService orchestrates login, refresh and logout against the token codec
// and the shared revocation store. It is the only writer of revocation state.
type AuthService struct {
	users      userDirectory
	revocation revocationStore
	challenges challengeValidator
	codec      *TokenCodec
	validator  *validator.Validate
	metrics    *MetricsService
	logger     *zap.Logger
	config     AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users userDirectory, revocation revocationStore, challenges challengeValidator, codec *TokenCodec, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 2 * time.Hour
	}
	if config.RefreshTokenExpiry <= 0 {
		config.RefreshTokenExpiry = 7 * 24 * time.Hour
	}
	return &AuthService{
		users:      users,
		revocation: revocation,
		challenges: challenges,
		codec:      codec,
		validator:  validate,
		metrics:    metrics,
		logger:     logger,
		config:     config,
	}
}

// Login authenticates a user and returns a freshly minted token pair. The
// challenge is validated before credentials are ever touched so challenge
// state cannot be probed through password-validity timing.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	if err := s.challenges.Validate(ctx, req.ChallengeID, req.ChallengeCode); err != nil {
		s.recordAuth(models.AuditActionLogin, false)
		return nil, err
	}

	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordAuth(models.AuditActionLogin, false)
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if user.Disabled() {
		s.recordAuth(models.AuditActionLogin, false)
		return nil, appErrors.Clone(appErrors.ErrAccountDisabled, "")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.recordAuth(models.AuditActionLogin, false)
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	pair, err := s.mintPair(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}
	s.audit(ctx, &user.ID, models.AuditActionLogin, `{"status":"success"}`, req.IP, req.UserAgent)
	s.recordAuth(models.AuditActionLogin, true)

	return pair, nil
}

// Refresh exchanges a refresh token for a new token pair. The consumed
// refresh token is blacklisted for its remaining life, so refresh tokens are
// single use; replaying one fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, err := s.codec.Parse(refreshToken)
	if err != nil {
		s.recordAuth(models.AuditActionRefresh, false)
		return nil, appErrors.Clone(appErrors.ErrRefreshInvalid, "")
	}
	if claims.TokenType != models.TokenTypeRefresh {
		s.recordAuth(models.AuditActionRefresh, false)
		return nil, appErrors.Clone(appErrors.ErrRefreshInvalid, "")
	}

	revoked, err := s.revocation.IsBlacklisted(ctx, refreshToken)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check revocation")
	}
	if revoked {
		s.recordAuth(models.AuditActionRefresh, false)
		return nil, appErrors.Clone(appErrors.ErrRefreshInvalid, "")
	}

	version, err := s.revocation.GetSecurityVersion(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read security version")
	}
	if claims.SecurityVersion != version {
		// Forced invalidation since this token was minted.
		s.recordAuth(models.AuditActionRefresh, false)
		return nil, appErrors.Clone(appErrors.ErrRefreshInvalid, "")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordAuth(models.AuditActionRefresh, false)
			return nil, appErrors.Clone(appErrors.ErrRefreshInvalid, "associated user no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Disabled() {
		s.recordAuth(models.AuditActionRefresh, false)
		return nil, appErrors.Clone(appErrors.ErrAccountDisabled, "")
	}

	if err := s.revocation.Blacklist(ctx, refreshToken, Remaining(claims)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh token")
	}

	pair, err := s.mintPair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, &user.ID, models.AuditActionRefresh, `{"refresh":"rotated"}`, "", "")
	s.recordAuth(models.AuditActionRefresh, true)
	return pair, nil
}

// Logout revokes the bearer token carried by the authorization header. It
// never fails from the caller's point of view: an unparseable or already
// expired token simply leaves nothing to revoke.
func (s *AuthService) Logout(ctx context.Context, authorizationHeader string) {
	token := extractBearer(authorizationHeader)
	if token == "" {
		return
	}

	claims, err := s.codec.Parse(token)
	if err != nil {
		return
	}

	if err := s.revocation.Blacklist(ctx, token, Remaining(claims)); err != nil {
		s.logger.Warn("failed to blacklist token on logout", zap.Error(err))
		return
	}

	s.audit(ctx, &claims.UserID, models.AuditActionLogout, `{"status":"logout"}`, "", "")
}

// ForceLogout bumps the account's security version, invalidating every token
// minted before this call on any service instance.
func (s *AuthService) ForceLogout(ctx context.Context, userID string) error {
	if _, err := s.revocation.BumpSecurityVersion(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bump security version")
	}
	s.audit(ctx, &userID, models.AuditActionForceLogout, `{"status":"forced"}`, "", "")
	return nil
}

// ChangePassword updates the password and invalidates all existing sessions.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	if err := s.users.UpdatePassword(ctx, userID, string(newHash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	if _, err := s.revocation.BumpSecurityVersion(ctx, userID); err != nil {
		s.logger.Warn("failed to invalidate sessions after password change", zap.Error(err))
	}

	s.audit(ctx, &userID, models.AuditActionPassword, `{"status":"changed"}`, "", "")
	return nil
}

// Verify performs the request-scoped access token check: signature, expiry,
// blacklist and security version. Used by the JWT middleware and the
// realtime gateway handshake.
func (s *AuthService) Verify(ctx context.Context, token string) (*models.AccessClaims, error) {
	claims, err := s.codec.Parse(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != models.TokenTypeAccess {
		return nil, appErrors.Clone(appErrors.ErrTokenMalformed, "not an access token")
	}

	revoked, err := s.revocation.IsBlacklisted(ctx, token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check revocation")
	}
	if revoked {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token revoked")
	}

	version, err := s.revocation.GetSecurityVersion(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read security version")
	}
	if claims.SecurityVersion != version {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token superseded")
	}

	return claims, nil
}

func (s *AuthService) mintPair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	version, err := s.revocation.GetSecurityVersion(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read security version")
	}

	identity := TokenIdentity{
		UserID:          user.ID,
		Username:        user.Username,
		DeptID:          user.DeptID,
		DataScope:       user.DataScope,
		Roles:           []string(user.Roles),
		SecurityVersion: version,
	}

	access, err := s.codec.Issue(identity, models.TokenTypeAccess, s.config.AccessTokenExpiry)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.Issue(identity, models.TokenTypeRefresh, s.config.RefreshTokenExpiry)
	if err != nil {
		return nil, err
	}

	return &models.TokenPair{
		TokenType:    "Bearer",
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
	}, nil
}

func (s *AuthService) audit(ctx context.Context, userID *string, action, detail, ip, userAgent string) {
	err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:    userID,
		Action:    action,
		Detail:    detail,
		IPAddress: ip,
		UserAgent: userAgent,
	})
	if err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func (s *AuthService) recordAuth(action string, success bool) {
	if s.metrics != nil {
		s.metrics.RecordAuthResult(action, success)
	}
}

func extractBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
