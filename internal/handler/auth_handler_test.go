package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/admin-console-api/internal/models"
	"github.com/noah-isme/admin-console-api/internal/service"
)

type fakeUsers struct {
	mu   sync.Mutex
	user *models.User
}

func (f *fakeUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.user != nil && f.user.Username == username {
		copied := *f.user
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.user != nil && f.user.ID == id {
		copied := *f.user
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUsers) UpdateLastLogin(context.Context, string, time.Time) error { return nil }

func (f *fakeUsers) UpdatePassword(_ context.Context, _, hash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user.PasswordHash = hash
	return nil
}

func (f *fakeUsers) CreateAuditLog(context.Context, *models.AuditLog) error { return nil }

type fakeRevocation struct {
	mu        sync.Mutex
	blacklist map[string]struct{}
	versions  map[string]int64
}

func newFakeRevocation() *fakeRevocation {
	return &fakeRevocation{blacklist: make(map[string]struct{}), versions: make(map[string]int64)}
}

func (f *fakeRevocation) Blacklist(_ context.Context, token string, remaining time.Duration) error {
	if remaining <= 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blacklist[token] = struct{}{}
	return nil
}

func (f *fakeRevocation) IsBlacklisted(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blacklist[token]
	return ok, nil
}

func (f *fakeRevocation) GetSecurityVersion(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.versions[userID], nil
}

func (f *fakeRevocation) BumpSecurityVersion(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.versions[userID]++
	return f.versions[userID], nil
}

type fakeChallengeStore struct {
	mu      sync.Mutex
	answers map[string]string
}

func newFakeChallengeStore() *fakeChallengeStore {
	return &fakeChallengeStore{answers: make(map[string]string)}
}

func (f *fakeChallengeStore) Save(_ context.Context, id, answer string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[id] = strings.ToLower(answer)
	return nil
}

func (f *fakeChallengeStore) Consume(_ context.Context, id, answer string) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.answers[id]
	if !ok {
		return false, false, nil
	}
	if stored != strings.ToLower(answer) {
		return false, true, nil
	}
	delete(f.answers, id)
	return true, true, nil
}

type authFixture struct {
	handler    *AuthHandler
	store      *fakeChallengeStore
	revocation *fakeRevocation
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &fakeUsers{user: &models.User{
		ID:           "u-1",
		Username:     "alice",
		PasswordHash: string(hash),
		Status:       models.UserStatusActive,
	}}

	store := newFakeChallengeStore()
	revocation := newFakeRevocation()
	codec := service.NewTokenCodec("test-secret", "admin-console")
	challenges := service.NewChallengeService(store, nil, nil, service.ChallengeConfig{}, nil)
	auth := service.NewAuthService(users, revocation, challenges, codec, nil, nil, nil, service.AuthConfig{})

	return &authFixture{
		handler:    NewAuthHandler(auth, challenges),
		store:      store,
		revocation: revocation,
	}
}

func performJSON(handler gin.HandlerFunc, method, target string, payload interface{}) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	var body *bytes.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, body)
	c.Request.Header.Set("Content-Type", "application/json")

	handler(c)
	return rec
}

func TestAuthHandlerChallenge(t *testing.T) {
	fx := newAuthFixture(t)

	rec := performJSON(fx.handler.Challenge, http.MethodGet, "/auth/challenge", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.ChallengeInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.ChallengeID)
	assert.True(t, strings.HasPrefix(envelope.Data.Rendered, "data:image/png;base64,"))
}

func TestAuthHandlerLoginSuccess(t *testing.T) {
	fx := newAuthFixture(t)
	require.NoError(t, fx.store.Save(context.Background(), "c-1", "4815", 0))

	rec := performJSON(fx.handler.Login, http.MethodPost, "/auth/login", models.LoginRequest{
		Username:      "alice",
		Password:      "s3cret",
		ChallengeID:   "c-1",
		ChallengeCode: "4815",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.TokenPair `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.NotEmpty(t, envelope.Data.RefreshToken)
	assert.Equal(t, "Bearer", envelope.Data.TokenType)
}

func TestAuthHandlerLoginWrongPassword(t *testing.T) {
	fx := newAuthFixture(t)
	require.NoError(t, fx.store.Save(context.Background(), "c-1", "4815", 0))

	rec := performJSON(fx.handler.Login, http.MethodPost, "/auth/login", models.LoginRequest{
		Username:      "alice",
		Password:      "wrong",
		ChallengeID:   "c-1",
		ChallengeCode: "4815",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "INVALID_CREDENTIALS", envelope.Error.Code)
}

func TestAuthHandlerLoginExpiredChallenge(t *testing.T) {
	fx := newAuthFixture(t)

	rec := performJSON(fx.handler.Login, http.MethodPost, "/auth/login", models.LoginRequest{
		Username:      "alice",
		Password:      "s3cret",
		ChallengeID:   "never-issued",
		ChallengeCode: "4815",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "CHALLENGE_EXPIRED")
}

func TestAuthHandlerLoginMissingFields(t *testing.T) {
	fx := newAuthFixture(t)

	rec := performJSON(fx.handler.Login, http.MethodPost, "/auth/login", gin.H{"username": "alice"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestAuthHandlerLogoutAlwaysNoContent(t *testing.T) {
	fx := newAuthFixture(t)

	for _, header := range []string{"", "Bearer garbage", "Basic dXNlcjpwYXNz"} {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		if header != "" {
			c.Request.Header.Set("Authorization", header)
		}

		fx.handler.Logout(c)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}
