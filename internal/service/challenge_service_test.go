package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/admin-console-api/pkg/errors"
)

// memChallengeStore mirrors the store contract: answers are matched case
// insensitively and a correct answer removes the record atomically.
type memChallengeStore struct {
	mu      sync.Mutex
	answers map[string]string
}

func newMemChallengeStore() *memChallengeStore {
	return &memChallengeStore{answers: make(map[string]string)}
}

func (s *memChallengeStore) Save(_ context.Context, id, answer string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[id] = strings.ToLower(answer)
	return nil
}

func (s *memChallengeStore) Consume(_ context.Context, id, answer string) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.answers[id]
	if !ok {
		return false, false, nil
	}
	if stored != strings.ToLower(answer) {
		return false, true, nil
	}
	delete(s.answers, id)
	return true, true, nil
}

type recordingSender struct {
	mu    sync.Mutex
	sent  []string
	codes []string
}

func (r *recordingSender) Send(_ context.Context, channel, destination, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, channel+":"+destination)
	r.codes = append(r.codes, code)
	return nil
}

func TestChallengeService_GenerateImage(t *testing.T) {
	store := newMemChallengeStore()
	svc := NewChallengeService(store, nil, nil, ChallengeConfig{TTL: time.Minute}, nil)

	info, err := svc.Generate(context.Background(), ChannelImage, "")
	require.NoError(t, err)

	assert.NotEmpty(t, info.ChallengeID)
	assert.True(t, strings.HasPrefix(info.Rendered, "data:image/png;base64,"))
	assert.Equal(t, int64(60), info.ExpiresIn)
	assert.Len(t, store.answers, 1)
}

func TestChallengeService_ValidateSingleUse(t *testing.T) {
	store := newMemChallengeStore()
	svc := NewChallengeService(store, nil, nil, ChallengeConfig{}, nil)

	require.NoError(t, store.Save(context.Background(), "c-1", "4815", 0))

	require.NoError(t, svc.Validate(context.Background(), "c-1", "4815"))

	// Consumed on success; a replay of the same answer fails as expired.
	err := svc.Validate(context.Background(), "c-1", "4815")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrChallengeExpired.Code, appErr.Code)
}

func TestChallengeService_ValidateMismatchKeepsRecord(t *testing.T) {
	store := newMemChallengeStore()
	svc := NewChallengeService(store, nil, nil, ChallengeConfig{}, nil)

	require.NoError(t, store.Save(context.Background(), "c-1", "4815", 0))

	err := svc.Validate(context.Background(), "c-1", "0000")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrChallengeMismatch.Code, appErr.Code)

	// The record survives a wrong guess within its lifetime.
	require.NoError(t, svc.Validate(context.Background(), "c-1", "4815"))
}

func TestChallengeService_ValidateCaseInsensitive(t *testing.T) {
	store := newMemChallengeStore()
	svc := NewChallengeService(store, nil, nil, ChallengeConfig{}, nil)

	require.NoError(t, store.Save(context.Background(), "c-1", "AbC9", 0))
	require.NoError(t, svc.Validate(context.Background(), "c-1", "abc9"))
}

func TestChallengeService_ValidateMissingInputs(t *testing.T) {
	svc := NewChallengeService(newMemChallengeStore(), nil, nil, ChallengeConfig{}, nil)

	for _, tc := range [][2]string{{"", "1234"}, {"c-1", ""}, {"", ""}} {
		err := svc.Validate(context.Background(), tc[0], tc[1])
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrChallengeExpired.Code, appErr.Code)
	}
}

func TestChallengeService_GenerateSMSDispatchesCode(t *testing.T) {
	store := newMemChallengeStore()
	sender := &recordingSender{}
	svc := NewChallengeService(store, sender, nil, ChallengeConfig{CodeLength: 6}, nil)

	info, err := svc.Generate(context.Background(), ChannelSMS, "+15550100")
	require.NoError(t, err)

	assert.Empty(t, info.Rendered)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "sms:+15550100", sender.sent[0])
	require.Len(t, sender.codes, 1)
	assert.Len(t, sender.codes[0], 6)

	// The dispatched code validates the challenge.
	require.NoError(t, svc.Validate(context.Background(), info.ChallengeID, sender.codes[0]))
}

func TestChallengeService_GenerateSMSRequiresDestination(t *testing.T) {
	svc := NewChallengeService(newMemChallengeStore(), &recordingSender{}, nil, ChallengeConfig{}, nil)

	_, err := svc.Generate(context.Background(), ChannelSMS, "")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestChallengeService_GenerateUnknownChannel(t *testing.T) {
	svc := NewChallengeService(newMemChallengeStore(), nil, nil, ChallengeConfig{}, nil)

	_, err := svc.Generate(context.Background(), "carrier-pigeon", "")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
