package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admin-console-api/internal/models"
	appErrors "github.com/noah-isme/admin-console-api/pkg/errors"
)

type memNoticeStore struct {
	mu      sync.Mutex
	notices map[string]*models.Notice
}

func newMemNoticeStore(notices ...*models.Notice) *memNoticeStore {
	m := &memNoticeStore{notices: make(map[string]*models.Notice)}
	for _, n := range notices {
		m.notices[n.ID] = n
	}
	return m
}

func (m *memNoticeStore) List(_ context.Context, _ models.NoticeFilter) ([]models.Notice, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notice
	for _, n := range m.notices {
		out = append(out, *n)
	}
	return out, len(out), nil
}

func (m *memNoticeStore) GetByID(_ context.Context, id string) (*models.Notice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notices[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *n
	return &copied, nil
}

func (m *memNoticeStore) Create(_ context.Context, notice *models.Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if notice.ID == "" {
		notice.ID = "generated"
	}
	copied := *notice
	m.notices[notice.ID] = &copied
	return nil
}

func (m *memNoticeStore) Update(_ context.Context, notice *models.Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *notice
	m.notices[notice.ID] = &copied
	return nil
}

func (m *memNoticeStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notices, id)
	return nil
}

type recordingPusher struct {
	mu       sync.Mutex
	payloads map[string][]interface{}
}

func newRecordingPusher() *recordingPusher {
	return &recordingPusher{payloads: make(map[string][]interface{})}
}

func (p *recordingPusher) SendToUser(userID string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads[userID] = append(p.payloads[userID], payload)
}

func draftNotice(id string, targets ...string) *models.Notice {
	return &models.Notice{
		ID:          id,
		Title:       "maintenance window",
		Content:     "back at 02:00 UTC",
		TargetUsers: pq.StringArray(targets),
		Status:      models.NoticeStatusDraft,
		CreatedBy:   "admin",
	}
}

func TestNoticeService_PublishPushesToTargets(t *testing.T) {
	store := newMemNoticeStore(draftNotice("n-1", "u-1", "u-2"))
	pusher := newRecordingPusher()
	svc := NewNoticeService(store, pusher, nil)

	published, err := svc.Publish(context.Background(), "n-1")
	require.NoError(t, err)

	assert.Equal(t, models.NoticeStatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)

	for _, userID := range []string{"u-1", "u-2"} {
		require.Len(t, pusher.payloads[userID], 1)
		push, ok := pusher.payloads[userID][0].(NoticePush)
		require.True(t, ok)
		assert.Equal(t, "n-1", push.ID)
		assert.Equal(t, "maintenance window", push.Title)
	}
}

func TestNoticeService_PublishTwiceFails(t *testing.T) {
	store := newMemNoticeStore(draftNotice("n-1", "u-1"))
	svc := NewNoticeService(store, newRecordingPusher(), nil)

	_, err := svc.Publish(context.Background(), "n-1")
	require.NoError(t, err)

	_, err = svc.Publish(context.Background(), "n-1")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestNoticeService_PublishMissingNotice(t *testing.T) {
	svc := NewNoticeService(newMemNoticeStore(), newRecordingPusher(), nil)

	_, err := svc.Publish(context.Background(), "missing")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestNoticeService_CreateForcesDraft(t *testing.T) {
	store := newMemNoticeStore()
	svc := NewNoticeService(store, nil, nil)

	notice := draftNotice("", "u-1")
	notice.Status = models.NoticeStatusPublished
	require.NoError(t, svc.Create(context.Background(), notice))

	stored, err := store.GetByID(context.Background(), notice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NoticeStatusDraft, stored.Status)
	assert.Nil(t, stored.PublishedAt)
}

func TestNoticeService_UpdatePublishedRejected(t *testing.T) {
	store := newMemNoticeStore(draftNotice("n-1"))
	svc := NewNoticeService(store, newRecordingPusher(), nil)

	_, err := svc.Publish(context.Background(), "n-1")
	require.NoError(t, err)

	edit := draftNotice("n-1")
	edit.Title = "edited"
	err = svc.Update(context.Background(), edit)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestNoticeService_CreateRequiresTitle(t *testing.T) {
	svc := NewNoticeService(newMemNoticeStore(), nil, nil)

	err := svc.Create(context.Background(), &models.Notice{Content: "body"})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
