package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admin-console-api/internal/models"
	appErrors "github.com/noah-isme/admin-console-api/pkg/errors"
)

type memDictStore struct {
	mu      sync.Mutex
	entries map[string]*models.DictEntry
	listed  int
}

func newMemDictStore(entries ...*models.DictEntry) *memDictStore {
	m := &memDictStore{entries: make(map[string]*models.DictEntry)}
	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return m
}

func (m *memDictStore) ListByType(_ context.Context, typeCode string) ([]models.DictEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listed++
	var out []models.DictEntry
	for _, e := range m.entries {
		if e.TypeCode == typeCode {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memDictStore) List(_ context.Context, _ models.DictFilter) ([]models.DictEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DictEntry
	for _, e := range m.entries {
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (m *memDictStore) GetByID(_ context.Context, id string) (*models.DictEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *e
	return &copied, nil
}

func (m *memDictStore) Create(_ context.Context, entry *models.DictEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		entry.ID = "generated"
	}
	copied := *entry
	m.entries[entry.ID] = &copied
	return nil
}

func (m *memDictStore) Update(_ context.Context, entry *models.DictEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *entry
	m.entries[entry.ID] = &copied
	return nil
}

func (m *memDictStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// memDictCache stores marshalled payloads like the Redis cache does.
type memDictCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemDictCache() *memDictCache {
	return &memDictCache{data: make(map[string][]byte)}
}

func (c *memDictCache) Get(_ context.Context, typeCode string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[typeCode]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memDictCache) Set(_ context.Context, typeCode string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[typeCode] = raw
	return nil
}

func (c *memDictCache) Invalidate(_ context.Context, typeCode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, typeCode)
	return nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	types []string
}

func (n *recordingNotifier) PublishDictChange(typeCode string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.types = append(n.types, typeCode)
}

func dictEntry(id, typeCode, label, value string) *models.DictEntry {
	return &models.DictEntry{ID: id, TypeCode: typeCode, Label: label, Value: value}
}

func TestDictService_ListByTypeReadThrough(t *testing.T) {
	store := newMemDictStore(dictEntry("1", "user_status", "Active", "ACTIVE"))
	cache := newMemDictCache()
	svc := NewDictService(store, cache, nil, nil, nil)

	first, err := svc.ListByType(context.Background(), "user_status")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, store.listed)

	// Second read is served from cache.
	second, err := svc.ListByType(context.Background(), "user_status")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.listed)
}

func TestDictService_MutationInvalidatesAndNotifies(t *testing.T) {
	store := newMemDictStore(dictEntry("1", "user_status", "Active", "ACTIVE"))
	cache := newMemDictCache()
	notifier := &recordingNotifier{}
	svc := NewDictService(store, cache, notifier, nil, nil)

	_, err := svc.ListByType(context.Background(), "user_status")
	require.NoError(t, err)

	err = svc.Create(context.Background(), dictEntry("2", "user_status", "Disabled", "DISABLED"))
	require.NoError(t, err)

	assert.Equal(t, []string{"user_status"}, notifier.types)

	// The next read repopulates from the store and sees both entries.
	entries, err := svc.ListByType(context.Background(), "user_status")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 2, store.listed)
}

func TestDictService_UpdatePinsTypeCode(t *testing.T) {
	store := newMemDictStore(dictEntry("1", "user_status", "Active", "ACTIVE"))
	notifier := &recordingNotifier{}
	svc := NewDictService(store, newMemDictCache(), notifier, nil, nil)

	changed := dictEntry("1", "other_type", "Enabled", "ACTIVE")
	require.NoError(t, svc.Update(context.Background(), changed))

	stored, err := store.GetByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "user_status", stored.TypeCode)
	assert.Equal(t, "Enabled", stored.Label)
	assert.Equal(t, []string{"user_status"}, notifier.types)
}

func TestDictService_UpdateMissingEntry(t *testing.T) {
	svc := NewDictService(newMemDictStore(), newMemDictCache(), nil, nil, nil)

	err := svc.Update(context.Background(), dictEntry("missing", "t", "l", "v"))
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestDictService_DeleteNotifiesType(t *testing.T) {
	store := newMemDictStore(dictEntry("1", "user_status", "Active", "ACTIVE"))
	notifier := &recordingNotifier{}
	svc := NewDictService(store, newMemDictCache(), notifier, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "1"))
	assert.Equal(t, []string{"user_status"}, notifier.types)

	err := svc.Delete(context.Background(), "1")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestDictService_CreateRequiresTypeAndLabel(t *testing.T) {
	svc := NewDictService(newMemDictStore(), newMemDictCache(), nil, nil, nil)

	err := svc.Create(context.Background(), &models.DictEntry{Value: "v"})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
