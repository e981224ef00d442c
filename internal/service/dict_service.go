package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/admin-console-api/internal/models"
	appErrors "github.com/noah-isme/admin-console-api/pkg/errors"
)

type dictStore interface {
	ListByType(ctx context.Context, typeCode string) ([]models.DictEntry, error)
	List(ctx context.Context, filter models.DictFilter) ([]models.DictEntry, int, error)
	GetByID(ctx context.Context, id string) (*models.DictEntry, error)
	Create(ctx context.Context, entry *models.DictEntry) error
	Update(ctx context.Context, entry *models.DictEntry) error
	Delete(ctx context.Context, id string) error
}

type dictCache interface {
	Get(ctx context.Context, typeCode string, dest interface{}) error
	Set(ctx context.Context, typeCode string, value interface{}) error
	Invalidate(ctx context.Context, typeCode string) error
}

type dictNotifier interface {
	PublishDictChange(typeCode string)
}

// DictService manages dictionary entries with a read-through cache. Every
// mutation invalidates the affected type and pushes a change event to live
// consoles so they can re-fetch.
type DictService struct {
	repo      dictStore
	cache     dictCache
	notifier  dictNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDictService constructs a DictService instance.
func NewDictService(repo dictStore, cache dictCache, notifier dictNotifier, validate *validator.Validate, logger *zap.Logger) *DictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DictService{repo: repo, cache: cache, notifier: notifier, validator: validate, logger: logger}
}

// ListByType returns every entry of a dictionary type, served from cache when
// possible. A cache read failure is logged, never surfaced; the database is
// the source of truth.
func (s *DictService) ListByType(ctx context.Context, typeCode string) ([]models.DictEntry, error) {
	if typeCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "type code is required")
	}

	if s.cache != nil {
		var cached []models.DictEntry
		err := s.cache.Get(ctx, typeCode, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dict cache read failed", zap.String("type_code", typeCode), zap.Error(err))
		}
	}

	entries, err := s.repo.ListByType(ctx, typeCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, typeCode, entries); err != nil {
			s.logger.Warn("dict cache write failed", zap.String("type_code", typeCode), zap.Error(err))
		}
	}
	return entries, nil
}

// List returns entries matching the filter with a total count. Admin listing
// bypasses the cache so editors always see fresh rows.
func (s *DictService) List(ctx context.Context, filter models.DictFilter) ([]models.DictEntry, int, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return entries, total, nil
}

// Create inserts a new dictionary entry and notifies live consoles.
func (s *DictService) Create(ctx context.Context, entry *models.DictEntry) error {
	if entry.TypeCode == "" || entry.Label == "" {
		return appErrors.Clone(appErrors.ErrValidation, "type code and label are required")
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}

	s.afterMutation(ctx, entry.TypeCode)
	return nil
}

// Update modifies an existing entry and notifies live consoles.
func (s *DictService) Update(ctx context.Context, entry *models.DictEntry) error {
	if entry.ID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "entry id is required")
	}

	existing, err := s.repo.GetByID(ctx, entry.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "dictionary entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}

	// The type code is immutable; an entry moves types by delete and
	// re-create so cached readers never see a half-moved entry.
	entry.TypeCode = existing.TypeCode

	if err := s.repo.Update(ctx, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}

	s.afterMutation(ctx, existing.TypeCode)
	return nil
}

// Delete removes an entry and notifies live consoles.
func (s *DictService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "dictionary entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}

	s.afterMutation(ctx, existing.TypeCode)
	return nil
}

func (s *DictService) afterMutation(ctx context.Context, typeCode string) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, typeCode); err != nil {
			s.logger.Warn("dict cache invalidate failed", zap.String("type_code", typeCode), zap.Error(err))
		}
	}
	if s.notifier != nil {
		s.notifier.PublishDictChange(typeCode)
	}
}
