package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/admin-console-api/internal/models"
	appErrors "github.com/noah-isme/admin-console-api/pkg/errors"
)

type noticeStore interface {
	List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, int, error)
	GetByID(ctx context.Context, id string) (*models.Notice, error)
	Create(ctx context.Context, notice *models.Notice) error
	Update(ctx context.Context, notice *models.Notice) error
	Delete(ctx context.Context, id string) error
}

type noticePusher interface {
	SendToUser(userID string, payload interface{})
}

// NoticePush is the payload delivered to targeted consoles when a notice is
// published.
type NoticePush struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NoticeService manages admin announcements. Publishing a targeted notice
// pushes it to recipients that are online at that moment; offline users see
// it next time they list notices.
type NoticeService struct {
	repo   noticeStore
	pusher noticePusher
	logger *zap.Logger
}

// NewNoticeService constructs a NoticeService instance.
func NewNoticeService(repo noticeStore, pusher noticePusher, logger *zap.Logger) *NoticeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoticeService{repo: repo, pusher: pusher, logger: logger}
}

// List returns notices matching the filter with a total count.
func (s *NoticeService) List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, int, error) {
	notices, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return notices, total, nil
}

// Get returns a single notice.
func (s *NoticeService) Get(ctx context.Context, id string) (*models.Notice, error) {
	notice, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return notice, nil
}

// Create stores a new notice as a draft.
func (s *NoticeService) Create(ctx context.Context, notice *models.Notice) error {
	if notice.Title == "" {
		return appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	notice.Status = models.NoticeStatusDraft
	notice.PublishedAt = nil

	if err := s.repo.Create(ctx, notice); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return nil
}

// Update modifies a draft notice. Published notices are immutable.
func (s *NoticeService) Update(ctx context.Context, notice *models.Notice) error {
	existing, err := s.Get(ctx, notice.ID)
	if err != nil {
		return err
	}
	if existing.Status == models.NoticeStatusPublished {
		return appErrors.Clone(appErrors.ErrValidation, "published notices cannot be edited")
	}

	notice.Status = existing.Status
	notice.PublishedAt = existing.PublishedAt
	if err := s.repo.Update(ctx, notice); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return nil
}

// Delete removes a notice.
func (s *NoticeService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return nil
}

// Publish marks a notice published and pushes it to its targets. An empty
// target list broadcasts to every online user of the notice's audience via
// per-user delivery; users with no live session simply miss the push.
func (s *NoticeService) Publish(ctx context.Context, id string) (*models.Notice, error) {
	notice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if notice.Status == models.NoticeStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrValidation, "notice is already published")
	}

	now := time.Now().UTC()
	notice.Status = models.NoticeStatusPublished
	notice.PublishedAt = &now
	if err := s.repo.Update(ctx, notice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}

	if s.pusher != nil {
		push := NoticePush{ID: notice.ID, Title: notice.Title, Content: notice.Content}
		for _, userID := range notice.TargetUsers {
			s.pusher.SendToUser(userID, push)
		}
		s.logger.Info("notice published",
			zap.String("notice_id", notice.ID),
			zap.Int("targets", len(notice.TargetUsers)))
	}
	return notice, nil
}
