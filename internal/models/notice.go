package models

import (
	"time"

	"github.com/lib/pq"
)

// NoticeStatus tracks the publication state of a notice.
type NoticeStatus string

const (
	NoticeStatusDraft     NoticeStatus = "DRAFT"
	NoticeStatusPublished NoticeStatus = "PUBLISHED"
)

// Notice is an admin announcement, optionally targeted at specific users.
// Targeted notices are pushed to recipients that are online at publish time;
// there is no store-and-forward for offline users.
type Notice struct {
	ID          string         `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	Content     string         `db:"content" json:"content"`
	TargetUsers pq.StringArray `db:"target_users" json:"target_users"`
	Status      NoticeStatus   `db:"status" json:"status"`
	CreatedBy   string         `db:"created_by" json:"created_by"`
	PublishedAt *time.Time     `db:"published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// NoticeFilter captures filtering criteria for listing notices.
type NoticeFilter struct {
	Status   *NoticeStatus
	Search   string
	Page     int
	PageSize int
}
