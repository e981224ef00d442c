package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admin-console-api/internal/models"
	appErrors "github.com/noah-isme/admin-console-api/pkg/errors"
)

type fakeAuditStore struct {
	logs       []models.AuditLog
	lastFilter models.AuditFilter
}

func (f *fakeAuditStore) ListAuditLogs(_ context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error) {
	f.lastFilter = filter
	return f.logs, len(f.logs), nil
}

type fixedCounter int

func (f fixedCounter) OnlineCount() int { return int(f) }

func auditFixture() *fakeAuditStore {
	userID := "u-1"
	return &fakeAuditStore{logs: []models.AuditLog{
		{
			ID:        "a-1",
			UserID:    &userID,
			Action:    models.AuditActionLogin,
			Detail:    `{"status":"success"}`,
			IPAddress: "10.0.0.1",
			UserAgent: "console/1.0",
			CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		},
		{
			ID:        "a-2",
			Action:    models.AuditActionLogout,
			CreatedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		},
	}}
}

func TestMonitorService_OnlineCount(t *testing.T) {
	svc := NewMonitorService(auditFixture(), fixedCounter(7), nil)
	assert.Equal(t, 7, svc.OnlineCount())

	svc = NewMonitorService(auditFixture(), nil, nil)
	assert.Equal(t, 0, svc.OnlineCount())
}

func TestMonitorService_ExportCSV(t *testing.T) {
	store := auditFixture()
	svc := NewMonitorService(store, nil, nil)

	payload, contentType, err := svc.ExportAuditLogs(context.Background(), models.AuditFilter{}, ExportFormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "text/csv", contentType)
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Time,User,Action,Detail,IP,User Agent", lines[0])
	assert.Contains(t, lines[1], "2026-03-14T09:26:53Z")
	assert.Contains(t, lines[1], "LOGIN")
	assert.Contains(t, lines[2], "LOGOUT")

	// Export caps the page size instead of paginating.
	assert.Equal(t, 1, store.lastFilter.Page)
	assert.Equal(t, 5000, store.lastFilter.PageSize)
}

func TestMonitorService_ExportPDF(t *testing.T) {
	svc := NewMonitorService(auditFixture(), nil, nil)

	payload, contentType, err := svc.ExportAuditLogs(context.Background(), models.AuditFilter{}, ExportFormatPDF)
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestMonitorService_ExportUnknownFormat(t *testing.T) {
	svc := NewMonitorService(auditFixture(), nil, nil)

	_, _, err := svc.ExportAuditLogs(context.Background(), models.AuditFilter{}, "xlsx")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
