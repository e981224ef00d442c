package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admin-console-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestFindByUsername(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "nickname", "email", "phone", "dept_id", "data_scope", "roles", "status", "last_login", "created_at", "updated_at"}).
		AddRow("1", "admin", "hash", "Admin", "admin@example.com", "", "d1", string(models.DataScopeAll), "{ADMIN}", string(models.UserStatusActive), now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, password_hash, nickname, email, phone, dept_id, data_scope, roles, status, last_login, created_at, updated_at FROM users WHERE username = $1 LIMIT 1")).
		WithArgs("admin").
		WillReturnRows(rows)

	user, err := repo.FindByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.True(t, user.HasRole(models.RoleAdmin))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	userID := "u1"
	err := repo.CreateAuditLog(context.Background(), &models.AuditLog{
		UserID:    &userID,
		Action:    models.AuditActionLogin,
		Detail:    `{"status":"success"}`,
		IPAddress: "127.0.0.1",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAuditLogs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	userID := "u1"
	listRows := sqlmock.NewRows([]string{"id", "user_id", "action", "detail", "ip_address", "user_agent", "created_at"}).
		AddRow("a1", userID, models.AuditActionLogin, "{}", "127.0.0.1", "curl", now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, action, detail, ip_address, user_agent, created_at FROM audit_logs WHERE 1=1 ORDER BY created_at DESC LIMIT 50 OFFSET 0")).
		WillReturnRows(listRows)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs WHERE 1=1")).WillReturnRows(countRows)

	logs, total, err := repo.ListAuditLogs(context.Background(), models.AuditFilter{})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
