package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admin-console-api/internal/models"
)

// DictRepository provides database access for dictionary entries.
type DictRepository struct {
	db *sqlx.DB
}

// NewDictRepository creates a new instance of DictRepository.
func NewDictRepository(db *sqlx.DB) *DictRepository {
	return &DictRepository{db: db}
}

const dictColumns = `id, type_code, label, value, sort, remark, created_at, updated_at`

// ListByType returns every entry of a dictionary type ordered by sort key.
func (r *DictRepository) ListByType(ctx context.Context, typeCode string) ([]models.DictEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM dict_entries WHERE type_code = $1 ORDER BY sort ASC, value ASC`, dictColumns)
	var entries []models.DictEntry
	if err := r.db.SelectContext(ctx, &entries, query, typeCode); err != nil {
		return nil, fmt.Errorf("list dict entries: %w", err)
	}
	return entries, nil
}

// List returns entries matching the filter with a total count.
func (r *DictRepository) List(ctx context.Context, filter models.DictFilter) ([]models.DictEntry, int, error) {
	baseQuery := `FROM dict_entries WHERE 1=1`
	var args []interface{}

	if filter.TypeCode != "" {
		args = append(args, filter.TypeCode)
		baseQuery += fmt.Sprintf(" AND type_code = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		baseQuery += fmt.Sprintf(" AND LOWER(label) LIKE $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY type_code ASC, sort ASC LIMIT %d OFFSET %d", dictColumns, baseQuery, pageSize, offset)
	var entries []models.DictEntry
	if err := r.db.SelectContext(ctx, &entries, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list dict entries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count dict entries: %w", err)
	}

	return entries, total, nil
}

// GetByID returns a dictionary entry by identifier.
func (r *DictRepository) GetByID(ctx context.Context, id string) (*models.DictEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM dict_entries WHERE id = $1 LIMIT 1`, dictColumns)
	var entry models.DictEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get dict entry: %w", err)
	}
	return &entry, nil
}

// Create inserts a new dictionary entry.
func (r *DictRepository) Create(ctx context.Context, entry *models.DictEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	const query = `INSERT INTO dict_entries (id, type_code, label, value, sort, remark, created_at, updated_at) VALUES (:id, :type_code, :label, :value, :sort, :remark, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create dict entry: %w", err)
	}
	return nil
}

// Update updates mutable fields of a dictionary entry.
func (r *DictRepository) Update(ctx context.Context, entry *models.DictEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE dict_entries SET label = :label, value = :value, sort = :sort, remark = :remark, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("update dict entry: %w", err)
	}
	return nil
}

// Delete removes a dictionary entry.
func (r *DictRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM dict_entries WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete dict entry: %w", err)
	}
	return nil
}
