package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/atinyakov/FieldInventory/internal/models"
)

const auditColumns = `id, user_id, username, action, resource_type, resource_id, details, timestamp, sede`

// PostgresAuditRepository is the append-only audit_logs table. It exposes no
// update or delete.
type PostgresAuditRepository struct {
	DB *sql.DB
}

// NewPostgresAuditRepository creates an audit repository over db.
func NewPostgresAuditRepository(db *sql.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{DB: db}
}

// Append inserts e.
func (r *PostgresAuditRepository) Append(ctx context.Context, e *models.AuditEntry) error {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO audit_logs (`+auditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.UserID, e.Username, string(e.Action), e.ResourceType, e.ResourceID, raw, e.Timestamp, e.Site)
	return translate("append audit entry", err)
}

type auditFilter models.AuditFilter

// where builds the WHERE clause for f, numbering placeholders from 1.
func (f auditFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Action != "" {
		args = append(args, string(f.Action))
		conds = append(conds, fmt.Sprintf("action = $%d", len(args)))
	}
	if f.ResourceType != "" {
		args = append(args, f.ResourceType)
		conds = append(conds, fmt.Sprintf("resource_type = $%d", len(args)))
	}
	if f.Username != "" {
		args = append(args, f.Username)
		conds = append(conds, fmt.Sprintf("username = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Query returns up to limit entries matching f, newest first, skipping offset.
func (r *PostgresAuditRepository) Query(ctx context.Context, f models.AuditFilter, limit, offset int) ([]models.AuditEntry, error) {
	return queryAudit(ctx, r.DB, f, limit, offset)
}

func queryAudit(ctx context.Context, db querier, f models.AuditFilter, limit, offset int) ([]models.AuditEntry, error) {
	where, args := auditFilter(f).where()
	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT %s FROM audit_logs%s ORDER BY timestamp DESC, id DESC LIMIT $%d OFFSET $%d`,
		auditColumns, where, len(args)-1, len(args))

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, translate("query audit log", err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var (
			e      models.AuditEntry
			action string
			raw    []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &action, &e.ResourceType,
			&e.ResourceID, &raw, &e.Timestamp, &e.Site); err != nil {
			return nil, translate("scan audit entry", err)
		}
		e.Action = models.Action(action)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Details); err != nil {
				return nil, fmt.Errorf("decode audit details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, translate("query audit log", rows.Err())
}

// Count returns the number of entries matching f.
func (r *PostgresAuditRepository) Count(ctx context.Context, f models.AuditFilter) (int, error) {
	where, args := auditFilter(f).where()
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&n)
	return n, translate("count audit log", err)
}

// Recent returns the newest limit entries.
func (r *PostgresAuditRepository) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	return r.Query(ctx, models.AuditFilter{}, limit, 0)
}
