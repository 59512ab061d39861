package repository

import (
	"context"
	"database/sql"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresSnapshotRepository reads every collection for a backup archive.
type PostgresSnapshotRepository struct {
	DB *sql.DB
}

// NewPostgresSnapshotRepository creates a snapshot reader over db.
func NewPostgresSnapshotRepository(db *sql.DB) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{DB: db}
}

// ReadDataset returns all inventory records, all identities without their
// password hash and the newest auditLimit audit entries. The three reads run
// in one read-only repeatable-read transaction so they observe the same
// committed state.
func (r *PostgresSnapshotRepository) ReadDataset(ctx context.Context, auditLimit int) (*models.Dataset, error) {
	tx, err := r.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, translate("begin snapshot", err)
	}
	defer func() { _ = tx.Rollback() }()

	items, err := listItems(ctx, tx)
	if err != nil {
		return nil, err
	}
	users, err := listUsers(ctx, tx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	entries, err := queryAudit(ctx, tx, models.AuditFilter{}, auditLimit, 0)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, translate("commit snapshot", err)
	}
	return &models.Dataset{Inventory: items, Users: users, AuditLogs: entries}, nil
}
