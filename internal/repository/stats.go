package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// PostgresStatsRepository answers the aggregate queries behind statistics
// and alerts.
type PostgresStatsRepository struct {
	DB *sql.DB
}

// NewPostgresStatsRepository creates a statistics repository over db.
func NewPostgresStatsRepository(db *sql.DB) *PostgresStatsRepository {
	return &PostgresStatsRepository{DB: db}
}

// CountUsers returns the number of identities and how many are active.
func (r *PostgresStatsRepository) CountUsers(ctx context.Context) (total, active int, err error) {
	err = r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM users`,
	).Scan(&total, &active)
	return total, active, translate("count users", err)
}

// CountItems fills the inventory counters of s.
func (r *PostgresStatsRepository) CountItems(ctx context.Context, s *models.Stats) error {
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE estado = $1),
			COUNT(*) FILTER (WHERE estado = $2),
			COUNT(*) FILTER (WHERE estado = $3),
			COUNT(*) FILTER (WHERE robado)
		FROM inventory_items
	`, string(models.ConditionGood), string(models.ConditionDamaged), string(models.ConditionInRepair),
	).Scan(&s.TotalItems, &s.ItemsGood, &s.ItemsDamaged, &s.ItemsInRepair, &s.ItemsStolen)
	return translate("count items", err)
}

// CountByDevice returns the number of records per device type.
func (r *PostgresStatsRepository) CountByDevice(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT dispositivo, COUNT(*) FROM inventory_items GROUP BY dispositivo ORDER BY dispositivo`)
	if err != nil {
		return nil, translate("count by device", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			device string
			n      int
		)
		if err := rows.Scan(&device, &n); err != nil {
			return nil, translate("scan device count", err)
		}
		counts[device] = n
	}
	return counts, translate("count by device", rows.Err())
}

// CountStolen returns the number of records flagged as stolen.
func (r *PostgresStatsRepository) CountStolen(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory_items WHERE robado`).Scan(&n)
	return n, translate("count stolen", err)
}

// CountStaleDamaged returns the number of damaged records not updated since before.
func (r *PostgresStatsRepository) CountStaleDamaged(ctx context.Context, before time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inventory_items WHERE estado = $1 AND updated_at < $2`,
		string(models.ConditionDamaged), before,
	).Scan(&n)
	return n, translate("count stale damaged", err)
}

// CountWarrantyExpiring returns the number of warranties expiring in [from, to].
func (r *PostgresStatsRepository) CountWarrantyExpiring(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inventory_items WHERE garantia_vence BETWEEN $1 AND $2`,
		from, to,
	).Scan(&n)
	return n, translate("count expiring warranties", err)
}

// Ping reports whether the database answers.
func (r *PostgresStatsRepository) Ping(ctx context.Context) error {
	return translate("ping", r.DB.PingContext(ctx))
}
