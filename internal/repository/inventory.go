package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/FieldInventory/internal/models"
)

const itemColumns = `id, persona, dni, dispositivo, control_patrimonial, modelo, numero_serie, imei,
	funda_tablet, plan_datos, power_tech, telefono, correo_personal, fecha_entrega, estado, robado,
	motivo_reparacion, ubicacion_actual, responsable_entrega, observaciones, valor_estimado,
	garantia_vence, proveedor, fecha_compra, created_by, updated_by, created_at, updated_at`

// PostgresInventoryRepository stores device records in the inventory_items table.
type PostgresInventoryRepository struct {
	DB *sql.DB
}

// NewPostgresInventoryRepository creates an inventory repository over db.
func NewPostgresInventoryRepository(db *sql.DB) *PostgresInventoryRepository {
	return &PostgresInventoryRepository{DB: db}
}

func scanItem(row rowScanner) (*models.Item, error) {
	var (
		it    models.Item
		state string
	)
	err := row.Scan(&it.ID, &it.Holder, &it.DNI, &it.Device, &it.AssetTag, &it.Model, &it.SerialNumber,
		&it.IMEI, &it.TabletCase, &it.DataPlan, &it.PowerTech, &it.Phone, &it.PersonalEmail,
		&it.DeliveredAt, &state, &it.Stolen, &it.RepairReason, &it.Location, &it.ResponsibleParty,
		&it.Notes, &it.EstimatedValue, &it.WarrantyExpiresAt, &it.Vendor, &it.PurchasedAt,
		&it.CreatedBy, &it.UpdatedBy, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	it.Condition = models.Condition(state)
	return &it, nil
}

// Create inserts it. The unique index on dni is authoritative: a concurrent
// insert with the same DNI yields models.ErrDuplicateKey.
func (r *PostgresInventoryRepository) Create(ctx context.Context, it *models.Item) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO inventory_items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28)
	`, it.ID, it.Holder, it.DNI, it.Device, it.AssetTag, it.Model, it.SerialNumber,
		it.IMEI, it.TabletCase, it.DataPlan, it.PowerTech, it.Phone, it.PersonalEmail,
		it.DeliveredAt, string(it.Condition), it.Stolen, it.RepairReason, it.Location, it.ResponsibleParty,
		it.Notes, it.EstimatedValue, it.WarrantyExpiresAt, it.Vendor, it.PurchasedAt,
		it.CreatedBy, it.UpdatedBy, it.CreatedAt, it.UpdatedAt)
	return translate("create item", err)
}

// ExistsByDNI reports whether a record with the given DNI is stored.
func (r *PostgresInventoryRepository) ExistsByDNI(ctx context.Context, dni string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM inventory_items WHERE dni = $1)`, dni,
	).Scan(&exists)
	return exists, translate("check dni exists", err)
}

// FindByID returns the record with the given id or models.ErrNotFound.
func (r *PostgresInventoryRepository) FindByID(ctx context.Context, id string) (*models.Item, error) {
	it, err := scanItem(r.DB.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, id))
	if err != nil {
		return nil, translate("find item", err)
	}
	return it, nil
}

// List returns every record ordered by holder name.
func (r *PostgresInventoryRepository) List(ctx context.Context) ([]models.Item, error) {
	return listItems(ctx, r.DB)
}

func listItems(ctx context.Context, q querier) ([]models.Item, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+itemColumns+` FROM inventory_items ORDER BY persona, dni`)
	if err != nil {
		return nil, translate("list items", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, translate("scan item", err)
		}
		items = append(items, *it)
	}
	return items, translate("list items", rows.Err())
}

// itemAssignments returns the columns set in upd with their values, in the
// order of ItemUpdate.Fields. Column names equal the JSON field names.
func itemAssignments(upd models.ItemUpdate) ([]string, []any) {
	var (
		cols []string
		args []any
	)
	set := func(col string, v any) {
		cols = append(cols, col)
		args = append(args, v)
	}
	if upd.Holder != nil {
		set("persona", *upd.Holder)
	}
	if upd.Device != nil {
		set("dispositivo", *upd.Device)
	}
	if upd.AssetTag != nil {
		set("control_patrimonial", *upd.AssetTag)
	}
	if upd.Model != nil {
		set("modelo", *upd.Model)
	}
	if upd.SerialNumber != nil {
		set("numero_serie", *upd.SerialNumber)
	}
	if upd.IMEI != nil {
		set("imei", *upd.IMEI)
	}
	if upd.TabletCase != nil {
		set("funda_tablet", *upd.TabletCase)
	}
	if upd.DataPlan != nil {
		set("plan_datos", *upd.DataPlan)
	}
	if upd.PowerTech != nil {
		set("power_tech", *upd.PowerTech)
	}
	if upd.Phone != nil {
		set("telefono", *upd.Phone)
	}
	if upd.PersonalEmail != nil {
		set("correo_personal", *upd.PersonalEmail)
	}
	if upd.DeliveredAt != nil {
		set("fecha_entrega", *upd.DeliveredAt)
	}
	if upd.Condition != nil {
		set("estado", string(*upd.Condition))
	}
	if upd.Stolen != nil {
		set("robado", *upd.Stolen)
	}
	if upd.RepairReason != nil {
		set("motivo_reparacion", *upd.RepairReason)
	}
	if upd.Location != nil {
		set("ubicacion_actual", *upd.Location)
	}
	if upd.Notes != nil {
		set("observaciones", *upd.Notes)
	}
	if upd.EstimatedValue != nil {
		set("valor_estimado", *upd.EstimatedValue)
	}
	if upd.WarrantyExpiresAt != nil {
		set("garantia_vence", *upd.WarrantyExpiresAt)
	}
	if upd.Vendor != nil {
		set("proveedor", *upd.Vendor)
	}
	if upd.PurchasedAt != nil {
		set("fecha_compra", *upd.PurchasedAt)
	}
	return cols, args
}

// setClause renders "col = $1, col = $2, ..." for cols.
func setClause(cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}
	return strings.Join(parts, ", ")
}

// Update writes only the columns set in upd plus the updater stamp and
// returns the stored record. Updates touching different fields of the same
// record do not overwrite each other.
func (r *PostgresInventoryRepository) Update(ctx context.Context, id string, upd models.ItemUpdate, by string, at time.Time) (*models.Item, error) {
	cols, args := itemAssignments(upd)
	cols = append(cols, "updated_by", "updated_at")
	args = append(args, by, at, id)
	query := fmt.Sprintf(`UPDATE inventory_items SET %s WHERE id = $%d RETURNING %s`,
		setClause(cols), len(args), itemColumns)
	it, err := scanItem(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translate("update item", err)
	}
	return it, nil
}

// Delete removes the record with the given id.
func (r *PostgresInventoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return translate("delete item", err)
	}
	return requireAffected(res, "delete item")
}
