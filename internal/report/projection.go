// Package report renders read-only projections of the inventory as PDF and
// XLSX documents.
package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// Meta describes who generated a report and when.
type Meta struct {
	GeneratedAt time.Time
	GeneratedBy string
	Site        string
}

// Column projects one field of an item into a report cell. Value returns a
// string or a float64.
type Column struct {
	Header string
	Width  float64
	Value  func(it *models.Item) any
}

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04"
)

func yesNo(b bool) string {
	if b {
		return "Sí"
	}
	return "No"
}

func optString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func dateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateTimeLayout)
}

// InventoryColumns is the full column set of the XLSX export.
var InventoryColumns = []Column{
	{Header: "ID", Value: func(it *models.Item) any { return it.ID }},
	{Header: "Persona", Value: func(it *models.Item) any { return it.Holder }},
	{Header: "DNI", Value: func(it *models.Item) any { return it.DNI }},
	{Header: "Dispositivo", Value: func(it *models.Item) any { return it.Device }},
	{Header: "Control Patrimonial", Value: func(it *models.Item) any { return it.AssetTag }},
	{Header: "Modelo", Value: func(it *models.Item) any { return it.Model }},
	{Header: "Número de Serie", Value: func(it *models.Item) any { return it.SerialNumber }},
	{Header: "IMEI", Value: func(it *models.Item) any { return optString(it.IMEI) }},
	{Header: "Funda Tablet", Value: func(it *models.Item) any { return yesNo(it.TabletCase) }},
	{Header: "Plan de Datos", Value: func(it *models.Item) any { return yesNo(it.DataPlan) }},
	{Header: "Power Tech", Value: func(it *models.Item) any { return yesNo(it.PowerTech) }},
	{Header: "Teléfono", Value: func(it *models.Item) any { return it.Phone }},
	{Header: "Correo Personal", Value: func(it *models.Item) any { return it.PersonalEmail }},
	{Header: "Fecha de Entrega", Value: func(it *models.Item) any { return dateTime(it.DeliveredAt) }},
	{Header: "Estado", Value: func(it *models.Item) any { return string(it.Condition) }},
	{Header: "Robado", Value: func(it *models.Item) any { return yesNo(it.Stolen) }},
	{Header: "Motivo Reparación", Value: func(it *models.Item) any { return optString(it.RepairReason) }},
	{Header: "Ubicación Actual", Value: func(it *models.Item) any { return it.Location }},
	{Header: "Responsable Entrega", Value: func(it *models.Item) any { return it.ResponsibleParty }},
	{Header: "Observaciones", Value: func(it *models.Item) any { return optString(it.Notes) }},
	{Header: "Valor Estimado", Value: func(it *models.Item) any {
		if it.EstimatedValue == nil {
			return ""
		}
		return *it.EstimatedValue
	}},
	{Header: "Garantía Vence", Value: func(it *models.Item) any { return optDate(it.WarrantyExpiresAt) }},
	{Header: "Proveedor", Value: func(it *models.Item) any { return optString(it.Vendor) }},
	{Header: "Fecha Compra", Value: func(it *models.Item) any { return optDate(it.PurchasedAt) }},
	{Header: "Creado Por", Value: func(it *models.Item) any { return it.CreatedBy }},
	{Header: "Actualizado Por", Value: func(it *models.Item) any { return it.UpdatedBy }},
	{Header: "Fecha Creación", Value: func(it *models.Item) any { return dateTime(it.CreatedAt) }},
	{Header: "Última Actualización", Value: func(it *models.Item) any { return dateTime(it.UpdatedAt) }},
}

// SummaryColumns is the condensed column set of the PDF report. Widths are
// in millimetres.
var SummaryColumns = []Column{
	{Header: "Persona", Width: 46, Value: func(it *models.Item) any { return it.Holder }},
	{Header: "DNI", Width: 20, Value: func(it *models.Item) any { return it.DNI }},
	{Header: "Dispositivo", Width: 28, Value: func(it *models.Item) any { return it.Device }},
	{Header: "Modelo", Width: 32, Value: func(it *models.Item) any { return it.Model }},
	{Header: "Estado", Width: 24, Value: func(it *models.Item) any { return string(it.Condition) }},
	{Header: "Robado", Width: 14, Value: func(it *models.Item) any { return yesNo(it.Stolen) }},
	{Header: "Fecha Entrega", Width: 26, Value: func(it *models.Item) any {
		if it.DeliveredAt.IsZero() {
			return ""
		}
		return it.DeliveredAt.Format(dateLayout)
	}},
}

// Text formats a cell value as display text.
func Text(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', 2, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Rows projects items through cols.
func Rows(items []models.Item, cols []Column) [][]any {
	rows := make([][]any, 0, len(items))
	for i := range items {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = c.Value(&items[i])
		}
		rows = append(rows, row)
	}
	return rows
}

func renderFailure(format string, err error) error {
	return fmt.Errorf("%w: %s: %w", models.ErrRenderFailure, format, err)
}
