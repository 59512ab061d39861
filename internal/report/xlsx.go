package report

import (
	"io"
	"sort"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// Sheet names of the XLSX export.
const (
	SheetInventory = "Inventario"
	SheetStats     = "Estadísticas"
	SheetDevices   = "Dispositivos por Tipo"
)

const maxColumnWidth = 50

// XLSX writes the inventory workbook to w. stats may be nil, in which case
// the statistics sheets hold only the export metadata.
func XLSX(w io.Writer, items []models.Item, stats *models.Stats, meta Meta) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = renderFailure("xlsx", cerr)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetInventory); err != nil {
		return renderFailure("xlsx", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return renderFailure("xlsx", err)
	}

	headers := make([]any, len(InventoryColumns))
	for i, c := range InventoryColumns {
		headers[i] = c.Header
	}
	if err := writeSheet(f, SheetInventory, headers, Rows(items, InventoryColumns), headerStyle, true); err != nil {
		return renderFailure("xlsx", err)
	}

	if _, err := f.NewSheet(SheetStats); err != nil {
		return renderFailure("xlsx", err)
	}
	if err := writeSheet(f, SheetStats, []any{"Concepto", "Valor"}, statsRows(stats, meta), headerStyle, false); err != nil {
		return renderFailure("xlsx", err)
	}

	if _, err := f.NewSheet(SheetDevices); err != nil {
		return renderFailure("xlsx", err)
	}
	if err := writeSheet(f, SheetDevices, []any{"Tipo de Dispositivo", "Cantidad"}, deviceRows(stats), headerStyle, false); err != nil {
		return renderFailure("xlsx", err)
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return renderFailure("xlsx", err)
	}
	return nil
}

func statsRows(s *models.Stats, meta Meta) [][]any {
	var rows [][]any
	if s != nil {
		rows = append(rows,
			[]any{"Total de Items", s.TotalItems},
			[]any{"Items en Buen Estado", s.ItemsGood},
			[]any{"Items en Mal Estado", s.ItemsDamaged},
			[]any{"Items en Reparación", s.ItemsInRepair},
			[]any{"Items Robados", s.ItemsStolen},
		)
	}
	return append(rows,
		[]any{"Fecha de Exportación", meta.GeneratedAt.Format("02/01/2006 15:04:05")},
		[]any{"Exportado Por", meta.GeneratedBy},
		[]any{"Sede", meta.Site},
	)
}

// deviceRows lists device counts, largest first.
func deviceRows(s *models.Stats) [][]any {
	if s == nil {
		return nil
	}
	devices := make([]string, 0, len(s.DevicesByType))
	for d := range s.DevicesByType {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool {
		a, b := s.DevicesByType[devices[i]], s.DevicesByType[devices[j]]
		if a != b {
			return a > b
		}
		return devices[i] < devices[j]
	})
	rows := make([][]any, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []any{d, s.DevicesByType[d]})
	}
	return rows
}

func writeSheet(f *excelize.File, sheet string, headers []any, rows [][]any, headerStyle int, fitColumns bool) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(Text(h))
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
		for i, v := range row {
			if n := utf8.RuneCountInString(Text(v)); i < len(widths) && n > widths[i] {
				widths[i] = n
			}
		}
	}

	if !fitColumns {
		return nil
	}
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, float64(min(w+2, maxColumnWidth))); err != nil {
			return err
		}
	}
	return nil
}
