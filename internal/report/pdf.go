package report

import (
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"

	"github.com/atinyakov/FieldInventory/internal/models"
)

const (
	pdfMargin    = 10.0
	pdfRowHeight = 7.0
)

// PDF writes the inventory summary report to w.
func PDF(w io.Writer, items []models.Item, meta Meta) error {
	return renderPDF(w, items, meta, true)
}

func renderPDF(w io.Writer, items []models.Item, meta Meta, compress bool) error {
	if items == nil {
		items = []models.Item{}
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetTitle("Reporte de inventario", true)
	pdf.SetCreator("field-inventory", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 8, tr("REPORTE DE INVENTARIO - INEI"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, tr("Censos Nacionales 2025"), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	info := [][2]string{
		{"Fecha de generación:", meta.GeneratedAt.Format("02/01/2006 15:04:05")},
		{"Generado por:", meta.GeneratedBy},
		{"Sede:", meta.Site},
		{"Total de items:", strconv.Itoa(len(items))},
	}
	pdf.SetFont("Helvetica", "", 10)
	for _, row := range info {
		pdf.SetFillColor(211, 211, 211)
		pdf.CellFormat(50, pdfRowHeight, tr(row[0]), "1", 0, "L", true, 0, "")
		pdf.SetFillColor(255, 255, 255)
		pdf.CellFormat(75, pdfRowHeight, tr(row[1]), "1", 1, "L", true, 0, "")
	}
	pdf.Ln(10)

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(0, 0, 139)
		pdf.SetTextColor(245, 245, 245)
		for _, c := range SummaryColumns {
			pdf.CellFormat(c.Width, pdfRowHeight, tr(c.Header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetFillColor(245, 245, 220)
		pdf.SetTextColor(0, 0, 0)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	for _, row := range Rows(items, SummaryColumns) {
		if pdf.GetY()+pdfRowHeight > pageHeight-pdfMargin {
			pdf.AddPage()
			header()
		}
		for j, c := range SummaryColumns {
			text := fit(pdf, tr(Text(row[j])), c.Width-2)
			pdf.CellFormat(c.Width, pdfRowHeight, text, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return renderFailure("pdf", err)
	}
	return nil
}

// fit truncates s so that it renders within width.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}
