package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth = 277.0 // A4 landscape minus 10mm margins
	pdfRowHeight = 7.0
)

// PDFExporter lays the dataset out as a landscape table. Column widths follow
// Weights when set and are otherwise equal. Cells that overflow are clipped
// with an ellipsis.
type PDFExporter struct {
	Weights map[string]float64
}

func NewPDFExporter(weights map[string]float64) *PDFExporter {
	return &PDFExporter{Weights: weights}
}

func (e *PDFExporter) ContentType() string { return "application/pdf" }

func (e *PDFExporter) Extension() string { return "pdf" }

func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	widths := e.columnWidths(data.Headers)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 15)
	if !data.GeneratedAt.IsZero() {
		stamp := data.GeneratedAt.UTC().Format("2006-01-02 15:04:05")
		pdf.SetFooterFunc(func() {
			pdf.SetY(-12)
			pdf.SetFont("Arial", "I", 8)
			pdf.CellFormat(0, 8, fmt.Sprintf("Generated %s UTC  |  Page %d", stamp, pdf.PageNo()), "", 0, "R", false, 0, "")
		})
	}

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}

	pdf.AddPage()
	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, data.Title, "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range data.Rows {
		if pdf.GetY()+pdfRowHeight > pageHeight-bottom-5 {
			pdf.AddPage()
			header()
		}
		for i, value := range data.record(row) {
			pdf.CellFormat(widths[i], pdfRowHeight, clip(pdf, value, widths[i]-2), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) columnWidths(headers []string) []float64 {
	total := 0.0
	weights := make([]float64, len(headers))
	for i, h := range headers {
		w := e.Weights[h]
		if w <= 0 {
			w = 1
		}
		weights[i] = w
		total += w
	}
	for i := range weights {
		weights[i] = pdfPageWidth * weights[i] / total
	}
	return weights
}

func clip(pdf *gofpdf.Fpdf, value string, width float64) string {
	if pdf.GetStringWidth(value) <= width {
		return value
	}
	runes := []rune(value)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
