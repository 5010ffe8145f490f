package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset(rows int) Dataset {
	data := Dataset{
		Title:       "Maintenance Requests",
		Headers:     []string{"Room Number", "Description", "Status"},
		GeneratedAt: time.Date(2024, 7, 23, 9, 0, 0, 0, time.UTC),
	}
	for i := 0; i < rows; i++ {
		data.Rows = append(data.Rows, map[string]string{
			"Room Number": "101",
			"Description": "Leaky faucet, dripping \"constantly\" " + strings.Repeat("x", 80),
			"Status":      "Submitted",
		})
	}
	return data
}

func TestCSVExporterQuotesAndOrdersColumns(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset(2))
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Room Number", "Description", "Status"}, records[0])
	assert.Equal(t, "101", records[1][0])
	assert.Contains(t, records[1][1], `"constantly"`)
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterPaginates(t *testing.T) {
	exporter := NewPDFExporter(map[string]float64{"Description": 4})
	out, err := exporter.Render(sampleDataset(80))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Equal(t, "application/pdf", exporter.ContentType())
}

func TestPDFExporterColumnWidthsFillPage(t *testing.T) {
	exporter := NewPDFExporter(map[string]float64{"Description": 2})
	widths := exporter.columnWidths([]string{"A", "Description", "B"})
	assert.InDelta(t, pdfPageWidth, widths[0]+widths[1]+widths[2], 0.001)
	assert.InDelta(t, widths[0]*2, widths[1], 0.001)
}
