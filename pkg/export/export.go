// Package export renders tabular data as CSV or PDF.
package export

import "time"

// Dataset is a titled table. Row values are looked up by header.
type Dataset struct {
	Title       string
	Headers     []string
	Rows        []map[string]string
	GeneratedAt time.Time
}

// Renderer turns a dataset into a downloadable file.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Headers))
	for i, h := range d.Headers {
		out[i] = row[h]
	}
	return out
}
