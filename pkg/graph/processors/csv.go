package processors

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph"
)

var csvHeader = []string{"company", "value", "date"}

// CSVProcessor reads processed records stored as CSV with a company,value,date header
type CSVProcessor struct{}

// NewCSVProcessor creates a new instance of CSVProcessor.
func NewCSVProcessor() *CSVProcessor {
	return &CSVProcessor{}
}

// Process reads every data row of content
func (p *CSVProcessor) Process(ctx context.Context, content []byte) ([]RawRow, error) {
	return ReadCSV(bytes.NewReader(content))
}

// SupportedTypes returns the MIME types supported by the CSVProcessor.
func (p *CSVProcessor) SupportedTypes() []string {
	return []string{"text/csv"}
}

// ReadCSV reads rows by header name, so column order does not matter
func ReadCSV(r io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return []RawRow{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read CSV header")
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range csvHeader {
		if _, ok := cols[name]; !ok {
			return nil, errors.Errorf("CSV header is missing column %q", name)
		}
	}

	cell := func(rec []string, name string) string {
		i := cols[name]
		if i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	rows := make([]RawRow, 0)
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read CSV line %d", line)
		}
		rows = append(rows, RawRow{
			Company: cell(rec, "company"),
			Value:   cell(rec, "value"),
			Date:    cell(rec, "date"),
		})
	}
	return rows, nil
}

// WriteCSV writes records with the company,value,date header
func WriteCSV(w io.Writer, records []graph.Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return errors.Wrap(err, "write CSV header")
	}
	for _, r := range records {
		row := []string{r.Company, strconv.FormatFloat(r.Value, 'f', -1, 64), r.Date}
		if err := writer.Write(row); err != nil {
			return errors.Wrapf(err, "write CSV row for %s", r.Company)
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "flush CSV")
}
