package processors

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

const financialPage = `<html><body>
<table id="other"><tr><td>X</td><td>1</td><td>2023-01-01</td></tr></table>
<table id="financial-data">
  <tr><th>Company</th><th>Value</th><th>Date</th></tr>
  <tr><td> Company A </td><td>1000</td><td>2023-01-01</td></tr>
  <tr><td>Company B</td><td>2,000</td><td>2023-01-01</td><td>extra</td></tr>
  <tr><td>short</td><td>1</td></tr>
  <tr><td>Company C</td><td>1500.5</td><td> 2023-01-02 </td></tr>
</table>
</body></html>`

func TestHTMLTableProcessor(t *testing.T) {
	t.Parallel()

	rows, err := NewHTMLTableProcessor().Process(context.Background(), []byte(financialPage))
	require.NoError(t, err)
	assert.Equal(t, []RawRow{
		{Company: "Company A", Value: "1000", Date: "2023-01-01"},
		{Company: "Company B", Value: "2,000", Date: "2023-01-01"},
		{Company: "Company C", Value: "1500.5", Date: "2023-01-02"},
	}, rows)
}

func TestHTMLTableProcessor_NoTable(t *testing.T) {
	t.Parallel()

	rows, err := NewHTMLTableProcessor().Process(context.Background(), []byte("<html><body><p>nothing</p></body></html>"))
	assert.ErrorIs(t, err, ErrNoTable)
	assert.Empty(t, rows)
}

func TestJSONProcessor(t *testing.T) {
	t.Parallel()

	content := `[
		{"company": "A", "value": "10", "date": "d1"},
		{"company": "B", "value": 20.5, "date": "d1"},
		{"company": "C", "value": null, "date": "d2"},
		"not an object"
	]`
	rows, err := NewJSONProcessor().Process(context.Background(), []byte(content))
	require.NoError(t, err)
	assert.Equal(t, []RawRow{
		{Company: "A", Value: "10", Date: "d1"},
		{Company: "B", Value: "20.5", Date: "d1"},
		{Company: "C", Value: "", Date: "d2"},
	}, rows)

	_, err = NewJSONProcessor().Process(context.Background(), []byte(`{"company": "A"}`))
	assert.Error(t, err)
	_, err = NewJSONProcessor().Process(context.Background(), []byte(`[{`))
	assert.Error(t, err)
}

func TestNormalizer(t *testing.T) {
	t.Parallel()

	rows := []RawRow{
		{Company: " A ", Value: " 10 ", Date: " d1 "},
		{Company: "", Value: "5", Date: "d1"},
		{Company: "B", Value: "5", Date: ""},
		{Company: "C", Value: "2,000", Date: "d1"},
		{Company: "D", Value: "NaN", Date: "d1"},
		{Company: "E", Value: "+Inf", Date: "d1"},
		{Company: "F", Value: "-3.5e2", Date: "d2"},
	}

	records, stats := NewNormalizer(quietLogger()).Normalize(rows)
	assert.Equal(t, []graph.Record{
		{Company: "A", Value: 10, Date: "d1"},
		{Company: "F", Value: -350, Date: "d2"},
	}, records)
	assert.Equal(t, 2, stats.Kept)
	assert.Equal(t, 5, stats.DroppedTotal())
	assert.Equal(t, 3, stats.Dropped[DropBadValue])
	assert.Equal(t, 1, stats.Dropped[DropEmptyCompany])
	assert.Equal(t, 1, stats.Dropped[DropEmptyDate])
}

func TestCSVRoundTrip(t *testing.T) {
	t.Parallel()

	records := []graph.Record{
		{Company: "Company, Inc.", Value: 1000, Date: "2023-01-01"},
		{Company: "B", Value: 0.25, Date: "2023-01-02"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))
	assert.True(t, strings.HasPrefix(buf.String(), "company,value,date\n"))

	rows, err := ReadCSV(&buf)
	require.NoError(t, err)
	got, stats := NewNormalizer(quietLogger()).Normalize(rows)
	assert.Zero(t, stats.DroppedTotal())
	assert.Equal(t, records, got)
}

func TestReadCSV_HeaderByName(t *testing.T) {
	t.Parallel()

	rows, err := ReadCSV(strings.NewReader("date,company,value\nd1,A,3\n"))
	require.NoError(t, err)
	assert.Equal(t, []RawRow{{Company: "A", Value: "3", Date: "d1"}}, rows)

	_, err = ReadCSV(strings.NewReader("company,amount\nA,1\n"))
	assert.Error(t, err)

	rows, err = ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, path := range []string{"a.html", "b.HTM", "c.json", "d.csv"} {
		_, err := r.ForPath(path)
		assert.NoError(t, err, path)
	}
	_, err := r.ForPath("e.pdf")
	assert.Error(t, err)
}

func TestFileSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "financial_data.json")
	content := `[{"company":"A","value":"10","date":"d1"},{"company":"B","value":"bad","date":"d1"}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	source := NewFileSource(path, quietLogger())
	records, err := source.Records(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []graph.Record{{Company: "A", Value: 10, Date: "d1"}}, records)
	assert.Equal(t, 1, source.Stats().DroppedTotal())

	htmlPath := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(htmlPath, []byte("<html></html>"), 0o644))
	records, err = NewFileSource(htmlPath, quietLogger()).Records(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = NewFileSource(filepath.Join(dir, "missing.csv"), quietLogger()).Records(context.Background())
	assert.Error(t, err)
}

func TestScraper_Fetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/financial_data":
			assert.Equal(t, "fingraph-test", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte(financialPage))
		case "/empty":
			_, _ = w.Write([]byte("<html><body>no table</body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := NewScraper(srv.Client(), "fingraph-test", time.Second, quietLogger())

	rows, err := s.Fetch(context.Background(), srv.URL+"/financial_data")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = s.Fetch(context.Background(), srv.URL+"/empty")
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = s.Fetch(context.Background(), srv.URL+"/missing")
	var status *StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusNotFound, status.StatusCode)
}
