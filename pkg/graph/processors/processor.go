package processors

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph"
	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph/metrics"
)

// ErrNoTable is returned when a page has no financial data table
var ErrNoTable = errors.New("financial data table not found")

// RowProcessor extracts raw rows from one content type
type RowProcessor interface {
	Process(ctx context.Context, content []byte) ([]RawRow, error)
	SupportedTypes() []string
}

// Registry resolves processors by MIME type
type Registry struct {
	byType map[string]RowProcessor
}

// NewRegistry registers the HTML, JSON and CSV processors
func NewRegistry() *Registry {
	r := &Registry{byType: make(map[string]RowProcessor)}
	r.Add(NewHTMLTableProcessor())
	r.Add(NewJSONProcessor())
	r.Add(NewCSVProcessor())
	return r
}

// Add registers p for every type it supports, replacing earlier registrations
func (r *Registry) Add(p RowProcessor) {
	for _, t := range p.SupportedTypes() {
		r.byType[t] = p
	}
}

// ForType returns the processor for a MIME type
func (r *Registry) ForType(mimeType string) (RowProcessor, bool) {
	p, ok := r.byType[mimeType]
	return p, ok
}

// ForPath picks a processor from a file extension
func (r *Registry) ForPath(path string) (RowProcessor, error) {
	mimeType := TypeForPath(path)
	p, ok := r.ForType(mimeType)
	if !ok {
		return nil, errors.Errorf("no processor for %s", path)
	}
	return p, nil
}

// TypeForPath maps .html/.htm, .json and .csv to their MIME type
func TypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return "text/html"
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	default:
		return ""
	}
}

// FileSource loads a raw or processed file and normalizes it into records
type FileSource struct {
	Path       string
	Registry   *Registry
	Normalizer *Normalizer
	Logger     *logrus.Logger

	stats NormalizeStats
}

var _ graph.RecordSource = (*FileSource)(nil)

// NewFileSource creates a source for path with the default registry
func NewFileSource(path string, logger *logrus.Logger) *FileSource {
	return &FileSource{
		Path:       path,
		Registry:   NewRegistry(),
		Normalizer: NewNormalizer(logger),
		Logger:     logger,
	}
}

// Records reads, extracts and normalizes the file
func (s *FileSource) Records(ctx context.Context) ([]graph.Record, error) {
	rows, err := s.Rows(ctx)
	if err != nil {
		return nil, err
	}
	records, stats := s.Normalizer.Normalize(rows)
	s.stats = stats
	return records, nil
}

// Rows reads and extracts the file without normalizing it
func (s *FileSource) Rows(ctx context.Context) ([]RawRow, error) {
	registry := s.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	p, err := registry.ForPath(s.Path)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.Path)
	}

	rows, err := p.Process(ctx, content)
	if errors.Is(err, ErrNoTable) {
		if s.Logger != nil {
			s.Logger.WithField("path", s.Path).Warn("No financial data table found")
		}
		err = nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "process %s", s.Path)
	}

	metrics.RecordsLoaded.WithLabelValues(TypeForPath(s.Path)).Add(float64(len(rows)))
	return rows, nil
}

// Stats returns the normalization stats of the last Records call
func (s *FileSource) Stats() NormalizeStats {
	return s.stats
}
