package storage

import (
	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph/processors"
)

// RawStore keeps scraped rows as indented JSON, readable by processors.JSONProcessor
type RawStore struct {
	filePath string
}

// NewRawStore creates a raw row store at filePath
func NewRawStore(filePath string) *RawStore {
	return &RawStore{filePath: filePath}
}

// Path is the file the store writes
func (s *RawStore) Path() string {
	return s.filePath
}

// Save writes rows, replacing any previous content
func (s *RawStore) Save(rows []processors.RawRow) error {
	if rows == nil {
		rows = []processors.RawRow{}
	}
	return writeJSON(s.filePath, rows)
}

// Load reads the rows back
func (s *RawStore) Load() ([]processors.RawRow, error) {
	var rows []processors.RawRow
	if err := readJSON(s.filePath, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
