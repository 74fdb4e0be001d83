package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph"
)

// GraphStore defines an interface for storing company graph snapshots
type GraphStore interface {
	// StoreGraph persists a snapshot
	StoreGraph(ctx context.Context, data *graph.GraphData) error

	// LoadGraph loads a snapshot from storage
	LoadGraph(ctx context.Context) (*graph.GraphData, error)
}

// JSONGraphStore implements GraphStore using JSON files
type JSONGraphStore struct {
	filePath string
}

var _ GraphStore = (*JSONGraphStore)(nil)

// NewJSONGraphStore creates a new JSON graph store
func NewJSONGraphStore(filePath string) *JSONGraphStore {
	return &JSONGraphStore{
		filePath: filePath,
	}
}

// StoreGraph stores the snapshot as indented JSON
func (s *JSONGraphStore) StoreGraph(ctx context.Context, data *graph.GraphData) error {
	return writeJSON(s.filePath, data)
}

// LoadGraph loads a snapshot from a JSON file
func (s *JSONGraphStore) LoadGraph(ctx context.Context) (*graph.GraphData, error) {
	var data graph.GraphData
	if err := readJSON(s.filePath, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// writeJSON creates the parent directory and writes v as indented JSON
func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}

	return errors.Wrapf(os.WriteFile(path, data, 0644), "write %s", path)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	return errors.Wrapf(json.Unmarshal(data, v), "decode %s", path)
}
