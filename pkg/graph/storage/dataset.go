package storage

import (
	"github.com/pkg/errors"

	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph"
)

// Dataset is the on-disk form of graph.LearningData consumed by an external trainer
type Dataset struct {
	X           [][]float64 `json:"x"`
	EdgeIndex   [2][]int64  `json:"edge_index"`
	Y           []int64     `json:"y,omitempty"`
	IndexToName []string    `json:"index_to_name"`
	NumNodes    int         `json:"num_nodes"`
	NumFeatures int         `json:"num_features"`
}

// NewDataset copies the learning representation into its file form
func NewDataset(d *graph.LearningData) *Dataset {
	return &Dataset{
		X:           d.Features,
		EdgeIndex:   d.EdgeIndex,
		Y:           d.Labels,
		IndexToName: d.IndexToName,
		NumNodes:    d.NumNodes(),
		NumFeatures: d.NumFeatures(),
	}
}

// LearningData rebuilds the in-memory form, including the name lookup
func (d *Dataset) LearningData() *graph.LearningData {
	lookup := make(map[string]int, len(d.IndexToName))
	for i, name := range d.IndexToName {
		lookup[name] = i
	}
	return &graph.LearningData{
		Features:    d.X,
		EdgeIndex:   d.EdgeIndex,
		IndexToName: d.IndexToName,
		NameToIndex: lookup,
		Labels:      d.Y,
	}
}

// DatasetStore writes learning datasets as JSON
type DatasetStore struct {
	filePath string
}

// NewDatasetStore creates a dataset store at filePath
func NewDatasetStore(filePath string) *DatasetStore {
	return &DatasetStore{filePath: filePath}
}

// Save writes d
func (s *DatasetStore) Save(d *graph.LearningData) error {
	if d == nil {
		return errors.New("no learning data to save")
	}
	ds := NewDataset(d)
	if ds.X == nil {
		ds.X = [][]float64{}
	}
	for i := range ds.EdgeIndex {
		if ds.EdgeIndex[i] == nil {
			ds.EdgeIndex[i] = []int64{}
		}
	}
	if ds.IndexToName == nil {
		ds.IndexToName = []string{}
	}
	return writeJSON(s.filePath, ds)
}

// Load reads a dataset and checks that its shapes agree
func (s *DatasetStore) Load() (*graph.LearningData, error) {
	var ds Dataset
	if err := readJSON(s.filePath, &ds); err != nil {
		return nil, err
	}
	if len(ds.X) != len(ds.IndexToName) {
		return nil, errors.Errorf("dataset %s has %d feature rows but %d names", s.filePath, len(ds.X), len(ds.IndexToName))
	}
	if len(ds.EdgeIndex[0]) != len(ds.EdgeIndex[1]) {
		return nil, errors.Errorf("dataset %s has mismatched edge_index rows", s.filePath)
	}
	return ds.LearningData(), nil
}
