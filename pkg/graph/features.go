package graph

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LearningData is the numeric shape handed to the learning component.
// Row i of Features, index i in EdgeIndex and IndexToName[i] all refer to the same company.
type LearningData struct {
	Features    [][]float64    `json:"x"`
	EdgeIndex   [2][]int64     `json:"edge_index"`
	IndexToName []string       `json:"index_to_name"`
	NameToIndex map[string]int `json:"name_to_index"`
	Labels      []int64        `json:"y,omitempty"`
}

// NumNodes is the number of rows in the feature matrix
func (d *LearningData) NumNodes() int {
	return len(d.Features)
}

// NumFeatures is the width of the feature matrix
func (d *LearningData) NumFeatures() int {
	if len(d.Features) == 0 {
		return 1
	}
	return len(d.Features[0])
}

// NumEdges is the number of directed entries in EdgeIndex
func (d *LearningData) NumEdges() int {
	return len(d.EdgeIndex[0])
}

// FeatureMatrix returns the features as a dense N x F matrix, or nil for an empty graph
func (d *LearningData) FeatureMatrix() *mat.Dense {
	n := d.NumNodes()
	if n == 0 {
		return nil
	}
	f := d.NumFeatures()
	data := make([]float64, 0, n*f)
	for _, row := range d.Features {
		data = append(data, row...)
	}
	return mat.NewDense(n, f, data)
}

// FeatureAssembler builds per-node features and the directed edge index.
// Its Policy is independent of the node merge policy. An unset Policy means Mean.
type FeatureAssembler struct {
	Policy  AggregationPolicy
	Labeler LabelFunc
}

// Assemble produces LearningData aligned to index
func (a *FeatureAssembler) Assemble(records []Record, index *IndexMap, edges *EdgeSet) (*LearningData, error) {
	obs := observe(records, index)
	features := make([][]float64, len(obs))
	for i, o := range obs {
		features[i] = []float64{o.aggregate(a.Policy.or(Mean))}
	}

	data := &LearningData{
		Features:    features,
		EdgeIndex:   [2][]int64{{}, {}},
		IndexToName: index.Names(),
		NameToIndex: index.Lookup(),
	}
	if edges != nil {
		data.EdgeIndex = edges.EdgeIndex(index)
	}

	if a.Labeler != nil {
		labels := make([]int64, index.Len())
		for i, name := range data.IndexToName {
			y, err := a.Labeler(i, name)
			if err != nil {
				return nil, errors.Wrapf(err, "label node %d (%s)", i, name)
			}
			labels[i] = y
		}
		data.Labels = labels
	}
	return data, nil
}
