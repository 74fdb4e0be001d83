package graph

import (
	"time"

	"github.com/google/uuid"
)

// RelatedTo is the relationship type of co-occurrence edges in every store
const RelatedTo = "RELATED_TO"

var (
	companyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("fingraph/company"))
	edgeNamespace    = uuid.NewSHA1(uuid.NameSpaceURL, []byte("fingraph/related_to"))
)

// NodeID derives a stable id from a company name, so reruns produce the same ids
func NodeID(name string) string {
	return uuid.NewSHA1(companyNamespace, []byte(name)).String()
}

// EdgeID derives a stable id from the unordered pair
func EdgeID(e Edge) string {
	k := e.Key()
	return uuid.NewSHA1(edgeNamespace, []byte(k.Low+"\x00"+k.High)).String()
}

// NodeData is a serialisable company node
type NodeData struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	Date         string  `json:"date"`
	Observations int     `json:"observations"`
}

// EdgeData is a serialisable relationship; Source and Target are node ids
type EdgeData struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	Target     string `json:"target"`
	SourceName string `json:"source_name"`
	TargetName string `json:"target_name"`
	Type       string `json:"type"`
}

// GraphData is the snapshot written by the JSON store and read by the visualizer
type GraphData struct {
	Nodes       []NodeData `json:"nodes"`
	Edges       []EdgeData `json:"edges"`
	GeneratedAt time.Time  `json:"generated_at"`
}

func nodeData(n CompanyNode) NodeData {
	return NodeData{
		ID:           NodeID(n.Name),
		Name:         n.Name,
		Value:        n.Value,
		Date:         n.Date,
		Observations: n.Observations,
	}
}

func edgeData(e Edge) EdgeData {
	return EdgeData{
		ID:         EdgeID(e),
		Source:     NodeID(e.A),
		Target:     NodeID(e.B),
		SourceName: e.A,
		TargetName: e.B,
		Type:       RelatedTo,
	}
}
