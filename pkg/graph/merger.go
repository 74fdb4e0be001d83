package graph

import (
	"gonum.org/v1/gonum/stat"
)

// observations holds every value seen for one company plus the last record's attributes
type observations struct {
	values    []float64
	lastValue float64
	lastDate  string
}

func (o observations) aggregate(policy AggregationPolicy) float64 {
	switch policy {
	case Mean:
		return stat.Mean(o.values, nil)
	default:
		return o.lastValue
	}
}

// observe groups record values by company id. Records are consumed in slice order,
// which defines "last" for LastWrite.
func observe(records []Record, index *IndexMap) []observations {
	obs := make([]observations, index.Len())
	for _, r := range records {
		i, ok := index.Index(r.Company)
		if !ok {
			continue
		}
		obs[i].values = append(obs[i].values, r.Value)
		obs[i].lastValue = r.Value
		obs[i].lastDate = r.Date
	}
	return obs
}

// MergeNodes collapses records into one CompanyNode per distinct company.
//
// The order of records is the processing order: under LastWrite the final record of a
// company wins, under Mean the value is averaged and the date still comes from the
// final record. An unset policy means LastWrite. Nodes are returned in first-seen order.
func MergeNodes(records []Record, policy AggregationPolicy) []CompanyNode {
	return mergeNodes(records, NewIndexMap(records), policy)
}

func mergeNodes(records []Record, index *IndexMap, policy AggregationPolicy) []CompanyNode {
	policy = policy.or(LastWrite)
	obs := observe(records, index)
	nodes := make([]CompanyNode, 0, len(obs))
	for i, o := range obs {
		name, _ := index.Name(i)
		nodes = append(nodes, CompanyNode{
			Name:         name,
			Value:        o.aggregate(policy),
			Date:         o.lastDate,
			Observations: len(o.values),
		})
	}
	return nodes
}
