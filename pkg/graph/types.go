package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Record is a validated financial observation produced by the normalizer
type Record struct {
	Company string  `json:"company"`
	Value   float64 `json:"value"`
	Date    string  `json:"date"` // exact-match grouping token, never parsed
}

// CompanyNode is the merged attribute set of one distinct company
type CompanyNode struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	Date         string  `json:"date"`
	Observations int     `json:"observations"`
}

// Edge is an unordered co-occurrence relationship between two companies.
// A and B keep the order in which the pair was first enumerated.
type Edge struct {
	A string `json:"a"`
	B string `json:"b"`
}

// EdgeKey is the canonical form of an unordered pair (Low <= High)
type EdgeKey struct {
	Low  string
	High string
}

// Key returns the canonical pair, identical for {A,B} and {B,A}
func (e Edge) Key() EdgeKey {
	if e.A <= e.B {
		return EdgeKey{Low: e.A, High: e.B}
	}
	return EdgeKey{Low: e.B, High: e.A}
}

// AggregationPolicy selects how multiple records of a company collapse into one value
type AggregationPolicy int

const (
	// policyUnset lets each consumer fall back to its own default
	policyUnset AggregationPolicy = iota
	// LastWrite keeps the value and date of the last record in input order
	LastWrite
	// Mean averages every value of the company
	Mean
)

// or returns def when p was never set
func (p AggregationPolicy) or(def AggregationPolicy) AggregationPolicy {
	if p == policyUnset {
		return def
	}
	return p
}

func (p AggregationPolicy) String() string {
	switch p {
	case policyUnset:
		return "unset"
	case LastWrite:
		return "last_write"
	case Mean:
		return "mean"
	default:
		return fmt.Sprintf("AggregationPolicy(%d)", int(p))
	}
}

// OversizePolicy decides what happens to a date group larger than the configured cap
type OversizePolicy int

const (
	// OversizeReject aborts edge generation with a *GroupLimitError
	OversizeReject OversizePolicy = iota
	// OversizeSkip drops every pair of the oversized group
	OversizeSkip
	// OversizeTruncate pairs only the first MaxGroupSize companies of the group
	OversizeTruncate
)

func (p OversizePolicy) String() string {
	switch p {
	case OversizeReject:
		return "reject"
	case OversizeSkip:
		return "skip"
	case OversizeTruncate:
		return "truncate"
	default:
		return fmt.Sprintf("OversizePolicy(%d)", int(p))
	}
}

var (
	// ErrUnknownPolicy is returned when a policy name cannot be parsed
	ErrUnknownPolicy = errors.New("unknown policy")
	// ErrGroupTooLarge marks a date group that exceeds the configured size cap.
	// It is a resource limit, not a data error.
	ErrGroupTooLarge = errors.New("date group exceeds size limit")
)

// GroupLimitError reports the date group that hit the cap
type GroupLimitError struct {
	Date  string `json:"date"`
	Size  int    `json:"size"`
	Limit int    `json:"limit"`
}

func (e *GroupLimitError) Error() string {
	return fmt.Sprintf("date group %q has %d companies, limit is %d", e.Date, e.Size, e.Limit)
}

// Is lets errors.Is match ErrGroupTooLarge
func (e *GroupLimitError) Is(target error) bool {
	return target == ErrGroupTooLarge
}

// ParseAggregationPolicy maps a config string to a policy
func ParseAggregationPolicy(s string) (AggregationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "last_write", "last-write", "lastwrite":
		return LastWrite, nil
	case "mean", "avg", "average":
		return Mean, nil
	default:
		return 0, fmt.Errorf("aggregation %q: %w", s, ErrUnknownPolicy)
	}
}

// ParseOversizePolicy maps a config string to an oversize policy
func ParseOversizePolicy(s string) (OversizePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reject", "abort":
		return OversizeReject, nil
	case "skip":
		return OversizeSkip, nil
	case "truncate", "sample":
		return OversizeTruncate, nil
	default:
		return 0, fmt.Errorf("oversize %q: %w", s, ErrUnknownPolicy)
	}
}

// Sink receives the persistence-facing graph. Both operations must be idempotent
// merges so that replayed writes are safe.
type Sink interface {
	UpsertNode(ctx context.Context, node CompanyNode) error
	MergeEdge(ctx context.Context, a, b string) error
}

// BatchSink is implemented by sinks that can merge many nodes or edges per round trip
type BatchSink interface {
	Sink
	UpsertNodes(ctx context.Context, nodes []CompanyNode) error
	MergeEdges(ctx context.Context, edges []Edge) error
}

// LabelFunc supplies the supervised label of a node. Label provenance is owned by the caller.
type LabelFunc func(index int, name string) (int64, error)

// Learner consumes the numeric graph representation
type Learner interface {
	Fit(ctx context.Context, data *LearningData) error
}
