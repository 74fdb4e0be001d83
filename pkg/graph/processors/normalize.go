package processors

import (
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph"
	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph/metrics"
)

// RawRow is an unvalidated row as extracted from a page or file
type RawRow struct {
	Company string `json:"company"`
	Value   string `json:"value"`
	Date    string `json:"date"`
}

// Drop reasons reported by the normalizer
const (
	DropEmptyCompany = "empty_company"
	DropEmptyDate    = "empty_date"
	DropBadValue     = "bad_value"
)

// NormalizeStats counts what the normalizer kept and why rows were dropped
type NormalizeStats struct {
	Kept    int            `json:"kept"`
	Dropped map[string]int `json:"dropped"`
}

// DroppedTotal sums the drop counts
func (s NormalizeStats) DroppedTotal() int {
	total := 0
	for _, n := range s.Dropped {
		total += n
	}
	return total
}

// Normalizer turns raw rows into validated records, preserving input order
type Normalizer struct {
	logger *logrus.Logger
}

// NewNormalizer creates a normalizer; a nil logger gets a JSON logrus logger
func NewNormalizer(logger *logrus.Logger) *Normalizer {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Normalizer{logger: logger}
}

// Normalize trims every field and parses the value. Rows with an empty company or date,
// or a value that is not a finite number, are dropped.
func (n *Normalizer) Normalize(rows []RawRow) ([]graph.Record, NormalizeStats) {
	stats := NormalizeStats{Dropped: make(map[string]int)}
	records := make([]graph.Record, 0, len(rows))

	for i, row := range rows {
		company := strings.TrimSpace(row.Company)
		date := strings.TrimSpace(row.Date)
		raw := strings.TrimSpace(row.Value)

		reason := ""
		var value float64
		switch {
		case company == "":
			reason = DropEmptyCompany
		case date == "":
			reason = DropEmptyDate
		default:
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				reason = DropBadValue
			}
			value = v
		}

		if reason != "" {
			stats.Dropped[reason]++
			metrics.RecordsDropped.WithLabelValues(reason).Inc()
			n.logger.WithFields(logrus.Fields{
				"row":    i,
				"reason": reason,
				"value":  raw,
			}).Debug("Dropping invalid row")
			continue
		}

		records = append(records, graph.Record{Company: company, Value: value, Date: date})
	}

	stats.Kept = len(records)
	if dropped := stats.DroppedTotal(); dropped > 0 {
		n.logger.WithFields(logrus.Fields{
			"records": stats.Kept,
			"dropped": dropped,
		}).Warn("Invalid rows dropped during normalization")
	}
	return records, stats
}
