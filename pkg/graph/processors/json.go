package processors

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// JSONProcessor reads raw rows from a JSON array of objects. Values may be strings or
// numbers; both are kept as text for the normalizer.
type JSONProcessor struct{}

// NewJSONProcessor creates a new instance of JSONProcessor.
func NewJSONProcessor() *JSONProcessor {
	return &JSONProcessor{}
}

// Process parses content as `[{"company":..,"value":..,"date":..}, ...]`
func (p *JSONProcessor) Process(ctx context.Context, content []byte) ([]RawRow, error) {
	if !gjson.ValidBytes(content) {
		return nil, errors.New("invalid JSON content")
	}

	root := gjson.ParseBytes(content)
	if !root.IsArray() {
		return nil, errors.New("expected a JSON array of rows")
	}

	rows := make([]RawRow, 0)
	root.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		rows = append(rows, RawRow{
			Company: field(item, "company"),
			Value:   field(item, "value"),
			Date:    field(item, "date"),
		})
		return true
	})
	return rows, nil
}

func field(item gjson.Result, name string) string {
	v := item.Get(name)
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number:
		return v.Raw
	default:
		// null, bools and nested values fail validation downstream
		return ""
	}
}

// SupportedTypes returns the MIME types supported by the JSONProcessor.
func (p *JSONProcessor) SupportedTypes() []string {
	return []string{"application/json"}
}
