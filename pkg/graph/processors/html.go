package processors

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// DefaultTableSelector locates the financial data table on a page
const DefaultTableSelector = "table#financial-data"

// HTMLTableProcessor extracts company/value/date rows from an HTML table.
type HTMLTableProcessor struct {
	Selector string
}

// NewHTMLTableProcessor creates a processor for DefaultTableSelector.
func NewHTMLTableProcessor() *HTMLTableProcessor {
	return &HTMLTableProcessor{Selector: DefaultTableSelector}
}

// Process parses content and returns one row per <tr> with at least three <td> cells.
// The first three cells are company, value and date; header rows made of <th> are skipped.
// A page without the table yields no rows and ErrNoTable.
func (p *HTMLTableProcessor) Process(ctx context.Context, content []byte) ([]RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create document from HTML content")
	}

	selector := p.Selector
	if selector == "" {
		selector = DefaultTableSelector
	}

	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return []RawRow{}, ErrNoTable
	}

	rows := make([]RawRow, 0)
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 3 {
			return
		}
		rows = append(rows, RawRow{
			Company: strings.TrimSpace(cells.Eq(0).Text()),
			Value:   strings.TrimSpace(cells.Eq(1).Text()),
			Date:    strings.TrimSpace(cells.Eq(2).Text()),
		})
	})
	return rows, nil
}

// SupportedTypes returns the MIME types supported by the HTMLTableProcessor.
func (p *HTMLTableProcessor) SupportedTypes() []string {
	return []string{"text/html"}
}
