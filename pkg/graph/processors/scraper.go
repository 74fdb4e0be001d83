package processors

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph/metrics"
)

// DefaultUserAgent is sent when the scraper has no configured agent
const DefaultUserAgent = "fingraph/1.0"

// maxPageBytes bounds how much of a response body is read
const maxPageBytes = 32 << 20

// StatusError is returned for any non-200 response
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return "failed to retrieve " + e.URL + ": " + http.StatusText(e.StatusCode)
}

// Scraper downloads a page and extracts its financial data table
type Scraper struct {
	client    *http.Client
	userAgent string
	table     *HTMLTableProcessor
	logger    *logrus.Logger
}

// NewScraper creates a scraper. A nil client gets one with timeout, and a nil logger gets
// a JSON logrus logger.
func NewScraper(client *http.Client, userAgent string, timeout time.Duration, logger *logrus.Logger) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Scraper{
		client:    client,
		userAgent: userAgent,
		table:     NewHTMLTableProcessor(),
		logger:    logger,
	}
}

// Fetch GETs url and returns its table rows. A page without the table yields no rows.
func (s *Scraper) Fetch(ctx context.Context, url string) ([]RawRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.WithFields(logrus.Fields{
			"url":         url,
			"status_code": resp.StatusCode,
		}).Error("Failed to retrieve data")
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	rows, err := s.table.Process(ctx, body)
	if errors.Is(err, ErrNoTable) {
		s.logger.WithField("url", url).Warn("No financial data table found")
		return rows, nil
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordsLoaded.WithLabelValues("text/html").Add(float64(len(rows)))
	s.logger.WithFields(logrus.Fields{
		"url":  url,
		"rows": len(rows),
	}).Info("Scraped financial data")
	return rows, nil
}
