// Package fetch loads a booking page and extracts its course tables.
package fetch

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/PhilippVn/ZHS-Scraper/config"
	"github.com/PhilippVn/ZHS-Scraper/internal/model"
)

// Fetcher retrieves the current course records of one configured source.
type Fetcher interface {
	Fetch(ctx context.Context, src config.SourceConfig) ([]model.Course, error)
}

// HTTPFetcher fetches and parses ZHS-style booking pages over HTTP.
type HTTPFetcher struct {
	client *http.Client
	cfg    config.FetchConfig
}

// NewHTTPFetcher creates a fetcher with the configured timeout and headers.
func NewHTTPFetcher(cfg config.FetchConfig) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		cfg:    cfg,
	}
}

// Fetch downloads the source page and extracts the configured course
// tables. A table index beyond the page's table count is logged and
// skipped, not treated as a fetch failure.
func (f *HTTPFetcher) Fetch(ctx context.Context, src config.SourceConfig) ([]model.Course, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", src.Name, err)
	}
	for key, value := range f.cfg.Headers {
		req.Header.Set(key, value)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed for %s: %w", src.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code %d for %s", resp.StatusCode, src.Name)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page for %s: %w", src.Name, err)
	}

	tables := doc.Find("table.bs_kurse")
	var courses []model.Course
	for _, tab := range src.Tables {
		if tab.Index < 0 || tab.Index >= tables.Length() {
			log.Printf("Warning: table index %d not found on %s (%d tables)", tab.Index, src.Name, tables.Length())
			continue
		}
		label := tab.Label
		if label == "" {
			label = fmt.Sprintf("Tabelle_%d", tab.Index)
		}
		courses = append(courses, parseTable(tables.Eq(tab.Index), src, label)...)
	}
	return courses, nil
}

// parseTable turns one course table into records. Header labels come from
// thead, falling back to the first row for tables without one. Rows whose
// cell count does not match the header count are skipped.
func parseTable(table *goquery.Selection, src config.SourceConfig, label string) []model.Course {
	var headers []string
	table.Find("thead th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, cleanText(th.Text()))
	})
	// Tables without a thead carry their labels in the first row. The HTML
	// parser wraps bare rows in an implicit tbody, so that row must be
	// excluded from the data rows below.
	var headerRow *goquery.Selection
	if len(headers) == 0 {
		headerRow = table.Find("tr").First()
		headerRow.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, cleanText(cell.Text()))
		})
	}

	var courses []model.Course
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		if headerRow != nil && len(row.Nodes) > 0 && len(headerRow.Nodes) > 0 && row.Nodes[0] == headerRow.Nodes[0] {
			return
		}
		cells := row.Find("td")
		if cells.Length() != len(headers) {
			return
		}
		fields := make(model.Fields, 0, len(headers))
		cells.Each(func(i int, cell *goquery.Selection) {
			fields = append(fields, model.Field{Label: headers[i], Value: cleanText(cell.Text())})
		})
		courses = append(courses, model.Course{
			SourceName: src.Name,
			TableName:  label,
			SourceURL:  src.URL,
			Status:     resolveStatus(cells.Last()),
			Fields:     fields,
		})
	})
	return courses
}

// resolveStatus maps the booking cell's markup to a status. The CSS
// classes are the ones the ZHS booking system renders its buttons with.
func resolveStatus(bookingCell *goquery.Selection) model.Status {
	switch {
	case bookingCell.Find("span.bs_btn_abgelaufen").Length() > 0:
		return model.StatusExpired
	case bookingCell.Find("input.bs_btn_warteliste").Length() > 0:
		return model.StatusWaitlist
	case bookingCell.Find("input.bs_btn_buchen").Length() > 0:
		return model.StatusBookable
	case bookingCell.Find("span.bs_btn_autostart").Length() > 0:
		return model.StatusBookableFrom
	}
	return model.StatusUnknown
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
