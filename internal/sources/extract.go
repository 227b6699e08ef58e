package sources

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/healthstats-bd/healthstats-sync/internal/sanitize"
)

// headerRows is the number of leading table rows holding column headers
const headerRows = 2

// regionColumns is the number of cells in a district row: name, count, timestamp
const regionColumns = 3

// ParseDocument parses an HTML body
func ParseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid HTML: %w", ErrParse, err)
	}
	return doc, nil
}

// ExtractRegionRows returns the sanitized cells of the first table in doc.
// The first two rows are headers and are skipped, as are cells spanning
// multiple rows (division names). Rows left without cells are dropped.
func ExtractRegionRows(doc *goquery.Document) ([][]sanitize.Token, error) {
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: report has no table", ErrParse)
	}

	var rows [][]sanitize.Token
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i < headerRows {
			return
		}

		var cells []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			if spansRows(td) {
				return
			}
			cells = append(cells, strings.TrimSpace(td.Text()))
		})

		if len(cells) > 0 {
			rows = append(rows, sanitize.All(cells))
		}
	})

	return rows, nil
}

// spansRows reports whether the cell has a rowspan greater than one
func spansRows(td *goquery.Selection) bool {
	v, ok := td.Attr("rowspan")
	if !ok {
		return false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		// A present but malformed rowspan still marks a grouping cell
		return true
	}
	return n > 1
}

// ToRegionRows converts sanitized cells to typed region rows.
// Every row must have exactly a name, a numeric count and a timestamp.
func ToRegionRows(cells [][]sanitize.Token) ([]RegionRow, error) {
	rows := make([]RegionRow, 0, len(cells))
	for i, row := range cells {
		if len(row) != regionColumns {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d", ErrParse, i, len(row), regionColumns)
		}

		name := strings.TrimSpace(row[0].Text)
		if name == "" {
			return nil, fmt.Errorf("%w: row %d has an empty region name", ErrParse, i)
		}

		if !row[1].IsNumber {
			return nil, fmt.Errorf("%w: row %d (%s) has non-numeric count %q", ErrParse, i, name, row[1].Text)
		}

		rows = append(rows, RegionRow{
			Name:         name,
			Count:        row[1].Number,
			RawTimestamp: row[2].Text,
		})
	}
	return rows, nil
}

// ExtractCounters returns the sanitized text of every node matching selector, in document order
func ExtractCounters(doc *goquery.Document, selector string) []sanitize.Token {
	texts := doc.Find(selector).Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})
	return sanitize.All(texts)
}

// findAnchorHref returns the href of the first anchor whose trimmed text equals text
func findAnchorHref(doc *goquery.Document, text string) (string, bool) {
	want := strings.TrimSpace(text)

	var href string
	var found bool
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) != want {
			return true
		}
		href, found = a.Attr("href")
		found = found && strings.TrimSpace(href) != ""
		return false
	})
	return strings.TrimSpace(href), found
}
