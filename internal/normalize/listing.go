// Package normalize turns scraped listing rows and detail pages into
// canonical recall records.
package normalize

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/safetyiq/recall-cli/internal/model"
)

// ParseListing extracts the rows of a recalls listing table. Header rows
// are skipped; each data row carries its cell texts plus any detail page
// and PDF links, resolved against the listing URL.
func ParseListing(html, listingURL string) ([]model.ListingRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "normalize: parse listing")
	}

	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: parse listing url %s", listingURL)
	}

	var rows []model.ListingRow
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Find("th").Length() > 0 {
			return
		}

		var cells []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		if len(cells) < 2 || isHeaderRow(cells) {
			return
		}

		row := model.ListingRow{Cells: cells, ListingURL: listingURL}
		tr.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			abs := resolveHref(base, href)
			if abs == "" {
				return true
			}
			if strings.HasSuffix(strings.ToLower(abs), ".pdf") {
				if row.PDFURL == "" {
					row.PDFURL = abs
				}
				return true
			}
			row.DetailPageURL = abs
			return false
		})
		rows = append(rows, row)
	})

	zap.L().Debug("normalize: parsed listing",
		zap.String("url", listingURL),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

// TitleEntry is one item of an alerts or notices listing page.
type TitleEntry struct {
	Title    string `json:"title"`
	DateText string `json:"date_text,omitempty"`
	URL      string `json:"url,omitempty"`
}

// ParseTitleListing extracts the post titles of an alerts or public
// notices page. These pages are article lists, not tables: each entry
// is a heading link with an optional sibling date.
func ParseTitleListing(html, listingURL string) ([]TitleEntry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "normalize: parse title listing")
	}

	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: parse listing url %s", listingURL)
	}

	seen := make(map[string]struct{})
	var entries []TitleEntry
	doc.Find("h2 a[href], h3 a[href], .entry-title a[href]").Each(func(_ int, a *goquery.Selection) {
		title := strings.TrimSpace(a.Text())
		if title == "" {
			return
		}
		abs := resolveHref(base, a.AttrOr("href", ""))
		key := abs
		if key == "" {
			key = title
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}

		entry := TitleEntry{Title: title, URL: abs}
		// WordPress-style listings put the post date in a time element
		// near the heading.
		if t := a.Closest("article").Find("time").First(); t.Length() > 0 {
			entry.DateText = strings.TrimSpace(firstNonEmpty(t.AttrOr("datetime", ""), t.Text()))
		}
		entries = append(entries, entry)
	})

	zap.L().Debug("normalize: parsed title listing",
		zap.String("url", listingURL),
		zap.Int("entries", len(entries)),
	)
	return entries, nil
}

// isHeaderRow catches header rows rendered as td cells.
func isHeaderRow(cells []string) bool {
	first := strings.ToLower(cells[0])
	second := strings.ToLower(cells[1])
	return strings.Contains(first, "date") && strings.Contains(second, "product")
}

func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
