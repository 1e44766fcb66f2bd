package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ppiankov/bookgraph/internal/model"
)

// FetchMetadata reads the catalog page of book id. Fields the page does not
// carry are left empty.
func (f *Fetcher) FetchMetadata(ctx context.Context, id string) (*model.BookMetadata, error) {
	target := expandURL(f.metadataURL, id)

	resp, err := f.get(ctx, target, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}

	meta, err := ParseMetadata(resp.body)
	if err != nil {
		return nil, fmt.Errorf("parse metadata page: %w", err)
	}
	meta.ID = id
	meta.SourceURL = resp.finalURL

	return meta, nil
}

// ParseMetadata extracts title, authors and language from a catalog page.
func ParseMetadata(page []byte) (*model.BookMetadata, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}
	doc := goquery.NewDocumentFromNode(root)

	meta := &model.BookMetadata{
		Title:    firstText(doc, `td[itemprop="headline"]`, `h1[itemprop="name"]`, `meta[property="og:title"]`, "title"),
		Language: bibrecField(doc, "Language"),
	}

	seen := make(map[string]bool)
	doc.Find(`a[itemprop="creator"]`).Each(func(_ int, s *goquery.Selection) {
		name := cleanText(s.Text())
		if name != "" && !seen[name] {
			seen[name] = true
			meta.Authors = append(meta.Authors, name)
		}
	})
	if len(meta.Authors) == 0 {
		if author := bibrecField(doc, "Author"); author != "" {
			meta.Authors = []string{author}
		}
	}

	return meta, nil
}

// firstText returns the text of the first selector that yields any; meta
// elements contribute their content attribute.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		text := s.Text()
		if goquery.NodeName(s) == "meta" {
			text, _ = s.Attr("content")
		}
		if text = cleanText(text); text != "" {
			return text
		}
	}
	return ""
}

// bibrecField reads a row of the bibliographic record table by its header.
func bibrecField(doc *goquery.Document, header string) string {
	var value string
	doc.Find("table.bibrec tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if !strings.EqualFold(cleanText(row.Find("th").First().Text()), header) {
			return true
		}
		value = cleanText(row.Find("td").First().Text())
		return false
	})
	return value
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
