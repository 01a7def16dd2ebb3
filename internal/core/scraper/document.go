package scraper

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"recipe-ingest/internal/pkg/common"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Document is one loaded page: the raw HTML, its parsed DOM and the decoded JSON-LD blocks.
// It belongs to a single extraction call. Nothing may modify the DOM; extractors clone the
// selections they need to change.
type Document struct {
	raw    string
	url    *url.URL
	dom    *goquery.Document
	jsonLD []interface{}
}

// LoadDocument parses raw HTML fetched from pageURL. pageURL is used to resolve relative links.
func LoadDocument(raw, pageURL string) (*Document, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid page url %q", pageURL)
	}

	dom, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	dom.Url = u

	doc := &Document{raw: raw, url: u, dom: dom}
	dom.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		var block interface{}
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &block); err != nil {
			common.LogDebug("Skipping malformed JSON-LD block",
				zap.String("url", pageURL),
				zap.Int("index", i),
				zap.Error(err),
			)
			return
		}
		doc.jsonLD = append(doc.jsonLD, block)
	})

	return doc, nil
}

// Raw returns the HTML the document was built from.
func (d *Document) Raw() string { return d.raw }

// URL returns the page URL.
func (d *Document) URL() *url.URL { return d.url }

// Find runs a CSS selector against the page. The result must be treated as read-only.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.dom.Find(selector)
}

// JSONLD returns the decoded JSON-LD blocks in page order. The values must be treated as read-only.
func (d *Document) JSONLD() []interface{} {
	return d.jsonLD
}

// Meta returns the content of the first <meta> tag whose name or property equals key.
func (d *Document) Meta(key string) string {
	sel := d.dom.Find(fmt.Sprintf(`meta[name=%q], meta[property=%q]`, key, key)).First()
	v, _ := sel.Attr("content")
	return strings.TrimSpace(v)
}

// Resolve makes ref absolute against the page URL.
func (d *Document) Resolve(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return d.url.ResolveReference(u).String()
}

// HostOf returns the lower-cased host name of rawURL without a leading "www.".
func HostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
