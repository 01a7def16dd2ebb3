// Package scraper turns recipe web pages into recipe.ScrapedRecipe values. Known sites get a
// dedicated extractor; every other page goes through the schema.org / readability fallback.
package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"recipe-ingest/internal/core/recipe"
	"recipe-ingest/internal/pkg/common"
	"recipe-ingest/internal/pkg/metrics"

	"go.uber.org/zap"
)

// Request describes one page to scrape. HTML, when set, is used instead of fetching URL. Host
// overrides the host taken from URL when choosing an extractor.
type Request struct {
	URL  string
	HTML string
	Host string
}

// Scraper is the scrape orchestrator. It holds no per-request state and is safe for concurrent use.
type Scraper struct {
	registry *Registry
	fetcher  *Fetcher
	markdown *Markdown
}

// New creates a Scraper. fetcher may be nil, in which case every request must carry HTML.
func New(registry *Registry, fetcher *Fetcher) *Scraper {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Scraper{
		registry: registry,
		fetcher:  fetcher,
		markdown: NewMarkdown(),
	}
}

// Scrape extracts a recipe from the page. The result is not validated; call Clean on it.
func (s *Scraper) Scrape(ctx context.Context, req Request) (*recipe.ScrapedRecipe, error) {
	start := time.Now()
	host := strings.ToLower(strings.TrimSpace(req.Host))
	if host == "" {
		host = HostOf(req.URL)
	}

	out, err := s.scrape(ctx, req, host)
	if err != nil {
		metrics.Scrapes.WithLabelValues(hostLabel(s.registry, host), "error").Inc()
		common.LogWarn("Scrape failed",
			zap.String("url", req.URL),
			zap.String("host", host),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.Scrapes.WithLabelValues(hostLabel(s.registry, host), "ok").Inc()
	common.LogInfo("Scraped recipe",
		zap.String("url", req.URL),
		zap.String("host", host),
		zap.String("title", out.Title),
		zap.Int("ingredients", out.Ingredients.Count()),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

func (s *Scraper) scrape(ctx context.Context, req Request, host string) (*recipe.ScrapedRecipe, error) {
	if strings.TrimSpace(req.URL) == "" && req.HTML == "" {
		return nil, common.Wrapf(common.ErrInvalidRequest, "either a url or page html is required")
	}
	if host == "" {
		return nil, common.Wrapf(common.ErrInvalidRequest, "cannot determine host for %q", req.URL)
	}

	raw := req.HTML
	if raw == "" {
		if s.fetcher == nil {
			return nil, common.Wrapf(common.ErrInvalidRequest, "page html is required when fetching is disabled")
		}
		var err error
		if raw, err = s.fetcher.Fetch(ctx, req.URL); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, common.Wrap(common.ErrRequestTimeout, err)
	}

	pageURL := req.URL
	if pageURL == "" {
		pageURL = "https://" + host + "/"
	}
	doc, err := LoadDocument(raw, pageURL)
	if err != nil {
		return nil, common.Wrap(common.ErrInvalidRequest, err)
	}

	ext, err := s.registry.Resolve(host)(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor for %s: %w", host, err)
	}

	groups, err := ext.IngredientGroups()
	if err != nil {
		return nil, err
	}
	preamble, err := ext.Preamble()
	if err != nil {
		return nil, err
	}
	content, err := ext.MainContent()
	if err != nil {
		return nil, err
	}

	meta, ok := ext.(Metadata)
	if !ok {
		meta = NewGeneric(doc)
	}

	rest, err := s.markdown.Convert(content)
	if err != nil {
		common.LogDebug("Failed to convert main content to markdown", zap.String("host", host), zap.Error(err))
		rest = ""
	}
	if _, generic := ext.(*Generic); generic && rest == "" {
		rest = preamble
	}

	out := &recipe.ScrapedRecipe{
		Title:          readField("title", meta.Title),
		Preamble:       preamble,
		Instructions:   recipe.NumberInstructions(readField("instructions", meta.Instructions)),
		RestText:       rest,
		Language:       readField("language", meta.Language),
		OriginalAuthor: readField("author", meta.Author),
		VideoURL:       readField("video", meta.Video),
		OriginURL:      req.URL,
		HeroImageLink:  readField("image", meta.Image),
		Ingredients:    groups,
	}
	if minutes, ok := readOptional("total_time", meta.TotalTime); ok {
		out.TotalTime = recipe.IntPtr(minutes)
	}
	s.readYields(meta, out)

	return out, nil
}

func (s *Scraper) readYields(meta Metadata, out *recipe.ScrapedRecipe) {
	type yields struct {
		n    int
		kind string
	}
	y, ok := readOptional("yields", func() (yields, error) {
		n, kind, err := meta.Yields()
		return yields{n, kind}, err
	})
	if !ok {
		return
	}
	out.YieldsNumber = recipe.IntPtr(y.n)
	out.YieldsType = y.kind
}

// readField reads one metadata field. A failing or panicking reader leaves the field empty.
func readField[T any](field string, read func() (T, error)) T {
	v, _ := readOptional(field, read)
	return v
}

func readOptional[T any](field string, read func() (T, error)) (v T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, ok = zero, false
			metrics.FieldFallbacks.WithLabelValues(field).Inc()
			common.LogDebug("Metadata reader panicked", zap.String("field", field), zap.Any("panic", r))
		}
	}()

	v, err := read()
	if err != nil {
		var zero T
		metrics.FieldFallbacks.WithLabelValues(field).Inc()
		common.LogDebug("Metadata field unavailable", zap.String("field", field), zap.Error(err))
		return zero, false
	}
	return v, true
}

// hostLabel keeps metric cardinality bounded: unknown hosts share one label.
func hostLabel(r *Registry, host string) string {
	if r.Specialized(host) {
		return host
	}
	return "generic"
}
