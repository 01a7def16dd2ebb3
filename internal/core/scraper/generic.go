package scraper

import (
	"fmt"
	"strings"
	"sync"

	"recipe-ingest/internal/core/ingredient"
	"recipe-ingest/internal/core/recipe"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Generic extracts recipes from pages without a site extractor. It reads schema.org Recipe JSON-LD
// first, then microdata, and finally falls back to readability's article detection ("wild mode").
// Generic also serves as the Metadata source for every page, specialized or not.
type Generic struct {
	doc  *Document
	node map[string]interface{}

	articleOnce sync.Once
	article     readability.Article
	articleErr  error
}

// NewGeneric creates the generic extractor for doc.
func NewGeneric(doc *Document) *Generic {
	return &Generic{doc: doc, node: ldRecipe(doc.JSONLD())}
}

// NewGenericExtractor is the registry's fallback Factory.
func NewGenericExtractor(doc *Document) (Extractor, error) {
	return NewGeneric(doc), nil
}

// readArticle runs readability once per document.
func (g *Generic) readArticle() (readability.Article, error) {
	g.articleOnce.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				g.articleErr = fmt.Errorf("readability panicked: %v", r)
			}
		}()
		g.article, g.articleErr = readability.FromReader(strings.NewReader(g.doc.Raw()), g.doc.URL())
	})
	return g.article, g.articleErr
}

func (g *Generic) field(key string) interface{} {
	if g.node == nil {
		return nil
	}
	return g.node[key]
}

func missing(name string) error {
	return fmt.Errorf("%s: %w", name, ErrFieldNotFound)
}

// IngredientGroups parses the page's ingredient lines. Named WP Recipe Maker groups are kept when
// the page has them; otherwise recipeIngredient lines (JSON-LD, then microdata, then WP Recipe Maker
// markup) go into a single ungrouped bucket. An empty map is returned when nothing is found.
func (g *Generic) IngredientGroups() (*recipe.GroupMap, error) {
	if groups := g.wprmGroups(); groups != nil {
		return groups, nil
	}

	groups := recipe.NewGroupMap()

	lines := ldStrings(g.field("recipeIngredient"))
	if len(lines) == 0 {
		lines = ldStrings(g.field("ingredients"))
	}
	if len(lines) == 0 {
		lines = selectionTexts(g.doc.Find(`[itemprop="recipeIngredient"], [itemprop="ingredients"]`))
	}
	if len(lines) == 0 {
		lines = selectionTexts(g.doc.Find(".wprm-recipe-ingredient"))
	}

	if len(lines) > 0 {
		groups.Append("", ingredient.ParseLines(lines, "")...)
	}
	return groups, nil
}

// wprmGroups reads ".wprm-recipe-ingredient-group" containers with their h4 headings. It returns
// nil unless at least one group is named.
func (g *Generic) wprmGroups() *recipe.GroupMap {
	groups := recipe.NewGroupMap()
	named := false
	g.doc.Find(".wprm-recipe-ingredient-group").Each(func(_ int, container *goquery.Selection) {
		name := normalizeSpace(container.Find("h4").First().Text())
		lines := selectionTexts(container.Find(".wprm-recipe-ingredient"))
		if len(lines) == 0 {
			return
		}
		if name != "" {
			named = true
		}
		groups.Append(name, ingredient.ParseLines(lines, name)...)
	})
	if !named {
		return nil
	}
	return groups
}

// Preamble prefers the JSON-LD description, then the meta description, then readability's excerpt.
func (g *Generic) Preamble() (string, error) {
	if s := ldText(g.field("description")); s != "" {
		return s, nil
	}
	for _, key := range []string{"description", "og:description"} {
		if s := g.doc.Meta(key); s != "" {
			return s, nil
		}
	}
	if article, err := g.readArticle(); err == nil && strings.TrimSpace(article.Excerpt) != "" {
		return strings.TrimSpace(article.Excerpt), nil
	}
	return "", nil
}

// MainContent returns the page's <article>, or readability's article, sanitized.
func (g *Generic) MainContent() (string, error) {
	if article := g.doc.Find("article").First(); article.Length() > 0 {
		return StripAttributes(article, "href", "src")
	}

	a, err := g.readArticle()
	if err != nil || strings.TrimSpace(a.Content) == "" {
		return "", nil
	}
	dom, err := goquery.NewDocumentFromReader(strings.NewReader(a.Content))
	if err != nil {
		return "", fmt.Errorf("failed to parse article content: %w", err)
	}
	return StripAttributes(dom.Find("body").Children(), "href", "src")
}

// Title implements Metadata.
func (g *Generic) Title() (string, error) {
	if s := ldText(g.field("name")); s != "" {
		return s, nil
	}
	if s := g.doc.Meta("og:title"); s != "" {
		return s, nil
	}
	if s := strings.TrimSpace(g.doc.Find("title").First().Text()); s != "" {
		return s, nil
	}
	if s := strings.TrimSpace(g.doc.Find("h1").First().Text()); s != "" {
		return s, nil
	}
	if article, err := g.readArticle(); err == nil && strings.TrimSpace(article.Title) != "" {
		return strings.TrimSpace(article.Title), nil
	}
	return "", missing("title")
}

// Author implements Metadata.
func (g *Generic) Author() (string, error) {
	if s := ldName(g.field("author")); s != "" {
		return s, nil
	}
	if s := g.doc.Meta("author"); s != "" {
		return s, nil
	}
	return "", missing("author")
}

// Language implements Metadata. The value is returned as found; Clean repairs it.
func (g *Generic) Language() (string, error) {
	if s := ldText(g.field("inLanguage")); s != "" {
		return s, nil
	}
	if s, ok := g.doc.Find("html").First().Attr("lang"); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s), nil
	}
	if s := g.doc.Meta("og:locale"); s != "" {
		return strings.ReplaceAll(s, "_", "-"), nil
	}
	return "", missing("language")
}

// TotalTime implements Metadata. Without totalTime, prepTime and cookTime are added up.
func (g *Generic) TotalTime() (int, error) {
	if v := g.field("totalTime"); v != nil {
		return ldMinutes(v)
	}
	prep, prepErr := ldMinutes(g.field("prepTime"))
	cook, cookErr := ldMinutes(g.field("cookTime"))
	if prepErr != nil && cookErr != nil {
		return 0, missing("total time")
	}
	return prep + cook, nil
}

// Image implements Metadata.
func (g *Generic) Image() (string, error) {
	if s := ldURL(g.field("image")); s != "" {
		return g.doc.Resolve(s), nil
	}
	if s := g.doc.Meta("og:image"); s != "" {
		return g.doc.Resolve(s), nil
	}
	return "", missing("image")
}

// Instructions implements Metadata.
func (g *Generic) Instructions() ([]string, error) {
	if steps := ldInstructions(g.field("recipeInstructions")); len(steps) > 0 {
		return steps, nil
	}
	steps := selectionTexts(g.doc.Find(`[itemprop="recipeInstructions"] li, li[itemprop="recipeInstructions"], .wprm-recipe-instruction-text`))
	if len(steps) > 0 {
		return steps, nil
	}
	return nil, missing("instructions")
}

// Yields implements Metadata.
func (g *Generic) Yields() (int, string, error) {
	for _, v := range []interface{}{g.field("recipeYield"), g.field("yield")} {
		switch t := v.(type) {
		case float64:
			return int(t), "", nil
		case string, []interface{}:
			for _, s := range ldStrings(t) {
				if n, kind, ok := recipe.YieldsFromText(s); ok {
					return n, kind, nil
				}
			}
		}
	}
	return 0, "", missing("yields")
}

// Video implements Metadata.
func (g *Generic) Video() (string, error) {
	if s := ldURL(g.field("video")); s != "" {
		return s, nil
	}
	return "", missing("video")
}

// selectionTexts returns the whitespace-normalized, non-empty text of every node in sel.
func selectionTexts(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := normalizeSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
