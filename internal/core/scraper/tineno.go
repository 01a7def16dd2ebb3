package scraper

import (
	"encoding/json"
	"html"
	"regexp"
	"strings"
	"sync"

	"recipe-ingest/internal/core/recipe"
	"recipe-ingest/internal/core/unit"
	"recipe-ingest/internal/pkg/common"
)

const tineNoHost = "tine.no"

var anchorPattern = regexp.MustCompile(`(?is)<a\b[^>]*>(.*?)</a>`)

// tineGroup mirrors one entry of the ingredient blob tine.no embeds in a data-json attribute.
type tineGroup struct {
	Name            *string    `json:"name"`
	IngredientLines []tineLine `json:"ingredientLines"`
}

type tineLine struct {
	Content struct {
		InfoBefore        string `json:"infoBefore"`
		IngredientContent string `json:"ingredientContent"`
		InfoAfter         string `json:"infoAfter"`
	} `json:"content"`
	Ingredient *struct {
		GenericName string `json:"genericName"`
	} `json:"ingredient"`
	Amount *float64 `json:"amount"`
	Unit   *struct {
		Singular string `json:"singular"`
	} `json:"unit"`
	Omissible bool `json:"omissible"`
}

type tineNo struct {
	doc *Document

	once   sync.Once
	groups *recipe.GroupMap
	err    error
}

func newTineNo(doc *Document) (Extractor, error) {
	return &tineNo{doc: doc}, nil
}

func (t *tineNo) IngredientGroups() (*recipe.GroupMap, error) {
	t.once.Do(func() {
		t.groups, t.err = t.parseGroups()
	})
	return t.groups, t.err
}

func (t *tineNo) parseGroups() (*recipe.GroupMap, error) {
	found := t.doc.Find("[data-json]")
	if found.Length() != 1 {
		return nil, common.Wrapf(common.ErrSiteLayout, "tine.no: expected one data-json element, found %d", found.Length())
	}
	raw, _ := found.Attr("data-json")

	var data []tineGroup
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, common.Wrapf(common.ErrSiteLayout, "tine.no: failed to decode ingredient data: %v", err)
	}

	groups := recipe.NewGroupMap()
	for _, g := range data {
		name := ""
		if g.Name != nil {
			name = strings.TrimSpace(*g.Name)
		}
		ings := make([]recipe.Ingredient, 0, len(g.IngredientLines))
		for _, line := range g.IngredientLines {
			ings = append(ings, tineIngredient(line))
		}
		groups.Append(name, ings...)
	}
	return groups, nil
}

func tineIngredient(line tineLine) recipe.Ingredient {
	c := line.Content
	name := flattenAnchors(c.InfoBefore + c.IngredientContent + c.InfoAfter)

	ing := recipe.Ingredient{
		RawText:      name,
		NameInRecipe: name,
		IsOptional:   line.Omissible,
	}
	if line.Ingredient != nil {
		ing.BaseIngredientName = strings.TrimSpace(line.Ingredient.GenericName)
	}
	if ing.BaseIngredientName == "" {
		ing.BaseIngredientName = flattenAnchors(c.IngredientContent)
	}
	if line.Amount != nil && *line.Amount > 0 {
		ing.Amount = *line.Amount
	}

	singular := ""
	if line.Unit != nil {
		singular = line.Unit.Singular
	}
	ing.Unit = unit.Canonicalize(singular, ing.Amount > 0)
	return ing
}

// flattenAnchors replaces links with their text and normalizes whitespace.
func flattenAnchors(s string) string {
	s = anchorPattern.ReplaceAllString(s, "$1")
	return normalizeSpace(html.UnescapeString(s))
}

func (t *tineNo) Preamble() (string, error) {
	if s := ldText(ldRecipe(t.doc.JSONLD())["description"]); s != "" {
		return s, nil
	}
	for _, n := range ldNodes(t.doc.JSONLD()) {
		if s := ldText(n["description"]); s != "" {
			return s, nil
		}
	}
	return "", common.Wrapf(common.ErrSiteLayout, "tine.no: no JSON-LD description")
}

// MainContent returns the tip box with every attribute removed. Pages without tips yield "".
func (t *tineNo) MainContent() (string, error) {
	tips := t.doc.Find(".m-tip")
	switch tips.Length() {
	case 0:
		return "", nil
	case 1:
		return StripAttributes(tips)
	default:
		return "", common.Wrapf(common.ErrSiteLayout, "tine.no: expected at most one tip block, found %d", tips.Length())
	}
}
