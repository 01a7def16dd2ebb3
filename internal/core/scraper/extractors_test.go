package scraper

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recipe-ingest/internal/core/recipe"
	"recipe-ingest/internal/core/unit"
	"recipe-ingest/internal/pkg/common"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tineURL    = "https://www.tine.no/oppskrifter/middag-og-hovedretter/pasta-og-ris/urtepasta-med-kylling"
	woksURL    = "https://thewoksoflife.com/red-curry-chicken/"
	genericURL = "https://matbloggen.no/pannekaker"
	wildURL    = "https://example.org/soupe"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func loadFixture(t *testing.T, name, pageURL string) *Document {
	t.Helper()
	doc, err := LoadDocument(readFixture(t, name), pageURL)
	require.NoError(t, err)
	return doc
}

func ingredientAt(t *testing.T, groups *recipe.GroupMap, group string, i int) recipe.Ingredient {
	t.Helper()
	ings := groups.Get(group)
	require.Greater(t, len(ings), i, "group %q has %d ingredients", group, len(ings))
	return ings[i]
}

func TestTineNoIngredientGroups(t *testing.T) {
	ext, err := newTineNo(loadFixture(t, "tineno.kylling_urtepasta.html", tineURL))
	require.NoError(t, err)

	groups, err := ext.IngredientGroups()
	require.NoError(t, err)
	assert.Equal(t, []string{"", "Urtesaus", "Tilbehør"}, groups.Names())
	assert.Equal(t, 8, groups.Count())

	tests := []struct {
		group    string
		index    int
		name     string
		baseName string
		amount   float64
		unit     unit.Code
		optional bool
	}{
		{"", 0, "kyllingfilet i strimler", "kyllingfilet", 400, unit.Gram, false},
		{"", 2, "TINE® Meierismør til steking", "smør", 1, unit.Tablespoon, false},
		{"Urtesaus", 0, "TINE® Crème Fraîche", "crème fraîche", 3, unit.Deciliter, false},
		{"Urtesaus", 1, "ca. friske urter, f.eks. basilikum og persille", "urter", 1, unit.Count, false},
		{"Urtesaus", 2, "salt og pepper", "salt og pepper", 0, unit.Blank, false},
		{"Tilbehør", 0, "bacon", "bacon", 4, unit.Slice, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ingredientAt(t, groups, tt.group, tt.index)
			assert.Equal(t, tt.name, got.NameInRecipe)
			assert.Equal(t, tt.baseName, got.BaseIngredientName)
			assert.Equal(t, tt.amount, got.Amount)
			assert.Equal(t, tt.unit, got.Unit)
			assert.Equal(t, tt.optional, got.IsOptional)
			assert.Equal(t, tt.group, got.GroupName)
		})
	}
}

func TestTineNoPreambleAndContent(t *testing.T) {
	doc := loadFixture(t, "tineno.kylling_urtepasta.html", tineURL)
	ext, err := newTineNo(doc)
	require.NoError(t, err)

	preamble, err := ext.Preamble()
	require.NoError(t, err)
	assert.Equal(t, "Oppskrift på deilig pastarett med kylling og nydelig urtesaus. Urtesausen består av Crème Fraîche, og det du måtte ha stående av friske urter.", preamble)

	content, err := ext.MainContent()
	require.NoError(t, err)
	assert.Equal(t, "<div><h3>Tips</h3><p>Sprøstekt bacon smaker også veldig godt i denne pastaretten.</p></div>", content)

	// the page itself keeps its attributes and scripts
	class, _ := doc.Find(".m-tip").Attr("class")
	assert.Equal(t, "m-tip", class)
	assert.Equal(t, 1, doc.Find(".m-tip script").Length())
}

func TestTineNoRepeatedCallsAreStable(t *testing.T) {
	ext, err := newTineNo(loadFixture(t, "tineno.kylling_urtepasta.html", tineURL))
	require.NoError(t, err)

	first, err := ext.IngredientGroups()
	require.NoError(t, err)
	second, err := ext.IngredientGroups()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	c1, _ := ext.MainContent()
	c2, _ := ext.MainContent()
	assert.Equal(t, c1, c2)
}

func TestTineNoLayoutErrors(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"no data-json", `<html><body><p>nothing</p></body></html>`},
		{"two data-json", `<html><body><div data-json="[]"></div><div data-json="[]"></div></body></html>`},
		{"bad json", `<html><body><div data-json="{oops"></div></body></html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := LoadDocument(tt.html, tineURL)
			require.NoError(t, err)
			ext, err := newTineNo(doc)
			require.NoError(t, err)

			_, err = ext.IngredientGroups()
			assert.ErrorIs(t, err, common.ErrSiteLayout)
		})
	}
}

func TestTheWoksOfLifeIngredientGroups(t *testing.T) {
	ext, err := newTheWoksOfLife(loadFixture(t, "thewoksoflife.red_curry_chicken.html", woksURL))
	require.NoError(t, err)

	groups, err := ext.IngredientGroups()
	require.NoError(t, err)
	assert.Equal(t, []string{"For the chicken:", "For the rest of the dish:"}, groups.Names())

	const rest = "For the rest of the dish:"
	tests := []struct {
		name     string
		group    string
		index    int
		amount   float64
		unit     unit.Code
		baseName string
		fullName string
		optional bool
	}{
		{"chicken", "For the chicken:", 0, 1, unit.Pound, "boneless skinless chicken breast or thighs", "boneless skinless chicken breast or thighs (thinly sliced)", false},
		{"unknown unit folded into name", rest, 1, 3, unit.Count, "garlic", "cloves garlic (minced)", false},
		{"range", rest, 3, 0, unit.Blank, "Thai red curry paste", "3-4 tablespoons Thai red curry paste", false},
		{"empty unit", rest, 4, 1, unit.Count, "medium onion", "medium onion (sliced)", false},
		{"red bell pepper", rest, 6, 0.5, unit.Count, "red bell pepper", "red bell pepper", false},
		{"mixed number", rest, 7, 1.5, unit.Cup, "chicken stock", "chicken stock", false},
		{"optional", rest, 8, 1, unit.Teaspoon, "Worcestershire sauce", "Worcestershire sauce (optional)", true},
		{"fraction", rest, 9, 0.75, unit.Cup, "bamboo shoots", "bamboo shoots", false},
		{"coconut milk", rest, 10, 13.5, unit.Ounce, "coconut milk", "coconut milk (13.5 ounces/400ml = 1 can)", false},
		{"water", rest, 11, 0, unit.Blank, "water", "2-3 cups water", false},
		{"no amount", rest, 12, 0, unit.Blank, "fresh Thai basil leaves", "fresh Thai basil leaves", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ingredientAt(t, groups, tt.group, tt.index)
			assert.InDelta(t, tt.amount, got.Amount, 1e-9)
			assert.Equal(t, tt.unit, got.Unit)
			assert.Equal(t, tt.baseName, got.BaseIngredientName)
			assert.Equal(t, tt.fullName, got.NameInRecipe)
			assert.Equal(t, tt.optional, got.IsOptional)
		})
	}
}

func TestTheWoksOfLifePreambleAndContent(t *testing.T) {
	ext, err := newTheWoksOfLife(loadFixture(t, "thewoksoflife.red_curry_chicken.html", woksURL))
	require.NoError(t, err)

	preamble, err := ext.Preamble()
	require.NoError(t, err)
	assert.Equal(t, "This Thai red curry chicken recipe is a restaurant-quality dish with a great variety of flavors and textures. Serve with steamed rice, and dinner is set.", preamble)

	content, err := ext.MainContent()
	require.NoError(t, err)
	assert.True(t, len(content) > len("<div>\n\n</div>"))
	assert.Equal(t, "<div>\n", content[:6])
	assert.Equal(t, "\n</div>", content[len(content)-7:])
	assert.Contains(t, content, "Use a good brand of Thai red curry paste.")
	assert.Contains(t, content, `<a href="https://thewoksoflife.com/thai-red-curry-paste/">homemade curry</a>`)
	assert.Contains(t, content, `src="https://thewoksoflife.com/wp-content/uploads/2019/06/thai-red-curry-chicken-1.jpg"`)
	assert.Contains(t, content, "Serve it with plenty of rice.")
	assert.NotContains(t, content, "class=")
	assert.NotContains(t, content, "onerror")
	assert.NotContains(t, content, "style=")
	// the recipe card is not article prose
	assert.NotContains(t, content, "boneless skinless")
}

func TestTheWoksOfLifeMissingGroups(t *testing.T) {
	doc, err := LoadDocument(`<html><body><article><div><p>x</p></div></article></body></html>`, woksURL)
	require.NoError(t, err)
	ext, err := newTheWoksOfLife(doc)
	require.NoError(t, err)

	_, err = ext.IngredientGroups()
	assert.ErrorIs(t, err, common.ErrSiteLayout)

	preamble, err := ext.Preamble()
	assert.NoError(t, err)
	assert.Empty(t, preamble)
}

func TestSumAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1", 1, true},
		{"13.5", 13.5, true},
		{"3/4", 0.75, true},
		{"1 1/2", 1.5, true},
		{"", 0, true},
		{"10-12", 0, false},
		{"a few", 0, false},
		{"1/0", 0, false},
		{"1..2", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := sumAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestGenericSchemaOrg(t *testing.T) {
	g := NewGeneric(loadFixture(t, "generic.schemaorg.html", genericURL))

	title, err := g.Title()
	require.NoError(t, err)
	assert.Equal(t, "Pannekaker & syltetøy", title)

	author, err := g.Author()
	require.NoError(t, err)
	assert.Equal(t, "Kari, Ola", author)

	lang, err := g.Language()
	require.NoError(t, err)
	assert.Equal(t, "de-DE", lang)

	minutes, err := g.TotalTime()
	require.NoError(t, err)
	assert.Equal(t, 75, minutes)

	image, err := g.Image()
	require.NoError(t, err)
	assert.Equal(t, "https://matbloggen.no/bilder/pannekaker.jpg", image)

	steps, err := g.Instructions()
	require.NoError(t, err)
	assert.Equal(t, []string{"Visp egg og melk.", "Rør inn melet.", "Stek tynne pannekaker."}, steps)

	n, kind, err := g.Yields()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "personer", kind)

	_, err = g.Video()
	assert.ErrorIs(t, err, ErrFieldNotFound)

	preamble, err := g.Preamble()
	require.NoError(t, err)
	assert.Equal(t, "Tynne pannekaker slik bestemor lagde dem.", preamble)

	groups, err := g.IngredientGroups()
	require.NoError(t, err)
	assert.Equal(t, []string{""}, groups.Names())
	ings := groups.Get("")
	require.Len(t, ings, 5)
	assert.Equal(t, unit.Count, ings[0].Unit)
	assert.Equal(t, unit.Deciliter, ings[1].Unit)
	assert.Equal(t, "melk", ings[1].BaseIngredientName)
	assert.True(t, ings[3].IsOptional)
	assert.Equal(t, unit.Blank, ings[4].Unit)
}

func TestGenericMainContentIsSanitized(t *testing.T) {
	g := NewGeneric(loadFixture(t, "generic.schemaorg.html", genericURL))

	content, err := g.MainContent()
	require.NoError(t, err)
	assert.Contains(t, content, `<a href="/vafler">vafler</a>`)
	assert.Contains(t, content, `<img src="/bilder/steg1.jpg"/>`)
	assert.Contains(t, content, "<strong>alltid</strong>")
	assert.NotContains(t, content, "track()")
	assert.NotContains(t, content, "javascript:")
	assert.NotContains(t, content, "<!--")
	assert.NotContains(t, content, "class=")
	assert.NotContains(t, content, "style=")
}

func TestGenericWithoutJSONLD(t *testing.T) {
	g := NewGeneric(loadFixture(t, "generic.wild.html", wildURL))

	title, err := g.Title()
	require.NoError(t, err)
	assert.Equal(t, "Soupe à l'oignon", title)

	lang, err := g.Language()
	require.NoError(t, err)
	assert.Equal(t, "fr-FR", lang)

	preamble, err := g.Preamble()
	require.NoError(t, err)
	assert.Equal(t, "Une soupe simple pour les soirs d'hiver.", preamble)

	steps, err := g.Instructions()
	require.NoError(t, err)
	assert.Equal(t, []string{"Émincer les oignons.", "Faire revenir puis mouiller avec le bouillon."}, steps)

	_, err = g.TotalTime()
	assert.ErrorIs(t, err, ErrFieldNotFound)
	_, _, err = g.Yields()
	assert.ErrorIs(t, err, ErrFieldNotFound)

	groups, err := g.IngredientGroups()
	require.NoError(t, err)
	ings := groups.Get("")
	require.Len(t, ings, 3)
	assert.Equal(t, unit.Liter, ings[1].Unit)
	assert.Equal(t, "bouillon", ings[1].BaseIngredientName)

	assert.NotPanics(t, func() {
		_, _ = g.MainContent()
	})
}

func TestGenericEmptyPage(t *testing.T) {
	doc, err := LoadDocument(`<html><body></body></html>`, wildURL)
	require.NoError(t, err)
	g := NewGeneric(doc)

	groups, err := g.IngredientGroups()
	require.NoError(t, err)
	assert.Equal(t, 0, groups.Len())

	_, err = g.Author()
	assert.ErrorIs(t, err, ErrFieldNotFound)
	_, err = g.Instructions()
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestStripAttributesLeavesSourceUntouched(t *testing.T) {
	dom, err := goquery.NewDocumentFromReader(strings.NewReader(`<div id="a" class="b"><p data-x="1"><a href="/x" target="_blank">x</a></p></div>`))
	require.NoError(t, err)
	sel := dom.Find("div")

	out, err := StripAttributes(sel, "href")
	require.NoError(t, err)
	assert.Equal(t, `<div><p><a href="/x">x</a></p></div>`, out)

	id, _ := dom.Find("div").Attr("id")
	assert.Equal(t, "a", id)

	out, err = StripAttributes(sel)
	require.NoError(t, err)
	assert.Equal(t, `<div><p><a>x</a></p></div>`, out)
}

func TestExtractorsRepeatedCallsAreStable(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
		pageURL string
		factory Factory
	}{
		{"tine.no", "tineno.kylling_urtepasta.html", tineURL, newTineNo},
		{"thewoksoflife.com", "thewoksoflife.red_curry_chicken.html", woksURL, newTheWoksOfLife},
		{"generic schema.org", "generic.schemaorg.html", genericURL, NewGenericExtractor},
		{"generic wild", "generic.wild.html", wildURL, NewGenericExtractor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := tt.factory(loadFixture(t, tt.fixture, tt.pageURL))
			require.NoError(t, err)

			g1, err := ext.IngredientGroups()
			require.NoError(t, err)
			g2, err := ext.IngredientGroups()
			require.NoError(t, err)
			assert.Equal(t, g1, g2)

			p1, err := ext.Preamble()
			require.NoError(t, err)
			p2, err := ext.Preamble()
			require.NoError(t, err)
			assert.Equal(t, p1, p2)

			c1, err := ext.MainContent()
			require.NoError(t, err)
			c2, err := ext.MainContent()
			require.NoError(t, err)
			assert.Equal(t, c1, c2)
		})
	}
}

const dumplingsLD = `<script type="application/ld+json">{"@type":"Recipe","name":"Dumplings","recipeIngredient":["300 g flour","1 dl water","200 g pork"]}</script>`

func TestGenericKeepsNamedWPRMGroups(t *testing.T) {
	html := `<html><head>` + dumplingsLD + `</head><body>
<div class="wprm-recipe-ingredient-group"><h4 class="wprm-recipe-group-name">Dough</h4><ul>
<li class="wprm-recipe-ingredient">300 g flour</li>
<li class="wprm-recipe-ingredient">1 dl water</li>
</ul></div>
<div class="wprm-recipe-ingredient-group"><h4 class="wprm-recipe-group-name">Filling</h4><ul>
<li class="wprm-recipe-ingredient">200 g pork</li>
</ul></div>
</body></html>`
	doc, err := LoadDocument(html, genericURL)
	require.NoError(t, err)

	groups, err := NewGeneric(doc).IngredientGroups()
	require.NoError(t, err)
	assert.Equal(t, []string{"Dough", "Filling"}, groups.Names())

	flour := ingredientAt(t, groups, "Dough", 0)
	assert.Equal(t, 300.0, flour.Amount)
	assert.Equal(t, unit.Gram, flour.Unit)
	assert.Equal(t, "flour", flour.BaseIngredientName)
	assert.Equal(t, "Dough", flour.GroupName)

	pork := ingredientAt(t, groups, "Filling", 0)
	assert.Equal(t, "Filling", pork.GroupName)
}

func TestGenericIgnoresUnnamedWPRMGroups(t *testing.T) {
	html := `<html><head>` + dumplingsLD + `</head><body>
<div class="wprm-recipe-ingredient-group"><ul>
<li class="wprm-recipe-ingredient">300 g flour</li>
</ul></div>
</body></html>`
	doc, err := LoadDocument(html, genericURL)
	require.NoError(t, err)

	groups, err := NewGeneric(doc).IngredientGroups()
	require.NoError(t, err)
	assert.Equal(t, []string{""}, groups.Names())
	assert.Len(t, groups.Get(""), 3)
}
