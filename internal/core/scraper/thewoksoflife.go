package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"recipe-ingest/internal/core/recipe"
	"recipe-ingest/internal/core/unit"
	"recipe-ingest/internal/pkg/common"

	"github.com/PuerkitoBio/goquery"
)

const theWoksOfLifeHost = "thewoksoflife.com"

// wprmAmountPattern accepts "1", "13.5", "3/4" and "1 1/2"; anything else (ranges, words) is left
// in the ingredient name.
var wprmAmountPattern = regexp.MustCompile(`^[ \d/.]*$`)

type theWoksOfLife struct {
	doc *Document

	once   sync.Once
	groups *recipe.GroupMap
	err    error
}

func newTheWoksOfLife(doc *Document) (Extractor, error) {
	return &theWoksOfLife{doc: doc}, nil
}

func (w *theWoksOfLife) IngredientGroups() (*recipe.GroupMap, error) {
	w.once.Do(func() {
		w.groups, w.err = w.parseGroups()
	})
	return w.groups, w.err
}

func (w *theWoksOfLife) parseGroups() (*recipe.GroupMap, error) {
	containers := w.doc.Find(".wprm-recipe-ingredient-group")
	if containers.Length() == 0 {
		return nil, common.Wrapf(common.ErrSiteLayout, "thewoksoflife.com: no ingredient groups")
	}

	groups := recipe.NewGroupMap()
	var err error
	containers.EachWithBreak(func(_ int, container *goquery.Selection) bool {
		name := strings.TrimSpace(container.Find("h4").First().Text())
		var ings []recipe.Ingredient
		container.Find("ul").First().Children().Filter("li").EachWithBreak(func(i int, li *goquery.Selection) bool {
			var ing recipe.Ingredient
			ing, err = wprmIngredient(li)
			if err != nil {
				err = fmt.Errorf("group %q item %d: %w", name, i, err)
				return false
			}
			ings = append(ings, ing)
			return true
		})
		if err != nil {
			return false
		}
		groups.Append(name, ings...)
		return true
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func wprmIngredient(li *goquery.Selection) (recipe.Ingredient, error) {
	nameSel := li.Find(".wprm-recipe-ingredient-name").First()
	if nameSel.Length() == 0 {
		return recipe.Ingredient{}, common.Wrapf(common.ErrSiteLayout, "thewoksoflife.com: ingredient without name")
	}
	baseName := normalizeSpace(nameSel.Text())
	line := wprmLineText(li)

	note := ""
	if notes := li.Find(".wprm-recipe-ingredient-notes").First(); notes.Length() > 0 {
		note = normalizeSpace(notes.Text())
		if note != "" && !(strings.HasPrefix(note, "(") && strings.HasSuffix(note, ")")) {
			note = "(" + note + ")"
		}
	}
	longName := baseName
	if note != "" {
		longName += " " + note
	}

	code := unit.Blank
	if unitSel := li.Find(".wprm-recipe-ingredient-unit").First(); unitSel.Length() > 0 {
		token := normalizeSpace(unitSel.Text())
		if known, ok := unit.Lookup(token); ok {
			code = known
		} else if token != "" {
			longName = token + " " + longName
		}
	}

	amount := 0.0
	if amountSel := li.Find(".wprm-recipe-ingredient-amount").First(); amountSel.Length() > 0 {
		text := strings.TrimSpace(amountSel.Text())
		parsed, ok := sumAmount(text)
		if ok {
			amount = parsed
		} else {
			// "2-3" and friends: keep the whole visible line as the name
			longName = line
		}
	}

	switch {
	case amount == 0:
		code = unit.Blank
	case code == unit.Blank:
		code = unit.Count
	}

	return recipe.Ingredient{
		RawText:            line,
		NameInRecipe:       longName,
		BaseIngredientName: baseName,
		Amount:             amount,
		Unit:               code,
		IsOptional:         strings.Contains(strings.ToLower(note), "optional"),
	}, nil
}

// sumAmount adds up the space-separated numbers and fractions of a WPRM amount.
func sumAmount(text string) (float64, bool) {
	if !wprmAmountPattern.MatchString(text) {
		return 0, false
	}
	total := 0.0
	for _, part := range strings.Fields(text) {
		v, err := parseFraction(part)
		if err != nil {
			return 0, false
		}
		total += v
	}
	return total, true
}

func parseFraction(s string) (float64, error) {
	num, den, isFraction := strings.Cut(s, "/")
	if !isFraction {
		return strconv.ParseFloat(s, 64)
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, err
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, fmt.Errorf("zero denominator in %q", s)
	}
	return n / d, nil
}

// wprmLineText joins the visible parts of an ingredient line in page order.
func wprmLineText(li *goquery.Selection) string {
	var parts []string
	li.Find(".wprm-recipe-ingredient-amount, .wprm-recipe-ingredient-unit, .wprm-recipe-ingredient-name, .wprm-recipe-ingredient-notes").Each(func(_ int, s *goquery.Selection) {
		if t := normalizeSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, " ")
}

// Preamble reads the description of the JSON-LD @graph node whose @id ends in "#recipe".
func (w *theWoksOfLife) Preamble() (string, error) {
	for _, n := range ldNodes(w.doc.JSONLD()) {
		id, _ := n["@id"].(string)
		if strings.HasSuffix(id, "#recipe") {
			return ldText(n["description"]), nil
		}
	}
	return "", nil
}

// MainContent combines the recipe notes with the article's paragraphs and figures.
func (w *theWoksOfLife) MainContent() (string, error) {
	var b strings.Builder
	b.WriteString("<div>\n")

	if notes := w.doc.Find(".wprm-recipe-notes-container").First(); notes.Length() > 0 {
		s, err := StripAttributes(notes)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
		b.WriteString("\n\n")
	}

	body, err := StripAttributes(w.doc.Find("article > div > p, article > div > figure"), "href", "src")
	if err != nil {
		return "", err
	}
	b.WriteString(body)
	b.WriteString("\n</div>")
	return b.String(), nil
}
