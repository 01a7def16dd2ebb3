package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"recipe-ingest/internal/core/ingredient"
	"recipe-ingest/internal/core/recipe"
	"recipe-ingest/internal/core/unit"
	"recipe-ingest/internal/pkg/common"
)

var jsonNull = []byte("null")

// decodeReply isolates the JSON object in a model reply and decodes it. A reply that fails to
// decode gets one syntactic repair pass before it is rejected.
func decodeReply[T any](content string) (*T, error) {
	raw := common.ExtractJSONObject(content)
	if raw == "" {
		return nil, common.Wrapf(common.ErrMalformedModelOutput, "no JSON object in model reply")
	}

	out := new(T)
	err := common.ParseJSON(raw, out)
	if err == nil {
		return out, nil
	}

	if repaired := common.RepairJSON(raw); repaired != raw {
		out = new(T)
		if common.ParseJSON(repaired, out) == nil {
			common.LogDebug("Model reply decoded after JSON repair")
			return out, nil
		}
	}
	return nil, common.Wrapf(common.ErrMalformedModelOutput, "failed to decode model reply: %v", err)
}

// flexText is a string or a list of strings.
type flexText struct {
	text  string
	items []string
	list  bool
}

func (f *flexText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("expected a list of strings: %w", err)
		}
		f.items, f.list = items, true
		return nil
	}
	return json.Unmarshal(data, &f.text)
}

func (f flexText) String() string {
	if f.list {
		return strings.TrimSpace(strings.Join(f.items, "\n\n"))
	}
	return strings.TrimSpace(f.text)
}

// instructions numbers list items; text is kept as written.
func (f flexText) instructions() string {
	if f.list {
		return recipe.NumberInstructions(f.items)
	}
	return strings.TrimSpace(f.text)
}

func (f flexText) lines() []string {
	if f.list {
		return f.items
	}
	return strings.Split(f.text, "\n")
}

// flexNumber is a JSON number or a numeric string. Anything else leaves it unset.
type flexNumber struct {
	value float64
	set   bool
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		n.value, n.set = f, true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			n.value, n.set = v, true
		}
	}
	return nil
}

func (n flexNumber) intPtr() *int {
	if !n.set {
		return nil
	}
	return recipe.IntPtr(int(math.Round(n.value)))
}

// imageReply is the shape the image prompt asks for.
type imageReply struct {
	Title          string            `json:"title"`
	Preamble       flexText          `json:"preamble"`
	Instructions   flexText          `json:"instructions"`
	RestText       flexText          `json:"rest_text"`
	TotalTime      flexNumber        `json:"total_time"`
	OriginalAuthor string            `json:"original_author"`
	Language       string            `json:"language"`
	YieldsType     string            `json:"yields_type"`
	YieldsNumber   flexNumber        `json:"yields_number"`
	Ingredients    []replyIngredient `json:"ingredients"`
}

type replyIngredient struct {
	BaseIngredientName string     `json:"base_ingredient_name"`
	NameInRecipe       string     `json:"name_in_recipe"`
	GroupName          string     `json:"group_name"`
	BaseAmount         flexNumber `json:"base_amount"`
	Unit               string     `json:"unit"`
	IsOptional         bool       `json:"is_optional"`
}

func (r *imageReply) toRecipe() *recipe.ScrapedRecipe {
	groups := recipe.NewGroupMap()
	for _, item := range r.Ingredients {
		groups.Add(item.ingredient())
	}

	return &recipe.ScrapedRecipe{
		Title:          strings.TrimSpace(r.Title),
		Preamble:       r.Preamble.String(),
		Instructions:   r.Instructions.instructions(),
		RestText:       r.RestText.String(),
		Language:       strings.TrimSpace(r.Language),
		TotalTime:      r.TotalTime.intPtr(),
		YieldsType:     strings.TrimSpace(r.YieldsType),
		YieldsNumber:   r.YieldsNumber.intPtr(),
		OriginalAuthor: strings.TrimSpace(r.OriginalAuthor),
		Ingredients:    groups,
	}
}

func (i replyIngredient) ingredient() recipe.Ingredient {
	name := strings.TrimSpace(i.NameInRecipe)
	base := strings.TrimSpace(i.BaseIngredientName)
	if name == "" {
		name = base
	}
	if base == "" {
		base = name
	}

	amount := i.BaseAmount.value
	code := unit.Canonicalize(i.Unit, amount > 0)

	raw := make([]string, 0, 3)
	if amount != 0 {
		raw = append(raw, strconv.FormatFloat(amount, 'f', -1, 64))
	}
	if u := strings.TrimSpace(i.Unit); u != "" {
		raw = append(raw, u)
	}
	raw = append(raw, name)

	return recipe.Ingredient{
		RawText:            strings.Join(raw, " "),
		NameInRecipe:       name,
		BaseIngredientName: base,
		Amount:             amount,
		Unit:               code,
		IsOptional:         i.IsOptional,
		GroupName:          strings.TrimSpace(i.GroupName),
	}
}

// textReply is the category object the text prompt asks for.
type textReply struct {
	Title        string     `json:"title"`
	Preamble     flexText   `json:"preamble"`
	Content      flexText   `json:"content"`
	Instructions flexText   `json:"instructions"`
	Yield        flexYields `json:"yield"`
	Yields       flexYields `json:"yields"`
	Ingredients  lineGroups `json:"ingredients"`
}

func (r *textReply) toRecipe() *recipe.ScrapedRecipe {
	groups := recipe.NewGroupMap()
	for _, g := range r.Ingredients {
		groups.Append(g.name, ingredient.ParseLines(g.lines, g.name)...)
	}

	out := &recipe.ScrapedRecipe{
		Title:        strings.TrimSpace(r.Title),
		Preamble:     r.Preamble.String(),
		Instructions: r.Instructions.instructions(),
		RestText:     r.Content.String(),
		Ingredients:  groups,
	}

	y := r.Yields
	if !y.ok {
		y = r.Yield
	}
	if y.ok {
		out.YieldsNumber = recipe.IntPtr(y.number)
		out.YieldsType = y.kind
	}
	return out
}

// flexYields is "4 servings" or a bare number.
type flexYields struct {
	number int
	kind   string
	ok     bool
}

func (y *flexYields) UnmarshalJSON(data []byte) error {
	var n flexNumber
	if err := n.UnmarshalJSON(data); err == nil && n.set {
		y.number, y.ok = int(math.Round(n.value)), true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	y.number, y.kind, y.ok = recipe.YieldsFromText(s)
	return nil
}

type lineGroup struct {
	name  string
	lines []string
}

// lineGroups is an object of group name to lines, keeping the key order of the document.
// A bare list or string is read as the ungrouped bucket.
type lineGroups []lineGroup

func (g *lineGroups) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		return nil
	}

	if data[0] != '{' {
		var lines flexText
		if err := json.Unmarshal(data, &lines); err != nil {
			return err
		}
		*g = lineGroups{{lines: lines.lines()}}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)

		var lines flexText
		if err := dec.Decode(&lines); err != nil {
			return fmt.Errorf("ingredient group %q: %w", name, err)
		}
		*g = append(*g, lineGroup{name: strings.TrimSpace(name), lines: lines.lines()})
	}
	_, err := dec.Token()
	return err
}
