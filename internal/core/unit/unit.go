// Package unit maps the many ways recipes spell a measuring unit onto a closed set of codes.
package unit

import "strings"

// Code is a canonical unit identifier.
type Code string

const (
	Gram       Code = "g"
	Kilogram   Code = "kg"
	Ounce      Code = "oz"
	Pound      Code = "lb"
	Liter      Code = "l"
	Deciliter  Code = "dl"
	Centiliter Code = "cl"
	Milliliter Code = "ml"
	Cup        Code = "cup"
	Tablespoon Code = "tbsp"
	Teaspoon   Code = "tsp"
	Count      Code = "count"
	Slice      Code = "slice"
	Centimetre Code = "cm"
	Inch       Code = "inch"
	// Blank means no unit was given.
	Blank Code = ""
)

var all = []Code{
	Gram, Kilogram, Ounce, Pound,
	Liter, Deciliter, Centiliter, Milliliter, Cup, Tablespoon, Teaspoon,
	Count, Slice, Centimetre, Inch, Blank,
}

// synonyms is read-only after init.
var synonyms = map[string]Code{}

func init() {
	table := map[Code][]string{
		Gram:       {"gram", "grams", "gramm", "gr", "grs"},
		Kilogram:   {"kilo", "kilos", "kilogram", "kilograms", "kilogramm", "kgs"},
		Ounce:      {"ounce", "ounces", "unse", "unser"},
		Pound:      {"lbs", "pound", "pounds"},
		Liter:      {"liter", "liters", "litre", "litres", "ltr"},
		Deciliter:  {"desiliter", "deciliter", "deciliters", "decilitre", "decilitres"},
		Centiliter: {"centiliter", "centiliters", "centilitre", "centilitres", "sentiliter"},
		Milliliter: {"milliliter", "milliliters", "millilitre", "millilitres", "mls"},
		Cup:        {"cups", "kopp", "kopper"},
		Tablespoon: {"tbs", "tbl", "tbsps", "tablespoon", "tablespoons", "ss", "spiseskje", "spiseskjeer"},
		Teaspoon:   {"tsps", "teaspoon", "teaspoons", "ts", "teskje", "teskjeer"},
		Count:      {"stk", "stykk", "stykker", "pcs", "pc", "piece", "pieces"},
		Slice:      {"slices", "skive", "skiver"},
		Centimetre: {"centimeter", "centimeters", "centimetre", "centimetres"},
		Inch:       {"inches", "tomme", "tommer"},
	}
	for code, words := range table {
		for _, w := range words {
			synonyms[w] = code
		}
	}
	// every non-blank code is its own synonym
	for _, code := range all {
		if code != Blank {
			synonyms[string(code)] = code
		}
	}
}

func normalize(token string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(token)), ".")
}

// Lookup returns the code for a known unit spelling.
func Lookup(token string) (Code, bool) {
	code, ok := synonyms[normalize(token)]
	return code, ok
}

// Canonicalize resolves a unit token found next to an amount. Unknown tokens degrade to Count
// when an amount is present and to Blank when it is not; it never fails.
func Canonicalize(token string, hasAmount bool) Code {
	if !hasAmount {
		return Blank
	}
	if code, ok := Lookup(token); ok {
		return code
	}
	return Count
}

// Valid reports whether c belongs to the canonical set.
func Valid(c Code) bool {
	for _, code := range all {
		if code == c {
			return true
		}
	}
	return false
}

// All returns every canonical code, Blank included.
func All() []Code {
	return append([]Code(nil), all...)
}

// Synonyms returns a copy of the spelling table.
func Synonyms() map[string]Code {
	out := make(map[string]Code, len(synonyms))
	for k, v := range synonyms {
		out[k] = v
	}
	return out
}
