// Package ingredient turns free-text ingredient lines into amount, unit and name.
//
// Only a leading run of ASCII digits is read as the amount. Fractions ("1/2") and ranges ("2-3")
// are not understood: the digits before the '/' or '-' become the amount and the rest stays in the
// name. Callers with richer structured data should build recipe.Ingredient values themselves.
package ingredient

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"recipe-ingest/internal/core/recipe"
	"recipe-ingest/internal/core/unit"
)

var optionalMarker = regexp.MustCompile(`(?i)\(\s*(optional|valgfri|valgfritt)\s*\)`)

// Parse reads line as "<amount> <unit> <name>". It never fails; lines it cannot make sense of come
// back with amount 0, a blank unit and the text as the name.
func Parse(line, group string) recipe.Ingredient {
	ing := recipe.Ingredient{
		RawText:      line,
		NameInRecipe: line,
		GroupName:    group,
		Unit:         unit.Blank,
		IsOptional:   optionalMarker.MatchString(line),
	}

	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 {
		// a digit run always parses; overflow saturates to +Inf which Clean rejects
		amount, _ := strconv.ParseFloat(line[:i], 64)
		ing.Amount = amount
	}

	rest := strings.TrimSpace(line[i:])
	if ing.Amount <= 0 {
		ing.Amount = 0
		ing.BaseIngredientName = rest
		return ing
	}

	token, after := splitFirstField(rest)
	if code, known := unit.Lookup(token); known {
		ing.Unit = code
		ing.BaseIngredientName = after
		return ing
	}

	ing.Unit = unit.Canonicalize(token, true)
	ing.BaseIngredientName = rest
	return ing
}

// ParseLines parses every non-blank line into the same group.
func ParseLines(lines []string, group string) []recipe.Ingredient {
	out := make([]recipe.Ingredient, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, Parse(strings.TrimSpace(line), group))
	}
	return out
}

// splitFirstField returns the first whitespace-separated field of s and the trimmed text after it.
func splitFirstField(s string) (string, string) {
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx:])
}
