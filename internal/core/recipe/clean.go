package recipe

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"recipe-ingest/internal/core/unit"
	"recipe-ingest/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	maxTitleLen       = 200
	maxYieldsTypeLen  = 32
	maxOtherSourceLen = 256
	maxNameLen        = 128
	maxGroupNameLen   = 128
)

// languageAliases covers codes that name a supported language under another tag.
var languageAliases = map[string]Language{
	"nb": Norwegian,
	"nn": Norwegian,
}

// CleanOptions tunes the repair policy of Clean.
type CleanOptions struct {
	// StrictLanguage rejects a language that cannot be repaired instead of clearing it.
	StrictLanguage bool
}

// Clean repairs what it can in place and returns a *common.ValidationError listing every
// remaining problem. It is called once by the consumer of an extraction result.
func (r *ScrapedRecipe) Clean(opts CleanOptions) error {
	ve := common.NewValidationError()

	r.Title = strings.TrimSpace(r.Title)
	switch {
	case r.Title == "":
		ve.Add("title", "missing required field.")
	case utf8.RuneCountInString(r.Title) > maxTitleLen:
		ve.Add("title", fmt.Sprintf("must be at most %d characters", maxTitleLen))
	}

	r.cleanLanguage(opts, ve)

	if r.TotalTime != nil && *r.TotalTime < 0 {
		ve.Add("total_time", "must not be negative")
	}
	if r.YieldsNumber != nil && *r.YieldsNumber < 0 {
		ve.Add("yields_number", "must not be negative")
	}
	if utf8.RuneCountInString(r.YieldsType) > maxYieldsTypeLen {
		ve.Add("yields_type", fmt.Sprintf("must be at most %d characters", maxYieldsTypeLen))
	}
	if utf8.RuneCountInString(r.OtherSource) > maxOtherSourceLen {
		ve.Add("other_source", fmt.Sprintf("must be at most %d characters", maxOtherSourceLen))
	}

	r.Ingredients.Each(func(group string, i int, ing Ingredient) bool {
		for field, msg := range ing.problems() {
			ve.Add(fmt.Sprintf("ingredients[%s][%d].%s", group, i, field), msg)
		}
		return true
	})

	return ve.ErrOrNil()
}

func (r *ScrapedRecipe) cleanLanguage(opts CleanOptions, ve *common.ValidationError) {
	if r.Language == "" {
		return
	}
	if code, ok := repairLanguage(r.Language); ok {
		r.Language = code
		return
	}
	if opts.StrictLanguage {
		ve.Add("language", fmt.Sprintf("unsupported language %q", r.Language))
		return
	}
	common.LogWarn("Dropping unsupported recipe language", zap.String("language", r.Language))
	r.Language = ""
}

// repairLanguage tries the value as given, then its first "-" segment ("en-US" -> "en").
func repairLanguage(value string) (string, bool) {
	candidate := strings.ToLower(strings.TrimSpace(value))
	for attempt := 0; attempt < 2; attempt++ {
		if SupportedLanguage(candidate) {
			return candidate, true
		}
		if alias, ok := languageAliases[candidate]; ok {
			return string(alias), true
		}
		head, _, found := strings.Cut(candidate, "-")
		if !found {
			break
		}
		candidate = head
	}
	return "", false
}

// problems returns field -> message for every invalid attribute of the ingredient.
func (ing Ingredient) problems() map[string]string {
	out := make(map[string]string)
	if math.IsNaN(ing.Amount) || math.IsInf(ing.Amount, 0) {
		out["base_amount"] = "must be a finite number"
	} else if ing.Amount < 0 {
		out["base_amount"] = "must not be negative"
	}
	if !unit.Valid(ing.Unit) {
		out["unit"] = fmt.Sprintf("unknown unit %q", ing.Unit)
	}
	switch n := utf8.RuneCountInString(ing.NameInRecipe); {
	case strings.TrimSpace(ing.NameInRecipe) == "":
		out["name_in_recipe"] = "missing required field."
	case n > maxNameLen:
		out["name_in_recipe"] = fmt.Sprintf("must be at most %d characters", maxNameLen)
	}
	if utf8.RuneCountInString(ing.GroupName) > maxGroupNameLen {
		out["group_name"] = fmt.Sprintf("must be at most %d characters", maxGroupNameLen)
	}
	return out
}
