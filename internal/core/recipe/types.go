// Package recipe holds the normalized recipe record shared by the scrape and AI extraction paths,
// and the validation that runs on it before it leaves the core.
package recipe

import "recipe-ingest/internal/core/unit"

// Language is an ISO 639-1 code from the supported set.
type Language string

const (
	Norwegian Language = "no"
	English   Language = "en"
	German    Language = "de"
	French    Language = "fr"
	Italian   Language = "it"
)

// Languages is the supported language set.
var Languages = []Language{Norwegian, English, German, French, Italian}

// SupportedLanguage reports whether code is in Languages.
func SupportedLanguage(code string) bool {
	for _, l := range Languages {
		if string(l) == code {
			return true
		}
	}
	return false
}

// Ingredient is one parsed ingredient line. It is built once and not modified afterwards.
type Ingredient struct {
	RawText            string    `json:"raw_text"`
	NameInRecipe       string    `json:"name_in_recipe"`
	BaseIngredientName string    `json:"base_ingredient_name"`
	Amount             float64   `json:"base_amount"`
	Unit               unit.Code `json:"unit"`
	IsOptional         bool      `json:"is_optional"`
	GroupName          string    `json:"group_name"`
}

// ScrapedRecipe is the normalized output of every extraction path.
// Empty strings stand for absent text fields.
type ScrapedRecipe struct {
	Title          string    `json:"title"`
	Preamble       string    `json:"preamble"`
	Instructions   string    `json:"instructions"`
	RestText       string    `json:"rest_text"`
	Language       string    `json:"language"`
	TotalTime      *int      `json:"total_time"`
	YieldsType     string    `json:"yields_type"`
	YieldsNumber   *int      `json:"yields_number"`
	OriginalAuthor string    `json:"original_author"`
	VideoURL       string    `json:"video_url"`
	OriginURL      string    `json:"origin_url"`
	OtherSource    string    `json:"other_source"`
	HeroImageLink  string    `json:"hero_image_link"`
	Ingredients    *GroupMap `json:"ingredients"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
