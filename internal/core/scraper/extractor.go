package scraper

import (
	"errors"

	"recipe-ingest/internal/core/recipe"
)

// ErrFieldNotFound is returned by Metadata methods when the page does not carry the field.
var ErrFieldNotFound = errors.New("field not found")

// Extractor reads the parts of a recipe page that need site knowledge. Calling a method more than
// once on the same instance returns the same value.
type Extractor interface {
	// IngredientGroups returns ingredients grouped by sub-recipe heading in page order.
	IngredientGroups() (*recipe.GroupMap, error)

	// Preamble returns the short introduction of the recipe.
	Preamble() (string, error)

	// MainContent returns tips and notes as a sanitized HTML fragment.
	MainContent() (string, error)
}

// Metadata reads the fields every recipe page exposes in some generic form.
type Metadata interface {
	Title() (string, error)
	Author() (string, error)
	Language() (string, error)
	TotalTime() (int, error)
	Image() (string, error)
	Instructions() ([]string, error)
	Yields() (int, string, error)
	Video() (string, error)
}

// Factory builds an Extractor for one loaded document.
type Factory func(doc *Document) (Extractor, error)
