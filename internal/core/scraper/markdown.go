package scraper

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

var excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

// Markdown converts sanitized HTML fragments into GitHub-flavored markdown.
type Markdown struct {
	converter *md.Converter
}

// NewMarkdown creates a converter.
func NewMarkdown() *Markdown {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Markdown{converter: converter}
}

// Convert renders fragment as markdown with runs of blank lines collapsed.
func (m *Markdown) Convert(fragment string) (string, error) {
	if strings.TrimSpace(fragment) == "" {
		return "", nil
	}
	out, err := m.converter.ConvertString(fragment)
	if err != nil {
		return "", err
	}
	out = excessiveLinesRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out), nil
}
