package recipe

import (
	"regexp"
	"strconv"
	"strings"
)

var yieldsPattern = regexp.MustCompile(`^\D*?(\d+)(?:\s*[-–]\s*\d+)?\s*(.*)$`)

// YieldsFromText splits text like "4 servings" or "Makes 12 cookies" into number and type.
// ok is false when no number is present.
func YieldsFromText(text string) (number int, kind string, ok bool) {
	m := yieldsPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return n, strings.TrimSpace(m[2]), true
}
