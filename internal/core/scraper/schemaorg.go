package scraper

import (
	"fmt"
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Helpers for walking schema.org JSON-LD as decoded by encoding/json.

var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ldNodes flattens JSON-LD blocks: top-level arrays and @graph members become separate nodes.
func ldNodes(blocks []interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	var walk func(v interface{})
	walk = func(v interface{}) {
		switch t := v.(type) {
		case []interface{}:
			for _, item := range t {
				walk(item)
			}
		case map[string]interface{}:
			out = append(out, t)
			if graph, ok := t["@graph"]; ok {
				walk(graph)
			}
		}
	}
	for _, b := range blocks {
		walk(b)
	}
	return out
}

// ldHasType reports whether node's @type is, or contains, typ.
func ldHasType(node map[string]interface{}, typ string) bool {
	switch t := node["@type"].(type) {
	case string:
		return strings.EqualFold(t, typ)
	case []interface{}:
		for _, v := range t {
			if s, ok := v.(string); ok && strings.EqualFold(s, typ) {
				return true
			}
		}
	}
	return false
}

// ldRecipe returns the first Recipe node, or nil.
func ldRecipe(blocks []interface{}) map[string]interface{} {
	for _, n := range ldNodes(blocks) {
		if ldHasType(n, "Recipe") {
			return n
		}
	}
	return nil
}

// ldText renders scalar values as text with HTML entities decoded.
func ldText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(html.UnescapeString(t))
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]interface{}:
		if val, ok := t["@value"]; ok {
			return ldText(val)
		}
	case []interface{}:
		if len(t) > 0 {
			return ldText(t[0])
		}
	}
	return ""
}

// ldName reads names from a string, a Person/Organization object or a list of either.
func ldName(v interface{}) string {
	switch t := v.(type) {
	case string:
		return ldText(t)
	case map[string]interface{}:
		return ldText(t["name"])
	case []interface{}:
		names := make([]string, 0, len(t))
		for _, item := range t {
			if n := ldName(item); n != "" {
				names = append(names, n)
			}
		}
		return strings.Join(names, ", ")
	}
	return ""
}

// ldURL reads a URL from a string, an ImageObject/VideoObject or a list (first entry wins).
func ldURL(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]interface{}:
		for _, key := range []string{"url", "contentUrl", "embedUrl", "@id"} {
			if s := ldURL(t[key]); s != "" {
				return s
			}
		}
	case []interface{}:
		for _, item := range t {
			if s := ldURL(item); s != "" {
				return s
			}
		}
	}
	return ""
}

// ldStrings reads a string list, skipping non-string members.
func ldStrings(v interface{}) []string {
	switch t := v.(type) {
	case string:
		if s := ldText(t); s != "" {
			return []string{s}
		}
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := ldText(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ldInstructions flattens recipeInstructions: a text block, a list of strings, HowToStep objects
// or HowToSection objects holding steps.
func ldInstructions(v interface{}) []string {
	var out []string
	var walk func(v interface{})
	walk = func(v interface{}) {
		switch t := v.(type) {
		case string:
			for _, line := range strings.Split(html.UnescapeString(t), "\n") {
				if line = strings.TrimSpace(line); line != "" {
					out = append(out, line)
				}
			}
		case []interface{}:
			for _, item := range t {
				walk(item)
			}
		case map[string]interface{}:
			if items, ok := t["itemListElement"]; ok {
				walk(items)
				return
			}
			if s := ldText(t["text"]); s != "" {
				out = append(out, s)
			} else if s := ldText(t["name"]); s != "" {
				out = append(out, s)
			}
		}
	}
	walk(v)
	return out
}

// parseISODuration converts an ISO-8601 duration such as "PT1H30M" into whole minutes.
func parseISODuration(s string) (int, error) {
	m := isoDurationPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", s)
	}
	weights := []float64{24 * 60, 60, 1, 1.0 / 60}
	total, found := 0.0, false
	for i, w := range weights {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0, err
		}
		total += n * w
		found = true
	}
	if !found {
		return 0, fmt.Errorf("empty ISO-8601 duration %q", s)
	}
	return int(math.Round(total)), nil
}

// ldMinutes reads a duration given either as ISO-8601 text or as a bare number of minutes.
func ldMinutes(v interface{}) (int, error) {
	switch t := v.(type) {
	case float64:
		return int(math.Round(t)), nil
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n, nil
		}
		return parseISODuration(t)
	case []interface{}:
		if len(t) > 0 {
			return ldMinutes(t[0])
		}
	}
	return 0, fmt.Errorf("no duration")
}
