package common

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var fencedObjectPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")

// ParseJSON decodes a JSON document held in a string. Numbers decode as json.Number and trailing
// data after the document is an error.
func ParseJSON(data string, v interface{}) error {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return err
	}

	for {
		t, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if t != nil {
			return fmt.Errorf("unexpected extra JSON data")
		}
	}
}

// ExtractJSONObject isolates the JSON object in a model reply. A fenced ```json block wins;
// otherwise the text from the first '{' to the last '}' is returned. Empty when there is no object.
func ExtractJSONObject(content string) string {
	if m := fencedObjectPattern.FindStringSubmatch(content); len(m) > 1 {
		return m[1]
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

// RepairJSON fixes the syntax slips models commonly make: trailing commas and unquoted keys.
// Only text outside string literals is rewritten.
func RepairJSON(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + 16)

	inString, escaped := false, false
	var prev byte // last non-space byte outside strings
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				prev = c
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
		case c == ',':
			if next := nextSignificant(raw, i+1); next == '}' || next == ']' {
				continue
			}
		case isIdentStart(c) && (prev == '{' || prev == ','):
			end := i + 1
			for end < len(raw) && isIdentPart(raw[end]) {
				end++
			}
			if nextSignificant(raw, end) == ':' {
				b.WriteByte('"')
				b.WriteString(raw[i:end])
				b.WriteByte('"')
				prev = '"'
				i = end - 1
				continue
			}
		}

		b.WriteByte(c)
		if !isJSONSpace(c) {
			prev = c
		}
	}
	return b.String()
}

// nextSignificant returns the first non-space byte at or after i, or 0 at the end of s.
func nextSignificant(s string, i int) byte {
	for ; i < len(s); i++ {
		if !isJSONSpace(s[i]) {
			return s[i]
		}
	}
	return 0
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
