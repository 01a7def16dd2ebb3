package common

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain", `{"title": "Pannekaker"}`, `{"title": "Pannekaker"}`},
		{"fenced", "```json\n{\"title\": \"x\"}\n```", `{"title": "x"}`},
		{"chatter around object", "Here you go:\n{\"a\": {\"b\": 1}}\nEnjoy!", `{"a": {"b": 1}}`},
		{"no object", "sorry, I cannot help", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSONObject(tt.content))
		})
	}
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name   string
		broken string
		check  func(t *testing.T, out map[string]interface{})
	}{
		{
			name:   "bare key and trailing commas",
			broken: `{title: "Soup", "ingredients": [1, 2,],}`,
			check: func(t *testing.T, out map[string]interface{}) {
				assert.Equal(t, "Soup", out["title"])
			},
		},
		{
			name:   "key-like text inside a value",
			broken: `{"title":"Soup","instructions":"Boil the stock, note: keep it at a simmer","ingredients":[],}`,
			check: func(t *testing.T, out map[string]interface{}) {
				assert.Equal(t, "Boil the stock, note: keep it at a simmer", out["instructions"])
			},
		},
		{
			name:   "comma before bracket inside a value",
			broken: `{"title":"Mix (a, b,) ]","tags":["x",],}`,
			check: func(t *testing.T, out map[string]interface{}) {
				assert.Equal(t, "Mix (a, b,) ]", out["title"])
				assert.Len(t, out["tags"], 1)
			},
		},
		{
			name:   "escaped quote inside a value",
			broken: `{title: "The \"best\", ok: yes", servings: 4,}`,
			check: func(t *testing.T, out map[string]interface{}) {
				assert.Equal(t, `The "best", ok: yes`, out["title"])
				assert.Equal(t, "4", fmt.Sprint(out["servings"]))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]interface{}
			require.Error(t, ParseJSON(tt.broken, &out))

			out = nil
			require.NoError(t, ParseJSON(RepairJSON(tt.broken), &out))
			tt.check(t, out)
		})
	}
}

func TestRepairJSONLeavesValidJSONAlone(t *testing.T) {
	valid := `{"title": "Soup, note: hot", "tags": ["a", "b"], "n": {"x": true}}`
	assert.Equal(t, valid, RepairJSON(valid))
}

func TestParseJSONRejectsTrailingData(t *testing.T) {
	var out map[string]interface{}
	assert.Error(t, ParseJSON(`{"a": 1} {"b": 2}`, &out))
	assert.NoError(t, ParseJSON(`{"a": 1}`, &out))
}
