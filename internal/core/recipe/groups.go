package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// GroupMap maps ingredient group names to their ingredients, remembering the order in which groups
// first appeared. The empty name is the ungrouped bucket.
type GroupMap struct {
	order  []string
	groups map[string][]Ingredient
}

// NewGroupMap returns an empty GroupMap.
func NewGroupMap() *GroupMap {
	return &GroupMap{groups: make(map[string][]Ingredient)}
}

// Add appends ing to the group named by its GroupName.
func (g *GroupMap) Add(ing Ingredient) {
	g.Append(ing.GroupName, ing)
}

// Append adds ingredients under name, creating the group on first use.
// Each ingredient's GroupName is set to name.
func (g *GroupMap) Append(name string, ings ...Ingredient) {
	if g.groups == nil {
		g.groups = make(map[string][]Ingredient)
	}
	if _, ok := g.groups[name]; !ok {
		g.order = append(g.order, name)
		g.groups[name] = nil
	}
	for _, ing := range ings {
		ing.GroupName = name
		g.groups[name] = append(g.groups[name], ing)
	}
}

// Names returns group names in first-seen order.
func (g *GroupMap) Names() []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.order...)
}

// Get returns a copy of the ingredients in group name.
func (g *GroupMap) Get(name string) []Ingredient {
	if g == nil {
		return nil
	}
	return append([]Ingredient(nil), g.groups[name]...)
}

// Len returns the number of groups.
func (g *GroupMap) Len() int {
	if g == nil {
		return 0
	}
	return len(g.order)
}

// Count returns the number of ingredients across all groups.
func (g *GroupMap) Count() int {
	if g == nil {
		return 0
	}
	n := 0
	for _, ings := range g.groups {
		n += len(ings)
	}
	return n
}

// Each calls fn for every ingredient in group order, stopping early when fn returns false.
func (g *GroupMap) Each(fn func(group string, index int, ing Ingredient) bool) {
	if g == nil {
		return
	}
	for _, name := range g.order {
		for i, ing := range g.groups[name] {
			if !fn(name, i, ing) {
				return
			}
		}
	}
}

// MarshalJSON encodes the map as a JSON object with keys in group order.
func (g *GroupMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range g.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		ings := g.groups[name]
		if ings == nil {
			ings = []Ingredient{}
		}
		val, err := json.Marshal(ings)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the document.
func (g *GroupMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("ingredient groups: expected object, got %v", tok)
	}

	*g = GroupMap{groups: make(map[string][]Ingredient)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("ingredient groups: expected key, got %v", tok)
		}
		var ings []Ingredient
		if err := dec.Decode(&ings); err != nil {
			return fmt.Errorf("ingredient group %q: %w", name, err)
		}
		g.Append(name, ings...)
	}
	_, err = dec.Token()
	return err
}
