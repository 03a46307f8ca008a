package catalog

import (
	"strings"

	"golang.org/x/text/cases"

	"pokeapp/internal/pokeapi"
)

// AllCategories is the selector value meaning "no category filter".
const AllCategories = "all"

// Filter narrows a detail list by name and category.
type Filter struct {
	Name     string
	Category string
}

func (f Filter) categoryActive() bool {
	c := strings.TrimSpace(f.Category)
	return c != "" && c != AllCategories
}

// Apply returns the entries of items that pass both filters, keeping order.
// Name is a case-insensitive substring match; Category a case-insensitive
// exact match against any of the creature's types.
func (f Filter) Apply(items []*pokeapi.Pokemon) []*pokeapi.Pokemon {
	name := strings.TrimSpace(f.Name)
	if name == "" && !f.categoryActive() {
		return items
	}

	fold := cases.Fold()
	needle := fold.String(name)
	category := strings.TrimSpace(f.Category)

	out := make([]*pokeapi.Pokemon, 0, len(items))
	for _, p := range items {
		if needle != "" && !strings.Contains(fold.String(p.Name), needle) {
			continue
		}
		if f.categoryActive() && !p.HasType(category) {
			continue
		}
		out = append(out, p)
	}
	return out
}
