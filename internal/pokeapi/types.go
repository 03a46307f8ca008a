package pokeapi

import (
	"context"
	"strings"
)

// NamedResource is PokeAPI's {name, url} reference. The type index returns
// a list of these and they double as category tags.
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Summary is one entry of the paginated pokemon list.
type Summary = NamedResource

type SummaryList struct {
	Count    int       `json:"count"`
	Next     *string   `json:"next"`
	Previous *string   `json:"previous"`
	Results  []Summary `json:"results"`
}

type TypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

type Sprites struct {
	FrontDefault string `json:"front_default"`
	FrontShiny   string `json:"front_shiny"`
}

// Pokemon is the detail record of /pokemon/{id}.
type Pokemon struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Height         int        `json:"height"`
	Weight         int        `json:"weight"`
	BaseExperience int        `json:"base_experience"`
	Types          []TypeSlot `json:"types"`
	Sprites        Sprites    `json:"sprites"`
}

// TypeNames returns the names of p's types in slot order as received.
func (p *Pokemon) TypeNames() []string {
	names := make([]string, 0, len(p.Types))
	for _, t := range p.Types {
		names = append(names, t.Type.Name)
	}
	return names
}

// HasType reports whether p has a type equal to name, ignoring case.
func (p *Pokemon) HasType(name string) bool {
	for _, t := range p.Types {
		if t.Type.Name != "" && strings.EqualFold(t.Type.Name, name) {
			return true
		}
	}
	return false
}

type Genus struct {
	Genus    string        `json:"genus"`
	Language NamedResource `json:"language"`
}

type FlavorText struct {
	FlavorText string        `json:"flavor_text"`
	Language   NamedResource `json:"language"`
	Version    NamedResource `json:"version"`
}

// Species is the subset of /pokemon-species/{id} the detail page uses.
type Species struct {
	ID                int            `json:"id"`
	Name              string         `json:"name"`
	BaseHappiness     *int           `json:"base_happiness"`
	CaptureRate       int            `json:"capture_rate"`
	IsLegendary       bool           `json:"is_legendary"`
	IsMythical        bool           `json:"is_mythical"`
	Color             NamedResource  `json:"color"`
	Habitat           *NamedResource `json:"habitat"`
	Generation        NamedResource  `json:"generation"`
	Genera            []Genus        `json:"genera"`
	FlavorTextEntries []FlavorText   `json:"flavor_text_entries"`
}

// GenusIn returns the genus for language (e.g. "en"), or "".
func (s *Species) GenusIn(language string) string {
	for _, g := range s.Genera {
		if g.Language.Name == language {
			return g.Genus
		}
	}
	return ""
}

// FlavorTextIn returns the first flavor text for language with PokeAPI's
// embedded line and form feeds collapsed to spaces.
func (s *Species) FlavorTextIn(language string) string {
	for _, f := range s.FlavorTextEntries {
		if f.Language.Name == language {
			return strings.Join(strings.Fields(f.FlavorText), " ")
		}
	}
	return ""
}

// Client is the PokeAPI surface the catalog depends on.
type Client interface {
	ListSummaries(ctx context.Context, limit, offset int) (*SummaryList, error)
	GetPokemon(ctx context.Context, nameOrID string) (*Pokemon, error)
	GetSpecies(ctx context.Context, nameOrID string) (*Species, error)
	ListTypes(ctx context.Context) ([]NamedResource, error)
}
