package views

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"pokeapp/internal/catalog"
	"pokeapp/internal/pokeapi"
)

const (
	htmxSrc  = "https://unpkg.com/htmx.org@2.0.4"
	language = "en"
)

// Notice is a one-line status shown above the list.
type Notice struct {
	Message string
	IsError bool
}

func (n *Notice) visible() bool {
	return n != nil && n.Message != ""
}

// PageURL links to pageNumber of the list with page's filters kept.
func PageURL(page *catalog.Page, pageNumber int) string {
	q := url.Values{}
	if page.NameFilter != "" {
		q.Set("nameFilter", page.NameFilter)
	}
	if page.CategoryFilter != "" {
		q.Set("categoryFilter", page.CategoryFilter)
	}
	q.Set("pageNumber", strconv.Itoa(pageNumber))
	q.Set("pageSize", strconv.Itoa(page.PageSize))
	return "/pokemon?" + q.Encode()
}

func detailURL(name string) templ.SafeURL {
	return templ.URL("/pokemon/" + url.PathEscape(name))
}

func allSelected(page *catalog.Page) bool {
	return page.CategoryFilter == "" || page.CategoryFilter == catalog.AllCategories
}

func categorySelected(page *catalog.Page, name string) bool {
	return strings.EqualFold(name, page.CategoryFilter)
}

func pagerLabel(page *catalog.Page) string {
	return fmt.Sprintf("Page %d of %d", page.PageNumber, page.TotalPages)
}

func typeList(p *pokeapi.Pokemon) string {
	return strings.Join(p.TypeNames(), ", ")
}

func heading(p *pokeapi.Pokemon) string {
	return fmt.Sprintf("#%d %s", p.ID, titleCase(p.Name))
}

// PokeAPI reports height in decimetres and weight in hectograms.
func meters(dm int) string {
	return fmt.Sprintf("%.1f m", float64(dm)/10)
}

func kilograms(hg int) string {
	return fmt.Sprintf("%.1f kg", float64(hg)/10)
}

func speciesStatus(s *pokeapi.Species) string {
	switch {
	case s.IsLegendary:
		return "Legendary"
	case s.IsMythical:
		return "Mythical"
	default:
		return ""
	}
}

func habitatName(s *pokeapi.Species) string {
	if s.Habitat == nil {
		return ""
	}
	return s.Habitat.Name
}

// titleCase upper-cases the first letter of a PokeAPI slug.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
