package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"testing"

	"pokeapp/internal/pokeapi"
)

type fakeClient struct {
	mu sync.Mutex

	count     int
	summaries []pokeapi.Summary
	pokemon   map[string]*pokeapi.Pokemon
	species   map[string]*pokeapi.Species
	types     []pokeapi.NamedResource

	detailErr  map[string]error
	speciesErr error
	listErr    error

	lastLimit, lastOffset int
	detailCalls           int
}

func (f *fakeClient) ListSummaries(_ context.Context, limit, offset int) (*pokeapi.SummaryList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit, f.lastOffset = limit, offset
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &pokeapi.SummaryList{Count: f.count, Results: f.summaries}, nil
}

func (f *fakeClient) GetPokemon(_ context.Context, name string) (*pokeapi.Pokemon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if err := f.detailErr[name]; err != nil {
		return nil, err
	}
	p, ok := f.pokemon[name]
	if !ok {
		return nil, &pokeapi.UpstreamError{StatusCode: http.StatusNotFound, URL: "/pokemon/" + name + "/"}
	}
	return p, nil
}

func (f *fakeClient) GetSpecies(_ context.Context, name string) (*pokeapi.Species, error) {
	if f.speciesErr != nil {
		return nil, f.speciesErr
	}
	s, ok := f.species[name]
	if !ok {
		return nil, &pokeapi.UpstreamError{StatusCode: http.StatusNotFound}
	}
	return s, nil
}

func (f *fakeClient) ListTypes(context.Context) ([]pokeapi.NamedResource, error) {
	return f.types, nil
}

func mon(name string, types ...string) *pokeapi.Pokemon {
	p := &pokeapi.Pokemon{Name: name}
	for i, t := range types {
		p.Types = append(p.Types, pokeapi.TypeSlot{Slot: i + 1, Type: pokeapi.NamedResource{Name: t}})
	}
	return p
}

// firstPageFixture is page 1 of a 1302-entry catalog: pikachu plus 19 others.
func firstPageFixture() *fakeClient {
	roster := []*pokeapi.Pokemon{
		mon("bulbasaur", "grass", "poison"), mon("ivysaur", "grass", "poison"),
		mon("venusaur", "grass", "poison"), mon("charmander", "fire"),
		mon("charmeleon", "fire"), mon("charizard", "fire", "flying"),
		mon("squirtle", "water"), mon("wartortle", "water"),
		mon("blastoise", "water"), mon("caterpie", "bug"),
		mon("metapod", "bug"), mon("butterfree", "bug", "flying"),
		mon("weedle", "bug", "poison"), mon("kakuna", "bug", "poison"),
		mon("beedrill", "bug", "poison"), mon("pidgey", "normal", "flying"),
		mon("pidgeotto", "normal", "flying"), mon("pikachu", "electric"),
		mon("rattata", "normal"), mon("voltorb", "electric"),
	}

	f := &fakeClient{
		count:   1302,
		pokemon: make(map[string]*pokeapi.Pokemon),
		types: []pokeapi.NamedResource{
			{Name: "electric", URL: "https://pokeapi.co/api/v2/type/13/"},
			{Name: "fire", URL: "https://pokeapi.co/api/v2/type/10/"},
		},
	}
	for _, p := range roster {
		f.summaries = append(f.summaries, pokeapi.Summary{Name: p.Name, URL: "https://pokeapi.co/api/v2/pokemon/" + p.Name + "/"})
		f.pokemon[p.Name] = p
	}
	return f
}

func names(items []*pokeapi.Pokemon) []string {
	out := make([]string, 0, len(items))
	for _, p := range items {
		out = append(out, p.Name)
	}
	return out
}

func TestListPageFilteredKeepsUnfilteredTotalPages(t *testing.T) {
	f := firstPageFixture()
	svc := NewService(f)

	page, err := svc.ListPage(context.Background(), Query{
		Filter:     Filter{Name: "pika", Category: "electric"},
		PageNumber: 1,
		PageSize:   20,
	})
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}

	if got := names(page.Items); len(got) != 1 || got[0] != "pikachu" {
		t.Fatalf("expected only pikachu, got %v", got)
	}
	if page.TotalPages != 66 {
		t.Fatalf("expected 66 pages from 1302/20, got %d", page.TotalPages)
	}
	if page.TotalCount != 1302 {
		t.Fatalf("expected total count 1302, got %d", page.TotalCount)
	}
	if page.NameFilter != "pika" || page.CategoryFilter != "electric" {
		t.Fatalf("applied filters not echoed: %+v", page)
	}
	if len(page.Categories) != 2 {
		t.Fatalf("expected category list, got %v", page.Categories)
	}
	if f.lastLimit != 20 || f.lastOffset != 0 {
		t.Fatalf("unexpected limit/offset %d/%d", f.lastLimit, f.lastOffset)
	}
}

func TestListPageOffsetAndDefaults(t *testing.T) {
	f := firstPageFixture()
	svc := NewService(f)

	if _, err := svc.ListPage(context.Background(), Query{PageNumber: 4, PageSize: 25}); err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if f.lastLimit != 25 || f.lastOffset != 75 {
		t.Fatalf("expected limit 25 offset 75, got %d/%d", f.lastLimit, f.lastOffset)
	}

	page, err := svc.ListPage(context.Background(), Query{})
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if page.PageNumber != 1 || page.PageSize != 20 {
		t.Fatalf("expected defaults 1/20, got %d/%d", page.PageNumber, page.PageSize)
	}
	if f.lastOffset != 0 {
		t.Fatalf("expected offset 0, got %d", f.lastOffset)
	}
}

func TestListPageBoundsPaging(t *testing.T) {
	f := firstPageFixture()
	svc := NewService(f)

	page, err := svc.ListPage(context.Background(), Query{PageNumber: math.MaxInt64 / 10, PageSize: 20})
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if f.lastOffset < 0 || f.lastOffset > maxOffset {
		t.Fatalf("offset %d out of range", f.lastOffset)
	}
	if page.PageNumber != maxOffset/20+1 {
		t.Fatalf("expected clamped page number, got %d", page.PageNumber)
	}

	page, err = svc.ListPage(context.Background(), Query{PageNumber: 1, PageSize: 5000})
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if page.PageSize != MaxPageSize || f.lastLimit != MaxPageSize {
		t.Fatalf("expected page size capped at %d, got %d (limit %d)", MaxPageSize, page.PageSize, f.lastLimit)
	}
}

func TestListPagePreservesSummaryOrder(t *testing.T) {
	f := firstPageFixture()
	svc := NewService(f, WithDetailConcurrency(16))

	page, err := svc.ListPage(context.Background(), Query{PageNumber: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if len(page.Items) != len(f.summaries) {
		t.Fatalf("expected %d items, got %d", len(f.summaries), len(page.Items))
	}
	for i, s := range f.summaries {
		if page.Items[i].Name != s.Name {
			t.Fatalf("item %d: expected %s, got %s", i, s.Name, page.Items[i].Name)
		}
	}
}

func TestListPageCategoryAllIsNoop(t *testing.T) {
	for _, category := range []string{"", "all"} {
		svc := NewService(firstPageFixture())

		page, err := svc.ListPage(context.Background(), Query{
			Filter:     Filter{Category: category},
			PageNumber: 1,
			PageSize:   20,
		})
		if err != nil {
			t.Fatalf("ListPage(%q): %v", category, err)
		}
		if len(page.Items) != 20 {
			t.Fatalf("category %q should not filter, got %d items", category, len(page.Items))
		}
	}
}

func TestListPageDetailFailureAbortsPage(t *testing.T) {
	f := firstPageFixture()
	fifth := f.summaries[4].Name
	f.detailErr = map[string]error{
		fifth: &pokeapi.UpstreamError{StatusCode: http.StatusInternalServerError},
	}

	for _, n := range []int{1, 8} {
		svc := NewService(f, WithDetailConcurrency(n))

		page, err := svc.ListPage(context.Background(), Query{PageNumber: 1, PageSize: 20})
		if err == nil {
			t.Fatalf("concurrency %d: expected failure, got %d items", n, len(page.Items))
		}
		if page != nil {
			t.Fatalf("concurrency %d: expected no partial page", n)
		}
		var upErr *pokeapi.UpstreamError
		if !errors.As(err, &upErr) {
			t.Fatalf("concurrency %d: expected UpstreamError in chain, got %v", n, err)
		}
	}
}

func TestListPageSkipsEmptyResults(t *testing.T) {
	f := firstPageFixture()
	f.summaries = append(f.summaries, pokeapi.Summary{Name: ""})
	f.detailErr = map[string]error{
		"rattata": fmt.Errorf("pokemon %q: %w", "rattata", pokeapi.ErrEmptyResult),
	}
	svc := NewService(f)

	page, err := svc.ListPage(context.Background(), Query{PageNumber: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if len(page.Items) != 19 {
		t.Fatalf("expected 19 items, got %d", len(page.Items))
	}
	if f.detailCalls != 20 {
		t.Fatalf("unnamed summaries must not be fetched, got %d calls", f.detailCalls)
	}
}

func TestListPageListFailure(t *testing.T) {
	f := firstPageFixture()
	f.listErr = &pokeapi.DecodeError{URL: "/pokemon", Err: errors.New("bad json")}

	_, err := NewService(f).ListPage(context.Background(), Query{PageNumber: 1, PageSize: 20})
	var decErr *pokeapi.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestExportAll(t *testing.T) {
	f := firstPageFixture()
	svc := NewService(f)

	rows, err := svc.ExportAll(context.Background(), Filter{Category: "FLYING"})
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if f.lastLimit != 100000 || f.lastOffset != 0 {
		t.Fatalf("expected unbounded page, got limit %d offset %d", f.lastLimit, f.lastOffset)
	}

	want := []ExportRow{
		{Name: "charizard", Types: "fire, flying"},
		{Name: "butterfree", Types: "bug, flying"},
		{Name: "pidgey", Types: "normal, flying"},
		{Name: "pidgeotto", Types: "normal, flying"},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %v", len(want), rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("row %d: expected %+v, got %+v", i, want[i], rows[i])
		}
	}
}

func TestDetailView(t *testing.T) {
	f := firstPageFixture()
	f.species = map[string]*pokeapi.Species{
		"pikachu": {ID: 25, Name: "pikachu"},
	}
	svc := NewService(f)
	ctx := context.Background()

	view, err := svc.DetailView(ctx, "pikachu")
	if err != nil {
		t.Fatalf("DetailView: %v", err)
	}
	if view.Pokemon.Name != "pikachu" || view.Species == nil || view.Species.ID != 25 {
		t.Fatalf("unexpected view: %+v", view)
	}

	view, err = svc.DetailView(ctx, "voltorb")
	if err != nil {
		t.Fatalf("missing species must not be fatal: %v", err)
	}
	if view.Species != nil {
		t.Fatalf("expected nil species, got %+v", view.Species)
	}
}

func TestDetailViewNotFound(t *testing.T) {
	svc := NewService(firstPageFixture())

	_, err := svc.DetailView(context.Background(), "missing-creature")
	if !errors.Is(err, pokeapi.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDetailViewUpstreamErrorIsNotNotFound(t *testing.T) {
	f := firstPageFixture()
	f.detailErr = map[string]error{
		"pikachu": &pokeapi.UpstreamError{StatusCode: http.StatusBadGateway},
	}

	_, err := NewService(f).DetailView(context.Background(), "pikachu")
	if err == nil || errors.Is(err, pokeapi.ErrNotFound) {
		t.Fatalf("expected generic upstream error, got %v", err)
	}
}

func TestDetailViewSpeciesUpstreamFailure(t *testing.T) {
	f := firstPageFixture()
	f.speciesErr = &pokeapi.UpstreamError{StatusCode: http.StatusServiceUnavailable}

	if _, err := NewService(f).DetailView(context.Background(), "pikachu"); err == nil {
		t.Fatalf("expected species upstream failure to fail the view")
	}
}
