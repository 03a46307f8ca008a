package pokeapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"pokeapp/internal/cache"
)

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("cache down")
}

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("cache down")
}

func newTestClient(t *testing.T, srv *httptest.Server, c cache.Cache, cfg Config) Client {
	t.Helper()

	cfg.BaseURL = srv.URL
	if c == nil {
		mc := cache.NewMemoryCache(time.Minute)
		t.Cleanup(func() { mc.Close() })
		c = mc
	}

	client, err := NewClient(cfg, c, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { closeClient(client) })
	return client
}

func closeClient(c Client) {
	if closer, ok := c.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

func TestNewClientRequiresCache(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{}, nil, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error without species cache")
	}
}

func TestListSummaries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pokemon" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "20" {
			t.Errorf("unexpected limit: %s", got)
		}
		if got := r.URL.Query().Get("offset"); got != "40" {
			t.Errorf("unexpected offset: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"count":1302,"next":null,"previous":null,"results":[
			{"name":"bulbasaur","url":"https://pokeapi.co/api/v2/pokemon/1/"},
			{"name":"ivysaur","url":"https://pokeapi.co/api/v2/pokemon/2/"}]}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil, Config{})

	list, err := client.ListSummaries(context.Background(), 20, 40)
	if err != nil {
		t.Fatalf("ListSummaries: %v", err)
	}
	if list.Count != 1302 {
		t.Fatalf("expected count 1302, got %d", list.Count)
	}
	if len(list.Results) != 2 || list.Results[1].Name != "ivysaur" {
		t.Fatalf("unexpected results: %#v", list.Results)
	}
}

func TestGetPokemon(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pokemon/charizard/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"id":6,"name":"charizard","types":[
			{"slot":1,"type":{"name":"fire","url":"u1"}},
			{"slot":2,"type":{"name":"flying","url":"u2"}}]}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil, Config{})

	p, err := client.GetPokemon(context.Background(), "charizard")
	if err != nil {
		t.Fatalf("GetPokemon: %v", err)
	}
	if got := strings.Join(p.TypeNames(), ","); got != "fire,flying" {
		t.Fatalf("unexpected types: %s", got)
	}
	if !p.HasType("FLYING") {
		t.Fatalf("expected case-insensitive type match")
	}
}

func TestGetPokemonErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pokemon/missingno/":
			http.Error(w, "Not Found", http.StatusNotFound)
		case "/pokemon/broken/":
			fmt.Fprint(w, `{"name": 42}`)
		case "/pokemon/nothing/":
			fmt.Fprint(w, `null`)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil, Config{})
	ctx := context.Background()

	_, err := client.GetPokemon(ctx, "missingno")
	var upErr *UpstreamError
	if !errors.As(err, &upErr) || upErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 UpstreamError, got %v", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("404 should match ErrNotFound")
	}

	_, err = client.GetPokemon(ctx, "broken")
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}

	_, err = client.GetPokemon(ctx, "nothing")
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}

	_, err = client.GetPokemon(ctx, "teapot")
	if !errors.As(err, &upErr) || upErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 UpstreamError, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("500 must not match ErrNotFound")
	}
}

func TestGetSpeciesCachesForTTL(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pokemon-species/pikachu/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		calls.Add(1)
		fmt.Fprint(w, `{"id":25,"name":"pikachu","capture_rate":190,
			"genera":[{"genus":"Mouse Pokémon","language":{"name":"en","url":""}}],
			"flavor_text_entries":[{"flavor_text":"When several of\nthese POKéMON\fgather","language":{"name":"en","url":""},"version":{"name":"red","url":""}}]}`)
	}))
	defer srv.Close()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mc := cache.NewMemoryCache(time.Hour, cache.WithClock(func() time.Time { return now }))
	defer mc.Close()

	client := newTestClient(t, srv, mc, Config{SpeciesTTL: 10 * time.Minute})
	ctx := context.Background()

	first, err := client.GetSpecies(ctx, "pikachu")
	if err != nil {
		t.Fatalf("GetSpecies: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls.Load())
	}
	if first.GenusIn("en") != "Mouse Pokémon" {
		t.Fatalf("unexpected genus: %q", first.GenusIn("en"))
	}
	if got := first.FlavorTextIn("en"); got != "When several of these POKéMON gather" {
		t.Fatalf("unexpected flavor text: %q", got)
	}

	now = now.Add(9 * time.Minute)
	second, err := client.GetSpecies(ctx, "pikachu")
	if err != nil {
		t.Fatalf("GetSpecies (cached): %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected no upstream call within TTL, got %d", calls.Load())
	}
	if second.ID != first.ID || second.CaptureRate != first.CaptureRate {
		t.Fatalf("cached species differs: %#v vs %#v", second, first)
	}

	now = now.Add(2 * time.Minute)
	if _, err := client.GetSpecies(ctx, "pikachu"); err != nil {
		t.Fatalf("GetSpecies (expired): %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected exactly one new upstream call after TTL, got %d", calls.Load())
	}
}

func TestGetSpeciesDoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/pokemon-species/empty/":
			fmt.Fprint(w, `{}`)
		default:
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	mc := cache.NewMemoryCache(time.Hour)
	defer mc.Close()

	client := newTestClient(t, srv, mc, Config{})
	ctx := context.Background()

	if _, err := client.GetSpecies(ctx, "pikachu"); err == nil {
		t.Fatalf("expected upstream error")
	}
	if _, err := client.GetSpecies(ctx, "empty"); !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	if mc.Len() != 0 {
		t.Fatalf("failed lookups must not be cached, len=%d", mc.Len())
	}

	if _, err := client.GetSpecies(ctx, "pikachu"); err == nil {
		t.Fatalf("expected upstream error on retry")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected every failed lookup to hit upstream, got %d calls", calls.Load())
	}
}

func TestGetSpeciesSurvivesCacheFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":1,"name":"bulbasaur"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, failingCache{}, Config{})

	s, err := client.GetSpecies(context.Background(), "bulbasaur")
	if err != nil {
		t.Fatalf("cache errors must not be fatal: %v", err)
	}
	if s.Name != "bulbasaur" {
		t.Fatalf("unexpected species: %#v", s)
	}
}

func TestListTypesSkipsMalformedEntries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count":5,"results":[
			{"name":"normal","url":"https://pokeapi.co/api/v2/type/1/"},
			{"name":"fighting"},
			{"url":"https://pokeapi.co/api/v2/type/3/"},
			null,
			42,
			{"name":"poison","url":"https://pokeapi.co/api/v2/type/4/"}]}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil, Config{})

	types, err := client.ListTypes(context.Background())
	if err != nil {
		t.Fatalf("ListTypes: %v", err)
	}
	if len(types) != 2 || types[0].Name != "normal" || types[1].Name != "poison" {
		t.Fatalf("unexpected types: %#v", types)
	}
}

func TestListTypesWellFormed(t *testing.T) {
	t.Parallel()

	names := []string{
		"normal", "fighting", "flying", "poison", "ground", "rock",
		"bug", "ghost", "steel", "fire", "water", "grass",
		"electric", "psychic", "ice", "dragon", "dark", "fairy",
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entries := make([]string, 0, len(names))
		for i, n := range names {
			entries = append(entries, fmt.Sprintf(`{"name":%q,"url":"https://pokeapi.co/api/v2/type/%d/"}`, n, i+1))
		}
		fmt.Fprintf(w, `{"count":%d,"results":[%s]}`, len(names), strings.Join(entries, ","))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil, Config{})

	types, err := client.ListTypes(context.Background())
	if err != nil {
		t.Fatalf("ListTypes: %v", err)
	}
	if len(types) != 18 {
		t.Fatalf("expected 18 types, got %d", len(types))
	}
}

func TestNoRetryByDefault(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil, Config{})

	_, err := client.ListSummaries(context.Background(), 20, 0)
	var upErr *UpstreamError
	if !errors.As(err, &upErr) || upErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 UpstreamError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestRetryOnTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"count":0,"results":[]}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil, Config{MaxRetries: 1, BaseBackoff: time.Millisecond})

	if _, err := client.ListSummaries(context.Background(), 20, 0); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestUpstreamTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := newTestClient(t, srv, nil, Config{UpstreamTimeout: 20 * time.Millisecond})

	_, err := client.GetPokemon(context.Background(), "slowpoke")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNamesNormalizedForPathAndCache(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/pokemon-species/pikachu/":
			fmt.Fprint(w, `{"id":25,"name":"pikachu"}`)
		case "/pokemon/pikachu/":
			fmt.Fprint(w, `{"id":25,"name":"pikachu"}`)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil, Config{})
	ctx := context.Background()

	if _, err := client.GetSpecies(ctx, " Pikachu "); err != nil {
		t.Fatalf("GetSpecies: %v", err)
	}
	if _, err := client.GetSpecies(ctx, "pikachu"); err != nil {
		t.Fatalf("GetSpecies (cached): %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one upstream call for both spellings, got %d", calls.Load())
	}

	if _, err := client.GetPokemon(ctx, "PIKACHU"); err != nil {
		t.Fatalf("GetPokemon: %v", err)
	}
}

func TestCancelledContextSkipsUpstream(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"id":1,"name":"bulbasaur"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil, Config{RequestsPerSecond: 1})

	if _, err := client.GetPokemon(context.Background(), "bulbasaur"); err != nil {
		t.Fatalf("GetPokemon: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// The limiter holds this call for about a second, well past the deadline.
	_, err := client.GetPokemon(ctx, "bulbasaur")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected no upstream call after the deadline, got %d", calls.Load())
	}
}
