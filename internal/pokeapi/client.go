package pokeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"pokeapp/internal/cache"
	"pokeapp/internal/metrics"
)

const maxErrorBody = 200

func (c *client) ListSummaries(ctx context.Context, limit, offset int) (*SummaryList, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	body, u, err := c.fetch(ctx, "pokemon_list", "/pokemon?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var list SummaryList
	if err := decode(u, body, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *client) GetPokemon(ctx context.Context, nameOrID string) (*Pokemon, error) {
	nameOrID = normalizeName(nameOrID)
	body, u, err := c.fetch(ctx, "pokemon", "/pokemon/"+url.PathEscape(nameOrID)+"/")
	if err != nil {
		return nil, err
	}

	var p *Pokemon
	if err := decode(u, body, &p); err != nil {
		return nil, err
	}
	if p == nil || p.Name == "" {
		return nil, fmt.Errorf("pokemon %q: %w", nameOrID, ErrEmptyResult)
	}
	return p, nil
}

// GetSpecies serves from the species cache when it can. On a miss it makes
// one upstream call and caches the raw body only if it decodes to a named
// species. Cache failures are logged and never returned.
func (c *client) GetSpecies(ctx context.Context, nameOrID string) (*Species, error) {
	nameOrID = normalizeName(nameOrID)
	key := cache.SpeciesKey(nameOrID)

	cached, hit, err := c.speciesCache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("species cache get failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		var s Species
		if err := json.Unmarshal(cached, &s); err == nil && s.Name != "" {
			return &s, nil
		}
		c.logger.Warn("discarding undecodable species cache entry", zap.String("key", key))
	}

	body, u, err := c.fetch(ctx, "pokemon_species", "/pokemon-species/"+url.PathEscape(nameOrID)+"/")
	if err != nil {
		return nil, err
	}

	var s *Species
	if err := decode(u, body, &s); err != nil {
		return nil, err
	}
	if s == nil || s.Name == "" {
		return nil, fmt.Errorf("species %q: %w", nameOrID, ErrEmptyResult)
	}

	if err := c.speciesCache.Set(ctx, key, body, c.cfg.SpeciesTTL); err != nil {
		c.logger.Warn("species cache set failed", zap.String("key", key), zap.Error(err))
	}
	return s, nil
}

// ListTypes decodes each index entry on its own; entries that are not
// objects or lack a name or url are skipped.
func (c *client) ListTypes(ctx context.Context) ([]NamedResource, error) {
	body, u, err := c.fetch(ctx, "type_list", "/type/")
	if err != nil {
		return nil, err
	}

	var index struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := decode(u, body, &index); err != nil {
		return nil, err
	}

	types := make([]NamedResource, 0, len(index.Results))
	skipped := 0
	for _, raw := range index.Results {
		var entry NamedResource
		if err := json.Unmarshal(raw, &entry); err != nil || entry.Name == "" || entry.URL == "" {
			skipped++
			continue
		}
		types = append(types, entry)
	}

	if skipped > 0 {
		c.logger.Debug("skipped malformed type entries", zap.Int("skipped", skipped))
	}
	return types, nil
}

// normalizeName matches PokeAPI's lower-case slugs so the upstream path and
// the species cache key agree.
func normalizeName(nameOrID string) string {
	return strings.ToLower(strings.TrimSpace(nameOrID))
}

// fetch GETs path under BaseURL and returns the body of a 2xx response.
func (c *client) fetch(parentCtx context.Context, endpoint, path string) ([]byte, string, error) {
	u := c.cfg.BaseURL + path

	if err := parentCtx.Err(); err != nil {
		return nil, u, err
	}
	c.limiter.Take()
	// Take cannot be interrupted; drop the call if the caller gave up meanwhile.
	if err := parentCtx.Err(); err != nil {
		return nil, u, err
	}

	ctx, cancel := context.WithTimeout(parentCtx, c.cfg.UpstreamTimeout)
	defer cancel()

	start := time.Now()
	doOnce := func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("pokeapi: build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		return c.httpClient.Do(req)
	}

	resp, err := c.doWithRetry(ctx, doOnce)
	if err != nil {
		metrics.ObserveUpstream(endpoint, 0, time.Since(start))
		c.logger.Error("pokeapi request failed",
			zap.String("url", u),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, u, fmt.Errorf("pokeapi: GET %s: %w", u, err)
	}
	defer resp.Body.Close()

	metrics.ObserveUpstream(endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*maxErrorBody))
		upErr := &UpstreamError{
			StatusCode: resp.StatusCode,
			URL:        u,
			Body:       truncate(string(raw), maxErrorBody),
		}
		if errors.Is(upErr, ErrNotFound) {
			c.logger.Debug("pokeapi not found", zap.String("url", u))
		} else {
			c.logger.Error("pokeapi upstream error",
				zap.String("url", u),
				zap.Int("status", resp.StatusCode),
				zap.String("body", upErr.Body),
			)
		}
		return nil, u, upErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, u, fmt.Errorf("pokeapi: read %s: %w", u, err)
	}

	c.logger.Debug("pokeapi request completed",
		zap.String("url", u),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)
	return body, u, nil
}

func decode(u string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &DecodeError{URL: u, Err: err}
	}
	return nil
}

// truncate limits string length for logging
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
