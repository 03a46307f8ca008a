package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pokeapp/internal/pokeapi"
	"pokeapp/pkg/logging"
)

const defaultDetailConcurrency = 8

// Query is one index page request.
type Query struct {
	Filter
	PageNumber int
	PageSize   int
}

// Page is the filtered view of one upstream page.
// TotalPages comes from the unfiltered upstream count, so it can exceed
// what the filtered Items suggest.
type Page struct {
	Items          []*pokeapi.Pokemon
	PageNumber     int
	PageSize       int
	TotalCount     int
	TotalPages     int
	NameFilter     string
	CategoryFilter string
	Categories     []pokeapi.NamedResource
}

// ExportRow is one spreadsheet line: name and comma-joined type names.
type ExportRow struct {
	Name  string
	Types string
}

// DetailView pairs a creature with its species, which may be nil.
type DetailView struct {
	Pokemon *pokeapi.Pokemon
	Species *pokeapi.Species
}

type Service struct {
	client            pokeapi.Client
	detailConcurrency int
}

type Option func(*Service)

// WithDetailConcurrency bounds parallel detail fetches per page. n <= 1 fetches sequentially.
func WithDetailConcurrency(n int) Option {
	return func(s *Service) {
		s.detailConcurrency = max(n, 1)
	}
}

func NewService(client pokeapi.Client, opts ...Option) *Service {
	s := &Service{
		client:            client,
		detailConcurrency: defaultDetailConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPage fetches one upstream page, its details and the category list.
// Any upstream failure fails the whole page.
func (s *Service) ListPage(ctx context.Context, q Query) (*Page, error) {
	start := time.Now()
	pageNumber, pageSize := normalizePaging(q.PageNumber, q.PageSize)

	total, items, err := s.fetchFiltered(ctx, pageSize, Offset(pageNumber, pageSize), q.Filter)
	if err != nil {
		return nil, err
	}

	categories, err := s.client.ListTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	logging.L(ctx).Info("catalog page assembled",
		zap.Int("page_number", pageNumber),
		zap.Int("page_size", pageSize),
		zap.Int("total_count", total),
		zap.Int("items", len(items)),
		zap.String("name_filter", q.Name),
		zap.String("category_filter", q.Category),
		zap.Duration("duration", time.Since(start)),
	)

	return &Page{
		Items:          items,
		PageNumber:     pageNumber,
		PageSize:       pageSize,
		TotalCount:     total,
		TotalPages:     TotalPages(total, pageSize),
		NameFilter:     q.Name,
		CategoryFilter: q.Category,
		Categories:     categories,
	}, nil
}

// ExportAll returns every creature passing f as export rows.
func (s *Service) ExportAll(ctx context.Context, f Filter) ([]ExportRow, error) {
	start := time.Now()

	_, items, err := s.fetchFiltered(ctx, exportPageSize, 0, f)
	if err != nil {
		return nil, err
	}

	rows := make([]ExportRow, 0, len(items))
	for _, p := range items {
		rows = append(rows, ExportRow{
			Name:  p.Name,
			Types: strings.Join(p.TypeNames(), ", "),
		})
	}

	logging.L(ctx).Info("catalog export assembled",
		zap.Int("rows", len(rows)),
		zap.Duration("duration", time.Since(start)),
	)
	return rows, nil
}

// DetailView loads one creature and its species. A missing creature is
// pokeapi.ErrNotFound; a missing species only leaves Species nil.
func (s *Service) DetailView(ctx context.Context, name string) (*DetailView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("pokemon %q: %w", name, pokeapi.ErrNotFound)
	}

	p, err := s.client.GetPokemon(ctx, name)
	if err != nil {
		if isMissing(err) {
			return nil, fmt.Errorf("pokemon %q: %w", name, pokeapi.ErrNotFound)
		}
		return nil, fmt.Errorf("get pokemon %q: %w", name, err)
	}

	species, err := s.client.GetSpecies(ctx, name)
	if err != nil {
		if !isMissing(err) {
			return nil, fmt.Errorf("get species %q: %w", name, err)
		}
		logging.L(ctx).Debug("species not found", zap.String("name", name))
		species = nil
	}

	return &DetailView{Pokemon: p, Species: species}, nil
}

func (s *Service) fetchFiltered(ctx context.Context, limit, offset int, f Filter) (int, []*pokeapi.Pokemon, error) {
	list, err := s.client.ListSummaries(ctx, limit, offset)
	if err != nil {
		return 0, nil, fmt.Errorf("list summaries: %w", err)
	}

	details, err := s.fetchDetails(ctx, list.Results)
	if err != nil {
		return 0, nil, err
	}

	return list.Count, f.Apply(details), nil
}

// fetchDetails loads the detail of every named summary with bounded
// concurrency. Output order follows summaries; empty results are skipped
// and the first error cancels the rest.
func (s *Service) fetchDetails(ctx context.Context, summaries []pokeapi.Summary) ([]*pokeapi.Pokemon, error) {
	slots := make([]*pokeapi.Pokemon, len(summaries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.detailConcurrency)

	for i, summary := range summaries {
		if summary.Name == "" {
			continue
		}
		g.Go(func() error {
			p, err := s.client.GetPokemon(gctx, summary.Name)
			if errors.Is(err, pokeapi.ErrEmptyResult) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("get pokemon %q: %w", summary.Name, err)
			}
			slots[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	details := make([]*pokeapi.Pokemon, 0, len(slots))
	for _, p := range slots {
		if p != nil {
			details = append(details, p)
		}
	}
	return details, nil
}

func isMissing(err error) bool {
	return errors.Is(err, pokeapi.ErrNotFound) || errors.Is(err, pokeapi.ErrEmptyResult)
}
