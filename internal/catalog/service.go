package catalog

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/callmeahab/pharma-search-sub001/internal/grouping"
	"github.com/callmeahab/pharma-search-sub001/pkg/config"
	"github.com/callmeahab/pharma-search-sub001/pkg/db/models"
	pkgerrors "github.com/callmeahab/pharma-search-sub001/pkg/errors"
	"github.com/callmeahab/pharma-search-sub001/pkg/logger"
	"github.com/callmeahab/pharma-search-sub001/pkg/pagination"
)

// ResultKind tags the shape of a search response. The union is resolved once
// here at the query boundary instead of being re-checked downstream.
type ResultKind string

const (
	ResultFlat    ResultKind = "flat"
	ResultGrouped ResultKind = "grouped"
)

// Facets are per-attribute candidate counts over the full (unpaginated)
// candidate set. Brand and dosage unit come from the same title decomposition
// the grouping engine keys on.
type Facets struct {
	Vendors     map[string]int `json:"vendors"`
	Categories  map[string]int `json:"categories"`
	Brands      map[string]int `json:"brands"`
	DosageUnits map[string]int `json:"dosageUnits"`
}

// SearchResult is the tagged flat-or-grouped response.
type SearchResult struct {
	Kind     ResultKind       `json:"kind"`
	Products []models.Product `json:"products,omitempty"`
	Groups   []grouping.Group `json:"groups,omitempty"`
	Facets   Facets           `json:"facets"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// SearchParams carries one search request.
type SearchParams struct {
	Query   string
	Grouped bool
	Mode    grouping.Mode
	Sort    grouping.SortKey
	Limit   int
	Offset  int
}

// Cache is the slice of the redis client the service needs; nil-safe via the
// noop check in the service, and fakeable in tests.
type Cache interface {
	GetCached(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(parts ...string) string
}

// Service answers catalog queries: search, featured groups and facets.
type Service struct {
	repo   ProductStore
	engine *grouping.Engine
	cache  Cache
	logg   *logger.Logger
	cfg    config.SearchConfig
}

// NewService wires the catalog query service.
func NewService(repo ProductStore, engine *grouping.Engine, cache Cache, logg *logger.Logger, cfg config.SearchConfig) *Service {
	return &Service{repo: repo, engine: engine, cache: cache, logg: logg, cfg: cfg}
}

// Search runs one query and resolves the flat/grouped union.
func (s *Service) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query is required")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	offset := pagination.NormalizeOffset(params.Offset)

	candidates, err := s.repo.SearchByTitle(ctx, params.Query, s.cfg.MaxCandidates)
	if err != nil {
		return nil, err
	}
	facets := facetsOf(candidates)

	if !params.Grouped {
		return &SearchResult{
			Kind:     ResultFlat,
			Products: pagination.Page(candidates, offset, limit),
			Facets:   facets,
			Total:    len(candidates),
			Limit:    limit,
			Offset:   offset,
		}, nil
	}

	groups := s.engine.Group(candidates, params.Mode)
	grouping.Sort(groups, params.Sort)
	return &SearchResult{
		Kind:   ResultGrouped,
		Groups: pagination.Page(groups, offset, limit),
		Facets: facets,
		Total:  len(groups),
		Limit:  limit,
		Offset: offset,
	}, nil
}

// Featured returns the highest-savings groups over the freshest slice of the
// catalog, cached between scrape runs.
func (s *Service) Featured(ctx context.Context, limit int) ([]grouping.Group, error) {
	if limit <= 0 || limit > s.cfg.FeaturedLimit {
		limit = s.cfg.FeaturedLimit
	}

	var key string
	if s.cache != nil {
		key = s.cache.CacheKey("featured", strconv.Itoa(limit))
		if cached, ok, err := s.cache.GetCached(ctx, key); err != nil {
			s.logg.Warn(ctx, "featured cache read failed")
		} else if ok {
			var groups []grouping.Group
			if err := json.Unmarshal([]byte(cached), &groups); err == nil {
				return groups, nil
			}
			s.logg.Warn(ctx, "featured cache entry is malformed")
		}
	}

	candidates, err := s.repo.TopCandidates(ctx, s.cfg.MaxCandidates)
	if err != nil {
		return nil, err
	}

	groups := s.engine.Group(candidates, grouping.ModeNormal)
	grouping.Sort(groups, grouping.SortSavings)

	// only groups with real cross-vendor comparison are worth featuring
	featured := make([]grouping.Group, 0, limit)
	for _, g := range groups {
		if g.VendorCount < 2 {
			continue
		}
		featured = append(featured, g)
		if len(featured) == limit {
			break
		}
	}

	if s.cache != nil {
		if payload, err := json.Marshal(featured); err == nil {
			if err := s.cache.Set(ctx, key, string(payload), s.cfg.FeaturedCacheTTL); err != nil {
				s.logg.Warn(ctx, "featured cache write failed")
			}
		}
	}
	return featured, nil
}

// Facets returns candidate counts for one query without materializing results.
func (s *Service) Facets(ctx context.Context, query string) (Facets, error) {
	if query == "" {
		return Facets{}, pkgerrors.New(pkgerrors.CodeValidation, "query is required")
	}
	candidates, err := s.repo.SearchByTitle(ctx, query, s.cfg.MaxCandidates)
	if err != nil {
		return Facets{}, err
	}
	return facetsOf(candidates), nil
}

func facetsOf(products []models.Product) Facets {
	facets := Facets{
		Vendors:     make(map[string]int),
		Categories:  make(map[string]int),
		Brands:      make(map[string]int),
		DosageUnits: make(map[string]int),
	}
	for _, p := range products {
		if p.Vendor != nil {
			facets.Vendors[p.Vendor.Name]++
		}
		if p.Category != "" {
			facets.Categories[p.Category]++
		}
		parts := grouping.ExtractKeyParts(p.Title)
		if parts.Brand != "" {
			facets.Brands[parts.Brand]++
		}
		if unit := parts.DosageUnit(); unit != "" {
			facets.DosageUnits[unit]++
		}
	}
	return facets
}
