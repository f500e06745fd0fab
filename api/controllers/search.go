package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/callmeahab/pharma-search-sub001/api/responses"
	"github.com/callmeahab/pharma-search-sub001/api/validators"
	"github.com/callmeahab/pharma-search-sub001/internal/catalog"
	"github.com/callmeahab/pharma-search-sub001/internal/grouping"
	"github.com/callmeahab/pharma-search-sub001/pkg/config"
	pkgerrors "github.com/callmeahab/pharma-search-sub001/pkg/errors"
	"github.com/callmeahab/pharma-search-sub001/pkg/logger"
)

// CatalogService is the query surface the search endpoints sit on.
type CatalogService interface {
	Search(ctx context.Context, params catalog.SearchParams) (*catalog.SearchResult, error)
	Featured(ctx context.Context, limit int) ([]grouping.Group, error)
	Facets(ctx context.Context, query string) (catalog.Facets, error)
}

func Search(svc CatalogService, cfg config.SearchConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		params, err := searchParamsFrom(r, cfg)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Search(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func Featured(svc CatalogService, cfg config.SearchConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", cfg.FeaturedLimit, 1, cfg.FeaturedLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		groups, err := svc.Featured(ctx, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"groups": groups, "total": len(groups)})
	}
}

func Facets(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "query is required").WithDetails(map[string]any{"field": "q"}))
			return
		}

		facets, err := svc.Facets(ctx, query)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, facets)
	}
}

func searchParamsFrom(r *http.Request, cfg config.SearchConfig) (catalog.SearchParams, error) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		return catalog.SearchParams{}, pkgerrors.New(pkgerrors.CodeValidation, "query is required").WithDetails(map[string]any{"field": "q"})
	}

	grouped, err := validators.ParseQueryBool(r, "grouped", true)
	if err != nil {
		return catalog.SearchParams{}, err
	}

	mode, err := grouping.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		return catalog.SearchParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mode").WithDetails(map[string]any{"field": "mode"})
	}

	sortKey, err := grouping.ParseSortKey(r.URL.Query().Get("sort"))
	if err != nil {
		return catalog.SearchParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort").WithDetails(map[string]any{"field": "sort"})
	}

	limit, err := validators.ParseQueryInt(r, "limit", cfg.DefaultLimit, 1, 100)
	if err != nil {
		return catalog.SearchParams{}, err
	}
	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 100000)
	if err != nil {
		return catalog.SearchParams{}, err
	}

	return catalog.SearchParams{
		Query:   query,
		Grouped: grouped,
		Mode:    mode,
		Sort:    sortKey,
		Limit:   limit,
		Offset:  offset,
	}, nil
}
