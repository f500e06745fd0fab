package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callmeahab/pharma-search-sub001/internal/catalog"
	"github.com/callmeahab/pharma-search-sub001/internal/grouping"
	"github.com/callmeahab/pharma-search-sub001/pkg/config"
	pkgerrors "github.com/callmeahab/pharma-search-sub001/pkg/errors"
	"github.com/callmeahab/pharma-search-sub001/pkg/types"
)

type stubCatalogService struct {
	lastParams catalog.SearchParams
	result     *catalog.SearchResult
	groups     []grouping.Group
	facets     catalog.Facets
	err        error
}

func (s *stubCatalogService) Search(ctx context.Context, params catalog.SearchParams) (*catalog.SearchResult, error) {
	s.lastParams = params
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubCatalogService) Featured(ctx context.Context, limit int) ([]grouping.Group, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.groups, nil
}

func (s *stubCatalogService) Facets(ctx context.Context, query string) (catalog.Facets, error) {
	if s.err != nil {
		return catalog.Facets{}, s.err
	}
	return s.facets, nil
}

func searchConfig() config.SearchConfig {
	return config.SearchConfig{MaxCandidates: 1000, DefaultLimit: 20, FeaturedLimit: 24}
}

func TestSearchRequiresQuery(t *testing.T) {
	svc := &stubCatalogService{}
	handler := Search(svc, searchConfig(), nil)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/v1/search", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeValidation), body.Error.Code)
}

func TestSearchParsesParams(t *testing.T) {
	svc := &stubCatalogService{result: &catalog.SearchResult{Kind: catalog.ResultGrouped}}
	handler := Search(svc, searchConfig(), nil)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=vitamin+c&grouped=true&mode=strict&sort=savings&limit=5&offset=10", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "vitamin c", svc.lastParams.Query)
	assert.True(t, svc.lastParams.Grouped)
	assert.Equal(t, grouping.ModeStrict, svc.lastParams.Mode)
	assert.Equal(t, grouping.SortSavings, svc.lastParams.Sort)
	assert.Equal(t, 5, svc.lastParams.Limit)
	assert.Equal(t, 10, svc.lastParams.Offset)
}

func TestSearchDefaultsToGroupedNormalRelevance(t *testing.T) {
	svc := &stubCatalogService{result: &catalog.SearchResult{Kind: catalog.ResultGrouped}}
	handler := Search(svc, searchConfig(), nil)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=brufen", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.lastParams.Grouped)
	assert.Equal(t, grouping.ModeNormal, svc.lastParams.Mode)
	assert.Equal(t, grouping.SortRelevance, svc.lastParams.Sort)
	assert.Equal(t, 20, svc.lastParams.Limit)
	assert.Zero(t, svc.lastParams.Offset)
}

func TestSearchRejectsUnknownMode(t *testing.T) {
	svc := &stubCatalogService{}
	handler := Search(svc, searchConfig(), nil)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=brufen&mode=fuzzy", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchRejectsOutOfRangeLimit(t *testing.T) {
	svc := &stubCatalogService{}
	handler := Search(svc, searchConfig(), nil)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=brufen&limit=500", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchPropagatesServiceError(t *testing.T) {
	svc := &stubCatalogService{err: errors.New("db down")}
	handler := Search(svc, searchConfig(), nil)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=brufen", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestFeaturedCapsLimit(t *testing.T) {
	svc := &stubCatalogService{groups: []grouping.Group{{Key: "vitamin c"}}}
	handler := Featured(svc, searchConfig(), nil)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/v1/featured?limit=100", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeaturedReturnsGroups(t *testing.T) {
	svc := &stubCatalogService{groups: []grouping.Group{{Key: "vitamin c"}, {Key: "magnezijum"}}}
	handler := Featured(svc, searchConfig(), nil)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/v1/featured", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	payload := body.Data.(map[string]any)
	assert.EqualValues(t, 2, payload["total"])
}

func TestFacetsRequiresQuery(t *testing.T) {
	svc := &stubCatalogService{}
	handler := Facets(svc, nil)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/v1/facets", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFacetsReturnsCounts(t *testing.T) {
	svc := &stubCatalogService{facets: catalog.Facets{
		Vendors:    map[string]int{"Benu": 3},
		Categories: map[string]int{"vitamini": 3},
	}}
	handler := Facets(svc, nil)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/v1/facets?q=vitamin", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	payload := body.Data.(map[string]any)
	vendors := payload["vendors"].(map[string]any)
	assert.EqualValues(t, 3, vendors["Benu"])
}
