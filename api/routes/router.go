package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/callmeahab/pharma-search-sub001/api/controllers"
	"github.com/callmeahab/pharma-search-sub001/api/middleware"
	"github.com/callmeahab/pharma-search-sub001/pkg/config"
	"github.com/callmeahab/pharma-search-sub001/pkg/logger"
)

// RouterParams gather everything the HTTP surface needs.
type RouterParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	Catalog controllers.CatalogService

	// Readiness dependencies, keyed by the name reported on failure.
	Pingers map[string]controllers.Pinger

	// Gatherer backs the /metrics endpoint; nil disables it.
	Gatherer prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.Pingers))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", controllers.Search(params.Catalog, cfg.Search, logg))
		r.Get("/featured", controllers.Featured(params.Catalog, cfg.Search, logg))
		r.Get("/facets", controllers.Facets(params.Catalog, logg))
	})

	if params.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
