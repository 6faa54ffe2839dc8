package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vladislavdragonenkov/pos-core/internal/health"
)

// NewRouter собирает HTTP-маршруты сервиса: webhook приёма событий,
// health-пробы и метрики.
func NewRouter(tranlogHandler *TranlogHandler, healthHandler *health.Handler) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Route("/v1", func(r chi.Router) {
		r.Post("/tranlog", tranlogHandler.ReceiveEvent) // POST /v1/tranlog
	})

	router.Method(http.MethodGet, "/healthz", healthHandler)
	router.Get("/readyz", healthHandler.ReadinessHandler)
	router.Get("/livez", health.LivenessHandler)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return router
}
