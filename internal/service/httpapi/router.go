// Package httpapi отдаёт REST API витрины и админки поверх chi.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/fulfillment"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

const defaultRequestTimeout = 15 * time.Second

// Deps — зависимости обработчиков. Metrics и Health могут быть nil.
type Deps struct {
	Engine   *fulfillment.Engine
	Deletion *fulfillment.DeletionPolicy
	Queries  *fulfillment.Queries
	Catalog  *catalog.Service
	Health   *health.Handler
	Metrics  http.Handler
	Logger   *log.Entry
	Timeout  time.Duration
}

type handlers struct {
	Deps
}

// NewRouter собирает маршруты.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = log.WithField("component", "http")
	}
	if d.Timeout <= 0 {
		d.Timeout = defaultRequestTimeout
	}
	h := &handlers{Deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(requestLogger(d.Logger))

	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	r.Get("/livez", health.LivenessHandler)
	if d.Health != nil {
		r.Method(http.MethodGet, "/healthz", d.Health)
		r.Get("/readyz", d.Health.ReadinessHandler)
	}
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, version.Get())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(d.Timeout))

		r.Get("/products", h.listStorefront)
		r.Get("/products/{id}", h.getStorefrontProduct)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/dashboard", h.dashboard)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.listOrders)
				r.Get("/completed", h.listCompletedOrders)
				r.Get("/{id}", h.getOrder)
				r.Post("/{id}/status", h.transitionOrder)
				r.Post("/{id}/cancel", h.cancelOrder)
				r.Delete("/{id}", h.softDeleteOrder)
				r.Delete("/{id}/force", h.hardDeleteOrder)
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.listProducts)
				r.Post("/", h.createProduct)
				r.Get("/{id}", h.getProduct)
				r.Put("/{id}", h.updateProduct)
				r.Delete("/{id}", h.deleteProduct)
				r.Post("/{id}/reject", h.rejectProduct)
				r.Post("/{id}/restore", h.restoreProduct)
			})
		})
	})

	return r
}

// requestLogger пишет одну строку на запрос через logrus.
func requestLogger(logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			entry := logger.WithFields(log.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			})
			if ww.Status() >= http.StatusInternalServerError {
				entry.Warn("http request failed")
				return
			}
			entry.Debug("http request")
		})
	}
}
