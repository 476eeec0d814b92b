package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/example/order-orchestrator/internal/api/middleware"
	"github.com/example/order-orchestrator/internal/auth"
	"github.com/example/order-orchestrator/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterConfig carries the optional parts of the router. A nil JWT leaves the
// API open, a nil Metrics skips request metrics and a nil Gatherer hides /metrics.
type RouterConfig struct {
	JWT            *auth.JWTService
	Metrics        *metrics.ServerMetrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
}

func NewRouter(handlers *Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(withLogging)
	r.Use(chimw.Recoverer)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(withDeadline(cfg.RequestTimeout))
		}
		authenticated := cfg.JWT != nil
		if authenticated {
			r.Use(middleware.AuthMiddleware(cfg.JWT))
		}
		adminOnly := func(h http.HandlerFunc) http.Handler {
			if !authenticated {
				return h
			}
			return middleware.RequireRole(auth.RoleAdmin)(h)
		}

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", handlers.CreateOrder)
			r.Get("/", handlers.GetOrders)
			r.Get("/{id}", handlers.GetOrder)
			r.Method(http.MethodPut, "/{id}", adminOnly(handlers.UpdateOrder))
			r.Method(http.MethodDelete, "/{id}", adminOnly(handlers.DeleteOrder))
			r.Post("/{id}/payment", handlers.ProcessPayment)
		})

		r.Route("/order-items", func(r chi.Router) {
			r.Post("/", handlers.CreateItem)
			r.Get("/", handlers.GetItems)
			r.Get("/{id}", handlers.GetItem)
			r.Put("/{id}", handlers.UpdateItem)
			r.Delete("/{id}", handlers.DeleteItem)
		})
	})

	return r
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Printf("[API] %s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond))
	})
}

// withDeadline bounds the request context only. A PIX payment still polling at
// the deadline answers 202 with the open order, so no status is forced here.
func withDeadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
