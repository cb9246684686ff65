package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/example/material-stock/internal/api/middleware"
	"github.com/example/material-stock/internal/auth"
	"github.com/example/material-stock/internal/domain/stock"
	"github.com/example/material-stock/internal/metrics"
)

// Roles allowed to issue stock commands. Any authenticated caller may read.
var writerRoles = []string{"admin", "warehouse"}

type RouterConfig struct {
	Handlers   *Handlers
	JWTService *auth.JWTService
	Gatherer   prometheus.Gatherer
	Logger     *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	h := cfg.Handlers
	router := mux.NewRouter()

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	if cfg.Gatherer != nil {
		router.Handle("/metrics", metrics.Handler(cfg.Gatherer)).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.AuthMiddleware(cfg.JWTService))

	api.HandleFunc("/stocks/{id}", h.GetStock).Methods(http.MethodGet)
	api.HandleFunc("/stocks/{id}/history", h.GetHistory).Methods(http.MethodGet)
	api.HandleFunc("/totals", h.GetTotals).Methods(http.MethodGet)
	api.HandleFunc("/availability", h.GetAvailability).Methods(http.MethodGet)

	writes := api.NewRoute().Subrouter()
	writes.Use(middleware.RequireRole(writerRoles...))
	writes.HandleFunc("/stocks/incoming", h.Incoming).Methods(http.MethodPost)
	writes.HandleFunc("/stocks/purchase", h.Purchase).Methods(http.MethodPost)
	writes.HandleFunc("/stocks/package", h.Package).Methods(http.MethodPost)
	writes.HandleFunc("/stocks/moving", h.Transfer(stock.StatusMoving)).Methods(http.MethodPost)
	writes.HandleFunc("/stocks/divide", h.Transfer(stock.StatusDivide)).Methods(http.MethodPost)
	writes.HandleFunc("/stocks/{id}/cancel", h.Cancel).Methods(http.MethodPost)
	writes.HandleFunc("/stocks/{id}/delete", h.Delete).Methods(http.MethodPost)

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	router.Use(loggingMiddleware(logger.Named("http")))

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

func zapRequest(r *http.Request, err error) []zap.Field {
	return []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	}
}
