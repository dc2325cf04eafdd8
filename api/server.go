// Package api serves the correlated catalog to the map viewer.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"kuanb/civicgrid/catalog"
	"kuanb/civicgrid/config"
	"kuanb/civicgrid/correlate"
	"kuanb/civicgrid/metrics"
)

const maxNearestLimit = 50

// Server holds the catalog and correlator for handling requests
type Server struct {
	catalog    *catalog.Catalog
	correlator *correlate.Correlator
	metrics    *metrics.Metrics
	logger     *zap.Logger

	maxBodyBytes   int64
	nearestLimit   int
	allowedOrigins []string
}

// New creates a Server. cat may be nil, in which case only the stateless
// endpoints are useful; m may be nil to disable instrumentation.
func New(cat *catalog.Catalog, c *correlate.Correlator, m *metrics.Metrics, logger *zap.Logger, cfg *config.Config) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return &Server{
		catalog:        cat,
		correlator:     c,
		metrics:        m,
		logger:         logger.Named("api"),
		maxBodyBytes:   cfg.Server.MaxBodyBytes,
		nearestLimit:   cfg.Correlation.NearestLimit,
		allowedOrigins: cfg.CORS.AllowedOrigins,
	}
}

// Router returns the HTTP handler with all routes registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/correlations", s.handleCorrelations)
		r.Get("/projects/{id}", s.handleProject)
		r.Get("/chargers/{id}", s.handleCharger)
		r.Get("/chargers/{id}/nearest", s.handleNearest)
		r.Post("/correlate", s.handleCorrelate)
	})

	return r
}

// instrument logs every request and records HTTP metrics by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		if s.metrics != nil {
			s.metrics.HTTPRequestsInFlight.Inc()
			defer s.metrics.HTTPRequestsInFlight.Dec()
		}

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		if s.metrics != nil {
			s.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			s.metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		}
		s.logger.Debug("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", elapsed),
		)
	})
}
