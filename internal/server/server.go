package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazz-dev/healthd/internal/checker"
	"github.com/hazz-dev/healthd/internal/version"
)

// CheckRunner runs one health check; it never fails, only degrades.
type CheckRunner interface {
	Check(ctx context.Context, req checker.Request) checker.Result
}

// Server exposes health checks over HTTP: the result code becomes the HTTP
// status and the reason becomes the response body, so a load balancer can
// consume the answer directly.
type Server struct {
	dispatcher CheckRunner
	router     chi.Router
	logger     *slog.Logger
	started    time.Time
}

// New creates a new Server and registers all routes. Pass nil logger to use
// the default logger.
func New(dispatcher CheckRunner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		dispatcher: dispatcher,
		router:     chi.NewRouter(),
		logger:     logger,
		started:    time.Now(),
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/status", s.handleStatus)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, p := range []checker.Protocol{
		checker.ProtocolHTTP,
		checker.ProtocolHTTPS,
		checker.ProtocolTCP,
		checker.ProtocolMySQL,
		checker.ProtocolSMTP,
		checker.ProtocolSpool,
	} {
		r.Get(fmt.Sprintf("/%s/{service}/{port}", p), s.handleCheck(p))
		r.Get(fmt.Sprintf("/%s/{service}/{port}/*", p), s.handleCheck(p))
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// handleCheck runs the named protocol check for {service} on {port}. The
// request's query string and headers are handed to the checker, which copies
// only the configured subset onward.
func (s *Server) handleCheck(protocol checker.Protocol) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		port, err := strconv.ParseUint(chi.URLParam(r, "port"), 10, 16)
		if err != nil {
			writeResult(w, checker.Result{Code: http.StatusBadRequest, Reason: "invalid port"})
			return
		}

		headers := make(map[string]string, len(r.Header))
		for name := range r.Header {
			headers[name] = r.Header.Get(name)
		}

		result := s.dispatcher.Check(r.Context(), checker.Request{
			Service:  chi.URLParam(r, "service"),
			Port:     uint16(port),
			Protocol: protocol,
			Path:     chi.URLParam(r, "*"),
			Query:    r.URL.RawQuery,
			Headers:  headers,
		})
		writeResult(w, result)
	}
}

func writeResult(w http.ResponseWriter, result checker.Result) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(result.Code)
	fmt.Fprintln(w, result.Reason)
}

type statusResponse struct {
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(statusResponse{
		Version: version.Version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	})
}
