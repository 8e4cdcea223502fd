package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	m "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/singleflight"

	"github.com/ogulcanaydogan/kwscore/internal/report"
	"github.com/ogulcanaydogan/kwscore/internal/store"
)

// RunSource is the read side of the run history.
type RunSource interface {
	Runs(ctx context.Context, module string) ([]store.RunEntry, error)
	Best(ctx context.Context) ([]store.RunEntry, error)
}

type Server struct {
	src       RunSource
	cache     *bestCache
	group     singleflight.Group
	registry  *prometheus.Registry
	collector *report.Collector
	now       func() time.Time
}

func New(src RunSource, cfg Config) (*Server, error) {
	reg := prometheus.NewRegistry()
	c, err := report.NewCollector(reg)
	if err != nil {
		return nil, err
	}
	return &Server{
		src:       src,
		cache:     newBestCache(time.Duration(cfg.CacheTTLSeconds) * time.Second),
		registry:  reg,
		collector: c,
		now:       time.Now,
	}, nil
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(m.RequestID, m.RealIP, m.Logger, m.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/runs", s.listRuns)
	r.Get("/runs/best", s.bestRuns)
	r.Get("/metrics", s.metrics)
	return r
}

func NewHTTPServer(s *Server, cfg Config) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

type errResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.src.Runs(r.Context(), r.URL.Query().Get("module"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errResp{err.Error()})
		return
	}
	if runs == nil {
		runs = []store.RunEntry{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) bestRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.best(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errResp{err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	runs, err := s.best(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	series := make([]report.Series, 0, len(runs))
	for _, run := range runs {
		series = append(series, report.Series{
			Module:  run.Module,
			Key:     run.Key,
			Model:   run.Model,
			Records: run.Records,
			Values:  run.Metrics,
		})
	}
	s.collector.Replace(series)
	promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// best coalesces concurrent lookups and serves from the cache while fresh.
func (s *Server) best(ctx context.Context) ([]store.RunEntry, error) {
	if runs, ok := s.cache.fresh(s.now()); ok {
		return runs, nil
	}
	v, err, _ := s.group.Do("best", func() (any, error) {
		if runs, ok := s.cache.fresh(s.now()); ok {
			return runs, nil
		}
		runs, err := s.src.Best(ctx)
		if err != nil {
			return nil, err
		}
		if runs == nil {
			runs = []store.RunEntry{}
		}
		s.cache.put(runs, s.now())
		return runs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]store.RunEntry), nil
}
