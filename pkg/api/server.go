// Package api serves pipenet over HTTP: the agent tool surface, GraphQL,
// health probes and Prometheus metrics.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-pipenet/pkg/api/middleware"
	"github.com/dd0wney/cluso-pipenet/pkg/auth"
	"github.com/dd0wney/cluso-pipenet/pkg/graphql"
	"github.com/dd0wney/cluso-pipenet/pkg/health"
	"github.com/dd0wney/cluso-pipenet/pkg/logging"
	"github.com/dd0wney/cluso-pipenet/pkg/metrics"
	"github.com/dd0wney/cluso-pipenet/pkg/pipenet"
	"github.com/dd0wney/cluso-pipenet/pkg/tools"
)

// ErrNoDataset is returned by handlers that need a dataset before Load
// has been called.
var ErrNoDataset = errors.New("no dataset loaded")

// Config controls the HTTP surface. The zero value serves without auth,
// rate limiting or CORS.
type Config struct {
	Version      string
	MaxBodyBytes int64
	// Validator enables bearer-token auth on everything except health
	// probes and metrics.
	Validator auth.TokenValidator
	// RateLimit enables per-client limiting when non-nil.
	RateLimit       *middleware.RateLimitConfig
	TrustedProxies  []*net.IPNet
	CORS            *middleware.CORSConfig
	GraphQLMaxDepth int
}

// state is everything derived from one dataset. It is replaced as a
// whole on reload, so a request sees either the old or the new dataset.
type state struct {
	svc        *pipenet.Service
	dispatcher *tools.Dispatcher
	graphql    *graphql.Handler
	dataset    Dataset
}

// Server is the HTTP API server.
type Server struct {
	cfg       Config
	logger    logging.Logger
	metrics   *metrics.Registry
	health    *health.Checker
	limiter   *middleware.RateLimiter
	state     atomic.Pointer[state]
	startTime time.Time
}

// NewServer creates a server with no dataset; call Load before serving
// tool requests. A nil registry gets a private one.
func NewServer(cfg Config, logger logging.Logger, registry *metrics.Registry) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.GraphQLMaxDepth == 0 {
		cfg.GraphQLMaxDepth = graphql.DefaultMaxDepth
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger.With(logging.Component("api")),
		metrics:   registry,
		health:    health.NewChecker(health.WithVersion(cfg.Version)),
		startTime: time.Now(),
	}
	if cfg.RateLimit != nil {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit)
	}

	datasetCheck := health.DatasetCheck(s.datasetState)
	s.health.Register("dataset", datasetCheck, health.ProbeHealth)
	// An empty dataset is a valid one: readiness only waits for the load.
	s.health.Register("dataset", func(ctx context.Context) health.Check {
		c := datasetCheck(ctx)
		if c.Status == health.StatusDegraded {
			c.Status = health.StatusHealthy
		}
		return c
	}, health.ProbeReadiness)
	s.health.Register("memory", health.MemoryCheck(health.RuntimeMemory), health.ProbeHealth)

	return s
}

// Load makes svc the dataset every subsequent request is answered from.
func (s *Server) Load(svc *pipenet.Service, ds Dataset) error {
	if svc == nil {
		return errors.New("api: nil service")
	}

	schema, err := graphql.NewSchema(svc)
	if err != nil {
		return err
	}

	dispatcher := tools.NewDispatcher(tools.NewPipenetRegistry(svc),
		tools.WithLogger(s.logger),
		tools.WithRecorder(s.metrics),
	)

	s.state.Store(&state{
		svc:        svc,
		dispatcher: dispatcher,
		graphql:    graphql.NewHandler(schema, graphql.WithMaxDepth(s.cfg.GraphQLMaxDepth)),
		dataset:    ds,
	})

	idx := svc.Index()
	byKind := make(map[string]int)
	for sh := range idx.All() {
		byKind[string(sh.Kind())]++
	}
	loadedAt := ds.LoadedAt
	if loadedAt.IsZero() {
		loadedAt = time.Now()
	}
	s.metrics.RecordDataset(metrics.DatasetSnapshot{
		Shapes:       idx.Len(),
		Groups:       idx.GroupCount(),
		Skipped:      len(idx.Skipped()),
		ByKind:       byKind,
		LoadDuration: ds.LoadDuration,
		LoadedAt:     loadedAt,
	})

	s.logger.Info("dataset loaded",
		logging.String("origin", ds.Origin),
		logging.String("digest", ds.Digest),
		logging.Count(idx.Len()),
		logging.Int("pipe_groups", idx.GroupCount()),
		logging.Int("skipped", len(idx.Skipped())),
	)
	return nil
}

// Service returns the service currently answering requests, or nil.
func (s *Server) Service() *pipenet.Service {
	if st := s.state.Load(); st != nil {
		return st.svc
	}
	return nil
}

// Health returns the server's health checker so callers can add checks.
func (s *Server) Health() *health.Checker {
	return s.health
}

func (s *Server) datasetState() health.DatasetState {
	st := s.state.Load()
	if st == nil {
		return health.DatasetState{}
	}
	idx := st.svc.Index()
	return health.DatasetState{
		Loaded:  true,
		Shapes:  idx.Len(),
		Groups:  idx.GroupCount(),
		Skipped: len(idx.Skipped()),
	}
}

// Close releases the rate limiter's background goroutine.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// publicPrefixes are served without a bearer token.
var publicPrefixes = []string{"/health", "/metrics"}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health.Handler())
	mux.HandleFunc("GET /health/live", s.health.LivenessHandler())
	mux.HandleFunc("GET /health/ready", s.health.ReadinessHandler())
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /info", s.handleInfo)
	mux.HandleFunc("GET /tools", s.handleListTools)
	mux.HandleFunc("GET /tools/{name}", s.handleDescribeTool)
	mux.HandleFunc("POST /tools/{name}", s.handleCallTool)
	mux.HandleFunc("POST /graphql", s.handleGraphQL)

	var h http.Handler = middleware.Metrics(s.metrics)(mux)
	h = middleware.BodySizeLimit(s.cfg.MaxBodyBytes)(h)
	h = middleware.JWTAuth(middleware.AuthConfig{
		Validator:      s.cfg.Validator,
		PublicPrefixes: publicPrefixes,
		OnFailure:      func(*http.Request, error) { s.metrics.RecordAuthFailure() },
	}, s.logger)(h)
	h = middleware.RateLimit(s.limiter, middleware.ClientIPFunc(s.cfg.TrustedProxies), s.onRateLimited)(h)
	h = middleware.Logging(s.logger)(h)
	h = middleware.CORS(s.cfg.CORS)(h)
	h = middleware.SecurityHeaders()(h)
	h = middleware.PanicRecovery(s.logger)(h)
	h = middleware.RequestID()(h)
	return h
}

func (s *Server) onRateLimited(r *http.Request, clientID string) {
	s.metrics.RecordRateLimited()
	s.logger.Warn("rate limited",
		logging.String("client", clientID),
		logging.Path(r.URL.Path),
	)
}
