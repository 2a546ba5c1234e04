package pipenet

import (
	"encoding/json"

	"github.com/dd0wney/cluso-pipenet/pkg/logging"
	"github.com/dd0wney/cluso-pipenet/pkg/query"
	"github.com/dd0wney/cluso-pipenet/pkg/storage"
)

// Service is the read-only context every operation runs against.
type Service struct {
	idx    *storage.ShapeIndex
	engine *query.Engine
	gov    *query.Governor
	logger logging.Logger
}

// Option configures a Service.
type Option func(*options)

type options struct {
	limits query.LimitConfig
	logger logging.Logger
}

// WithLimits overrides the pagination limits.
func WithLimits(cfg query.LimitConfig) Option {
	return func(o *options) { o.limits = cfg }
}

// WithLogger sets the logger used for index build and service events. A nil
// logger disables logging.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = logging.NewNopLogger()
		}
		o.logger = l
	}
}

// New creates a service over an existing index.
func New(idx *storage.ShapeIndex, opts ...Option) (*Service, error) {
	o := options{limits: query.DefaultLimitConfig(), logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	gov, err := query.NewGovernor(o.limits)
	if err != nil {
		return nil, err
	}

	return &Service{
		idx:    idx,
		engine: query.NewEngine(idx),
		gov:    gov,
		logger: o.logger.With(logging.Component("pipenet")),
	}, nil
}

// FromRecords builds the index from raw records and wraps it in a service.
func FromRecords(records []json.RawMessage, opts ...Option) (*Service, error) {
	o := options{logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	idx := storage.BuildIndex(records, o.logger.With(logging.Component("index")))
	return New(idx, opts...)
}

// Index returns the underlying shape index.
func (s *Service) Index() *storage.ShapeIndex {
	return s.idx
}

// Limits returns the active pagination limits.
func (s *Service) Limits() query.LimitConfig {
	return s.gov.Config()
}
