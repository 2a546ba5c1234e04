package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/dd0wney/cluso-pipenet/pkg/logging"
	"github.com/dd0wney/cluso-pipenet/pkg/storage"
)

// Recorder receives per-call measurements.
type Recorder interface {
	RecordToolCall(tool, outcome string, d time.Duration)
	RecordTruncation(tool string)
}

type nopRecorder struct{}

func (nopRecorder) RecordToolCall(string, string, time.Duration) {}
func (nopRecorder) RecordTruncation(string)                      {}

// Dispatcher runs tools by name and converts every outcome into a Result.
// Safe for concurrent use.
type Dispatcher struct {
	registry *Registry
	logger   logging.Logger
	recorder Recorder
}

// DispatcherOption configures the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(l logging.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		logger:   logging.NewNopLogger(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(logging.Component("tools"))
	return d
}

// Registry returns the dispatcher's registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Call runs the named tool. It never panics and never returns nil.
func (d *Dispatcher) Call(ctx context.Context, name string, args json.RawMessage) (res *Result) {
	start := time.Now()
	res = &Result{Tool: name}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked",
				logging.Tool(name),
				logging.Any("panic", fmt.Sprint(r)),
				logging.String("stack", string(debug.Stack())))
			res = &Result{Tool: name, Error: "internal error", ErrorKind: ErrorKindInternal}
		}
		res.Duration = time.Since(start)
		d.finish(res)
	}()

	_, handler, ok := d.registry.Lookup(name)
	if !ok {
		res.Error = fmt.Sprintf("%v: %q", ErrUnknownTool, name)
		res.ErrorKind = ErrorKindUnknownTool
		return res
	}

	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		res.ErrorKind = ErrorKindCanceled
		return res
	}

	d.logger.Debug("tool call", logging.Tool(name), logging.Int("args_bytes", len(args)))

	out, err := handler(ctx, args)
	if err != nil {
		res.Error = err.Error()
		res.ErrorKind = classify(err)
		return res
	}

	res.Success = true
	res.Output = out
	if t, ok := out.(truncatable); ok {
		res.Truncated = t.Truncated()
	}
	return res
}

func (d *Dispatcher) finish(res *Result) {
	outcome := "success"
	if !res.Success {
		outcome = string(res.ErrorKind)
		d.logger.Warn("tool call failed",
			logging.Tool(res.Tool),
			logging.String("error_kind", outcome),
			logging.String("error", res.Error))
	}
	d.recorder.RecordToolCall(res.Tool, outcome, res.Duration)
	if res.Truncated {
		d.recorder.RecordTruncation(res.Tool)
	}
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidArguments):
		return ErrorKindInvalidArguments
	case storage.IsNotFound(err):
		return ErrorKindNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorKindCanceled
	default:
		return ErrorKindInternal
	}
}

// CallMap is Call with arguments given as a map.
func (d *Dispatcher) CallMap(ctx context.Context, name string, args map[string]any) *Result {
	if args == nil {
		return d.Call(ctx, name, nil)
	}
	data, err := json.Marshal(args)
	if err != nil {
		return &Result{Tool: name, Error: invalidArgs("%v", err).Error(), ErrorKind: ErrorKindInvalidArguments}
	}
	return d.Call(ctx, name, data)
}
