package health

import (
	"context"
	"time"
)

// DefaultCheckTimeout bounds a full probe run.
const DefaultCheckTimeout = 2 * time.Second

// Option configures a Checker.
type Option func(*Checker)

// WithVersion reports version in every response.
func WithVersion(v string) Option {
	return func(c *Checker) { c.version = v }
}

// WithTimeout overrides DefaultCheckTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewChecker creates a checker with no registered checks.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		probes: map[Probe]map[string]CheckFunc{
			ProbeHealth:    {},
			ProbeReadiness: {},
			ProbeLiveness:  {},
		},
		startTime: time.Now(),
		timeout:   DefaultCheckTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds check under name to each listed probe. With no probes
// the check joins ProbeHealth only.
func (c *Checker) Register(name string, check CheckFunc, probes ...Probe) {
	if len(probes) == 0 {
		probes = []Probe{ProbeHealth}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range probes {
		c.probes[p][name] = check
	}
}

// Run executes every check of probe. The overall status is the worst
// individual status; an empty probe is healthy.
func (c *Checker) Run(ctx context.Context, probe Probe) Response {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.probes[probe]))
	for name, fn := range c.probes[probe] {
		checks[name] = fn
	}
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp := Response{
		Status:        StatusHealthy,
		Version:       c.version,
		Timestamp:     time.Now(),
		UptimeSeconds: int64(time.Since(c.startTime).Seconds()),
		Checks:        make(map[string]Check, len(checks)),
	}

	for name, fn := range checks {
		start := time.Now()
		check := fn(ctx)
		if check.Name == "" {
			check.Name = name
		}
		check.LastChecked = start
		check.DurationMS = float64(time.Since(start).Microseconds()) / 1000

		resp.Checks[name] = check
		resp.Status = worse(resp.Status, check.Status)
	}

	return resp
}

func worse(a, b Status) Status {
	rank := func(s Status) int {
		switch s {
		case StatusUnhealthy:
			return 2
		case StatusDegraded:
			return 1
		}
		return 0
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
