package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check is the outcome of probing one component.
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	DurationMS  float64        `json:"duration_ms"`
}

// CheckFunc probes a component. It must honour ctx cancellation.
type CheckFunc func(ctx context.Context) Check

// Probe selects which set of checks a request runs.
type Probe int

const (
	ProbeHealth Probe = iota
	ProbeReadiness
	ProbeLiveness
)

// Checker runs registered checks and serves their results over HTTP.
type Checker struct {
	mu        sync.RWMutex
	probes    map[Probe]map[string]CheckFunc
	startTime time.Time
	version   string
	timeout   time.Duration
}

// Response is the body of every health endpoint.
type Response struct {
	Status        Status           `json:"status"`
	Version       string           `json:"version,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Checks        map[string]Check `json:"checks"`
}
