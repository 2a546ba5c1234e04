package health

import (
	"encoding/json"
	"net/http"
)

// Handler serves the full health report. Degraded still answers 200.
func (c *Checker) Handler() http.HandlerFunc {
	return c.serve(ProbeHealth, false)
}

// ReadinessHandler answers 200 only when every readiness check is healthy.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return c.serve(ProbeReadiness, true)
}

// LivenessHandler answers 200 only when every liveness check is healthy.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return c.serve(ProbeLiveness, true)
}

func (c *Checker) serve(probe Probe, strict bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := c.Run(r.Context(), probe)

		code := http.StatusOK
		switch {
		case resp.Status == StatusUnhealthy:
			code = http.StatusServiceUnavailable
		case strict && resp.Status != StatusHealthy:
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
