package health

import (
	"context"
	"fmt"
	"runtime"
)

// DatasetState is what DatasetCheck needs to know about the loaded index.
type DatasetState struct {
	Loaded  bool
	Shapes  int
	Groups  int
	Skipped int
}

// DatasetCheck reports unhealthy until a dataset is loaded and degraded
// when the loaded dataset is empty or every record was skipped.
func DatasetCheck(state func() DatasetState) CheckFunc {
	return func(context.Context) Check {
		s := state()
		check := Check{
			Name: "dataset",
			Details: map[string]any{
				"shapes":  s.Shapes,
				"groups":  s.Groups,
				"skipped": s.Skipped,
			},
		}

		switch {
		case !s.Loaded:
			check.Status = StatusUnhealthy
			check.Message = "Dataset not loaded"
		case s.Shapes == 0 && s.Skipped > 0:
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("All %d records were skipped", s.Skipped)
		case s.Shapes == 0:
			check.Status = StatusDegraded
			check.Message = "Dataset is empty"
		default:
			check.Status = StatusHealthy
			check.Message = fmt.Sprintf("%d shapes in %d groups", s.Shapes, s.Groups)
		}
		return check
	}
}

// PingCheck wraps a connectivity probe such as a database ping.
func PingCheck(name string, ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		if err := ping(ctx); err != nil {
			return Check{Name: name, Status: StatusUnhealthy, Message: err.Error()}
		}
		return Check{Name: name, Status: StatusHealthy, Message: "Reachable"}
	}
}

// MemoryCheck reports degraded when heap allocation exceeds 90% of the
// memory obtained from the OS.
func MemoryCheck(usage func() (alloc, sys uint64)) CheckFunc {
	return func(context.Context) Check {
		alloc, sys := usage()
		check := Check{
			Name: "memory",
			Details: map[string]any{
				"alloc_bytes": alloc,
				"sys_bytes":   sys,
			},
			Status:  StatusHealthy,
			Message: "Memory usage normal",
		}
		if sys > 0 && float64(alloc)/float64(sys) > 0.9 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		}
		return check
	}
}

// RuntimeMemory reads the current heap and OS memory figures.
func RuntimeMemory() (alloc, sys uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc, m.Sys
}
