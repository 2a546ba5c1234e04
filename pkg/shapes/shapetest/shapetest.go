// Package shapetest builds raw shape records for tests.
package shapetest

import (
	"encoding/json"
	"fmt"
)

func vertices(n int) []map[string]float64 {
	out := make([]map[string]float64, n)
	for i := range out {
		out[i] = map[string]float64{"x": float64(i), "y": float64(i * 2)}
	}
	return out
}

func conns(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

func encode(v map[string]any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("shapetest: %v", err))
	}
	return data
}

// Line returns a raw Line record.
func Line(id, pipeID int64, dn float64, connectors ...int64) json.RawMessage {
	return encode(map[string]any{
		"id": id, "shape_name": "Line", "pipe_id": pipeID, "DN": []float64{dn},
		"vertices": vertices(2), "connectors": conns(connectors),
	})
}

// Elbow returns a raw Elbow record.
func Elbow(id, pipeID int64, dn float64, connectors ...int64) json.RawMessage {
	return encode(map[string]any{
		"id": id, "shape_name": "Elbow", "pipe_id": pipeID, "DN": []float64{dn},
		"vertices": vertices(1), "connectors": conns(connectors),
	})
}

// Tee returns a raw Tee record with per-branch diameters.
func Tee(id, pipeID int64, dns []float64, connectors ...int64) json.RawMessage {
	return encode(map[string]any{
		"id": id, "shape_name": "Tee", "pipe_id": pipeID, "DN": dns,
		"vertices": vertices(1), "connectors": conns(connectors),
	})
}

// EndSprinkler returns a raw end-mounted Sprinkler record.
func EndSprinkler(id, pipeID int64, dn, arm float64, connectors ...int64) json.RawMessage {
	return encode(map[string]any{
		"id": id, "shape_name": "Sprinkler", "pipe_id": pipeID, "DN": []float64{dn},
		"vertices": vertices(4), "connectors": conns(connectors),
		"type": "end", "arm": arm,
	})
}

// CenterSprinkler returns a raw center-mounted Sprinkler record.
func CenterSprinkler(id, pipeID int64, dn float64, connectors ...int64) json.RawMessage {
	return encode(map[string]any{
		"id": id, "shape_name": "Sprinkler", "pipe_id": pipeID, "DN": []float64{dn},
		"vertices": vertices(4), "connectors": conns(connectors),
		"type": "center",
	})
}

// Raw wraps arbitrary JSON text, for malformed-record cases.
func Raw(s string) json.RawMessage {
	return json.RawMessage(s)
}

// Network is a small dataset exercising every variant.
//
//	group 17: Line 1, Line 2, Tee 3 (DN 100/80/80), center Sprinkler 4
//	group 18: Elbow 10, end Sprinklers 11-13 (arms 1.2, 1.5, 1.8)
//	group 19: Line 20 with one dangling connector (999)
func Network() []json.RawMessage {
	return []json.RawMessage{
		Line(1, 17, 100, 3, 2),
		Line(2, 17, 80, 1, 3),
		Tee(3, 17, []float64{100, 80, 80}, 1, 2, 4),
		CenterSprinkler(4, 17, 25, 3),
		Elbow(10, 18, 50, 11, 12),
		EndSprinkler(11, 18, 25, 1.2, 10),
		EndSprinkler(12, 18, 25, 1.5, 10),
		EndSprinkler(13, 18, 20, 1.8, 10),
		Line(20, 19, 65, 10, 999),
	}
}

// Lines returns n Line records in one group with sequential ids from start.
func Lines(start int64, n int, pipeID int64, dn float64) []json.RawMessage {
	out := make([]json.RawMessage, n)
	for i := range out {
		id := start + int64(i)
		out[i] = Line(id, pipeID, dn, id-1, id+1)
	}
	return out
}
