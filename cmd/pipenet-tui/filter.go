package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-pipenet/pkg/pipenet"
)

// parseFilter reads "key=value" terms separated by spaces into find
// parameters. Keys: shape, pipe, dn, type.
func parseFilter(input string) (pipenet.FindParams, error) {
	var p pipenet.FindParams
	for _, term := range strings.Fields(input) {
		key, value, ok := strings.Cut(term, "=")
		if !ok || value == "" {
			return p, fmt.Errorf("expected key=value, got %q", term)
		}
		switch strings.ToLower(key) {
		case "shape", "shape_name":
			p.ShapeName = &value
		case "pipe", "pipe_id":
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return p, fmt.Errorf("pipe must be an integer, got %q", value)
			}
			p.PipeID = &id
		case "dn":
			dn, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return p, fmt.Errorf("dn must be a number, got %q", value)
			}
			p.DN = &dn
		case "type", "sprinkler_type":
			p.SprinklerType = &value
		default:
			return p, fmt.Errorf("unknown filter %q (use shape, pipe, dn, type)", key)
		}
	}
	return p, nil
}
