// Package shapes defines the record model of a fire-protection piping
// network: Line, Tee, Elbow and Sprinkler elements joined by connector
// references.
//
// A Shape is a closed sum type. Each variant carries only the fields that
// apply to it, so a Tee's per-branch diameters and an end sprinkler's arm
// length are reached through a type switch rather than presence checks.
// Vertices are opaque payload and are never interpreted.
package shapes
