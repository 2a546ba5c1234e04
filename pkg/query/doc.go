// Package query evaluates filters, connectivity and aggregates over a
// storage.ShapeIndex, and bounds every list it returns through a Governor.
//
// Everything here is a pure read of the index. Unknown filter values narrow
// the result to nothing instead of failing.
package query
