// Package pipenet exposes the query and analysis operations over a loaded
// piping network.
//
// A Service is built once from a storage.ShapeIndex and is immutable
// afterwards; every method is a bounded read and safe for concurrent use.
// List-producing methods always go through the query.Governor, and lookups
// of unknown objects or groups return errors wrapping storage.ErrShapeNotFound
// or storage.ErrGroupNotFound.
package pipenet
