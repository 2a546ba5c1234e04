// Package dataset fetches raw shape records from where they are stored.
//
// A location is a plain path or file:// URL, an s3://bucket/key URL, or a
// postgres:// connection string. Sources return records undecoded; turning
// them into shapes is storage.BuildIndex's job.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrDatasetUnavailable wraps every failure to fetch or frame a dataset.
var ErrDatasetUnavailable = errors.New("dataset unavailable")

// Snapshot is one fetched copy of the dataset.
type Snapshot struct {
	Records  []json.RawMessage
	Digest   string
	Origin   string
	Bytes    int
	Duration time.Duration
}

// Source loads a dataset snapshot.
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
	// Ping checks the source is reachable without fetching the records.
	Ping(ctx context.Context) error
	String() string
}

// Scheme identifies the backend a location refers to.
type Scheme string

const (
	SchemeFile     Scheme = "file"
	SchemeS3       Scheme = "s3"
	SchemePostgres Scheme = "postgres"
)

// Location is a parsed dataset location.
type Location struct {
	Scheme Scheme
	// Path is the file path for SchemeFile and the object key for SchemeS3.
	Path string
	// Bucket is set for SchemeS3.
	Bucket string
	// DSN is set for SchemePostgres.
	DSN string
}

func (l Location) String() string {
	switch l.Scheme {
	case SchemeS3:
		return "s3://" + l.Bucket + "/" + l.Path
	case SchemePostgres:
		return redactDSN(l.DSN)
	}
	return l.Path
}

// ParseLocation classifies raw. An empty location is an error.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("%w: no dataset location configured", ErrDatasetUnavailable)
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return Location{Scheme: SchemeFile, Path: raw}, nil
	}

	switch strings.ToLower(scheme) {
	case "file":
		if rest == "" {
			return Location{}, fmt.Errorf("%w: empty file path in %q", ErrDatasetUnavailable, raw)
		}
		return Location{Scheme: SchemeFile, Path: rest}, nil
	case "s3":
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return Location{}, fmt.Errorf("%w: s3 location must be s3://bucket/key, got %q", ErrDatasetUnavailable, raw)
		}
		return Location{Scheme: SchemeS3, Bucket: bucket, Path: key}, nil
	case "postgres", "postgresql":
		return Location{Scheme: SchemePostgres, DSN: raw}, nil
	}
	return Location{}, fmt.Errorf("%w: unsupported scheme %q", ErrDatasetUnavailable, scheme)
}

// Options carries backend-specific settings. Zero values select defaults.
type Options struct {
	S3       S3Options
	Postgres PostgresOptions
}

// Open returns the Source for raw.
func Open(raw string, opts Options) (Source, error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return nil, err
	}
	switch loc.Scheme {
	case SchemeS3:
		return NewS3Source(loc.Bucket, loc.Path, opts.S3), nil
	case SchemePostgres:
		return NewPostgresSource(loc.DSN, opts.Postgres), nil
	}
	return NewFileSource(loc.Path), nil
}

// Load opens raw and fetches it in one step.
func Load(ctx context.Context, raw string, opts Options) (*Snapshot, error) {
	src, err := Open(raw, opts)
	if err != nil {
		return nil, err
	}
	return src.Load(ctx)
}

// Ping opens raw and checks that it can be reached.
func Ping(ctx context.Context, raw string, opts Options) error {
	src, err := Open(raw, opts)
	if err != nil {
		return err
	}
	return src.Ping(ctx)
}

func unavailable(origin string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDatasetUnavailable, origin, err)
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "postgres://"
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.String()
}
