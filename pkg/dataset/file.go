package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/snappy"
	"golang.org/x/exp/mmap"
)

// snappyStreamMagic opens every snappy framed stream.
var snappyStreamMagic = []byte("\xff\x06\x00\x00sNaPpY")

// FileSource reads a dataset from the local filesystem through a
// read-only memory map. Files ending in .sz or .snappy are decompressed,
// accepting both the framed stream and the raw block format.
type FileSource struct {
	path string
}

// NewFileSource creates a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) String() string { return f.path }

// Compressed reports whether the path selects snappy decoding.
func (f *FileSource) Compressed() bool {
	ext := strings.ToLower(filepath.Ext(f.path))
	return ext == ".sz" || ext == ".snappy"
}

// Ping stats the file.
func (f *FileSource) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return unavailable(f.path, err)
	}
	info, err := os.Stat(f.path)
	if err != nil {
		return unavailable(f.path, err)
	}
	if info.IsDir() {
		return unavailable(f.path, errors.New("is a directory"))
	}
	return nil
}

// Load maps the file, decompresses it when needed, and splits it into records.
func (f *FileSource) Load(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, unavailable(f.path, err)
	}

	data, err := f.read()
	if err != nil {
		return nil, unavailable(f.path, err)
	}

	if f.Compressed() {
		if data, err = decompress(data); err != nil {
			return nil, unavailable(f.path, err)
		}
	}

	records, err := DecodeDocument(data)
	if err != nil {
		return nil, unavailable(f.path, err)
	}

	return &Snapshot{
		Records:  records,
		Digest:   Digest(data),
		Origin:   f.path,
		Bytes:    len(data),
		Duration: time.Since(start),
	}, nil
}

func (f *FileSource) read() ([]byte, error) {
	r, err := mmap.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	// Copy out of the mapping; records outlive the reader.
	buf := make([]byte, r.Len())
	if _, err := r.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}

func decompress(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, snappyStreamMagic) {
		out, err := io.ReadAll(snappy.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("snappy stream: %w", err)
		}
		return out, nil
	}
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy block: %w", err)
	}
	return out, nil
}
