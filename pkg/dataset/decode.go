package dataset

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
)

// ErrInvalidDocument reports a dataset that is neither a JSON array nor
// newline-delimited JSON objects.
var ErrInvalidDocument = errors.New("invalid dataset document")

// DecodeDocument splits a dataset document into raw records without
// interpreting them. A JSON array is the primary form; otherwise every
// non-blank line must hold one JSON value.
func DecodeDocument(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []json.RawMessage{}, nil
	}

	if trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		if records == nil {
			records = []json.RawMessage{}
		}
		return records, nil
	}

	return decodeLines(trimmed)
}

func decodeLines(data []byte) ([]json.RawMessage, error) {
	records := []json.RawMessage{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		if !json.Valid(text) {
			return nil, fmt.Errorf("%w: line %d is not valid JSON", ErrInvalidDocument, line)
		}
		records = append(records, json.RawMessage(bytes.Clone(text)))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return records, nil
}

// Digest returns the hex BLAKE2b-256 of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// recordDigest hashes records in order, newline separated, so a row
// source and the equivalent JSON Lines file share a digest.
func recordDigest(records []json.RawMessage) string {
	h, _ := blake2b.New256(nil)
	for _, r := range records {
		_, _ = h.Write(r)
		_, _ = io.WriteString(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil))
}
