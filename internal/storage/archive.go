// Package storage archives finished run datasets to a blob store.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// CSVContentType is attached to every archived dataset.
const CSVContentType = "text/csv; charset=utf-8"

// BlobStore uploads one object and returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Hasher digests archived content.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Artifact describes one archived file.
type Artifact struct {
	Name   string `json:"name"`
	URI    string `json:"uri"`
	SHA256 string `json:"sha256,omitempty"`
	Bytes  int    `json:"bytes"`
}

// ObjectPath builds "<prefix>/<runID>/<file>", skipping an empty prefix.
func ObjectPath(prefix, runID, file string) string {
	return path.Join(strings.Trim(prefix, "/"), runID, file)
}

// Archiver copies local files into a BlobStore under a per-run prefix.
type Archiver struct {
	store  BlobStore
	hasher Hasher
	prefix string
}

// NewArchiver wires an archiver. hasher may be nil.
func NewArchiver(store BlobStore, hasher Hasher, prefix string) *Archiver {
	return &Archiver{store: store, hasher: hasher, prefix: prefix}
}

// Archive uploads each file and returns the artifacts that made it. Files
// that fail are reported in the joined error; the rest are still uploaded.
func (a *Archiver) Archive(ctx context.Context, runID string, files ...string) ([]Artifact, error) {
	var (
		out  []Artifact
		errs []error
	)
	for _, file := range files {
		artifact, err := a.archiveOne(ctx, runID, file)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, artifact)
	}
	return out, errors.Join(errs...)
}

func (a *Archiver) archiveOne(ctx context.Context, runID, file string) (Artifact, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Artifact{}, fmt.Errorf("read %s: %w", file, err)
	}
	name := filepath.Base(file)
	artifact := Artifact{Name: name, Bytes: len(data)}
	if a.hasher != nil {
		digest, err := a.hasher.Hash(data)
		if err != nil {
			return Artifact{}, fmt.Errorf("hash %s: %w", name, err)
		}
		artifact.SHA256 = digest
	}
	uri, err := a.store.PutObject(ctx, ObjectPath(a.prefix, runID, name), CSVContentType, bytes.NewReader(data))
	if err != nil {
		return Artifact{}, fmt.Errorf("upload %s: %w", name, err)
	}
	artifact.URI = uri
	return artifact, nil
}
