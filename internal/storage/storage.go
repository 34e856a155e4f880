// Package storage abstracts byte-level file access so mask and certification
// files can live on a local filesystem or in an object store interchangeably.
package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Read when the path does not exist. Absence is a
// normal result (a missing mask file is the empty mask); any other read error
// must abort the triggering operation instead of being treated as empty.
var ErrNotFound = errors.New("storage: not found")

// Backend is the byte-level file interface the annotation engine depends on.
type Backend interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
}

const s3Prefix = "s3://"

// ForPath selects a backend by path convention: s3:// paths get the object
// store, everything else the local filesystem.
func ForPath(path string) (Backend, error) {
	if strings.HasPrefix(path, s3Prefix) {
		return NewS3FromEnv()
	}
	return Local{}, nil
}

// IsObjectPath reports whether the path addresses the object store.
func IsObjectPath(path string) bool {
	return strings.HasPrefix(path, s3Prefix)
}

// splitObjectPath splits s3://bucket/key into bucket and key.
func splitObjectPath(path string) (bucket, key string) {
	rest := strings.TrimPrefix(path, s3Prefix)
	parts := strings.SplitN(rest, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		key = parts[1]
	}
	return bucket, key
}
