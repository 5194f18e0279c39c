// Package storage holds the S3-compatible object store client and the stager
// that places loan documents into it. Implementations stream from the
// provided reader and never touch local disk.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrObjectNotFound is returned when a key does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrStoreUnavailable is returned when the object store cannot be reached or fails server-side.
	ErrStoreUnavailable = errors.New("object store unavailable")
	// ErrWriteFailed is returned when the store rejected or could not complete a write.
	ErrWriteFailed = errors.New("object write failed")
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is a reusable, S3-compatible object storage client bound to one bucket.
type Storage interface {
	// Bucket names the bucket every key is relative to.
	Bucket() string
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Stat returns an object's info, or ErrObjectNotFound.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Delete removes an object by key. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error
	// Ping verifies the bucket is reachable.
	Ping(ctx context.Context) error
}
