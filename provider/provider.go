package provider

import (
	"context"
	"io"
	"strings"
	"time"
)

// FileInfo represents the standard metadata for a file or a directory
// across different storage abstractions.
type FileInfo interface {
	Name() string
	Size() int64
	IsDir() bool
	ModTime() time.Time
}

// Provider represents a storage backend abstraction.
// A typical Provider might be local storage, S3, FTP, etc.
type Provider interface {
	// Stat returns the FileInfo for the given path.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// List returns the contents of the given directory.
	List(ctx context.Context, path string) ([]FileInfo, error)

	// OpenRead opens a file for streaming reads.
	OpenRead(ctx context.Context, path string) (io.ReadCloser, error)

	// OpenWrite opens a file for streaming writes, creating parent
	// directories as needed and applying metadata if supported.
	OpenWrite(ctx context.Context, path string, metadata FileInfo) (io.WriteCloser, error)

	// Remove deletes a single file. Removing a path that does not exist is
	// not an error; callers rely on Remove to discard partially written
	// destination files before a retry.
	Remove(ctx context.Context, path string) error

	// RemoveAll deletes the file or directory tree rooted at path.
	RemoveAll(ctx context.Context, path string) error
}

// Resolve maps a raw location string to a Provider plus the path to use
// within it. Locations of the form s3://bucket/key resolve to an S3
// provider rooted at the bucket; anything else is a local path.
func Resolve(ctx context.Context, raw string) (Provider, string, error) {
	if bucket, key, ok := SplitS3Path(raw); ok {
		p, err := NewS3Provider(ctx, bucket, "")
		if err != nil {
			return nil, "", err
		}
		return p, key, nil
	}
	return NewLocalProvider(""), raw, nil
}

// SplitS3Path splits an s3://bucket/key location into bucket and key.
// The third return value reports whether raw was an S3 location at all.
func SplitS3Path(raw string) (bucket, key string, ok bool) {
	if !strings.HasPrefix(raw, "s3://") {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(raw, "s3://"), "/")
	return bucket, key, true
}
