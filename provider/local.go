package provider

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"
)

type localFileInfo struct {
	name    string
	size    int64
	isDir   bool
	modTime time.Time
	mode    os.FileMode
}

func (l *localFileInfo) Name() string       { return l.name }
func (l *localFileInfo) Size() int64        { return l.size }
func (l *localFileInfo) IsDir() bool        { return l.isDir }
func (l *localFileInfo) ModTime() time.Time { return l.modTime }
func (l *localFileInfo) Mode() os.FileMode  { return l.mode }

// WrapOSFileInfo converts an os.FileInfo into a provider FileInfo,
// retaining the permission bits so they can be reapplied on write.
func WrapOSFileInfo(info os.FileInfo) FileInfo {
	return &localFileInfo{
		name:    info.Name(),
		size:    info.Size(),
		isDir:   info.IsDir(),
		modTime: info.ModTime(),
		mode:    info.Mode().Perm(),
	}
}

// LocalProvider implements the Provider interface for posix-compliant local
// filesystems.
type LocalProvider struct {
	basePath string
}

// NewLocalProvider creates a new LocalProvider rooted at basePath.
// If basePath is empty, it acts upon absolute or relative paths directly.
func NewLocalProvider(basePath string) *LocalProvider {
	return &LocalProvider{basePath: basePath}
}

func (p *LocalProvider) resolve(path string) string {
	if p.basePath == "" {
		return path
	}
	return filepath.Join(p.basePath, filepath.Clean(path))
}

func (p *LocalProvider) Stat(ctx context.Context, path string) (FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	info, err := os.Stat(p.resolve(path))
	if err != nil {
		return nil, err
	}
	return WrapOSFileInfo(info), nil
}

func (p *LocalProvider) List(ctx context.Context, path string) ([]FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	entries, err := os.ReadDir(p.resolve(path))
	if err != nil {
		return nil, err
	}

	var infos []FileInfo
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue // skip files that disappeared between ReadDir and Info
		}
		infos = append(infos, WrapOSFileInfo(info))
	}
	return infos, nil
}

func (p *LocalProvider) OpenRead(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return os.Open(p.resolve(path))
}

func (p *LocalProvider) OpenWrite(ctx context.Context, path string, metadata FileInfo) (io.WriteCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fullPath := p.resolve(path)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, err
	}

	mode := os.FileMode(0644)
	if li, ok := metadata.(*localFileInfo); ok && li.mode != 0 {
		mode = li.mode
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return nil, err
	}

	return &localWriteCloser{
		File:     file,
		fullPath: fullPath,
		metadata: metadata,
	}, nil
}

func (p *LocalProvider) Remove(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := os.Remove(p.resolve(path))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (p *LocalProvider) RemoveAll(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return os.RemoveAll(p.resolve(path))
}

// localWriteCloser wraps an os.File and applies source timestamps upon close.
// This is necessary because writing to the file updates its mtime.
type localWriteCloser struct {
	*os.File
	fullPath string
	metadata FileInfo
}

func (l *localWriteCloser) Close() error {
	if err := l.File.Close(); err != nil {
		return err
	}

	if l.metadata != nil && !l.metadata.ModTime().IsZero() {
		// Ignore errors on applying timestamp
		_ = os.Chtimes(l.fullPath, time.Now(), l.metadata.ModTime())
	}

	return nil
}
