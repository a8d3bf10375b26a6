package engine

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/lumenworks/shuttle/provider"
)

// Copier streams single files between providers in fixed-size chunks. It
// never holds a whole file in memory and never cleans up after itself: a
// failed or mismatched destination file is removed by the caller, so a
// half-written file is never silently left behind as done.
type Copier struct {
	pool *BufferPool
}

// NewCopier creates a Copier with the given chunk size (<= 0 selects
// DefaultChunkSize).
func NewCopier(chunkSize int) *Copier {
	return &Copier{pool: NewBufferPool(chunkSize)}
}

// Copy streams src to dest, invoking onChunk with the byte delta after every
// completed chunk write. Any read/write error surfaces as ErrIoFailure.
func (c *Copier) Copy(
	ctx context.Context,
	src provider.Provider, srcPath string,
	dst provider.Provider, dstPath string,
	meta provider.FileInfo,
	onChunk func(delta int64),
) (int64, error) {
	reader, err := src.OpenRead(ctx, srcPath)
	if err != nil {
		return 0, errors.WithMessagef(ErrIoFailure, "open source %s: %v", srcPath, err)
	}
	defer reader.Close()

	writer, err := dst.OpenWrite(ctx, dstPath, meta)
	if err != nil {
		return 0, errors.WithMessagef(ErrIoFailure, "open destination %s: %v", dstPath, err)
	}

	buf := c.pool.Get()
	defer c.pool.Put(buf)

	counted := &chunkWriter{w: writer, onChunk: onChunk}
	// The bare-Reader wrap keeps io.CopyBuffer from taking the WriterTo
	// fast path, which would ignore our buffer and the chunk cadence.
	_, err = io.CopyBuffer(counted, struct{ io.Reader }{reader}, *buf)
	if err != nil {
		writer.Close()
		return counted.n, errors.WithMessagef(ErrIoFailure, "copy %s: %v", srcPath, err)
	}

	if err := writer.Close(); err != nil {
		return counted.n, errors.WithMessagef(ErrIoFailure, "close destination %s: %v", dstPath, err)
	}

	return counted.n, nil
}

// chunkWriter counts bytes written and reports each completed chunk.
type chunkWriter struct {
	w       io.Writer
	onChunk func(delta int64)
	n       int64
}

func (cw *chunkWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if n > 0 {
		cw.n += int64(n)
		if cw.onChunk != nil {
			cw.onChunk(int64(n))
		}
	}
	return n, err
}
