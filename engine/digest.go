package engine

import (
	"context"
	"crypto/sha256"
	"hash"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/lumenworks/shuttle/provider"
)

// digestPool manages reusable SHA-256 hashers to reduce allocations when
// many small files are verified back to back.
var digestPool = sync.Pool{
	New: func() any {
		return sha256.New()
	},
}

// Verifier checks byte-for-byte integrity of a completed copy by streaming
// both files through SHA-256 in the same chunk size as the copy itself.
type Verifier struct {
	pool *BufferPool
}

// NewVerifier creates a Verifier with the given chunk size (<= 0 selects
// DefaultChunkSize).
func NewVerifier(chunkSize int) *Verifier {
	return &Verifier{pool: NewBufferPool(chunkSize)}
}

// Verify compares content digests of the source and destination files.
// A mismatch is reported as false, not an error: it is an expected,
// retriable outcome. Errors reading either side surface as ErrIoFailure.
func (v *Verifier) Verify(
	ctx context.Context,
	src provider.Provider, srcPath string,
	dst provider.Provider, dstPath string,
) (bool, error) {
	srcSum, err := v.digest(ctx, src, srcPath)
	if err != nil {
		return false, err
	}
	dstSum, err := v.digest(ctx, dst, dstPath)
	if err != nil {
		return false, err
	}
	return srcSum == dstSum, nil
}

func (v *Verifier) digest(ctx context.Context, p provider.Provider, path string) ([sha256.Size]byte, error) {
	var sum [sha256.Size]byte

	reader, err := p.OpenRead(ctx, path)
	if err != nil {
		return sum, errors.WithMessagef(ErrIoFailure, "open %s for digest: %v", path, err)
	}
	defer reader.Close()

	h := digestPool.Get().(hash.Hash)
	h.Reset()
	defer digestPool.Put(h)

	buf := v.pool.Get()
	defer v.pool.Put(buf)

	if _, err := io.CopyBuffer(h, struct{ io.Reader }{reader}, *buf); err != nil {
		return sum, errors.WithMessagef(ErrIoFailure, "digest %s: %v", path, err)
	}

	h.Sum(sum[:0])
	return sum, nil
}
