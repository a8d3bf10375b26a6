package engine

import (
	"testing"
)

func TestBufferPool_GetPut(t *testing.T) {
	pool := NewBufferPool(1024)

	buf := pool.Get()
	if buf == nil {
		t.Fatal("expected a buffer from the pool")
	}
	if len(*buf) != 1024 {
		t.Errorf("expected buffer of size 1024, got %d", len(*buf))
	}

	pool.Put(buf)

	buf2 := pool.Get()
	if len(*buf2) != 1024 {
		t.Errorf("expected reused buffer of size 1024, got %d", len(*buf2))
	}
	pool.Put(buf2)
}

func TestBufferPool_DefaultSize(t *testing.T) {
	pool := NewBufferPool(0)
	if pool.Size() != DefaultChunkSize {
		t.Errorf("expected default size %d, got %d", DefaultChunkSize, pool.Size())
	}

	buf := pool.Get()
	if len(*buf) != DefaultChunkSize {
		t.Errorf("expected buffer of default size, got %d", len(*buf))
	}
	pool.Put(buf)
}

func TestBufferPool_PutNil(t *testing.T) {
	pool := NewBufferPool(64)
	pool.Put(nil) // must not panic
}
