package blobstore

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/nxgraph/internal/cache"
)

// DefaultBlockSize is the cache block size used when none is given.
const DefaultBlockSize = 64 << 10

// CachingStore wraps a BlobStore and caches read blocks.
type CachingStore struct {
	inner     BlobStore
	cache     cache.BlockCache
	blockSize int64
}

// NewCachingStore creates a CachingStore keeping up to capacity bytes of
// blocks. acct, usually a *resource.Controller, may be nil.
func NewCachingStore(inner BlobStore, capacity, blockSize int64, acct cache.MemoryAccountant) *CachingStore {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &CachingStore{
		inner:     inner,
		cache:     cache.NewLRU(capacity, acct),
		blockSize: blockSize,
	}
}

// Stats returns cache hits and misses.
func (s *CachingStore) Stats() (hits, misses int64) { return s.cache.Stats() }

func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &cachingBlob{inner: b, cache: s.cache, name: name, blockSize: s.blockSize}, nil
}

func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	s.invalidate(name)
	return s.inner.Create(ctx, name)
}

func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

func (s *CachingStore) invalidate(name string) {
	s.cache.Invalidate(func(k cache.Key) bool { return k.Blob == name })
}

type cachingBlob struct {
	inner     Blob
	cache     cache.BlockCache
	name      string
	blockSize int64
}

func (b *cachingBlob) Close() error { return b.inner.Close() }
func (b *cachingBlob) Size() int64  { return b.inner.Size() }

func (b *cachingBlob) key(blk int64) cache.Key {
	return cache.Key{Blob: b.name, Block: uint64(blk)} //nolint:gosec // blk >= 0
}

func (b *cachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	size := b.Size()
	if off < 0 || off >= size {
		return 0, io.EOF
	}
	want := p
	if rest := size - off; int64(len(want)) > rest {
		want = want[:rest]
	}

	startBlock := off / b.blockSize
	endBlock := (off + int64(len(want)) - 1) / b.blockSize
	blocks, err := b.fetch(ctx, startBlock, endBlock)
	if err != nil {
		return 0, err
	}

	total := 0
	for i, data := range blocks {
		blkStart := (startBlock + int64(i)) * b.blockSize
		from := max(blkStart, off)
		to := min(blkStart+int64(len(data)), off+int64(len(want)))
		if to <= from {
			continue
		}
		total += copy(want[from-off:to-off], data[from-blkStart:to-blkStart])
	}
	if total < len(p) {
		return total, io.EOF
	}
	return total, nil
}

// fetch returns blocks start..end, reading contiguous runs of missing
// blocks from the inner blob in single requests.
func (b *cachingBlob) fetch(ctx context.Context, start, end int64) ([][]byte, error) {
	blocks := make([][]byte, end-start+1)
	type run struct{ start, count int64 }
	var missing []run
	for blk := start; blk <= end; blk++ {
		if data, ok := b.cache.Get(b.key(blk)); ok {
			blocks[blk-start] = data
			continue
		}
		if n := len(missing); n > 0 && missing[n-1].start+missing[n-1].count == blk {
			missing[n-1].count++
		} else {
			missing = append(missing, run{start: blk, count: 1})
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(16)
	for _, r := range missing {
		g.Go(func() error {
			byteStart := r.start * b.blockSize
			byteSize := min(r.count*b.blockSize, b.Size()-byteStart)
			buf := make([]byte, byteSize)
			n, err := b.inner.ReadAt(ctx, buf, byteStart)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			buf = buf[:n]
			for i := int64(0); i < r.count; i++ {
				lo := i * b.blockSize
				if lo >= int64(len(buf)) {
					break
				}
				hi := min(lo+b.blockSize, int64(len(buf)))
				// Copy so a cached block does not pin the whole run.
				block := append([]byte(nil), buf[lo:hi]...)
				b.cache.Set(b.key(r.start+i), block)
				blocks[r.start+i-start] = block
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blocks, nil
}
