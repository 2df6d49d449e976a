package align

import (
	"context"

	"github.com/kbukum/kindflow/pipeline"
	"github.com/kbukum/kindflow/record"
)

// Chunks is a stream of record chunks.
type Chunks = pipeline.Iterator[*record.Chunk]

// Rechunk regroups src into chunks of exactly n records; the last chunk may
// be shorter. Record order is preserved and empty chunks are never emitted.
// A non-positive n returns src unchanged.
func Rechunk(src Chunks, n int) Chunks {
	if n <= 0 {
		return src
	}
	return &rechunkIter{src: src, n: n}
}

type rechunkIter struct {
	src  Chunks
	n    int
	buf  *record.Chunk
	done bool
}

func (it *rechunkIter) Next(ctx context.Context) (*record.Chunk, bool, error) {
	for it.buf.Len() < it.n && !it.done {
		c, ok, err := it.src.Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			it.done = true
			break
		}
		if it.buf == nil {
			it.buf = c
			continue
		}
		it.buf = it.buf.Append(c)
	}

	size := it.buf.Len()
	if size == 0 {
		return nil, false, nil
	}
	take := min(it.n, size)
	out := it.buf.Slice(0, take)
	it.buf = it.buf.Slice(take, size)
	return out, true, nil
}

func (it *rechunkIter) Close() error { return it.src.Close() }
