package pipeline

import (
	"context"
	"sync"
)

// Buffer adds a buffered channel between pipeline stages so the source is
// pulled ahead on its own goroutine, at most size values in advance. Closing
// the iterator stops that goroutine and waits for it before closing the
// source, so the source is never used from two goroutines at once.
func Buffer[T any](p *Pipeline[T], size int) *Pipeline[T] {
	if size <= 0 {
		size = 1
	}
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			source := p.create(ctx)
			bufCtx, cancel := context.WithCancel(ctx)
			ch := make(chan result[T], size)

			go func() {
				defer close(ch)
				for bufCtx.Err() == nil {
					val, ok, err := source.Next(bufCtx)
					if err != nil {
						select {
						case ch <- result[T]{err: err}:
						case <-bufCtx.Done():
						}
						return
					}
					if !ok {
						return
					}
					select {
					case ch <- result[T]{val: val, ok: true}:
					case <-bufCtx.Done():
						return
					}
				}
			}()

			var once sync.Once
			var closeErr error
			return &channelIter[T]{
				ch: ch,
				closer: func() error {
					once.Do(func() {
						cancel()
						for range ch {
						}
						closeErr = source.Close()
					})
					return closeErr
				},
			}
		},
	}
}
