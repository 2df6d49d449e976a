// Package pipeline provides composable, pull-based iterators.
//
// Pipelines are lazy: no work happens until values are pulled via Collect,
// Drain, or ForEach. Each stage pulls from the previous stage on demand,
// providing natural backpressure without explicit flow control. Chunk
// streams between plugins are Iterator[*record.Chunk] values built from
// these pieces.
//
// # Operators
//
// Synchronous (single-goroutine):
//
//   - Map: transform each value
//   - Filter: keep values matching a predicate
//   - Tap: side-effect without altering the value (logging, metrics)
//   - Tee: split one iterator into several independently pulled branches
//
// Concurrent:
//
//   - Buffer: decouple producer/consumer with a buffered channel
//
// # Usage
//
//	src := pipeline.FromSlice([]int{1, 2, 3, 4, 5})
//	doubled := pipeline.Map(src, func(_ context.Context, n int) (int, error) {
//	    return n * 2, nil
//	})
//	evens := pipeline.Filter(doubled, func(n int) bool { return n%2 == 0 })
//	results, _ := pipeline.Collect(ctx, evens)
package pipeline
