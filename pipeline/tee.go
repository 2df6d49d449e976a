package pipeline

import (
	"context"
	"sync"
)

// Tee splits src into n branches. Every branch yields every value of src in
// order; values pulled by one branch are queued for the others until they
// catch up. src is closed once every branch is closed. A source error is
// delivered to each branch after its queued values.
func Tee[T any](src Iterator[T], n int) []Iterator[T] {
	if n <= 0 {
		return nil
	}
	t := &tee[T]{src: src, queues: make([][]T, n), closed: make([]bool, n), open: n}
	branches := make([]Iterator[T], n)
	for i := range branches {
		branches[i] = &teeBranch[T]{t: t, i: i}
	}
	return branches
}

type tee[T any] struct {
	mu     sync.Mutex
	src    Iterator[T]
	queues [][]T
	closed []bool
	open   int
	done   bool
	err    error
}

func (t *tee[T]) next(ctx context.Context, i int) (T, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	if t.closed[i] {
		return zero, false, nil
	}
	if q := t.queues[i]; len(q) > 0 {
		val := q[0]
		q[0] = zero
		t.queues[i] = q[1:]
		return val, true, nil
	}
	if t.err != nil {
		return zero, false, t.err
	}
	if t.done {
		return zero, false, nil
	}

	val, ok, err := t.src.Next(ctx)
	if err != nil {
		t.err = err
		return zero, false, err
	}
	if !ok {
		t.done = true
		return zero, false, nil
	}
	for j := range t.queues {
		if j != i && !t.closed[j] {
			t.queues[j] = append(t.queues[j], val)
		}
	}
	return val, true, nil
}

func (t *tee[T]) close(i int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed[i] {
		return nil
	}
	t.closed[i] = true
	t.queues[i] = nil
	t.open--
	if t.open == 0 {
		return t.src.Close()
	}
	return nil
}

type teeBranch[T any] struct {
	t *tee[T]
	i int
}

func (b *teeBranch[T]) Next(ctx context.Context) (T, bool, error) { return b.t.next(ctx, b.i) }

func (b *teeBranch[T]) Close() error { return b.t.close(b.i) }
