package align

import (
	"context"
	"math"
	"slices"
	"sync"

	"github.com/kbukum/kindflow/errors"
	"github.com/kbukum/kindflow/record"
)

// KeyFunc extracts the sync key of a record. The key of a chunk is the
// largest key among its records.
type KeyFunc func(record.Record) int64

// Endtime keys records by their exclusive upper time bound.
func Endtime(r record.Record) int64 { return r.Endtime() }

// ChunkEndtime returns the largest record endtime of c.
func ChunkEndtime(c *record.Chunk) (int64, bool) { return c.Endtime() }

// Option configures a synced group.
type Option func(*options)

type options struct {
	leader  string
	schemas map[string]*record.Schema
}

// WithLeader makes AlignByLength follow the chunk boundaries of one source:
// every step consumes exactly one leader chunk, empty ones included, and the
// other sources are regrouped to match its length.
func WithLeader(name string) Option {
	return func(o *options) { o.leader = name }
}

// WithSchemas sets the schema used for empty chunks emitted for a source that
// ended before producing any data.
func WithSchemas(schemas map[string]*record.Schema) Option {
	return func(o *options) { o.schemas = schemas }
}

// AlignByKey syncs streams on key. Every step cuts all sources at one
// threshold: the smallest chunk key among the sources that still have data
// coming, lowered to the start of any buffered record that straddles it. A
// source contributes its records that start before the threshold and whose
// key does not exceed it, so a record and every record of another source it
// contains land in the same step. When no record qualifies, more data is
// pulled; once every unfinished source is drained the buffers are flushed. A
// source that ends early keeps emitting empty chunks until every output is
// done, so downstream containment still sees every base record.
func AlignByKey(srcs map[string]Chunks, key KeyFunc, opts ...Option) map[string]Chunks {
	if key == nil {
		key = Endtime
	}
	g := newGroup(srcs, opts)
	g.fill = g.fillOne
	g.cut = func() (map[string]int, cutState) { return g.cutByKey(key) }
	return g.outputs()
}

// AlignByLength syncs streams so that the outputs of every step have the same
// number of records. The group ends as soon as one source is exhausted with
// nothing buffered; a step the other sources cannot fill is cut to the
// shortest of them and ends the group.
func AlignByLength(srcs map[string]Chunks, opts ...Option) map[string]Chunks {
	g := newGroup(srcs, opts)
	if _, ok := srcs[g.opts.leader]; ok {
		g.advance = g.stepByLeader
		return g.outputs()
	}
	g.fill = g.fillOne
	g.cut = g.cutByLength
	return g.outputs()
}

type cutState int

const (
	cutReady cutState = iota
	cutDone
	cutStarved
)

type group struct {
	mu    sync.Mutex
	opts  options
	names []string
	srcs  map[string]Chunks

	buf       map[string]*record.Chunk
	exhausted map[string]bool
	queue     map[string][]*record.Chunk
	closed    map[string]bool

	fill    func(ctx context.Context) error
	cut     func() (map[string]int, cutState)
	advance func(ctx context.Context)

	done bool
	err  error
}

func newGroup(srcs map[string]Chunks, opts []Option) *group {
	g := &group{
		srcs:      srcs,
		buf:       make(map[string]*record.Chunk, len(srcs)),
		exhausted: make(map[string]bool, len(srcs)),
		queue:     make(map[string][]*record.Chunk, len(srcs)),
		closed:    make(map[string]bool, len(srcs)),
	}
	for _, o := range opts {
		o(&g.opts)
	}
	for name := range srcs {
		g.names = append(g.names, name)
	}
	slices.Sort(g.names)
	g.advance = g.step
	return g
}

func (g *group) outputs() map[string]Chunks {
	out := make(map[string]Chunks, len(g.names))
	for _, name := range g.names {
		out[name] = &member{g: g, name: name}
	}
	return out
}

// pull appends one chunk of name to its buffer.
func (g *group) pull(ctx context.Context, name string) error {
	c, ok, err := g.srcs[name].Next(ctx)
	if err != nil {
		return err
	}
	if !ok {
		g.exhausted[name] = true
		return nil
	}
	if g.buf[name] == nil {
		g.buf[name] = c
	} else {
		g.buf[name] = g.buf[name].Append(c)
	}
	return nil
}

func (g *group) fillOne(ctx context.Context) error {
	for _, name := range g.names {
		for g.buf[name].Len() == 0 && !g.exhausted[name] {
			if err := g.pull(ctx, name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *group) cutByKey(key KeyFunc) (map[string]int, cutState) {
	threshold := int64(math.MaxInt64)
	pending := false
	for _, name := range g.names {
		b := g.buf[name]
		if b.Len() == 0 {
			continue
		}
		pending = true
		if g.exhausted[name] {
			continue
		}
		if k := chunkKey(b, key); k < threshold {
			threshold = k
		}
	}
	if !pending {
		return nil, cutDone
	}
	threshold = g.lower(threshold, key)

	cuts := make(map[string]int, len(g.names))
	total := 0
	for _, name := range g.names {
		b := g.buf[name]
		n := 0
		for n < b.Len() {
			r := b.Record(n)
			if r.Time() >= threshold || key(r) > threshold {
				break
			}
			n++
		}
		cuts[name] = n
		total += n
	}
	if total == 0 {
		return nil, cutStarved
	}
	return cuts, cutReady
}

// lower moves threshold down to the start of buffered records straddling it
// until none does.
func (g *group) lower(threshold int64, key KeyFunc) int64 {
	for changed := true; changed; {
		changed = false
		for _, name := range g.names {
			b := g.buf[name]
			for i := 0; i < b.Len(); i++ {
				r := b.Record(i)
				if t := r.Time(); t < threshold && key(r) > threshold {
					threshold = t
					changed = true
				}
			}
		}
	}
	return threshold
}

// pullMore appends one chunk to every unfinished source. It reports false
// when every source is exhausted.
func (g *group) pullMore(ctx context.Context) (bool, error) {
	pulled := false
	for _, name := range g.names {
		if g.exhausted[name] {
			continue
		}
		if err := g.pull(ctx, name); err != nil {
			return false, err
		}
		pulled = true
	}
	return pulled, nil
}

func (g *group) cutByLength() (map[string]int, cutState) {
	n := math.MaxInt
	for _, name := range g.names {
		n = min(n, g.buf[name].Len())
	}
	if n == 0 || n == math.MaxInt {
		return nil, cutDone
	}
	cuts := make(map[string]int, len(g.names))
	for _, name := range g.names {
		cuts[name] = n
	}
	return cuts, cutReady
}

func chunkKey(c *record.Chunk, key KeyFunc) int64 {
	k := key(c.Record(0))
	for i := 1; i < c.Len(); i++ {
		k = max(k, key(c.Record(i)))
	}
	return k
}

// step advances the group by one aligned step. Must be called with mu held.
func (g *group) step(ctx context.Context) {
	if err := g.fill(ctx); err != nil {
		g.err = err
		return
	}
	cuts, state := g.cut()
	for state == cutStarved {
		pulled, err := g.pullMore(ctx)
		if err != nil {
			g.err = err
			return
		}
		if !pulled {
			cuts, state = g.flush()
			break
		}
		cuts, state = g.cut()
	}
	if state == cutDone {
		g.done = true
		return
	}
	for _, name := range g.names {
		b := g.buf[name]
		n := cuts[name]
		var out *record.Chunk
		if b == nil {
			out = record.Empty(g.opts.schemas[name])
		} else {
			out = b.Slice(0, n)
			g.buf[name] = b.Slice(n, b.Len())
		}
		if !g.closed[name] {
			g.queue[name] = append(g.queue[name], out)
		}
	}
}

// stepByLeader advances the group by the next leader chunk. An empty leader
// chunk gives an empty step for every source. Must be called with mu held.
func (g *group) stepByLeader(ctx context.Context) {
	leader := g.opts.leader
	lc, ok, err := g.srcs[leader].Next(ctx)
	if err != nil {
		g.err = err
		return
	}
	if !ok {
		g.exhausted[leader] = true
		g.done = true
		return
	}
	if lc == nil {
		lc = record.Empty(g.opts.schemas[leader])
	}

	n := lc.Len()
	for _, name := range g.names {
		if name == leader {
			continue
		}
		for g.buf[name].Len() < n && !g.exhausted[name] {
			if err := g.pull(ctx, name); err != nil {
				g.err = err
				return
			}
		}
		if m := g.buf[name].Len(); m < n {
			n = m
			g.done = true
		}
	}
	if g.done && n == 0 && lc.Len() > 0 {
		return
	}

	for _, name := range g.names {
		var out *record.Chunk
		switch b := g.buf[name]; {
		case name == leader:
			out = lc.Slice(0, n)
		case b == nil:
			out = record.Empty(g.opts.schemas[name])
		default:
			out = b.Slice(0, n)
			g.buf[name] = b.Slice(n, b.Len())
		}
		if !g.closed[name] {
			g.queue[name] = append(g.queue[name], out)
		}
	}
}

// flush cuts every buffer whole.
func (g *group) flush() (map[string]int, cutState) {
	cuts := make(map[string]int, len(g.names))
	total := 0
	for _, name := range g.names {
		cuts[name] = g.buf[name].Len()
		total += cuts[name]
	}
	if total == 0 {
		return nil, cutDone
	}
	return cuts, cutReady
}

func (g *group) next(ctx context.Context, name string) (*record.Chunk, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		if g.closed[name] {
			return nil, false, nil
		}
		if q := g.queue[name]; len(q) > 0 {
			c := q[0]
			g.queue[name] = q[1:]
			return c, true, nil
		}
		if g.err != nil {
			return nil, false, g.err
		}
		if g.done {
			return nil, false, nil
		}
		g.advance(ctx)
	}
}

func (g *group) close(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed[name] {
		return nil
	}
	g.closed[name] = true
	g.queue[name] = nil
	if len(g.closed) < len(g.names) {
		return nil
	}
	var errs []string
	for _, n := range g.names {
		if err := g.srcs[n].Close(); err != nil {
			errs = append(errs, n+": "+err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(errors.ErrCodeInternal, "closing aligned sources: "+errors.Join(errs))
	}
	return nil
}

type member struct {
	g    *group
	name string
}

func (m *member) Next(ctx context.Context) (*record.Chunk, bool, error) {
	return m.g.next(ctx, m.name)
}

func (m *member) Close() error { return m.g.close(m.name) }
