package demo

import (
	"context"
	"math/rand/v2"

	"github.com/kbukum/kindflow/align"
	"github.com/kbukum/kindflow/dag"
	"github.com/kbukum/kindflow/pipeline"
	"github.com/kbukum/kindflow/record"
)

// RecordsConfig shapes the synthetic record stream.
type RecordsConfig struct {
	// Count is the total number of records.
	Count int
	// ChunkSize is the number of records per chunk.
	ChunkSize int
	// Channels is the number of channels records are spread over.
	Channels int
	// Seed makes the stream reproducible.
	Seed uint64
}

// DefaultRecordsConfig returns a small stream of 1000 records.
func DefaultRecordsConfig() RecordsConfig {
	return RecordsConfig{Count: 1000, ChunkSize: 100, Channels: 8, Seed: 1}
}

// Records returns a stream of non-overlapping records with dag.RecordsSchema,
// ordered by time.
func Records(cfg RecordsConfig) align.Chunks {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = cfg.Count
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	var (
		emitted int
		now     int64
	)
	next := func(ctx context.Context) (*record.Chunk, bool, error) {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		if emitted >= cfg.Count {
			return nil, false, nil
		}
		n := min(cfg.ChunkSize, cfg.Count-emitted)
		rows := make([][]any, n)
		for i := range rows {
			const dt = 10
			length := int64(20 + rng.IntN(80))
			rows[i] = []any{
				now,
				length,
				int64(dt),
				int64(rng.IntN(cfg.Channels)),
				int64(1 + rng.IntN(int(length))),
				int64(emitted + i),
				8000 + rng.Float64()*400,
			}
			// gaps between records vary so that some of them join into events
			now += length*dt + int64(rng.IntN(3000))
		}
		emitted += n
		c, err := record.NewChunk(dag.RecordsSchema, rows...)
		if err != nil {
			return nil, false, err
		}
		return c, true, nil
	}
	return pipeline.Func(next, nil)
}
