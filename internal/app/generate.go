package app

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/vk/opfuzz/internal/binary"
	"github.com/vk/opfuzz/internal/ctxlog"
	"github.com/vk/opfuzz/internal/fuzzer"
	"github.com/vk/opfuzz/internal/report"
	"github.com/vk/opfuzz/internal/space"
	"github.com/vk/opfuzz/internal/tensor"
)

// batch describes one generation request.
type batch struct {
	space   *space.Space
	scale   binary.Scale
	seed    int64
	streams int
	trials  int // per stream
}

// generate draws the batch with one fuzzer per stream, seeded seed+i, and
// returns the records in stream order followed by trial order.
func (a *App) generate(ctx context.Context, b batch) ([]report.Record, fuzzer.Stats, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Generating trials.", "seed", b.seed, "streams", b.streams, "trials_per_stream", b.trials)

	type result struct {
		records []report.Record
		stats   fuzzer.Stats
	}
	results := make([]result, b.streams)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range b.streams {
		seed := b.seed + int64(i)
		g.Go(func() error {
			sctx := ctxlog.With(gctx, "stream", i)
			f, err := binary.New(seed, a.fuzzerOptions(b))
			if err != nil {
				return err
			}
			trials, err := f.Take(sctx, b.trials)
			if err != nil {
				return fmt.Errorf("stream %d (seed %d): %w", i, seed, err)
			}

			records := make([]report.Record, len(trials))
			for j, t := range trials {
				if records[j], err = report.NewRecord(seed, b.scale, t); err != nil {
					return fmt.Errorf("stream %d (seed %d): %w", i, seed, err)
				}
			}
			results[i] = result{records: records, stats: f.Stats()}
			ctxlog.FromContext(sctx).Debug("Stream finished.", "trials", len(trials), "rejected", f.Stats().Rejected)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fuzzer.Stats{}, err
	}

	var (
		records []report.Record
		stats   fuzzer.Stats
	)
	for _, r := range results {
		records = append(records, r.records...)
		stats = stats.Add(r.stats)
	}
	return records, stats, nil
}

func (a *App) fuzzerOptions(b batch) binary.Options {
	opts := binary.Options{
		Attributes:  a.config.Attributes,
		Scale:       b.scale,
		MaxAttempts: a.config.MaxAttempts,
		Space:       b.space,
	}
	if a.config.Materialize {
		opts.Materializer = tensor.CPUAllocator{}
	}
	return opts
}
