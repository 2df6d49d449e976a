package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kbukum/kindflow/dag"
	"github.com/kbukum/kindflow/dispatch"
	"github.com/kbukum/kindflow/internal/demo"
	"github.com/kbukum/kindflow/logger"
	"github.com/kbukum/kindflow/observability"
	"github.com/kbukum/kindflow/plugin"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Records demo.RecordsConfig
	// BatchSize overrides stream.batch_size when not negative.
	BatchSize int
	// Show is the number of output rows to print.
	Show int
}

// RunSummary is the output of the run command.
type RunSummary struct {
	RunID    string   `json:"run_id"`
	Target   string   `json:"target"`
	Chunks   int      `json:"chunks"`
	Rows     int      `json:"rows"`
	Fields   []string `json:"fields"`
	Sample   [][]any  `json:"sample,omitempty"`
	Duration string   `json:"duration"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts, Records: demo.DefaultRecordsConfig()}

	cmd := &cobra.Command{
		Use:   "run [target]",
		Short: "Stream synthetic records through the demo chain",
		Long: `Generate synthetic records and stream the chosen output (event_basics by
default) to completion, printing a summary and the first rows.

Example:
  kindflow run --records 5000 --chunk-size 250
  kindflow run peak_info --batch-size 64 --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := demo.EventBasics
			if len(args) == 1 {
				target = args[0]
			}
			summary, err := runStream(cmd.Context(), opts, target)
			if err != nil {
				return err
			}
			return opts.emit(cmd.OutOrStdout(), summary, func(w io.Writer) error {
				return writeSummary(w, summary)
			})
		},
	}

	cmd.Flags().IntVar(&opts.Records.Count, "records", opts.Records.Count, "number of synthetic records")
	cmd.Flags().IntVar(&opts.Records.ChunkSize, "chunk-size", opts.Records.ChunkSize, "records per source chunk")
	cmd.Flags().IntVar(&opts.Records.Channels, "channels", opts.Records.Channels, "number of channels")
	cmd.Flags().Uint64Var(&opts.Records.Seed, "seed", opts.Records.Seed, "random seed")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", -1, "rows per batch (overrides stream.batch_size)")
	cmd.Flags().IntVar(&opts.Show, "show", 5, "number of output rows to print")

	return cmd
}

func runStream(parent context.Context, opts *RunOptions, target string) (*RunSummary, error) {
	cfg := opts.Config
	if opts.BatchSize >= 0 {
		cfg.Stream.BatchSize = opts.BatchSize
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := startTelemetry(ctx, opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "starting telemetry", err)
	}
	defer shutdown()

	g, err := buildGraph(opts.RootOptions, target)
	if err != nil {
		return nil, err
	}

	metrics, err := observability.NewStreamMetrics(observability.Meter("kindflow"))
	if err != nil {
		return nil, WrapExitError(ExitFailure, "creating metrics", err)
	}

	pool := dispatch.NewPool(dispatch.Config{Name: "compute", Workers: cfg.Stream.Workers})
	defer pool.Close()

	runID := uuid.NewString()
	log := logger.WithComponent("run").WithFields(logger.Fields(logger.FieldRunID, runID, logger.FieldTarget, target))
	log.Info("stream starting", logger.Fields(
		"records", opts.Records.Count,
		"batch_size", cfg.Stream.BatchSize,
		"workers", cfg.Stream.Workers,
	))

	streamOpts := []dag.StreamOption{
		dag.WithRunID(runID),
		dag.WithPrefetch(cfg.Stream.Prefetch),
		dag.WithIterOptions(
			plugin.WithBatchSize(cfg.Stream.BatchSize),
			plugin.WithDispatcher(plugin.NewPoolDispatcher(pool)),
			plugin.WithMetrics(metrics),
		),
	}
	if _, ok := g.Instance(dag.RecordsName); ok {
		streamOpts = append(streamOpts, dag.WithSource(dag.RecordsName, demo.Records(opts.Records)))
	}

	start := time.Now()
	out, err := g.Stream(ctx, target, streamOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCode(err), "wiring stream", err)
	}
	defer out.Close()

	in, _ := g.Instance(target)
	summary := &RunSummary{RunID: runID, Target: target, Fields: in.Schema().Names()}
	for {
		c, ok, err := out.Next(ctx)
		if err != nil {
			log.WithError(err).Error("stream failed", logger.Fields(logger.FieldChunks, summary.Chunks))
			return nil, WrapExitError(ExitCode(err), "streaming "+target, err)
		}
		if !ok {
			break
		}
		summary.Chunks++
		summary.Rows += c.Len()
		for i := 0; i < c.Len() && len(summary.Sample) < opts.Show; i++ {
			summary.Sample = append(summary.Sample, c.Record(i).Values())
		}
	}
	elapsed := time.Since(start)
	summary.Duration = elapsed.String()

	log.Info("stream finished", logger.Fields(
		logger.FieldChunks, summary.Chunks,
		logger.FieldRows, summary.Rows,
		logger.FieldDuration, elapsed.Milliseconds(),
	))
	return summary, nil
}

// startTelemetry initializes the exporters enabled in the config and returns
// a function flushing them.
func startTelemetry(ctx context.Context, opts *RunOptions) (func(), error) {
	var shutdowns []func(context.Context) error
	if opts.Config.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, opts.Config.TracerConfig())
		if err != nil {
			return nil, err
		}
		shutdowns = append(shutdowns, tp.Shutdown)
	}
	if opts.Config.Metrics.Enabled {
		mp, err := observability.InitMeter(ctx, opts.Config.MeterConfig())
		if err != nil {
			for _, fn := range shutdowns {
				_ = fn(ctx)
			}
			return nil, err
		}
		shutdowns = append(shutdowns, mp.Shutdown)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, fn := range shutdowns {
			if err := fn(ctx); err != nil {
				logger.Warn("telemetry shutdown failed", logger.ErrorFields("shutdown", err))
			}
		}
	}, nil
}

func writeSummary(w io.Writer, s *RunSummary) error {
	_, err := fmt.Fprintf(w, "%s: %d rows in %d chunks (%s)\nrun %s\n",
		s.Target, s.Rows, s.Chunks, s.Duration, s.RunID)
	if err != nil || len(s.Sample) == 0 {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Join(s.Fields, "\t")); err != nil {
		return err
	}
	for _, row := range s.Sample {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return nil
}
