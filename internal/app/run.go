package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/vk/opfuzz/internal/ctxlog"
	"github.com/vk/opfuzz/internal/hclspace"
	"github.com/vk/opfuzz/internal/report"
)

// Run executes the main application logic based on the provided configuration.
// With a serve port it keeps serving until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.DumpSpacePath != "" {
		if err := a.dumpSpace(); err != nil {
			return err
		}
	}

	if a.config.ServePort > 0 {
		if err := a.startServer(ctx); err != nil {
			return err
		}
		defer a.closeServer(ctx)
	}

	if a.config.Trials > 0 {
		if err := a.runBatch(ctx); err != nil {
			return err
		}
	}

	if a.httpServer != nil {
		a.logger.Info("Serving until interrupted.")
		<-ctx.Done()
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) runBatch(ctx context.Context) error {
	cfg := a.config
	a.logger.Info("🚀 Generating trials...", "seed", cfg.Seed, "scale", cfg.Scale, "streams", cfg.Streams, "trials_per_stream", cfg.Trials)

	records, stats, err := a.generate(ctx, batch{
		space:   a.space,
		scale:   cfg.Scale,
		seed:    cfg.Seed,
		streams: cfg.Streams,
		trials:  cfg.Trials,
	})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if err := a.writeRecords(records); err != nil {
		return err
	}
	if cfg.XLSXPath != "" {
		if err := report.WriteXLSX(cfg.XLSXPath, records); err != nil {
			return fmt.Errorf("writing xlsx report: %w", err)
		}
		a.logger.Debug("XLSX report written.", "path", cfg.XLSXPath)
	}

	summary, err := report.Summarize(records, stats)
	if err != nil {
		return fmt.Errorf("summarizing: %w", err)
	}
	if cfg.SummaryPath != "" {
		if err := writeJSONFile(cfg.SummaryPath, summary); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}
	a.logger.Info("🏁 Generation finished.",
		"trials", summary.Trials,
		"rejection_rate", summary.RejectionRate,
		"broadcast_rate", summary.BroadcastRate,
		"x_numel_median", summary.NumelMedian,
	)
	return nil
}

func (a *App) writeRecords(records []report.Record) (err error) {
	var w io.Writer = a.outW
	if a.config.OutPath != "" {
		var f *os.File
		if f, err = os.Create(a.config.OutPath); err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	jw := report.NewJSONLWriter(w)
	if err := jw.Write(records...); err != nil {
		return fmt.Errorf("writing records: %w", err)
	}
	return jw.Flush()
}

// dumpSpace writes the active space as HCL.
func (a *App) dumpSpace() error {
	src := hclspace.Encode(a.space)
	path := a.config.DumpSpacePath
	if path == "-" {
		_, err := a.outW.Write(src)
		return err
	}
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return fmt.Errorf("writing space: %w", err)
	}
	a.logger.Info("Parameter space written.", "path", path)
	return nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
