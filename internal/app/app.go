package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/opfuzz/internal/binary"
	"github.com/vk/opfuzz/internal/ctxlog"
	"github.com/vk/opfuzz/internal/hclspace"
	"github.com/vk/opfuzz/internal/space"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logW   io.Writer
	logger *slog.Logger
	config *Config
	space  *space.Space

	httpServer *http.Server
}

// NewApp is the constructor for the main application. Records go to outW
// and logs to logW. It panics when the parameter space cannot be built,
// since that is a fatal startup error.
func NewApp(outW, logW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	s, err := loadSpace(ctx, cfg, cfg.Scale, cfg.Dim)
	if err != nil {
		panic(fmt.Errorf("failed to load parameter space: %w", err))
	}
	logger.Debug("Parameter space ready.", "parameters", len(s.Parameters()), "tensors", len(s.Tensors()), "order", s.Order())

	return &App{
		outW:   outW,
		logW:   logW,
		logger: logger,
		config: cfg,
		space:  s,
	}
}

// Space returns the configured parameter space.
func (a *App) Space() *space.Space {
	return a.space
}

// loadSpace builds the space for scale, from HCL files when configured or
// the built-in binary space otherwise, and fixes the rank when dim > 0.
func loadSpace(ctx context.Context, cfg *Config, scale binary.Scale, dim int64) (*space.Space, error) {
	limits, err := binary.LimitsFor(scale)
	if err != nil {
		return nil, err
	}

	var s *space.Space
	if len(cfg.SpacePaths) > 0 {
		s, err = newSpaceLoader(cfg, limits).Load(ctx, cfg.SpacePaths...)
	} else {
		s, err = binary.NewSpace(limits, cfg.Attributes)
	}
	if err != nil {
		return nil, err
	}
	return finishSpace(s, dim)
}

// loadSpaceBytes is loadSpace for an HCL document held in memory.
func loadSpaceBytes(ctx context.Context, cfg *Config, scale binary.Scale, dim int64, src []byte, filename string) (*space.Space, error) {
	limits, err := binary.LimitsFor(scale)
	if err != nil {
		return nil, err
	}
	s, err := newSpaceLoader(cfg, limits).LoadBytes(ctx, src, filename)
	if err != nil {
		return nil, err
	}
	return finishSpace(s, dim)
}

func newSpaceLoader(cfg *Config, limits binary.Limits) *hclspace.Loader {
	return hclspace.NewLoader(hclspace.Options{
		Variables:    limits.Variables(),
		DType:        cfg.Attributes.DType,
		Device:       cfg.Attributes.Device,
		RequiresGrad: cfg.Attributes.RequiresGrad,
	})
}

// finishSpace rejects spaces the binary fuzzer cannot drive and applies the
// rank override.
func finishSpace(s *space.Space, dim int64) (*space.Space, error) {
	if err := binary.CheckSpace(s); err != nil {
		return nil, err
	}
	if dim > 0 {
		return binary.ForceDim(s, dim)
	}
	return s, nil
}
