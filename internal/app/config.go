package app

import (
	"errors"
	"fmt"

	"github.com/vk/opfuzz/internal/binary"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Seed       int64
	Scale      binary.Scale
	Attributes binary.Attributes
	// SpacePaths are HCL files or directories replacing the built-in space.
	SpacePaths []string
	// Dim fixes the operand rank; 0 samples it.
	Dim         int64
	MaxAttempts int
	Materialize bool

	Trials  int // per stream
	Streams int

	OutPath     string // JSON lines; empty writes to the app output
	XLSXPath    string
	SummaryPath string
	// DumpSpacePath receives the active space as HCL; "-" means the app
	// output.
	DumpSpacePath string

	LogFormat string
	LogLevel  string
	ServePort int
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	switch {
	case cfg.Trials < 0:
		return nil, fmt.Errorf("trial count %d must not be negative", cfg.Trials)
	case cfg.Streams < 1:
		return nil, fmt.Errorf("stream count %d must be at least 1", cfg.Streams)
	case cfg.Dim < 0 || cfg.Dim > binary.MaxDim:
		return nil, fmt.Errorf("dim %d outside [0, %d]", cfg.Dim, binary.MaxDim)
	case cfg.MaxAttempts < 0:
		return nil, fmt.Errorf("max attempts %d must not be negative", cfg.MaxAttempts)
	case cfg.ServePort < 0 || cfg.ServePort > 65535:
		return nil, fmt.Errorf("serve port %d out of range", cfg.ServePort)
	case cfg.Trials == 0 && cfg.ServePort == 0 && cfg.DumpSpacePath == "":
		return nil, errors.New("nothing to do: set a trial count, a serve port or a space dump path")
	}
	if _, err := binary.LimitsFor(cfg.Scale); err != nil {
		return nil, err
	}
	return &cfg, nil
}
