package tensor

import (
	"fmt"
	"strings"
)

// Device represents the compute device a tensor is placed on.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
	CUDA
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "cpu"
	case CUDA:
		return "cuda"
	default:
		return "unknown"
	}
}

// ParseDevice maps "cpu" or "cuda" to a Device.
func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpu":
		return CPU, nil
	case "cuda", "gpu":
		return CUDA, nil
	default:
		return 0, fmt.Errorf("unknown device %q", s)
	}
}
