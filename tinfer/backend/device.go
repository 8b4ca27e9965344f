// Package backend resolves declarative device/precision/optimization requests
// into validated execution configurations and drives the native inference
// session over them. The native runtime is behind the "onnx" build tag; the
// default build keeps the resolver and output plumbing usable without it.
package backend

import (
	"strings"

	"github.com/ZanzyTHEbar/text-inference/tinfer/common"
)

// Device is the execution target. Closed set: unknown strings are rejected
// at parse time and can never reach the native backend.
type Device int

const (
	DeviceCPU Device = iota
	DeviceGPU
	DeviceAccelerator
)

// ParseDevice maps a config string to a Device.
func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cpu":
		return DeviceCPU, nil
	case "gpu", "cuda":
		return DeviceGPU, nil
	case "accelerator", "xpu", "npu":
		return DeviceAccelerator, nil
	default:
		return DeviceCPU, common.Wrapf(common.ErrUnsupportedConfiguration, "unknown device %q", s)
	}
}

func (d Device) String() string {
	switch d {
	case DeviceGPU:
		return "gpu"
	case DeviceAccelerator:
		return "accelerator"
	default:
		return "cpu"
	}
}

// Precision is the numeric type of internal computation.
type Precision int

const (
	PrecisionFloat32 Precision = iota
	PrecisionHalf
	PrecisionInt8
)

// ParsePrecision maps a config string to a Precision.
func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fp32", "float32":
		return PrecisionFloat32, nil
	case "fp16", "half", "float16":
		return PrecisionHalf, nil
	case "int8":
		return PrecisionInt8, nil
	default:
		return PrecisionFloat32, common.Wrapf(common.ErrUnsupportedConfiguration, "unknown precision %q", s)
	}
}

func (p Precision) String() string {
	switch p {
	case PrecisionHalf:
		return "fp16"
	case PrecisionInt8:
		return "int8"
	default:
		return "fp32"
	}
}

// Optimization selects an ahead-of-time graph-optimizing execution path.
type Optimization int

const (
	OptimizationNone Optimization = iota
	// OptimizationGraphAccelerator trades startup latency for lower per-batch
	// latency. GPU only.
	OptimizationGraphAccelerator
)

func (o Optimization) String() string {
	if o == OptimizationGraphAccelerator {
		return "graph-accelerator"
	}
	return "none"
}
