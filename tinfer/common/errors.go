package common

import (
	"errors"
	"fmt"
)

// Common error types used across the inference pipeline packages.
// Callers match these with errors.Is; the wrapped message carries the
// stage and the expected/actual values needed to diagnose a failure.
var (
	// ErrInvalidInput rejects empty or malformed caller input. Recoverable:
	// only the offending request fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedConfiguration rejects a device/precision/optimization
	// combination at resolve time. Never downgraded silently.
	ErrUnsupportedConfiguration = errors.New("unsupported configuration")

	// ErrModelLoad indicates a missing or corrupt model artifact. Fatal to
	// engine construction.
	ErrModelLoad = errors.New("model load failed")

	// ErrConfigMismatch indicates the model artifact disagrees with the
	// resolved configuration (e.g. declared input arity). Fatal to engine
	// construction.
	ErrConfigMismatch = errors.New("configuration mismatch")

	// ErrShapeMismatch indicates inconsistent batch shapes on a run call.
	// Recoverable: the engine stays usable for a corrected batch.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrEngineRuntime wraps a backend execution failure. Surfaced as-is and
	// not retried; device state after a failed run is undefined, so callers
	// should re-create the engine rather than continue.
	ErrEngineRuntime = errors.New("engine runtime failure")

	// ErrUnknownLabelIndex indicates model output cardinality disagrees with
	// the supplied label map. Fatal to that decode call.
	ErrUnknownLabelIndex = errors.New("unknown label index")

	// ErrBackendUnavailable is returned by builds without native backend
	// support (build with -tags onnx to enable).
	ErrBackendUnavailable = errors.New("inference backend not available")
)

// Wrapf attaches stage context to a sentinel error.
func Wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}
