//go:build !onnx
// +build !onnx

package backend

import (
	"github.com/ZanzyTHEbar/text-inference/tinfer/batching"
	"github.com/ZanzyTHEbar/text-inference/tinfer/common"
)

// Engine is a stub used when built without the "onnx" build tag.
type Engine struct {
	cfg ExecutionConfig
}

// NewEngine always fails without backend support.
func NewEngine(modelPath string, cfg ExecutionConfig, rt *Runtime) (*Engine, error) {
	return nil, common.Wrapf(common.ErrBackendUnavailable,
		"engine: build with -tags onnx to load %q", modelPath)
}

func (e *Engine) Run(batches []*batching.Batch) (*RawOutput, error) {
	return nil, common.Wrapf(common.ErrBackendUnavailable, "run: build with -tags onnx")
}

// Config returns the execution configuration the engine is bound to.
func (e *Engine) Config() ExecutionConfig { return e.cfg }

func (e *Engine) Close() error { return nil }
