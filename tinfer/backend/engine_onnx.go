//go:build onnx
// +build onnx

package backend

import (
	"os"
	"strconv"

	ort "github.com/yalue/onnxruntime_go"

	internal "github.com/ZanzyTHEbar/text-inference/tinfer"
	"github.com/ZanzyTHEbar/text-inference/tinfer/batching"
	"github.com/ZanzyTHEbar/text-inference/tinfer/common"
)

// Engine owns one loaded model bound to one ExecutionConfig for its entire
// lifetime. Not reentrant: it reuses input/output buffers across calls, so
// one goroutine per engine. Callers wanting parallelism construct independent
// engines, one per device.
type Engine struct {
	cfg         ExecutionConfig
	session     *ort.DynamicAdvancedSession
	inputNames  []string
	outputNames []string
	closed      bool

	// scratch buffers reused across runs; see RawOutput ownership note.
	idScratch    []int64
	scoreScratch []float32
}

// NewEngine loads the model artifact and binds a session to cfg. Fails
// atomically: on any error no partially-initialized engine escapes.
func NewEngine(modelPath string, cfg ExecutionConfig, rt *Runtime) (*Engine, error) {
	if rt == nil {
		rt = DefaultRuntime()
	}
	if err := rt.Init(); err != nil {
		return nil, err
	}
	if fi, err := os.Stat(modelPath); err != nil || fi.IsDir() {
		return nil, common.Wrapf(common.ErrModelLoad, "engine: model artifact %q not found", modelPath)
	}

	ins, outs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, common.Wrapf(common.ErrModelLoad, "engine: probe %q: %v", modelPath, err)
	}
	if cfg.InputCount() > 0 && len(ins) != cfg.InputCount() {
		return nil, common.Wrapf(common.ErrConfigMismatch,
			"engine: model declares %d inputs, configuration expects %d", len(ins), cfg.InputCount())
	}
	inputNames := make([]string, len(ins))
	for i, ii := range ins {
		inputNames[i] = ii.Name
	}
	outputNames := make([]string, len(outs))
	for i, oi := range outs {
		outputNames[i] = oi.Name
	}
	if len(inputNames) == 0 || len(outputNames) == 0 {
		return nil, common.Wrapf(common.ErrModelLoad, "engine: model %q exposes no IO", modelPath)
	}

	opts, err := sessionOptions(cfg)
	if err != nil {
		return nil, err
	}
	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, opts)
	if opts != nil {
		_ = opts.Destroy()
	}
	if err != nil {
		return nil, common.Wrapf(common.ErrModelLoad, "engine: create session: %v", err)
	}

	internal.GetLogger().Debug().
		Str("model", modelPath).
		Str("device", cfg.Device().String()).
		Str("precision", cfg.Precision().String()).
		Str("optimization", cfg.Optimization().String()).
		Int("inputs", len(inputNames)).
		Msg("engine session created")

	return &Engine{cfg: cfg, session: session, inputNames: inputNames, outputNames: outputNames}, nil
}

func sessionOptions(cfg ExecutionConfig) (*ort.SessionOptions, error) {
	o, err := ort.NewSessionOptions()
	if err != nil {
		return nil, common.Wrapf(common.ErrModelLoad, "engine: session options: %v", err)
	}
	_ = o.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll)

	switch cfg.Device() {
	case DeviceCPU:
		_ = o.SetIntraOpNumThreads(cfg.ThreadCount())
		_ = o.SetInterOpNumThreads(1)
	case DeviceGPU:
		if cfg.Optimization() == OptimizationGraphAccelerator {
			trt, err := ort.NewTensorRTProviderOptions()
			if err != nil {
				_ = o.Destroy()
				return nil, common.Wrapf(common.ErrUnsupportedConfiguration, "engine: graph accelerator: %v", err)
			}
			trtOpts := map[string]string{
				"trt_max_partition_iterations": "1000",
				"trt_min_subgraph_size":        strconv.Itoa(cfg.MinSubgraphSize()),
			}
			switch cfg.Precision() {
			case PrecisionHalf:
				trtOpts["trt_fp16_enable"] = "1"
			case PrecisionInt8:
				trtOpts["trt_int8_enable"] = "1"
			}
			_ = trt.Update(trtOpts)
			if err := o.AppendExecutionProviderTensorRT(trt); err != nil {
				_ = trt.Destroy()
				_ = o.Destroy()
				return nil, common.Wrapf(common.ErrUnsupportedConfiguration, "engine: append accelerator: %v", err)
			}
			_ = trt.Destroy()
		}
		cu, err := ort.NewCUDAProviderOptions()
		if err != nil {
			_ = o.Destroy()
			return nil, common.Wrapf(common.ErrUnsupportedConfiguration, "engine: gpu provider: %v", err)
		}
		_ = cu.Update(map[string]string{
			"gpu_mem_limit": strconv.Itoa(cfg.MemoryPoolMB() * 1024 * 1024),
		})
		if err := o.AppendExecutionProviderCUDA(cu); err != nil {
			_ = cu.Destroy()
			_ = o.Destroy()
			return nil, common.Wrapf(common.ErrUnsupportedConfiguration, "engine: append gpu provider: %v", err)
		}
		_ = cu.Destroy()
	case DeviceAccelerator:
		if err := o.AppendExecutionProviderDirectML(0); err != nil {
			_ = o.Destroy()
			return nil, common.Wrapf(common.ErrUnsupportedConfiguration, "engine: append accelerator provider: %v", err)
		}
	}
	return o, nil
}

// Run executes one synchronous batch. Every input field must share one batch
// size and fit the configured maximum; validation happens before the backend
// is touched, so a rejected call leaves the engine usable. A backend failure
// surfaces as ErrEngineRuntime and is not retried here: device state after a
// failed run is undefined and the caller should re-create the engine.
//
// The returned RawOutput reuses engine-owned buffers that the next Run call
// invalidates; copy results out (Sequences/Scores copy) before running again.
func (e *Engine) Run(batches []*batching.Batch) (*RawOutput, error) {
	if e.closed {
		return nil, common.Wrapf(common.ErrEngineRuntime, "run: engine is closed")
	}
	size, err := validateBatches(batches, e.cfg.MaxBatchSize())
	if err != nil {
		return nil, err
	}
	if len(batches) > len(e.inputNames) {
		return nil, common.Wrapf(common.ErrShapeMismatch,
			"run: %d input fields supplied, model accepts %d", len(batches), len(e.inputNames))
	}

	inVals := make([]ort.Value, len(e.inputNames))
	destroy := func() {
		for _, v := range inVals {
			if v != nil {
				_ = v.Destroy()
			}
		}
	}
	for i := range e.inputNames {
		var data []int64
		var width int
		if i < len(batches) {
			data = batches[i].Flatten()
			width = batches[i].MaxLen()
		} else {
			// Model wants more inputs than the caller supplied; feed the
			// attention mask of the primary field, then zeros.
			if i == len(batches) {
				data = batches[0].FlattenMask()
			} else {
				data = make([]int64, size*batches[0].MaxLen())
			}
			width = batches[0].MaxLen()
		}
		shape := ort.NewShape(int64(size), int64(width))
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			destroy()
			return nil, common.Wrapf(common.ErrEngineRuntime, "run: input tensor %s: %v", e.inputNames[i], err)
		}
		inVals[i] = t
	}
	defer destroy()

	outs := make([]ort.Value, len(e.outputNames))
	if err := e.session.Run(inVals, outs); err != nil {
		return nil, common.Wrapf(common.ErrEngineRuntime, "run: backend execution: %v", err)
	}
	defer func() {
		for _, v := range outs {
			if v != nil {
				_ = v.Destroy()
			}
		}
	}()

	return e.captureOutput(outs[0])
}

func (e *Engine) captureOutput(out ort.Value) (*RawOutput, error) {
	switch t := out.(type) {
	case *ort.Tensor[float32]:
		data, shape := t.GetData(), t.GetShape()
		e.scoreScratch = append(e.scoreScratch[:0], data...)
		return NewScoreOutput(e.scoreScratch, append([]int64(nil), shape...)), nil
	case *ort.Tensor[int64]:
		data, shape := t.GetData(), t.GetShape()
		e.idScratch = append(e.idScratch[:0], data...)
		return NewSequenceOutput(e.idScratch, append([]int64(nil), shape...)), nil
	case *ort.Tensor[int32]:
		data, shape := t.GetData(), t.GetShape()
		e.idScratch = e.idScratch[:0]
		for _, v := range data {
			e.idScratch = append(e.idScratch, int64(v))
		}
		return NewSequenceOutput(e.idScratch, append([]int64(nil), shape...)), nil
	default:
		return nil, common.Wrapf(common.ErrEngineRuntime,
			"run: unexpected output tensor type %T", out)
	}
}

// Config returns the execution configuration the engine is bound to.
func (e *Engine) Config() ExecutionConfig { return e.cfg }

// Close releases the session and device resources. Idempotent.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.session != nil {
		if err := e.session.Destroy(); err != nil {
			return common.Wrapf(common.ErrEngineRuntime, "close: destroy session: %v", err)
		}
		e.session = nil
	}
	return nil
}
