package backend

import (
	"github.com/ZanzyTHEbar/text-inference/tinfer/common"
)

const (
	// defaultMinSubgraphSize bounds which subgraphs the graph accelerator
	// will fuse; below this size the overhead outweighs the win.
	defaultMinSubgraphSize = 30

	// defaultMemoryPoolMB is the initial device memory pool for GPU and
	// accelerator targets.
	defaultMemoryPoolMB = 100
)

// Options is the declarative request handed to Resolve. Zero values select
// documented defaults where one exists; everything else must be explicit.
type Options struct {
	Device         Device
	Precision      Precision
	UseAccelerator bool

	// BatchSize bounds the batch dimension of every run and, under the graph
	// accelerator, its compiled max batch size.
	BatchSize int

	// ThreadCount bounds intra-op parallelism. CPU only; must be positive
	// there.
	ThreadCount int

	// CacheCapacity bounds how many distinct input shapes the CPU
	// shape-specialized compute path keeps cached. CPU only; 0 disables.
	CacheCapacity int

	// MemoryPoolMB hints the initial device memory pool. Ignored on CPU;
	// defaults to 100 on GPU/accelerator when zero.
	MemoryPoolMB int

	// MinSubgraphSize bounds graph-accelerator fusion; defaults to 30 when
	// the accelerator is enabled and zero is given.
	MinSubgraphSize int

	// InputCount declares how many input tensors the model artifact is
	// expected to accept. 0 means "don't check".
	InputCount int
}

// ExecutionConfig is the validated, immutable result of Resolve. An engine is
// bound to exactly one ExecutionConfig for its entire lifetime.
type ExecutionConfig struct {
	device          Device
	precision       Precision
	optimization    Optimization
	threadCount     int
	cacheCapacity   int
	memoryPoolMB    int
	maxBatchSize    int
	minSubgraphSize int
	inputCount      int
}

func (c ExecutionConfig) Device() Device             { return c.device }
func (c ExecutionConfig) Precision() Precision       { return c.precision }
func (c ExecutionConfig) Optimization() Optimization { return c.optimization }
func (c ExecutionConfig) ThreadCount() int           { return c.threadCount }
func (c ExecutionConfig) CacheCapacity() int         { return c.cacheCapacity }
func (c ExecutionConfig) MemoryPoolMB() int          { return c.memoryPoolMB }
func (c ExecutionConfig) MaxBatchSize() int          { return c.maxBatchSize }
func (c ExecutionConfig) MinSubgraphSize() int       { return c.minSubgraphSize }
func (c ExecutionConfig) InputCount() int            { return c.inputCount }

// Resolve validates an Options request into an ExecutionConfig. Pure and
// deterministic: same options in, same configuration out. Invalid
// combinations fail with ErrUnsupportedConfiguration and are never silently
// coerced. Must be called exactly once before engine construction.
func Resolve(opts Options) (ExecutionConfig, error) {
	var zero ExecutionConfig

	if opts.BatchSize <= 0 {
		return zero, common.Wrapf(common.ErrUnsupportedConfiguration,
			"resolve: batch size must be positive, got %d", opts.BatchSize)
	}

	cfg := ExecutionConfig{
		device:       opts.Device,
		precision:    opts.Precision,
		maxBatchSize: opts.BatchSize,
		inputCount:   opts.InputCount,
	}

	switch opts.Device {
	case DeviceCPU:
		if opts.UseAccelerator {
			return zero, common.Wrapf(common.ErrUnsupportedConfiguration,
				"resolve: graph accelerator requires a GPU device, got cpu")
		}
		if opts.Precision != PrecisionFloat32 {
			return zero, common.Wrapf(common.ErrUnsupportedConfiguration,
				"resolve: precision %s requires the graph accelerator on gpu", opts.Precision)
		}
		if opts.ThreadCount <= 0 {
			return zero, common.Wrapf(common.ErrUnsupportedConfiguration,
				"resolve: cpu thread count must be positive, got %d", opts.ThreadCount)
		}
		if opts.CacheCapacity < 0 {
			return zero, common.Wrapf(common.ErrUnsupportedConfiguration,
				"resolve: cache capacity must be non-negative, got %d", opts.CacheCapacity)
		}
		cfg.threadCount = opts.ThreadCount
		cfg.cacheCapacity = opts.CacheCapacity

	case DeviceGPU:
		if opts.CacheCapacity != 0 {
			return zero, common.Wrapf(common.ErrUnsupportedConfiguration,
				"resolve: shape cache capacity is a cpu-only concept, got %d on gpu", opts.CacheCapacity)
		}
		if opts.Precision != PrecisionFloat32 && !opts.UseAccelerator {
			return zero, common.Wrapf(common.ErrUnsupportedConfiguration,
				"resolve: precision %s on gpu requires the graph accelerator", opts.Precision)
		}
		cfg.memoryPoolMB = opts.MemoryPoolMB
		if cfg.memoryPoolMB == 0 {
			cfg.memoryPoolMB = defaultMemoryPoolMB
		}
		if opts.UseAccelerator {
			cfg.optimization = OptimizationGraphAccelerator
			cfg.minSubgraphSize = opts.MinSubgraphSize
			if cfg.minSubgraphSize == 0 {
				cfg.minSubgraphSize = defaultMinSubgraphSize
			}
		}

	case DeviceAccelerator:
		if opts.UseAccelerator {
			return zero, common.Wrapf(common.ErrUnsupportedConfiguration,
				"resolve: graph accelerator requires a GPU device, got accelerator")
		}
		if opts.Precision != PrecisionFloat32 {
			return zero, common.Wrapf(common.ErrUnsupportedConfiguration,
				"resolve: accelerator device supports fp32 only, got %s", opts.Precision)
		}
		if opts.CacheCapacity != 0 {
			return zero, common.Wrapf(common.ErrUnsupportedConfiguration,
				"resolve: shape cache capacity is a cpu-only concept, got %d on accelerator", opts.CacheCapacity)
		}
		cfg.memoryPoolMB = opts.MemoryPoolMB
		if cfg.memoryPoolMB == 0 {
			cfg.memoryPoolMB = defaultMemoryPoolMB
		}

	default:
		return zero, common.Wrapf(common.ErrUnsupportedConfiguration,
			"resolve: unknown device %d", opts.Device)
	}

	return cfg, nil
}
