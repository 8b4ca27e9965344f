package main

import (
	"github.com/urfave/cli/v3"

	"github.com/ZanzyTHEbar/text-inference/tinfer/config"
)

var (
	configPath     string
	modelPath      string
	vocabPath      string
	device         string
	precision      string
	useAccelerator bool
	threadCount    int64
	cacheCapacity  int64
	batchSize      int64
	maxSeqLen      int64
	benchmark      bool
	reportPath     string
)

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config file",
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "path to the model artifact",
			Destination: &modelPath,
		},
		&cli.StringFlag{
			Name:        "vocab",
			Usage:       "path to vocab.txt",
			Destination: &vocabPath,
		},
		&cli.StringFlag{
			Name:        "device",
			Usage:       "execution target (cpu, gpu, accelerator)",
			Destination: &device,
		},
		&cli.StringFlag{
			Name:        "precision",
			Usage:       "compute precision (fp32, fp16, int8)",
			Destination: &precision,
		},
		&cli.BoolFlag{
			Name:        "use-accelerator",
			Usage:       "enable the graph-optimizing accelerator (gpu only)",
			Destination: &useAccelerator,
		},
		&cli.Int64Flag{
			Name:        "threads",
			Usage:       "cpu intra-op thread count",
			Destination: &threadCount,
		},
		&cli.Int64Flag{
			Name:        "cache-capacity",
			Usage:       "cpu shape-cache capacity (0 disables)",
			Destination: &cacheCapacity,
		},
		&cli.Int64Flag{
			Name:        "batch-size",
			Aliases:     []string{"b"},
			Usage:       "examples per inference batch",
			Destination: &batchSize,
		},
		&cli.Int64Flag{
			Name:        "max-seq-len",
			Usage:       "maximum tokens per example",
			Destination: &maxSeqLen,
		},
		&cli.BoolFlag{
			Name:        "benchmark",
			Usage:       "record per-stage timings",
			Destination: &benchmark,
		},
		&cli.StringFlag{
			Name:        "report",
			Usage:       "write benchmark timings to this JSON file",
			Destination: &reportPath,
		},
	}
}

// loadConfig reads the config file and applies any flags the user set on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if modelPath != "" {
		cfg.Model.Path = modelPath
	}
	if vocabPath != "" {
		cfg.Model.VocabPath = vocabPath
	}
	if device != "" {
		cfg.Runtime.Device = device
	}
	if precision != "" {
		cfg.Runtime.Precision = precision
	}
	if useAccelerator {
		cfg.Runtime.UseAccelerator = true
	}
	if threadCount > 0 {
		cfg.Runtime.ThreadCount = int(threadCount)
	}
	if cacheCapacity > 0 {
		cfg.Runtime.CacheCapacity = int(cacheCapacity)
	}
	if batchSize > 0 {
		cfg.Predict.BatchSize = int(batchSize)
	}
	if maxSeqLen > 0 {
		cfg.Predict.MaxSeqLen = int(maxSeqLen)
	}
	if benchmark {
		cfg.Predict.Benchmark = true
	}
	return cfg, nil
}
