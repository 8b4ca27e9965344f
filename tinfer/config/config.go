package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/text-inference/tinfer"

	"github.com/spf13/viper"

	"github.com/ZanzyTHEbar/text-inference/tinfer/backend"
	"github.com/ZanzyTHEbar/text-inference/tinfer/batching"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Model   ModelConfig   `mapstructure:"model"`
	Runtime RuntimeConfig `mapstructure:"runtime"`
	Predict PredictConfig `mapstructure:"predict"`
}

// ModelConfig locates the model artifact and its companion files.
type ModelConfig struct {
	Path         string `mapstructure:"path"`
	VocabPath    string `mapstructure:"vocabPath"`
	LabelMapPath string `mapstructure:"labelMapPath"`
	InputCount   int    `mapstructure:"inputCount"`
}

// RuntimeConfig stores the declarative backend request, resolved into an
// ExecutionConfig before any engine is built.
type RuntimeConfig struct {
	Device          string `mapstructure:"device"`
	Precision       string `mapstructure:"precision"`
	UseAccelerator  bool   `mapstructure:"useAccelerator"`
	ThreadCount     int    `mapstructure:"threadCount"`
	CacheCapacity   int    `mapstructure:"cacheCapacity"`
	MemoryPoolMB    int    `mapstructure:"memoryPoolMB"`
	MinSubgraphSize int    `mapstructure:"minSubgraphSize"`
}

// PredictConfig stores per-batch prediction settings.
type PredictConfig struct {
	BatchSize int    `mapstructure:"batchSize"`
	MaxSeqLen int    `mapstructure:"maxSeqLen"`
	PadSide   string `mapstructure:"padSide"`
	Benchmark bool   `mapstructure:"benchmark"`
	Softmax   bool   `mapstructure:"softmax"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Defaults mirror the reference prediction drivers: cpu fp32, batch 32,
	// 128-token sequences, 10 intra-op threads. The cpu shape cache is opt-in
	// (set runtime.cacheCapacity, conventionally 10).
	viper.SetDefault("model.path", filepath.Join(internal.DefaultModelDir, "inference.onnx"))
	viper.SetDefault("model.vocabPath", "")
	viper.SetDefault("model.labelMapPath", "")
	viper.SetDefault("model.inputCount", 0)
	viper.SetDefault("runtime.device", "cpu")
	viper.SetDefault("runtime.precision", "fp32")
	viper.SetDefault("runtime.useAccelerator", false)
	viper.SetDefault("runtime.threadCount", 10)
	viper.SetDefault("runtime.cacheCapacity", 0)
	viper.SetDefault("runtime.memoryPoolMB", 0)
	viper.SetDefault("runtime.minSubgraphSize", 0)
	viper.SetDefault("predict.batchSize", 32)
	viper.SetDefault("predict.maxSeqLen", 128)
	viper.SetDefault("predict.padSide", "trailing")
	viper.SetDefault("predict.benchmark", false)
	viper.SetDefault("predict.softmax", false)

	viper.AutomaticEnv()                                   // Read in environment variables that match
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // e.g. runtime.threadCount becomes RUNTIME_THREADCOUNT

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; defaults will be used.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}

// BackendOptions translates the string-keyed runtime section into a typed
// backend request. Parsing happens here so unrecognized strings never reach
// the resolver, let alone the backend.
func (c *Config) BackendOptions() (backend.Options, error) {
	device, err := backend.ParseDevice(c.Runtime.Device)
	if err != nil {
		return backend.Options{}, err
	}
	precision, err := backend.ParsePrecision(c.Runtime.Precision)
	if err != nil {
		return backend.Options{}, err
	}
	return backend.Options{
		Device:          device,
		Precision:       precision,
		UseAccelerator:  c.Runtime.UseAccelerator,
		BatchSize:       c.Predict.BatchSize,
		ThreadCount:     c.Runtime.ThreadCount,
		CacheCapacity:   c.Runtime.CacheCapacity,
		MemoryPoolMB:    c.Runtime.MemoryPoolMB,
		MinSubgraphSize: c.Runtime.MinSubgraphSize,
		InputCount:      c.Model.InputCount,
	}, nil
}

// PadSide parses the configured padding side.
func (c *Config) PadSide() (batching.PadSide, error) {
	return batching.ParsePadSide(c.Predict.PadSide)
}
