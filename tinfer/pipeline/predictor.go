// Package pipeline wires tokenizer, assembler, engine, and decoders into the
// two caller-facing flows: label prediction and text generation.
package pipeline

import (
	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/rs/zerolog"

	internal "github.com/ZanzyTHEbar/text-inference/tinfer"
	"github.com/ZanzyTHEbar/text-inference/tinfer/backend"
	"github.com/ZanzyTHEbar/text-inference/tinfer/batching"
	"github.com/ZanzyTHEbar/text-inference/tinfer/common"
	"github.com/ZanzyTHEbar/text-inference/tinfer/config"
	"github.com/ZanzyTHEbar/text-inference/tinfer/decode"
	"github.com/ZanzyTHEbar/text-inference/tinfer/tokenizer"
)

// engineRunner is the slice of backend.Engine the predictor needs. Kept as an
// interface so tests can substitute a canned engine.
type engineRunner interface {
	Run(batches []*batching.Batch) (*backend.RawOutput, error)
	Config() backend.ExecutionConfig
	Close() error
}

// Predictor owns one engine bound to one resolved configuration, plus the
// tokenizer and decode policy around it. Like the engine it wraps, a
// Predictor is single-caller: one goroutine at a time. Use Sharded for
// parallelism across devices.
type Predictor struct {
	cfg     *config.Config
	execCfg backend.ExecutionConfig
	engine  engineRunner
	tok     tokenizer.Tokenizer
	padSide batching.PadSide

	AssertHandler *assert.AssertHandler
	log           zerolog.Logger
}

// New resolves the backend configuration exactly once, loads the model, and
// returns a ready predictor. Construction is atomic: any failure releases
// everything acquired so far and no partially-initialized predictor escapes.
func New(cfg *config.Config, tok tokenizer.Tokenizer, rt *backend.Runtime) (*Predictor, error) {
	if cfg == nil || tok == nil {
		return nil, common.Wrapf(common.ErrInvalidInput, "predictor: config and tokenizer are required")
	}
	opts, err := cfg.BackendOptions()
	if err != nil {
		return nil, err
	}
	execCfg, err := backend.Resolve(opts)
	if err != nil {
		return nil, err
	}
	padSide, err := cfg.PadSide()
	if err != nil {
		return nil, err
	}
	engine, err := backend.NewEngine(cfg.Model.Path, execCfg, rt)
	if err != nil {
		return nil, err
	}
	log := internal.GetLogger().With().Str("component", "predictor").Logger()
	log.Info().
		Str("device", execCfg.Device().String()).
		Str("precision", execCfg.Precision().String()).
		Str("optimization", execCfg.Optimization().String()).
		Int("max_batch_size", execCfg.MaxBatchSize()).
		Msg("predictor ready")
	return &Predictor{
		cfg:           cfg,
		execCfg:       execCfg,
		engine:        engine,
		tok:           tok,
		padSide:       padSide,
		AssertHandler: assert.NewAssertHandler(),
		log:           log,
	}, nil
}

// OpenOptions are the explicit construction settings for callers that do not
// go through a config file.
type OpenOptions struct {
	Device         string
	Precision      string
	UseAccelerator bool
	BatchSize      int
	MaxSeqLen      int
	ThreadCount    int
	CacheCapacity  int
	InputCount     int
	PadSide        string
}

// Open builds a predictor for a model artifact from explicit settings,
// using the process-wide default runtime.
func Open(modelPath string, tok tokenizer.Tokenizer, opts OpenOptions) (*Predictor, error) {
	cfg := &config.Config{
		Model: config.ModelConfig{Path: modelPath, InputCount: opts.InputCount},
		Runtime: config.RuntimeConfig{
			Device:         opts.Device,
			Precision:      opts.Precision,
			UseAccelerator: opts.UseAccelerator,
			ThreadCount:    opts.ThreadCount,
			CacheCapacity:  opts.CacheCapacity,
		},
		Predict: config.PredictConfig{
			BatchSize: opts.BatchSize,
			MaxSeqLen: opts.MaxSeqLen,
			PadSide:   opts.PadSide,
		},
	}
	return New(cfg, tok, backend.DefaultRuntime())
}

// ExecutionConfig returns the resolved configuration the predictor runs under.
func (p *Predictor) ExecutionConfig() backend.ExecutionConfig { return p.execCfg }

// EncodedBatch is one assembled chunk ready for the engine: the primary
// token-id batch plus any parallel fields (segment type ids).
type EncodedBatch struct {
	IDs    *batching.Batch
	Fields []*batching.Batch
}

func (e *EncodedBatch) batches() []*batching.Batch {
	return append([]*batching.Batch{e.IDs}, e.Fields...)
}

// Encode tokenizes and assembles one chunk of texts. pairs may be nil; when
// present it must align one-to-one with texts (BERT-style text pairs).
// Segment type ids are included as a second field unless the model declares
// exactly one input.
func (p *Predictor) Encode(texts, pairs []string) (*EncodedBatch, error) {
	if len(texts) == 0 {
		return nil, common.Wrapf(common.ErrInvalidInput, "encode: no texts")
	}
	if pairs != nil && len(pairs) != len(texts) {
		return nil, common.Wrapf(common.ErrInvalidInput,
			"encode: %d pair texts for %d texts", len(pairs), len(texts))
	}
	ids := make([][]int64, len(texts))
	typeIDs := make([][]int64, len(texts))
	for i, text := range texts {
		pair := ""
		if pairs != nil {
			pair = pairs[i]
		}
		enc, err := p.tok.Encode(text, pair, p.cfg.Predict.MaxSeqLen)
		if err != nil {
			return nil, err
		}
		ids[i] = enc.IDs
		typeIDs[i] = enc.TypeIDs
	}

	if p.cfg.Model.InputCount == 1 {
		b, err := batching.Assemble(ids, p.tok.PadID(), p.padSide)
		if err != nil {
			return nil, err
		}
		return &EncodedBatch{IDs: b}, nil
	}
	b, fields, err := batching.AssembleFields(ids, p.tok.PadID(), p.padSide, typeIDs)
	if err != nil {
		return nil, err
	}
	return &EncodedBatch{IDs: b, Fields: fields}, nil
}

// Infer runs one assembled chunk through the engine.
func (p *Predictor) Infer(eb *EncodedBatch) (*backend.RawOutput, error) {
	if eb == nil || eb.IDs == nil {
		return nil, common.Wrapf(common.ErrInvalidInput, "infer: nothing to run")
	}
	return p.engine.Run(eb.batches())
}

// DecodeLabels resolves classification output against a label map.
func (p *Predictor) DecodeLabels(out *backend.RawOutput, labels map[int]string) ([]decode.Prediction, error) {
	scores, err := out.Scores()
	if err != nil {
		return nil, err
	}
	dec := decode.ClassificationDecoder{Labels: labels, Softmax: p.cfg.Predict.Softmax}
	return dec.Decode(scores)
}

// DecodeTexts post-processes generated sequences into strings.
func (p *Predictor) DecodeTexts(out *backend.RawOutput) ([]string, error) {
	seqs, err := out.Sequences()
	if err != nil {
		return nil, err
	}
	dec := decode.SequenceDecoder{BOSID: p.tok.BOSID(), EOSID: p.tok.EOSID(), Vocab: p.tok}
	results := make([]string, len(seqs))
	for i, seq := range seqs {
		text, err := dec.Decode(seq)
		if err != nil {
			return nil, err
		}
		results[i] = text
	}
	return results, nil
}

// PredictLabels classifies texts (optionally text pairs), chunking by the
// configured batch size. Results come back in input order, one per text.
func (p *Predictor) PredictLabels(texts, pairs []string, labels map[int]string) ([]decode.Prediction, error) {
	if len(texts) == 0 {
		return nil, common.Wrapf(common.ErrInvalidInput, "predict: no texts")
	}
	if pairs != nil && len(pairs) != len(texts) {
		return nil, errPairCount(len(pairs), len(texts))
	}
	results := make([]decode.Prediction, 0, len(texts))
	for _, r := range chunkRanges(len(texts), p.cfg.Predict.BatchSize) {
		var chunkPairs []string
		if pairs != nil {
			chunkPairs = pairs[r[0]:r[1]]
		}
		eb, err := p.Encode(texts[r[0]:r[1]], chunkPairs)
		if err != nil {
			return nil, err
		}
		out, err := p.Infer(eb)
		if err != nil {
			return nil, err
		}
		preds, err := p.DecodeLabels(out, labels)
		if err != nil {
			return nil, err
		}
		results = append(results, preds...)
	}
	return results, nil
}

// GenerateText runs sequence generation over texts, chunking by the
// configured batch size. One decoded string per input text, in order.
func (p *Predictor) GenerateText(texts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, common.Wrapf(common.ErrInvalidInput, "generate: no texts")
	}
	results := make([]string, 0, len(texts))
	for _, r := range chunkRanges(len(texts), p.cfg.Predict.BatchSize) {
		eb, err := p.Encode(texts[r[0]:r[1]], nil)
		if err != nil {
			return nil, err
		}
		out, err := p.Infer(eb)
		if err != nil {
			return nil, err
		}
		decoded, err := p.DecodeTexts(out)
		if err != nil {
			return nil, err
		}
		results = append(results, decoded...)
	}
	return results, nil
}

// Close releases the engine and its device resources.
func (p *Predictor) Close() error {
	return p.engine.Close()
}

func errPairCount(pairs, texts int) error {
	return common.Wrapf(common.ErrInvalidInput, "predict: %d pair texts for %d texts", pairs, texts)
}

// chunkRanges splits n items into [start, end) ranges of at most size.
func chunkRanges(n, size int) [][2]int {
	if size <= 0 {
		size = n
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
