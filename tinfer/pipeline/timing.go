package pipeline

import (
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	internal "github.com/ZanzyTHEbar/text-inference/tinfer"
	"github.com/ZanzyTHEbar/text-inference/tinfer/common"
	"github.com/ZanzyTHEbar/text-inference/tinfer/decode"
)

// StageTimings is one timed batch: wall time spent in each pipeline stage.
type StageTimings struct {
	RunID          string        `json:"run_id"`
	Examples       int           `json:"examples"`
	Preprocess     time.Duration `json:"preprocess_ns"`
	Inference      time.Duration `json:"inference_ns"`
	Postprocess    time.Duration `json:"postprocess_ns"`
	Total          time.Duration `json:"total_ns"`
	ExamplesPerSec float64       `json:"examples_per_sec"`
}

// Timed decorates a Predictor with per-stage elapsed-time instrumentation.
// It composes the predictor's stage methods with timestamps around them; the
// stage contracts themselves are untouched. Not safe for concurrent use, same
// as the predictor it wraps.
type Timed struct {
	p    *Predictor
	log  zerolog.Logger
	runs []StageTimings
}

// NewTimed wraps a predictor with timing instrumentation.
func NewTimed(p *Predictor) *Timed {
	return &Timed{
		p:   p,
		log: internal.GetLogger().With().Str("component", "benchmark").Logger(),
	}
}

// PredictLabels is Predictor.PredictLabels with per-chunk stage timings.
func (t *Timed) PredictLabels(texts, pairs []string, labels map[int]string) ([]decode.Prediction, error) {
	if len(texts) == 0 {
		return nil, common.Wrapf(common.ErrInvalidInput, "predict: no texts")
	}
	if pairs != nil && len(pairs) != len(texts) {
		return nil, errPairCount(len(pairs), len(texts))
	}
	results := make([]decode.Prediction, 0, len(texts))
	for _, r := range chunkRanges(len(texts), t.p.cfg.Predict.BatchSize) {
		var chunkPairs []string
		if pairs != nil {
			chunkPairs = pairs[r[0]:r[1]]
		}
		st := StageTimings{RunID: uuid.NewString(), Examples: r[1] - r[0]}

		start := time.Now()
		eb, err := t.p.Encode(texts[r[0]:r[1]], chunkPairs)
		if err != nil {
			return nil, err
		}
		st.Preprocess = time.Since(start)

		mark := time.Now()
		out, err := t.p.Infer(eb)
		if err != nil {
			return nil, err
		}
		st.Inference = time.Since(mark)

		mark = time.Now()
		preds, err := t.p.DecodeLabels(out, labels)
		if err != nil {
			return nil, err
		}
		st.Postprocess = time.Since(mark)

		t.record(st, start)
		results = append(results, preds...)
	}
	return results, nil
}

// GenerateText is Predictor.GenerateText with per-chunk stage timings.
func (t *Timed) GenerateText(texts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, common.Wrapf(common.ErrInvalidInput, "generate: no texts")
	}
	results := make([]string, 0, len(texts))
	for _, r := range chunkRanges(len(texts), t.p.cfg.Predict.BatchSize) {
		st := StageTimings{RunID: uuid.NewString(), Examples: r[1] - r[0]}

		start := time.Now()
		eb, err := t.p.Encode(texts[r[0]:r[1]], nil)
		if err != nil {
			return nil, err
		}
		st.Preprocess = time.Since(start)

		mark := time.Now()
		out, err := t.p.Infer(eb)
		if err != nil {
			return nil, err
		}
		st.Inference = time.Since(mark)

		mark = time.Now()
		decoded, err := t.p.DecodeTexts(out)
		if err != nil {
			return nil, err
		}
		st.Postprocess = time.Since(mark)

		t.record(st, start)
		results = append(results, decoded...)
	}
	return results, nil
}

func (t *Timed) record(st StageTimings, start time.Time) {
	st.Total = time.Since(start)
	if st.Total > 0 {
		st.ExamplesPerSec = float64(st.Examples) / st.Total.Seconds()
	}
	t.runs = append(t.runs, st)
	t.log.Info().
		Str("run_id", st.RunID).
		Int("examples", st.Examples).
		Dur("preprocess", st.Preprocess).
		Dur("inference", st.Inference).
		Dur("postprocess", st.Postprocess).
		Float64("examples_per_sec", st.ExamplesPerSec).
		Msg("batch timings")
}

// Runs returns the timings collected so far.
func (t *Timed) Runs() []StageTimings { return t.runs }

// WriteReport dumps the collected timings as JSON.
func (t *Timed) WriteReport(path string) error {
	b, err := json.MarshalIndent(t.runs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Close releases the wrapped predictor.
func (t *Timed) Close() error { return t.p.Close() }
