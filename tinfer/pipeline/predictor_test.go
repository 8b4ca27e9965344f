package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal "github.com/ZanzyTHEbar/text-inference/tinfer"
	"github.com/ZanzyTHEbar/text-inference/tinfer/backend"
	"github.com/ZanzyTHEbar/text-inference/tinfer/batching"
	"github.com/ZanzyTHEbar/text-inference/tinfer/common"
	"github.com/ZanzyTHEbar/text-inference/tinfer/config"
	"github.com/ZanzyTHEbar/text-inference/tinfer/tokenizer"
)

// fakeEngine satisfies engineRunner with a canned run function.
type fakeEngine struct {
	run    func(batches []*batching.Batch) (*backend.RawOutput, error)
	calls  int
	closed bool
}

func (f *fakeEngine) Run(batches []*batching.Batch) (*backend.RawOutput, error) {
	f.calls++
	return f.run(batches)
}

func (f *fakeEngine) Config() backend.ExecutionConfig { return backend.ExecutionConfig{} }

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

// Vocab ids: [PAD]=0 [UNK]=1 [CLS]=2 [SEP]=3 hello=4 world=5 query=6 title=7
func testTokenizer(t *testing.T) tokenizer.Tokenizer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	vocab := "[PAD]\n[UNK]\n[CLS]\n[SEP]\nhello\nworld\nquery\ntitle\n"
	require.NoError(t, os.WriteFile(path, []byte(vocab), 0o644))
	tok, err := tokenizer.LoadWordPieceFromVocab(path)
	require.NoError(t, err)
	return tok
}

func testConfig(batchSize int) *config.Config {
	return &config.Config{
		Predict: config.PredictConfig{BatchSize: batchSize, MaxSeqLen: 128},
	}
}

func testPredictor(t *testing.T, eng *fakeEngine, batchSize int) *Predictor {
	t.Helper()
	return &Predictor{
		cfg:     testConfig(batchSize),
		engine:  eng,
		tok:     testTokenizer(t),
		padSide: batching.PadTrailing,
		log:     internal.GetLogger(),
	}
}

// scoresEngine classifies every example as class 1.
func scoresEngine() *fakeEngine {
	f := &fakeEngine{}
	f.run = func(batches []*batching.Batch) (*backend.RawOutput, error) {
		n := batches[0].Size()
		scores := make([]float32, 0, n*2)
		for i := 0; i < n; i++ {
			scores = append(scores, 0.2, 0.8)
		}
		return backend.NewScoreOutput(scores, []int64{int64(n), 2}), nil
	}
	return f
}

func TestPredictLabels(t *testing.T) {
	eng := scoresEngine()
	p := testPredictor(t, eng, 32)
	labels := map[int]string{0: "dissimilar", 1: "similar"}

	preds, err := p.PredictLabels(
		[]string{"hello world", "query"},
		[]string{"title", "world hello"},
		labels,
	)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "similar", preds[0].Label)
	assert.Equal(t, 1, preds[0].Index)
	assert.InDelta(t, 0.8, preds[0].Score, 1e-6)
	assert.Equal(t, 1, eng.calls)
}

func TestPredictLabelsSendsTypeIDField(t *testing.T) {
	var gotFields int
	var rectangular bool
	f := &fakeEngine{}
	f.run = func(batches []*batching.Batch) (*backend.RawOutput, error) {
		gotFields = len(batches)
		rectangular = batches[0].MaxLen() == batches[1].MaxLen() &&
			batches[0].Size() == batches[1].Size()
		n := batches[0].Size()
		scores := make([]float32, n*2)
		return backend.NewScoreOutput(scores, []int64{int64(n), 2}), nil
	}
	p := testPredictor(t, f, 32)

	_, err := p.PredictLabels([]string{"hello", "hello world"}, nil, map[int]string{0: "a", 1: "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, gotFields)
	assert.True(t, rectangular)
}

func TestPredictLabelsSingleInputModel(t *testing.T) {
	var gotFields int
	f := &fakeEngine{}
	f.run = func(batches []*batching.Batch) (*backend.RawOutput, error) {
		gotFields = len(batches)
		n := batches[0].Size()
		return backend.NewScoreOutput(make([]float32, n*2), []int64{int64(n), 2}), nil
	}
	p := testPredictor(t, f, 32)
	p.cfg.Model.InputCount = 1

	_, err := p.PredictLabels([]string{"hello"}, nil, map[int]string{0: "a"})
	require.NoError(t, err)
	assert.Equal(t, 1, gotFields)
}

func TestPredictLabelsChunksByBatchSize(t *testing.T) {
	eng := scoresEngine()
	p := testPredictor(t, eng, 2)

	preds, err := p.PredictLabels(
		[]string{"hello", "world", "query", "title", "hello world"},
		nil,
		map[int]string{0: "a", 1: "b"},
	)
	require.NoError(t, err)
	assert.Len(t, preds, 5)
	assert.Equal(t, 3, eng.calls)
}

func TestPredictLabelsInvalidInputKeepsPredictorUsable(t *testing.T) {
	eng := scoresEngine()
	p := testPredictor(t, eng, 32)
	labels := map[int]string{0: "a", 1: "b"}

	_, err := p.PredictLabels(nil, nil, labels)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = p.PredictLabels([]string{"hello", "world"}, []string{"only-one"}, labels)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Equal(t, 0, eng.calls)

	preds, err := p.PredictLabels([]string{"hello"}, nil, labels)
	require.NoError(t, err)
	assert.Len(t, preds, 1)
}

// generateEngine emits [bos, hello, world, eos, pad, pad] per example in the
// generator's native [seq, batch, beam] layout.
func generateEngine() *fakeEngine {
	f := &fakeEngine{}
	f.run = func(batches []*batching.Batch) (*backend.RawOutput, error) {
		n := batches[0].Size()
		seq := []int64{2, 4, 5, 3, 0, 0}
		const beam = 2
		ids := make([]int64, 0, len(seq)*n*beam)
		for _, tokenID := range seq {
			for b := 0; b < n; b++ {
				for k := 0; k < beam; k++ {
					ids = append(ids, tokenID)
				}
			}
		}
		return backend.NewSequenceOutput(ids, []int64{int64(len(seq)), int64(n), beam}), nil
	}
	return f
}

func TestGenerateText(t *testing.T) {
	p := testPredictor(t, generateEngine(), 32)

	texts, err := p.GenerateText([]string{"query", "title"})
	require.NoError(t, err)
	require.Len(t, texts, 2)
	assert.Equal(t, "hello world", texts[0])
	assert.Equal(t, "hello world", texts[1])
}

func TestGenerateTextEmpty(t *testing.T) {
	p := testPredictor(t, generateEngine(), 32)

	_, err := p.GenerateText(nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestDecodeLabelsUnknownIndex(t *testing.T) {
	eng := scoresEngine()
	p := testPredictor(t, eng, 32)

	_, err := p.PredictLabels([]string{"hello"}, nil, map[int]string{0: "only"})
	assert.ErrorIs(t, err, common.ErrUnknownLabelIndex)
}

func TestPredictorClose(t *testing.T) {
	eng := scoresEngine()
	p := testPredictor(t, eng, 32)

	require.NoError(t, p.Close())
	assert.True(t, eng.closed)
}

func TestOpenCPUWithAcceleratorRejected(t *testing.T) {
	// Resolution happens before any engine or device state is touched.
	_, err := Open("model.onnx", testTokenizer(t), OpenOptions{
		Device:         "cpu",
		UseAccelerator: true,
		BatchSize:      8,
		ThreadCount:    4,
	})
	assert.ErrorIs(t, err, common.ErrUnsupportedConfiguration)
}

func TestOpenUnknownDeviceRejected(t *testing.T) {
	_, err := Open("model.onnx", testTokenizer(t), OpenOptions{
		Device:    "quantum",
		BatchSize: 8,
	})
	assert.ErrorIs(t, err, common.ErrUnsupportedConfiguration)
}

func TestChunkRanges(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 2}, {2, 4}, {4, 5}}, chunkRanges(5, 2))
	assert.Equal(t, [][2]int{{0, 3}}, chunkRanges(3, 0))
	assert.Nil(t, chunkRanges(0, 4))
}
