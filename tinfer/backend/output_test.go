package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/text-inference/tinfer/batching"
	"github.com/ZanzyTHEbar/text-inference/tinfer/common"
)

func TestSequencesRank2(t *testing.T) {
	out := NewSequenceOutput([]int64{1, 2, 3, 4, 5, 6}, []int64{2, 3})
	seqs, err := out.Sequences()
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{1, 2, 3}, {4, 5, 6}}, seqs)
}

func TestSequencesRank3TransposeBestBeam(t *testing.T) {
	// [seq=2, batch=2, beam=2]: element (s, b, k) = 100*s + 10*b + k
	ids := []int64{
		0, 1, 10, 11, // s=0
		100, 101, 110, 111, // s=1
	}
	out := NewSequenceOutput(ids, []int64{2, 2, 2})
	seqs, err := out.Sequences()
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{0, 100}, {10, 110}}, seqs)
}

func TestSequencesShapeDisagreement(t *testing.T) {
	out := NewSequenceOutput([]int64{1, 2, 3}, []int64{2, 3})
	_, err := out.Sequences()
	assert.ErrorIs(t, err, common.ErrShapeMismatch)

	out = NewSequenceOutput([]int64{1}, []int64{1})
	_, err = out.Sequences()
	assert.ErrorIs(t, err, common.ErrShapeMismatch)
}

func TestScores(t *testing.T) {
	out := NewScoreOutput([]float32{0.1, 0.9, 0.7, 0.3}, []int64{2, 2})
	rows, err := out.Scores()
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.9}, {0.7, 0.3}}, rows)

	// Scores copies out of the shared buffer.
	rows[0][0] = 42
	again, err := out.Scores()
	require.NoError(t, err)
	assert.InDelta(t, 0.1, again[0][0], 1e-6)
}

func TestScoresOnSequenceOutput(t *testing.T) {
	out := NewSequenceOutput([]int64{1}, []int64{1, 1})
	_, err := out.Scores()
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestValidateBatches(t *testing.T) {
	b8, err := batching.Assemble(make8(8), 0, batching.PadTrailing)
	require.NoError(t, err)
	b4, err := batching.Assemble(make8(4), 0, batching.PadTrailing)
	require.NoError(t, err)

	size, err := validateBatches([]*batching.Batch{b8, b8}, 16)
	require.NoError(t, err)
	assert.Equal(t, 8, size)

	_, err = validateBatches([]*batching.Batch{b8, b4}, 16)
	assert.ErrorIs(t, err, common.ErrShapeMismatch)

	_, err = validateBatches([]*batching.Batch{b8}, 4)
	assert.ErrorIs(t, err, common.ErrShapeMismatch)

	_, err = validateBatches(nil, 16)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func make8(n int) [][]int64 {
	seqs := make([][]int64, n)
	for i := range seqs {
		seqs[i] = []int64{int64(i + 1), int64(i + 2)}
	}
	return seqs
}
