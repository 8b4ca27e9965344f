package backend

import (
	"github.com/ZanzyTHEbar/text-inference/tinfer/batching"
	"github.com/ZanzyTHEbar/text-inference/tinfer/common"
)

// RawOutput holds one run's backend output. The buffers belong to the engine
// and are invalidated by the next Run call; the accessor methods copy, so
// callers should go through them before issuing another batch.
//
// Exactly one of the two payloads is set: generated token ids for a sequence
// task, or per-class scores for a classification task.
type RawOutput struct {
	ids      []int64
	idsShape []int64

	scores      []float32
	scoresShape []int64
}

// NewSequenceOutput wraps a generated-ids tensor. Accepted shapes are
// [batch, seq] and the generator's native [seq, batch, beam].
func NewSequenceOutput(ids []int64, shape []int64) *RawOutput {
	return &RawOutput{ids: ids, idsShape: shape}
}

// NewScoreOutput wraps a [batch, classes] score tensor.
func NewScoreOutput(scores []float32, shape []int64) *RawOutput {
	return &RawOutput{scores: scores, scoresShape: shape}
}

// IsSequence reports whether the output carries generated token ids rather
// than classification scores.
func (o *RawOutput) IsSequence() bool { return o.ids != nil }

// Sequences copies the generated ids out as one sequence per batch example,
// in batch order. A rank-3 [seq, batch, beam] tensor is transposed and only
// the best (first) beam is kept, matching the generator's output layout.
func (o *RawOutput) Sequences() ([][]int64, error) {
	if o.ids == nil {
		return nil, common.Wrapf(common.ErrInvalidInput, "output: no sequence payload")
	}
	switch len(o.idsShape) {
	case 2:
		batch, seq := int(o.idsShape[0]), int(o.idsShape[1])
		if batch*seq != len(o.ids) {
			return nil, common.Wrapf(common.ErrShapeMismatch,
				"output: shape [%d %d] disagrees with %d elements", batch, seq, len(o.ids))
		}
		out := make([][]int64, batch)
		for b := 0; b < batch; b++ {
			row := make([]int64, seq)
			copy(row, o.ids[b*seq:(b+1)*seq])
			out[b] = row
		}
		return out, nil
	case 3:
		seq, batch, beam := int(o.idsShape[0]), int(o.idsShape[1]), int(o.idsShape[2])
		if seq*batch*beam != len(o.ids) {
			return nil, common.Wrapf(common.ErrShapeMismatch,
				"output: shape [%d %d %d] disagrees with %d elements", seq, batch, beam, len(o.ids))
		}
		out := make([][]int64, batch)
		for b := 0; b < batch; b++ {
			row := make([]int64, seq)
			for s := 0; s < seq; s++ {
				row[s] = o.ids[s*batch*beam+b*beam]
			}
			out[b] = row
		}
		return out, nil
	default:
		return nil, common.Wrapf(common.ErrShapeMismatch,
			"output: sequence tensor must be rank 2 or 3, got rank %d", len(o.idsShape))
	}
}

// Scores copies the classification scores out as one row per batch example.
func (o *RawOutput) Scores() ([][]float32, error) {
	if o.scores == nil {
		return nil, common.Wrapf(common.ErrInvalidInput, "output: no score payload")
	}
	if len(o.scoresShape) != 2 {
		return nil, common.Wrapf(common.ErrShapeMismatch,
			"output: score tensor must be rank 2, got rank %d", len(o.scoresShape))
	}
	batch, classes := int(o.scoresShape[0]), int(o.scoresShape[1])
	if batch*classes != len(o.scores) {
		return nil, common.Wrapf(common.ErrShapeMismatch,
			"output: shape [%d %d] disagrees with %d elements", batch, classes, len(o.scores))
	}
	out := make([][]float32, batch)
	for b := 0; b < batch; b++ {
		row := make([]float32, classes)
		copy(row, o.scores[b*classes:(b+1)*classes])
		out[b] = row
	}
	return out, nil
}

// validateBatches checks that every input field carries the same batch size
// and that it fits the configured bound. Runs before anything touches the
// backend, so a rejected call leaves the engine fully usable.
func validateBatches(batches []*batching.Batch, maxBatchSize int) (int, error) {
	if len(batches) == 0 {
		return 0, common.Wrapf(common.ErrInvalidInput, "run: no input batches")
	}
	size := batches[0].Size()
	for i, b := range batches {
		if b == nil || b.Size() == 0 {
			return 0, common.Wrapf(common.ErrInvalidInput, "run: input field %d is empty", i)
		}
		if b.Size() != size {
			return 0, common.Wrapf(common.ErrShapeMismatch,
				"run: input field %d has batch size %d, field 0 has %d", i, b.Size(), size)
		}
	}
	if maxBatchSize > 0 && size > maxBatchSize {
		return 0, common.Wrapf(common.ErrShapeMismatch,
			"run: batch size %d exceeds configured maximum %d", size, maxBatchSize)
	}
	return size, nil
}
