// Package decode converts raw backend output into caller-facing results:
// generated token ids into text, class scores into labels.
package decode

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ZanzyTHEbar/text-inference/tinfer/common"
)

// Vocabulary maps token ids back to text. Satisfied by the tokenizer package.
type Vocabulary interface {
	IDsToString(ids []int64) (string, error)
}

// SequenceDecoder turns one generated id sequence into a string: truncate at
// the first end-of-sequence marker (inclusive), drop every bos/eos inside the
// kept prefix, then map the remainder through the vocabulary.
type SequenceDecoder struct {
	BOSID int64
	EOSID int64
	Vocab Vocabulary

	// RequireEOS fails the decode when no eos marker appears. Off by default:
	// the permissive behavior keeps the whole sequence, which matches how
	// generators that hit their length limit emit output.
	RequireEOS bool
}

// StripSpecial truncates ids at the first occurrence of eosID (inclusive) and
// removes every bosID/eosID from the kept prefix. When eosID never appears
// the whole sequence is kept. Idempotent: running it on its own output is a
// no-op. Returns a fresh slice; input is never mutated.
func StripSpecial(ids []int64, bosID, eosID int64) []int64 {
	eosPos := len(ids) - 1
	for i, id := range ids {
		if id == eosID {
			eosPos = i
			break
		}
	}
	out := make([]int64, 0, eosPos+1)
	for _, id := range ids[:eosPos+1] {
		if id != bosID && id != eosID {
			out = append(out, id)
		}
	}
	return out
}

// Decode post-processes one generated sequence into text.
func (d SequenceDecoder) Decode(ids []int64) (string, error) {
	if d.Vocab == nil {
		return "", common.Wrapf(common.ErrInvalidInput, "sequence decode: no vocabulary")
	}
	if d.RequireEOS {
		found := false
		for _, id := range ids {
			if id == d.EOSID {
				found = true
				break
			}
		}
		if !found {
			return "", common.Wrapf(common.ErrInvalidInput,
				"sequence decode: eos id %d absent from %d-token output", d.EOSID, len(ids))
		}
	}
	return d.Vocab.IDsToString(StripSpecial(ids, d.BOSID, d.EOSID))
}

// Prediction is one classification result: the winning class index, its
// mapped label, and the (optionally softmax-normalized) score.
type Prediction struct {
	Index int
	Label string
	Score float32
}

// ClassificationDecoder maps per-class score rows to labels via a stable
// argmax: ties break toward the lowest index.
type ClassificationDecoder struct {
	Labels map[int]string

	// Softmax normalizes each row to a probability distribution before
	// reporting scores. Argmax is unaffected (softmax is monotonic).
	Softmax bool
}

// Decode resolves one Prediction per score row, in batch order.
func (d ClassificationDecoder) Decode(scores [][]float32) ([]Prediction, error) {
	if len(scores) == 0 {
		return nil, common.Wrapf(common.ErrInvalidInput, "classification decode: no score rows")
	}
	out := make([]Prediction, len(scores))
	for r, row := range scores {
		if len(row) == 0 {
			return nil, common.Wrapf(common.ErrInvalidInput, "classification decode: row %d is empty", r)
		}
		idx := argmax(row)
		label, ok := d.Labels[idx]
		if !ok {
			return nil, common.Wrapf(common.ErrUnknownLabelIndex,
				"classification decode: row %d argmax %d has no entry in %d-label map", r, idx, len(d.Labels))
		}
		score := row[idx]
		if d.Softmax {
			score = softmaxAt(row, idx)
		}
		out[r] = Prediction{Index: idx, Label: label, Score: score}
	}
	return out, nil
}

// argmax returns the index of the first maximum value.
func argmax(row []float32) int {
	best := 0
	for i := 1; i < len(row); i++ {
		if row[i] > row[best] {
			best = i
		}
	}
	return best
}

// softmaxAt computes the softmax probability of row[idx], stabilized by
// subtracting the row maximum.
func softmaxAt(row []float32, idx int) float32 {
	scratch := make([]float64, len(row))
	for i, v := range row {
		scratch[i] = float64(v)
	}
	max := floats.Max(scratch)
	for i := range scratch {
		scratch[i] = math.Exp(scratch[i] - max)
	}
	return float32(scratch[idx] / floats.Sum(scratch))
}
