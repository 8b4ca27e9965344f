// Package batching turns variable-length token-id sequences into rectangular
// batch tensors ready for the inference backend. Padding lives here, not in
// the tokenizer, so every field of an example (ids, type ids) is padded
// against one shared max length.
package batching

import (
	"strings"

	"github.com/ZanzyTHEbar/text-inference/tinfer/common"
)

// PadSide selects which side of a row receives pad tokens.
type PadSide int

const (
	PadTrailing PadSide = iota
	PadLeading
)

// ParsePadSide maps a config string to a PadSide.
func ParsePadSide(s string) (PadSide, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "trailing", "right":
		return PadTrailing, nil
	case "leading", "left":
		return PadLeading, nil
	default:
		return PadTrailing, common.Wrapf(common.ErrInvalidInput, "unknown pad side %q", s)
	}
}

func (s PadSide) String() string {
	if s == PadLeading {
		return "leading"
	}
	return "trailing"
}

// Batch is a rectangular [size, maxLen] tensor of token ids. Rows are copies
// of the source sequences padded on one side with padID; the unpadded portion
// of every row equals its source sequence exactly, in input order.
type Batch struct {
	rows   [][]int64
	lens   []int
	maxLen int
	padID  int64
	side   PadSide
}

// Assemble pads a set of token sequences into one Batch. maxLen is derived
// from the longest input; an empty input set is rejected. Source sequences
// are copied, never mutated.
func Assemble(seqs [][]int64, padID int64, side PadSide) (*Batch, error) {
	if len(seqs) == 0 {
		return nil, common.Wrapf(common.ErrInvalidInput, "assemble: no sequences")
	}
	maxLen := 0
	for _, s := range seqs {
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}
	if maxLen == 0 {
		return nil, common.Wrapf(common.ErrInvalidInput, "assemble: all sequences empty")
	}
	return padTo(seqs, maxLen, padID, side)
}

// AssembleFields pads a primary field and any number of parallel fields
// (e.g. token ids plus segment/type ids) with one shared max length derived
// from the primary field. Every field must carry the same number of rows and
// no secondary row may exceed the primary max length.
func AssembleFields(primary [][]int64, padID int64, side PadSide, extras ...[][]int64) (*Batch, []*Batch, error) {
	pb, err := Assemble(primary, padID, side)
	if err != nil {
		return nil, nil, err
	}
	out := make([]*Batch, 0, len(extras))
	for fi, field := range extras {
		if len(field) != len(primary) {
			return nil, nil, common.Wrapf(common.ErrShapeMismatch,
				"assemble: field %d has %d rows, primary has %d", fi+1, len(field), len(primary))
		}
		for ri, row := range field {
			if len(row) > pb.maxLen {
				return nil, nil, common.Wrapf(common.ErrShapeMismatch,
					"assemble: field %d row %d length %d exceeds max length %d", fi+1, ri, len(row), pb.maxLen)
			}
		}
		fb, err := padTo(field, pb.maxLen, padID, side)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, fb)
	}
	return pb, out, nil
}

func padTo(seqs [][]int64, maxLen int, padID int64, side PadSide) (*Batch, error) {
	rows := make([][]int64, len(seqs))
	lens := make([]int, len(seqs))
	for i, s := range seqs {
		row := make([]int64, maxLen)
		lens[i] = len(s)
		switch side {
		case PadLeading:
			off := maxLen - len(s)
			for j := 0; j < off; j++ {
				row[j] = padID
			}
			copy(row[off:], s)
		default:
			copy(row, s)
			for j := len(s); j < maxLen; j++ {
				row[j] = padID
			}
		}
		rows[i] = row
	}
	return &Batch{rows: rows, lens: lens, maxLen: maxLen, padID: padID, side: side}, nil
}

// Size returns the number of rows (batch dimension).
func (b *Batch) Size() int { return len(b.rows) }

// MaxLen returns the padded row width.
func (b *Batch) MaxLen() int { return b.maxLen }

// PadID returns the pad token id used to fill rows.
func (b *Batch) PadID() int64 { return b.padID }

// Side returns which side rows were padded on.
func (b *Batch) Side() PadSide { return b.side }

// Row returns the padded row at index i. The returned slice is owned by the
// Batch; callers must not mutate it while a run is in flight.
func (b *Batch) Row(i int) []int64 { return b.rows[i] }

// SeqLen returns the unpadded length of row i.
func (b *Batch) SeqLen(i int) int { return b.lens[i] }

// Unpadded returns a copy of row i restricted to its original sequence.
func (b *Batch) Unpadded(i int) []int64 {
	out := make([]int64, b.lens[i])
	if b.side == PadLeading {
		copy(out, b.rows[i][b.maxLen-b.lens[i]:])
	} else {
		copy(out, b.rows[i][:b.lens[i]])
	}
	return out
}

// Flatten returns the row-major contiguous buffer backing a [size, maxLen]
// tensor. The buffer is freshly allocated on each call.
func (b *Batch) Flatten() []int64 {
	flat := make([]int64, len(b.rows)*b.maxLen)
	for i, row := range b.rows {
		copy(flat[i*b.maxLen:(i+1)*b.maxLen], row)
	}
	return flat
}

// Mask returns the attention mask aligned with the padded rows: 1 for real
// tokens, 0 for padding.
func (b *Batch) Mask() [][]int64 {
	masks := make([][]int64, len(b.rows))
	for i := range b.rows {
		m := make([]int64, b.maxLen)
		if b.side == PadLeading {
			for j := b.maxLen - b.lens[i]; j < b.maxLen; j++ {
				m[j] = 1
			}
		} else {
			for j := 0; j < b.lens[i]; j++ {
				m[j] = 1
			}
		}
		masks[i] = m
	}
	return masks
}

// FlattenMask returns the attention mask as a row-major contiguous buffer.
func (b *Batch) FlattenMask() []int64 {
	flat := make([]int64, len(b.rows)*b.maxLen)
	for i := range b.rows {
		if b.side == PadLeading {
			for j := b.maxLen - b.lens[i]; j < b.maxLen; j++ {
				flat[i*b.maxLen+j] = 1
			}
		} else {
			for j := 0; j < b.lens[i]; j++ {
				flat[i*b.maxLen+j] = 1
			}
		}
	}
	return flat
}
