package batching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/text-inference/tinfer/common"
)

func TestAssembleTrailing(t *testing.T) {
	b, err := Assemble([][]int64{{1, 2, 3}, {4, 5}}, 0, PadTrailing)
	require.NoError(t, err)

	assert.Equal(t, 2, b.Size())
	assert.Equal(t, 3, b.MaxLen())
	assert.Equal(t, []int64{1, 2, 3}, b.Row(0))
	assert.Equal(t, []int64{4, 5, 0}, b.Row(1))
}

func TestAssembleLeading(t *testing.T) {
	b, err := Assemble([][]int64{{1, 2, 3}, {4, 5}}, 9, PadLeading)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3}, b.Row(0))
	assert.Equal(t, []int64{9, 4, 5}, b.Row(1))
	assert.Equal(t, []int64{4, 5}, b.Unpadded(1))
}

func TestAssembleRoundTrip(t *testing.T) {
	seqs := [][]int64{
		{7},
		{1, 2, 3, 4, 5},
		{},
		{100, 200},
	}
	for _, side := range []PadSide{PadTrailing, PadLeading} {
		b, err := Assemble(seqs, -1, side)
		require.NoError(t, err)
		assert.Equal(t, 5, b.MaxLen())
		for i, want := range seqs {
			got := b.Unpadded(i)
			require.Len(t, got, len(want))
			for j := range want {
				assert.Equal(t, want[j], got[j], "side=%v row=%d col=%d", side, i, j)
			}
		}
	}
}

func TestAssembleEmptyInput(t *testing.T) {
	_, err := Assemble(nil, 0, PadTrailing)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = Assemble([][]int64{{}, {}}, 0, PadTrailing)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestAssembleDoesNotMutateInput(t *testing.T) {
	src := [][]int64{{1, 2}, {3}}
	b, err := Assemble(src, 0, PadTrailing)
	require.NoError(t, err)

	b.Row(1)[1] = 42
	assert.Equal(t, []int64{3}, src[1])
	assert.Equal(t, []int64{1, 2}, src[0])
}

func TestAssembleFields(t *testing.T) {
	ids := [][]int64{{10, 11, 12}, {20}}
	typeIDs := [][]int64{{0, 0, 1}, {0}}

	pb, extras, err := AssembleFields(ids, 0, PadTrailing, typeIDs)
	require.NoError(t, err)
	require.Len(t, extras, 1)

	assert.Equal(t, pb.MaxLen(), extras[0].MaxLen())
	assert.Equal(t, []int64{0, 0, 1}, extras[0].Row(0))
	assert.Equal(t, []int64{0, 0, 0}, extras[0].Row(1))
}

func TestAssembleFieldsRowCountMismatch(t *testing.T) {
	ids := [][]int64{{1}, {2}, {3}}
	typeIDs := [][]int64{{0}}

	_, _, err := AssembleFields(ids, 0, PadTrailing, typeIDs)
	assert.ErrorIs(t, err, common.ErrShapeMismatch)
}

func TestAssembleFieldsOverlongSecondary(t *testing.T) {
	ids := [][]int64{{1, 2}}
	typeIDs := [][]int64{{0, 0, 0}}

	_, _, err := AssembleFields(ids, 0, PadTrailing, typeIDs)
	assert.ErrorIs(t, err, common.ErrShapeMismatch)
}

func TestMaskAndFlatten(t *testing.T) {
	b, err := Assemble([][]int64{{1, 2, 3}, {4, 5}}, 0, PadTrailing)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3, 4, 5, 0}, b.Flatten())
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 0}, b.FlattenMask())

	masks := b.Mask()
	assert.Equal(t, []int64{1, 1, 1}, masks[0])
	assert.Equal(t, []int64{1, 1, 0}, masks[1])
}

func TestMaskLeading(t *testing.T) {
	b, err := Assemble([][]int64{{1, 2, 3}, {4, 5}}, 0, PadLeading)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 1, 1, 0, 1, 1}, b.FlattenMask())
}

func TestParsePadSide(t *testing.T) {
	s, err := ParsePadSide("left")
	require.NoError(t, err)
	assert.Equal(t, PadLeading, s)

	s, err = ParsePadSide("")
	require.NoError(t, err)
	assert.Equal(t, PadTrailing, s)

	_, err = ParsePadSide("sideways")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
