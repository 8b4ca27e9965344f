package tokenizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/text-inference/tinfer/common"
)

func writeVocab(t *testing.T, tokens []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	data := ""
	for _, tok := range tokens {
		data += tok + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func testVocab(t *testing.T) *WordPiece {
	t.Helper()
	path := writeVocab(t, []string{
		"[PAD]", "[UNK]", "[CLS]", "[SEP]", // 0..3
		"hello", "world", "query", "title", "##s", // 4..8
	})
	wp, err := LoadWordPieceFromVocab(path)
	require.NoError(t, err)
	return wp
}

func TestWordPieceSpecialIDs(t *testing.T) {
	wp := testVocab(t)

	assert.Equal(t, int64(0), wp.PadID())
	assert.Equal(t, int64(2), wp.BOSID())
	assert.Equal(t, int64(3), wp.EOSID())
}

func TestWordPieceEncodeSingle(t *testing.T) {
	wp := testVocab(t)

	enc, err := wp.Encode("Hello world", "", 0)
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 4, 5, 3}, enc.IDs)
	assert.Equal(t, []int64{0, 0, 0, 0}, enc.TypeIDs)
	assert.Equal(t, []int64{1, 1, 1, 1}, enc.AttentionMask)
}

func TestWordPieceEncodePair(t *testing.T) {
	wp := testVocab(t)

	enc, err := wp.Encode("query", "title", 0)
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 6, 3, 7, 3}, enc.IDs)
	assert.Equal(t, []int64{0, 0, 0, 1, 1}, enc.TypeIDs)
}

func TestWordPieceEncodeUnknownAndTruncate(t *testing.T) {
	wp := testVocab(t)

	enc, err := wp.Encode("hello zanzibar world hello world", "", 4)
	require.NoError(t, err)

	require.Len(t, enc.IDs, 4)
	assert.Equal(t, int64(2), enc.IDs[0])
	assert.Equal(t, int64(1), enc.IDs[2]) // zanzibar -> [UNK]
	assert.Equal(t, int64(3), enc.IDs[3]) // separator survives truncation
}

func TestWordPieceEncodeEmpty(t *testing.T) {
	wp := testVocab(t)

	_, err := wp.Encode("   ", "", 0)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestWordPieceIDsToString(t *testing.T) {
	wp := testVocab(t)

	got, err := wp.IDsToString([]int64{4, 5})
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)

	// "##" continuations attach to the previous token.
	got, err = wp.IDsToString([]int64{7, 8})
	require.NoError(t, err)
	assert.Equal(t, "titles", got)

	// Out-of-range ids render as the unk token.
	got, err = wp.IDsToString([]int64{4, 9999})
	require.NoError(t, err)
	assert.Equal(t, "hello [UNK]", got)
}

func TestVocabRoundTrip(t *testing.T) {
	v, err := loadVocab(writeVocab(t, []string{"a", "b", "c"}))
	require.NoError(t, err)

	id, ok := v.id("b")
	require.True(t, ok)
	assert.Equal(t, int64(1), id)

	tok, ok := v.token(2)
	require.True(t, ok)
	assert.Equal(t, "c", tok)

	_, ok = v.token(5)
	assert.False(t, ok)
}
