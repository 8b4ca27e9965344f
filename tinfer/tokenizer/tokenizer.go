// Package tokenizer adapts external vocabulary/tokenizer implementations to
// the narrow surface the pipeline consumes: encode text (optionally a text
// pair) into ids and segment ids, map ids back to text, and expose the
// special marker ids. Padding is not done here; the batching assembler owns
// it.
package tokenizer

import (
	"fmt"
)

// Encoding is one example's unpadded token ids plus parallel fields.
type Encoding struct {
	IDs           []int64
	TypeIDs       []int64
	AttentionMask []int64
}

// Tokenizer converts raw text to model-ready token ids and back.
type Tokenizer interface {
	// Encode tokenizes text (and textPair when non-empty, BERT-style) into at
	// most maxLen ids. maxLen <= 0 means unbounded.
	Encode(text, textPair string, maxLen int) (Encoding, error)

	// IDsToString maps ids back to text. Special-token stripping is the
	// decoder's job; ids arriving here are rendered as-is.
	IDsToString(ids []int64) (string, error)

	PadID() int64
	BOSID() int64
	EOSID() int64
}

// ErrUnsupported indicates the tokenizer could not be initialized
var ErrUnsupported = fmt.Errorf("unsupported tokenizer configuration")
