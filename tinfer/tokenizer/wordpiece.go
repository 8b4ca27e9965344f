package tokenizer

import (
	"strings"

	"github.com/ZanzyTHEbar/text-inference/tinfer/common"
)

// WordPiece is a minimal whitespace tokenizer over a vocab.txt file. It
// covers tests and environments without the full sugarme stack; production
// paths should prefer NewSugarWordPiece.
type WordPiece struct {
	vocab *vocab
	unkID int64
	clsID int64
	sepID int64
	padID int64
}

// LoadWordPieceFromVocab reads a line-ordered vocab file and discovers the
// special marker ids, with BERT's conventional ids as fallbacks.
func LoadWordPieceFromVocab(path string) (*WordPiece, error) {
	v, err := loadVocab(path)
	if err != nil {
		return nil, err
	}
	return &WordPiece{
		vocab: v,
		unkID: v.firstOf(100, "[UNK]", "<unk>"),
		clsID: v.firstOf(101, "[CLS]", "<s>"),
		sepID: v.firstOf(102, "[SEP]", "</s>"),
		padID: v.firstOf(0, "[PAD]", "<pad>"),
	}, nil
}

func (w *WordPiece) PadID() int64 { return w.padID }
func (w *WordPiece) BOSID() int64 { return w.clsID }
func (w *WordPiece) EOSID() int64 { return w.sepID }

// Encode lowercases and whitespace-splits text into vocab lookups with
// [CLS]/[SEP] framing. A text pair is appended after a second [SEP] with
// segment type 1, BERT-style. Output is unpadded.
func (w *WordPiece) Encode(text, textPair string, maxLen int) (Encoding, error) {
	if strings.TrimSpace(text) == "" {
		return Encoding{}, common.Wrapf(common.ErrInvalidInput, "tokenize: empty text")
	}

	ids := []int64{w.clsID}
	types := []int64{0}
	w.appendSegment(&ids, &types, text, 0)
	ids = append(ids, w.sepID)
	types = append(types, 0)
	if textPair != "" {
		w.appendSegment(&ids, &types, textPair, 1)
		ids = append(ids, w.sepID)
		types = append(types, 1)
	}

	if maxLen > 0 && len(ids) > maxLen {
		// Keep the trailing separator when truncating.
		ids = append(ids[:maxLen-1], w.sepID)
		types = types[:maxLen]
	}
	mask := make([]int64, len(ids))
	for i := range mask {
		mask[i] = 1
	}
	return Encoding{IDs: ids, TypeIDs: types, AttentionMask: mask}, nil
}

func (w *WordPiece) appendSegment(ids *[]int64, types *[]int64, text string, segment int64) {
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		id, ok := w.vocab.id(tok)
		if !ok {
			id = w.unkID
		}
		*ids = append(*ids, id)
		*types = append(*types, segment)
	}
}

// IDsToString renders ids through the vocabulary. Unknown ids render as the
// unk token's text rather than failing; generated output can legitimately
// contain any vocab id.
func (w *WordPiece) IDsToString(ids []int64) (string, error) {
	tokens := make([]string, 0, len(ids))
	for _, id := range ids {
		tok, ok := w.vocab.token(id)
		if !ok {
			tok, _ = w.vocab.token(w.unkID)
			if tok == "" {
				tok = "[UNK]"
			}
		}
		tokens = append(tokens, tok)
	}
	return renderTokens(tokens), nil
}
