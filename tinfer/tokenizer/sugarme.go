package tokenizer

import (
	"strings"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"
	"github.com/sugarme/tokenizer/processor"

	"github.com/ZanzyTHEbar/text-inference/tinfer/common"
)

// SugarWordPiece wraps sugarme/tokenizer WordPiece (BERT-style). The vocab
// file is read twice: once by the library for subword lookup and once by us
// for the id-to-token table and special marker discovery.
type SugarWordPiece struct {
	t     *tk.Tokenizer
	vocab *vocab
	unkID int64
	clsID int64
	sepID int64
	padID int64
}

// NewSugarWordPiece loads vocab.txt and builds a BERT WordPiece tokenizer
// with normalizer, pre-tokenizer, and special-token post-processing.
func NewSugarWordPiece(vocabPath string, maxSeq int) (*SugarWordPiece, error) {
	v, err := loadVocab(vocabPath)
	if err != nil {
		return nil, err
	}

	wp, err := wordpiece.NewWordPieceFromFile(vocabPath, "[UNK]")
	if err != nil {
		return nil, common.Wrapf(ErrUnsupported, "load wordpiece from %q: %v", vocabPath, err)
	}
	t := tk.NewTokenizer(wp)
	t.WithNormalizer(normalizer.NewBertNormalizer(true, true, true, true))
	t.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())

	clsID := v.firstOf(101, "[CLS]", "<s>")
	sepID := v.firstOf(102, "[SEP]", "</s>")
	t.WithPostProcessor(processor.NewBertProcessing(
		processor.PostToken{Value: "[SEP]", Id: int(sepID)},
		processor.PostToken{Value: "[CLS]", Id: int(clsID)},
	))
	if maxSeq > 0 {
		t.WithTruncation(&tk.TruncationParams{MaxLength: maxSeq})
	}

	return &SugarWordPiece{
		t:     t,
		vocab: v,
		unkID: v.firstOf(100, "[UNK]", "<unk>"),
		clsID: clsID,
		sepID: sepID,
		padID: v.firstOf(0, "[PAD]", "<pad>"),
	}, nil
}

func (s *SugarWordPiece) PadID() int64 { return s.padID }
func (s *SugarWordPiece) BOSID() int64 { return s.clsID }
func (s *SugarWordPiece) EOSID() int64 { return s.sepID }

// Encode tokenizes text (and textPair when non-empty) with special tokens
// added by the post-processor. Output is unpadded; the assembler pads.
func (s *SugarWordPiece) Encode(text, textPair string, maxLen int) (Encoding, error) {
	if strings.TrimSpace(text) == "" {
		return Encoding{}, common.Wrapf(common.ErrInvalidInput, "tokenize: empty text")
	}
	var input tk.EncodeInput
	if textPair != "" {
		input = tk.NewDualEncodeInput(tk.NewInputSequence(text), tk.NewInputSequence(textPair))
	} else {
		input = tk.NewSingleEncodeInput(tk.NewInputSequence(text))
	}
	enc, err := s.t.Encode(input, true)
	if err != nil {
		return Encoding{}, common.Wrapf(common.ErrInvalidInput, "tokenize: %v", err)
	}

	uids := enc.GetIds()
	utypes := enc.GetTypeIds()
	umask := enc.GetAttentionMask()
	n := len(uids)
	if maxLen > 0 && n > maxLen {
		n = maxLen
	}
	out := Encoding{
		IDs:           make([]int64, n),
		TypeIDs:       make([]int64, n),
		AttentionMask: make([]int64, n),
	}
	for i := 0; i < n; i++ {
		out.IDs[i] = int64(uids[i])
		if i < len(utypes) {
			out.TypeIDs[i] = int64(utypes[i])
		}
		if i < len(umask) {
			out.AttentionMask[i] = int64(umask[i])
		} else {
			out.AttentionMask[i] = 1
		}
	}
	return out, nil
}

// IDsToString renders ids through the line-ordered vocab table.
func (s *SugarWordPiece) IDsToString(ids []int64) (string, error) {
	tokens := make([]string, 0, len(ids))
	for _, id := range ids {
		tok, ok := s.vocab.token(id)
		if !ok {
			tok = "[UNK]"
		}
		tokens = append(tokens, tok)
	}
	return renderTokens(tokens), nil
}
