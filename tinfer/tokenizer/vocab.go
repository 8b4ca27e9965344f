package tokenizer

import (
	"bufio"
	"os"
	"strings"
)

// vocab is a line-ordered vocabulary file: token text by id.
type vocab struct {
	tokens []string
	index  map[string]int64
}

func loadVocab(path string) (*vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	v := &vocab{index: make(map[string]int64, 60000)}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		tok := strings.TrimSpace(scanner.Text())
		if tok == "" {
			continue
		}
		v.index[tok] = int64(len(v.tokens))
		v.tokens = append(v.tokens, tok)
	}
	return v, scanner.Err()
}

func (v *vocab) id(tok string) (int64, bool) {
	id, ok := v.index[tok]
	return id, ok
}

func (v *vocab) token(id int64) (string, bool) {
	if id < 0 || id >= int64(len(v.tokens)) {
		return "", false
	}
	return v.tokens[id], true
}

// firstOf returns the id of the first candidate present in the vocabulary,
// falling back to def. Vocabularies differ on marker spelling ([CLS] vs <s>),
// so callers probe both.
func (v *vocab) firstOf(def int64, cands ...string) int64 {
	for _, c := range cands {
		if id, ok := v.index[c]; ok {
			return id
		}
	}
	return def
}

// renderTokens joins tokens into text, merging WordPiece "##" continuations
// onto the previous token.
func renderTokens(tokens []string) string {
	var sb strings.Builder
	for i, tok := range tokens {
		if cont, ok := strings.CutPrefix(tok, "##"); ok {
			sb.WriteString(cont)
			continue
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok)
	}
	return sb.String()
}
