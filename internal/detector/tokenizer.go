package detector

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// Tokenizer turns text into fixed-length input ids and an attention mask.
type Tokenizer interface {
	Encode(text string, maxLength int) (ids []int64, mask []int64)
}

// WordPieceTokenizer is a BERT-style greedy longest-match tokenizer.
type WordPieceTokenizer struct {
	vocab        map[string]int64
	lowerCase    bool
	continuation string
	clsID        int64
	sepID        int64
	padID        int64
	unkID        int64
}

// LoadWordPieceVocab reads a vocab.txt file (one token per line, id = line index).
func LoadWordPieceVocab(path string, lowerCase bool) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()

	return ReadWordPieceVocab(f, lowerCase)
}

// ReadWordPieceVocab builds a tokenizer from vocab lines.
func ReadWordPieceVocab(r io.Reader, lowerCase bool) (*WordPieceTokenizer, error) {
	vocab := make(map[string]int64)
	scanner := bufio.NewScanner(r)
	var idx int64
	for scanner.Scan() {
		token := strings.TrimSpace(scanner.Text())
		if token == "" {
			continue
		}
		vocab[token] = idx
		idx++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan vocab: %w", err)
	}

	return NewWordPieceTokenizer(vocab, lowerCase)
}

// NewWordPieceTokenizer builds a tokenizer from an in-memory vocabulary.
func NewWordPieceTokenizer(vocab map[string]int64, lowerCase bool) (*WordPieceTokenizer, error) {
	for _, special := range []string{"[CLS]", "[SEP]", "[PAD]", "[UNK]"} {
		if _, ok := vocab[special]; !ok {
			return nil, fmt.Errorf("vocab missing special token %s", special)
		}
	}

	return &WordPieceTokenizer{
		vocab:        vocab,
		lowerCase:    lowerCase,
		continuation: "##",
		clsID:        vocab["[CLS]"],
		sepID:        vocab["[SEP]"],
		padID:        vocab["[PAD]"],
		unkID:        vocab["[UNK]"],
	}, nil
}

// Encode produces [CLS] tokens... [SEP] truncated to maxLength and right-padded with [PAD].
func (t *WordPieceTokenizer) Encode(text string, maxLength int) ([]int64, []int64) {
	if maxLength < 2 {
		return nil, nil
	}

	budget := maxLength - 2
	pieces := make([]int64, 0, budget)
	for _, word := range t.basicTokens(text) {
		if len(pieces) >= budget {
			break
		}
		pieces = append(pieces, t.wordPiece(word)...)
	}
	if len(pieces) > budget {
		pieces = pieces[:budget]
	}

	ids := make([]int64, maxLength)
	mask := make([]int64, maxLength)

	ids[0] = t.clsID
	copy(ids[1:], pieces)
	ids[len(pieces)+1] = t.sepID
	used := len(pieces) + 2
	for i := 0; i < maxLength; i++ {
		if i < used {
			mask[i] = 1
			continue
		}
		ids[i] = t.padID
	}

	return ids, mask
}

// basicTokens splits on whitespace and isolates punctuation, as BERT does.
func (t *WordPieceTokenizer) basicTokens(text string) []string {
	if t.lowerCase {
		text = strings.ToLower(text)
	}

	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsControl(r):
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return tokens
}

func (t *WordPieceTokenizer) wordPiece(word string) []int64 {
	if id, ok := t.vocab[word]; ok {
		return []int64{id}
	}

	var pieces []int64
	start := 0
	for start < len(word) {
		end := len(word)
		matched := false
		for end > start {
			sub := word[start:end]
			if start > 0 {
				sub = t.continuation + sub
			}
			if id, ok := t.vocab[sub]; ok {
				pieces = append(pieces, id)
				start = end
				matched = true
				break
			}
			end--
		}
		if !matched {
			return []int64{t.unkID}
		}
	}

	return pieces
}
