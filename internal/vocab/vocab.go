// Package vocab maps between tokens and the integer ids the encoder
// consumes. Ids 0 and 1 are reserved for padding and unknown tokens;
// corpus tokens start at 2.
package vocab

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	json "github.com/goccy/go-json"
)

const (
	PadToken = "<pad>"
	UnkToken = "<unk>"

	PadID = 0
	UnkID = 1
)

// Vocab is an immutable token table. The zero value is not usable;
// construct one with New, Build or UnmarshalJSON.
type Vocab struct {
	tokens []string
	index  map[string]int
}

// New creates a vocabulary from a complete token list in id order. The
// list must start with the reserved pad and unk tokens and contain no
// duplicates.
func New(tokens []string) (*Vocab, error) {
	if len(tokens) < 2 || tokens[PadID] != PadToken || tokens[UnkID] != UnkToken {
		return nil, fmt.Errorf("vocab: token list must start with %q, %q", PadToken, UnkToken)
	}
	index := make(map[string]int, len(tokens))
	for id, tok := range tokens {
		if tok == "" {
			return nil, fmt.Errorf("vocab: empty token at id %d", id)
		}
		if prev, dup := index[tok]; dup {
			return nil, fmt.Errorf("vocab: duplicate token %q at ids %d and %d", tok, prev, id)
		}
		index[tok] = id
	}
	return &Vocab{tokens: tokens, index: index}, nil
}

// Build scans a corpus line by line, counts tokens, and keeps those
// seen at least minCount times. Ids are assigned by descending count,
// ties broken by token order, so the same corpus always yields the
// same vocabulary.
func Build(r io.Reader, minCount int) (*Vocab, error) {
	if minCount < 1 {
		minCount = 1
	}
	counts := map[string]int{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		for _, tok := range Tokenize(sc.Text()) {
			counts[tok]++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("vocab: scan corpus: %w", err)
	}

	type entry struct {
		tok string
		n   int
	}
	entries := make([]entry, 0, len(counts))
	for tok, n := range counts {
		if n >= minCount {
			entries = append(entries, entry{tok, n})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].n != entries[j].n {
			return entries[i].n > entries[j].n
		}
		return entries[i].tok < entries[j].tok
	})

	tokens := make([]string, 0, len(entries)+2)
	tokens = append(tokens, PadToken, UnkToken)
	for _, e := range entries {
		tokens = append(tokens, e.tok)
	}
	return New(tokens)
}

// Size returns the number of ids, reserved tokens included.
func (v *Vocab) Size() int { return len(v.tokens) }

// ID returns the id for tok, falling back to the unknown id.
func (v *Vocab) ID(tok string) int {
	if id, ok := v.index[tok]; ok {
		return id
	}
	return UnkID
}

// Token returns the token for id, or the unknown token for ids outside
// the table.
func (v *Vocab) Token(id int) string {
	if id < 0 || id >= len(v.tokens) {
		return UnkToken
	}
	return v.tokens[id]
}

// Tokens returns the full token list in id order.
func (v *Vocab) Tokens() []string { return v.tokens }

// Encode tokenizes text and maps each token to its id.
func (v *Vocab) Encode(text string) []int {
	toks := Tokenize(text)
	ids := make([]int, len(toks))
	for i, tok := range toks {
		ids[i] = v.ID(tok)
	}
	return ids
}

// Decode maps ids back to tokens joined by single spaces.
func (v *Vocab) Decode(ids []int) string {
	toks := make([]string, len(ids))
	for i, id := range ids {
		toks[i] = v.Token(id)
	}
	return strings.Join(toks, " ")
}

// Tokenize lowercases text and splits it on whitespace, trimming
// leading and trailing punctuation from each token. Interior
// punctuation such as apostrophes survives.
func Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

type vocabJSON struct {
	Tokens []string `json:"tokens"`
}

// MarshalJSON serializes the token list in id order.
func (v *Vocab) MarshalJSON() ([]byte, error) {
	return json.Marshal(vocabJSON{Tokens: v.tokens})
}

// UnmarshalJSON rebuilds the vocabulary from a serialized token list,
// applying the same validation as New.
func (v *Vocab) UnmarshalJSON(data []byte) error {
	var vj vocabJSON
	if err := json.Unmarshal(data, &vj); err != nil {
		return fmt.Errorf("vocab: decode: %w", err)
	}
	nv, err := New(vj.Tokens)
	if err != nil {
		return err
	}
	*v = *nv
	return nil
}
