// Package chaos corrupts schema sources to check that compilation degrades
// into diagnostics instead of panics.
package chaos

import (
	"bytes"
	"math/rand"
)

// Mutation is one kind of corruption.
type Mutation int

const (
	ByteFlip Mutation = iota
	ByteDelete
	WordDelete
	PunctInsert
	WordSwap
	UTF8Corrupt
	Truncation
	mutationCount
)

var (
	punctuation = []byte("{}()?@,#;\n")
	words       = [][]byte{
		[]byte("model"), []byte("Int"), []byte("Float"), []byte("Date"),
		[]byte("String"), []byte("Blob"), []byte("@id"), []byte("@references"),
		[]byte("references"), []byte("id"), []byte("//"), []byte("日本"),
	}
)

// Corruptor applies seeded random mutations.
type Corruptor struct {
	rng *rand.Rand
}

// NewCorruptor creates a Corruptor with the given seed.
func NewCorruptor(seed int64) *Corruptor {
	return &Corruptor{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // reproducible test input
}

// Corrupt applies one random mutation to a copy of input.
func (c *Corruptor) Corrupt(input []byte) []byte {
	return c.Apply(Mutation(c.rng.Intn(int(mutationCount))), input)
}

// Apply applies m to a copy of input. Empty input grows a random word.
func (c *Corruptor) Apply(m Mutation, input []byte) []byte {
	out := bytes.Clone(input)
	if len(out) == 0 {
		return bytes.Clone(words[c.rng.Intn(len(words))])
	}
	switch m {
	case ByteFlip:
		idx := c.rng.Intn(len(out))
		out[idx] ^= byte(1 << c.rng.Intn(8))
	case ByteDelete:
		idx := c.rng.Intn(len(out))
		out = append(out[:idx], out[idx+1:]...)
	case WordDelete:
		start, end := c.word(out)
		out = append(out[:start], out[end:]...)
	case PunctInsert:
		idx := c.rng.Intn(len(out) + 1)
		out = insert(out, idx, []byte{punctuation[c.rng.Intn(len(punctuation))]})
	case WordSwap:
		start, end := c.word(out)
		replacement := words[c.rng.Intn(len(words))]
		out = insert(append(out[:start:start], out[end:]...), start, replacement)
	case UTF8Corrupt:
		idx := c.rng.Intn(len(out))
		out[idx] = 0xC0 | byte(c.rng.Intn(0x20))
	case Truncation:
		out = out[:c.rng.Intn(len(out))]
	}
	return out
}

// CorruptN applies n random mutations.
func (c *Corruptor) CorruptN(input []byte, n int) []byte {
	out := bytes.Clone(input)
	for range n {
		out = c.Corrupt(out)
	}
	return out
}

// GenerateCorpus returns count corrupted variants of valid, each with one to
// five mutations.
func (c *Corruptor) GenerateCorpus(valid []byte, count int) [][]byte {
	corpus := make([][]byte, count)
	for i := range corpus {
		corpus[i] = c.CorruptN(valid, c.rng.Intn(5)+1)
	}
	return corpus
}

// word returns the bounds of a random run of non-space bytes. The run is
// empty when the picked byte is whitespace.
func (c *Corruptor) word(in []byte) (int, int) {
	idx := c.rng.Intn(len(in))
	start, end := idx, idx
	for start > 0 && !isSpace(in[start-1]) {
		start--
	}
	for end < len(in) && !isSpace(in[end]) {
		end++
	}
	return start, end
}

func insert(dst []byte, idx int, src []byte) []byte {
	out := make([]byte, 0, len(dst)+len(src))
	out = append(out, dst[:idx]...)
	out = append(out, src...)
	return append(out, dst[idx:]...)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
