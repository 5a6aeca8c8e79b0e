package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"lecturenotes/internal/audio"
)

func TestReassembleOrdersByChunkIndex(t *testing.T) {
	// Chunks arrive in whatever order the splitter handed them out.
	chunks := []audio.Chunk{
		{Index: 2, Path: "/tmp/c2.ogg"},
		{Index: 0, Path: "/tmp/c0.ogg"},
		{Index: 1, Path: "/tmp/c1.ogg"},
	}
	texts := []string{"third", "first", "second"}

	assert.Equal(t, "first second third", Reassemble(chunks, texts))
}

func TestReassembleKeepsSlotForFailedChunk(t *testing.T) {
	chunks := []audio.Chunk{
		{Index: 0, Path: "/tmp/c0.ogg"},
		{Index: 1, Path: ""},
		{Index: 2, Path: "/tmp/c2.ogg"},
	}
	texts := []string{"alpha", "", "gamma"}

	assert.Equal(t, "alpha  gamma", Reassemble(chunks, texts))
}

func TestReassembleSingleChunk(t *testing.T) {
	chunks := []audio.Chunk{{Index: 0, Path: "/tmp/c0.ogg"}}
	assert.Equal(t, "only", Reassemble(chunks, []string{"only"}))
}

func TestReassembleEmpty(t *testing.T) {
	assert.Equal(t, "", Reassemble(nil, nil))
}

func TestTruncateWordsUnderBudgetIsUnchanged(t *testing.T) {
	// Original spacing survives when no truncation is needed.
	text := "one  two\tthree\nfour"
	assert.Equal(t, text, TruncateWords(text, 4))
	assert.Equal(t, text, TruncateWords(text, 100))
}

func TestTruncateWordsOverBudget(t *testing.T) {
	text := strings.Repeat("w ", 2500)
	got := TruncateWords(text, 2000)
	assert.Len(t, strings.Fields(got), 2000)
	assert.False(t, strings.HasSuffix(got, " "))
}

func TestTruncateWordsExactBudget(t *testing.T) {
	words := make([]string, 2000)
	for i := range words {
		words[i] = "x"
	}
	text := strings.Join(words, " ")
	assert.Equal(t, text, TruncateWords(text, 2000))
}

func TestTruncateWordsEmpty(t *testing.T) {
	assert.Equal(t, "", TruncateWords("", 2000))
}
