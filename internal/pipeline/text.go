package pipeline

import (
	"sort"
	"strings"

	"lecturenotes/internal/audio"
)

// Reassemble joins per-chunk transcripts back into one text, ordered by
// chunk index and separated by single spaces. Ordering is the
// correctness-critical step: chunks finish transcription in arbitrary order
// and out-of-order concatenation corrupts the lecture's narrative flow.
// A failed chunk contributes its empty string and keeps its separator.
func Reassemble(chunks []audio.Chunk, texts []string) string {
	type part struct {
		index int
		text  string
	}

	parts := make([]part, 0, len(chunks))
	for i, chunk := range chunks {
		text := ""
		if i < len(texts) {
			text = texts[i]
		}
		parts = append(parts, part{index: chunk.Index, text: text})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].index < parts[j].index })

	ordered := make([]string, len(parts))
	for i, p := range parts {
		ordered[i] = p.text
	}
	return strings.Join(ordered, " ")
}

// TruncateWords returns text unchanged when it has at most maxWords
// whitespace-separated words, and exactly the first maxWords words otherwise.
func TruncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ")
}
