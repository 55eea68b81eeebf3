package ingest

import (
	"strings"
	"unicode/utf8"
)

// ChunkText cuts text into consecutive pieces of size characters, the last one possibly shorter.
// Pieces do not overlap and concatenate back to text.
func ChunkText(text string, size int) []string {
	if text == "" || size <= 0 {
		return []string{}
	}
	chunks := make([]string, 0, utf8.RuneCountInString(text)/size+1)
	start, count := 0, 0
	for i := range text {
		if count == size {
			chunks = append(chunks, text[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(chunks, text[start:])
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
