package rag

import "strings"

// DefaultChunkChars is the chunk size used at ingestion.
const DefaultChunkChars = 1200

// Chunk splits text into pieces of at most maxChars code points, cutting
// after the last ". " inside each window when there is one.
func Chunk(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkChars
	}

	runes := []rune(strings.TrimSpace(text))
	var chunks []string
	for len(runes) > maxChars {
		window := string(runes[:maxChars])
		cut := maxChars
		if idx := strings.LastIndex(window, ". "); idx > 0 {
			// keep the period with the sentence it ends
			cut = len([]rune(window[:idx+1]))
		}
		if piece := strings.TrimSpace(string(runes[:cut])); piece != "" {
			chunks = append(chunks, piece)
		}
		runes = []rune(strings.TrimSpace(string(runes[cut:])))
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
