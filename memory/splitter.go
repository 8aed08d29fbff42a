package memory

import "strings"

// Default chunking parameters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

var breakSeparators = []string{"\n\n", "\n", " "}

// SplitText cuts text into chunks of at most size runes. Consecutive chunks
// share up to overlap runes. Cuts prefer paragraph, line and word boundaries
// when one exists in the second half of the window.
func SplitText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if size <= 0 {
		size = DefaultChunkSize
	}

	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string

	start := 0
	for start < len(runes) {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			if cut := lastBreak(runes[start:end]); cut > size/2 {
				end = start + cut
			}
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}

		start = next
	}

	return chunks
}

// lastBreak returns the rune offset just after the last preferred separator
// in window, or 0.
func lastBreak(window []rune) int {
	s := string(window)

	for _, sep := range breakSeparators {
		if idx := strings.LastIndex(s, sep); idx > 0 {
			return len([]rune(s[:idx+len(sep)]))
		}
	}

	return 0
}
