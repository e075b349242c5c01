package paper

import (
	"fmt"
	"strings"

	"papereval/internal/vector"
)

const (
	DefaultChunkSize    = 1500
	DefaultChunkOverlap = 300
)

// Chunk splits text into windows of at most size runes that overlap by
// overlap runes. Inside the last overlap runes of a window it prefers to end
// on a paragraph break, then on a sentence break. Offsets are rune offsets
// into text; blank windows are dropped and ids are assigned in order.
func Chunk(text string, size, overlap int) []vector.Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	runes := []rune(text)
	n := len(runes)
	out := make([]vector.Chunk, 0, n/max(size-overlap, 1)+1)
	start := 0
	for start < n {
		end := min(start+size, n)
		if end < n {
			from := start + size - overlap
			if p := lastIndex(runes, "\n\n", from, end); p > start {
				end = p + 2
			} else if s := lastSentenceBreak(runes, from, end); s > start {
				end = s + 2
			}
		}
		body := strings.TrimSpace(string(runes[start:end]))
		if body != "" {
			out = append(out, vector.Chunk{
				ID:    len(out),
				Text:  body,
				Start: start,
				End:   end,
				Title: chunkTitle(len(out)+1, body),
			})
		}
		if end >= n {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

func chunkTitle(n int, body string) string {
	first := body
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		first = body[:i]
	} else if r := []rune(body); len(r) > 50 {
		first = string(r[:50])
	}
	return fmt.Sprintf("Chunk %d: %s...", n, strings.TrimSpace(first))
}

func lastSentenceBreak(runes []rune, from, to int) int {
	best := -1
	for _, sep := range []string{". ", "? ", "! "} {
		if p := lastIndex(runes, sep, from, to); p > best {
			best = p
		}
	}
	return best
}

// lastIndex finds the last occurrence of sep lying entirely inside runes[from:to].
func lastIndex(runes []rune, sep string, from, to int) int {
	pat := []rune(sep)
	from = max(from, 0)
	for i := to - len(pat); i >= from; i-- {
		match := true
		for j, r := range pat {
			if runes[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
