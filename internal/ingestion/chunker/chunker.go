// Package chunker splits text into retrieval-sized units.
package chunker

import "strings"

const (
	// PreviewChunks is how many leading chunks form a pre-chunked resource's content.
	PreviewChunks = 3
	// PreviewMaxChars caps the preview length, in characters.
	PreviewMaxChars = 2000

	sentenceTerminator = "."
	escapedNewline     = `\n`
)

// ChunkRaw splits free-form text on sentence terminators. Fragments are
// trimmed; empty and whitespace-only fragments are dropped; order is kept.
func ChunkRaw(text string) []string {
	out := []string{}
	for _, part := range strings.Split(strings.TrimSpace(text), sentenceTerminator) {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// PassThrough returns caller-chunked text unchanged apart from escape
// normalisation. It never re-splits or drops entries.
func PassThrough(chunks []string) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = NormalizeEscapes(c)
	}
	return out
}

// NormalizeEscapes replaces literal backslash-n sequences, left behind by
// upstream JSON double-encoding, with spaces.
func NormalizeEscapes(s string) string {
	return strings.ReplaceAll(s, escapedNewline, " ")
}

// Preview joins the first PreviewChunks chunks with blank lines and truncates
// the result to PreviewMaxChars characters.
func Preview(chunks []string) string {
	n := len(chunks)
	if n > PreviewChunks {
		n = PreviewChunks
	}
	joined := strings.Join(chunks[:n], "\n\n")
	r := []rune(joined)
	if len(r) <= PreviewMaxChars {
		return joined
	}
	return string(r[:PreviewMaxChars])
}
