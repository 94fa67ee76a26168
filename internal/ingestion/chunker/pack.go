package chunker

import "strings"

// Pack merges paragraphs into chunks of at most maxChars characters. When a
// paragraph does not fit, the next chunk starts with the last overlap
// characters of the previous one. Long paragraphs are cut on character
// boundaries.
func Pack(paragraphs []string, maxChars, overlap int) []string {
	if maxChars <= 0 {
		maxChars = 500
	}
	if overlap < 0 || overlap >= maxChars-1 {
		overlap = 0
	}
	pieceMax := maxChars
	if overlap > 0 {
		pieceMax = maxChars - overlap - 1
	}

	out := []string{}
	var cur []rune
	carried := false
	emit := func() {
		if s := strings.TrimSpace(string(cur)); s != "" {
			out = append(out, s)
		}
		if overlap > 0 && len(cur) > overlap {
			cur = append([]rune{}, cur[len(cur)-overlap:]...)
		} else {
			cur = nil
		}
		carried = len(cur) > 0
	}

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		for _, piece := range splitRunes([]rune(p), pieceMax) {
			if len(cur) > 0 && len(cur)+1+len(piece) > maxChars {
				emit()
			}
			if len(cur) > 0 {
				cur = append(cur, '\n')
			}
			cur = append(cur, piece...)
			carried = false
		}
	}
	if !carried && len(cur) > 0 {
		emit()
	}
	return out
}

func splitRunes(r []rune, n int) [][]rune {
	if len(r) <= n {
		return [][]rune{r}
	}
	out := make([][]rune, 0, len(r)/n+1)
	for i := 0; i < len(r); i += n {
		end := i + n
		if end > len(r) {
			end = len(r)
		}
		out = append(out, r[i:end])
	}
	return out
}
