package util

// ChunkText splits text into rune windows of at most maxSize, each chunk
// starting exactly overlap runes before the end of the previous one. Cuts
// prefer a paragraph or sentence boundary inside the window when one exists
// past the overlap region. The output is a pure function of the inputs: the
// ingestion ledger's duplicate detection relies on re-chunking the same text
// producing identical chunks.
func ChunkText(text string, maxSize, overlap int) []string {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if overlap < 0 || overlap >= maxSize {
		overlap = 0
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	out := make([]string, 0, len(runes)/maxSize+1)
	start := 0
	for {
		if start+maxSize >= len(runes) {
			out = append(out, string(runes[start:]))
			break
		}
		end := cutPoint(runes, start, start+maxSize, overlap)
		out = append(out, string(runes[start:end]))
		start = end - overlap
	}
	return out
}

// cutPoint picks the chunk end within (start+overlap, limit], preferring the
// last newline, then the last sentence terminator. The lower bound keeps every
// step strictly positive so chunking always terminates.
func cutPoint(runes []rune, start, limit, overlap int) int {
	min := start + overlap + 1
	for i := limit; i >= min; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	for i := limit; i >= min; i-- {
		switch runes[i-1] {
		case '.', '!', '?':
			return i
		}
	}
	return limit
}
