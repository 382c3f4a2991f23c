package services

import "strings"

// WordChunker splits a full reply into word groups of roughly CharLimit
// characters, used to simulate incremental delivery when real streaming is
// unavailable. Every chunk except the last keeps a trailing space, so
// concatenating the chunks reproduces the original text.
type WordChunker struct {
	CharLimit int
}

func (c WordChunker) Split(full string) []string {
	if full == "" {
		return nil
	}
	limit := c.CharLimit
	if limit <= 0 {
		limit = 40
	}

	words := strings.Split(full, " ")
	var chunks []string
	var buf []string
	bufLen := 0

	for _, w := range words {
		buf = append(buf, w)
		bufLen += len(w)
		if bufLen+len(buf)-1 >= limit {
			chunks = append(chunks, strings.Join(buf, " ")+" ")
			buf = nil
			bufLen = 0
		}
	}
	if len(buf) > 0 {
		chunks = append(chunks, strings.Join(buf, " "))
		return chunks
	}
	if n := len(chunks); n > 0 {
		chunks[n-1] = strings.TrimSuffix(chunks[n-1], " ")
	}
	return chunks
}
