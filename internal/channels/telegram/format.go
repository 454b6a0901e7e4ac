package telegram

import "strings"

// ChunkMessage splits text into pieces of at most max bytes, breaking on
// line boundaries where possible. A single line longer than max is split
// mid-line.
func ChunkMessage(text string, max int) []string {
	if len(text) <= max {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
			current.Reset()
		}
	}

	for _, line := range strings.Split(text, "\n") {
		for len(line) > max {
			flush()
			chunks = append(chunks, line[:max])
			line = line[max:]
		}
		if current.Len()+len(line)+1 > max {
			flush()
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	flush()
	return chunks
}
