package telegram

import (
	"strings"
	"testing"
)

func TestChunkMessage_Short(t *testing.T) {
	chunks := ChunkMessage("hello\nworld", 4000)
	if len(chunks) != 1 || chunks[0] != "hello\nworld" {
		t.Errorf("ChunkMessage short = %q, want single unchanged chunk", chunks)
	}
}

func TestChunkMessage_SplitsOnLines(t *testing.T) {
	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, strings.Repeat("x", 90))
	}
	text := strings.Join(lines, "\n")

	chunks := ChunkMessage(text, 1000)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 1000 {
			t.Errorf("chunk %d is %d bytes, over the limit", i, len(chunk))
		}
		for _, line := range strings.Split(chunk, "\n") {
			if len(line) != 90 {
				t.Errorf("chunk %d split mid-line: line of %d bytes", i, len(line))
			}
		}
	}

	joined := strings.Join(chunks, "\n")
	if joined != text {
		t.Error("chunks do not reassemble into the original text")
	}
}

func TestChunkMessage_LongSingleLine(t *testing.T) {
	text := strings.Repeat("y", 2500)
	chunks := ChunkMessage(text, 1000)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 1000 {
			t.Errorf("chunk %d is %d bytes, over the limit", i, len(chunk))
		}
	}
	if strings.Join(chunks, "") != text {
		t.Error("mid-line chunks do not reassemble into the original text")
	}
}
