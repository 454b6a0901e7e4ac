// Package transcribe converts Telegram voice notes to text via the Whisper
// API. Telegram serves voice as ogg/opus, which the API accepts directly,
// so no local transcoding step is needed.
package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultModel = openai.AudioModelWhisper1

// Client transcribes audio snippets.
type Client struct {
	api      openai.Client
	language string
}

// New creates a transcription client. language is a BCP-47 hint ("ru");
// empty means autodetect.
func New(apiKey, language string) *Client {
	return &Client{
		api:      openai.NewClient(option.WithAPIKey(apiKey)),
		language: language,
	}
}

// Transcribe sends one voice note and returns the recognized text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if filename == "" {
		filename = "voice.ogg"
	}

	params := openai.AudioTranscriptionNewParams{
		Model: defaultModel,
		File:  openai.File(bytes.NewReader(audio), filename, "audio/ogg"),
	}
	if c.language != "" {
		params.Language = openai.String(c.language)
	}

	resp, err := c.api.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	slog.Info("voice note transcribed", "bytes", len(audio), "chars", len(text))
	return text, nil
}
