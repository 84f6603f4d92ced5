// Package voice resolves recorded audio clips to text through OpenAI's
// transcription endpoint.
package voice

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Clip is a voice-transcribed utterance in transit: raw audio plus the
// capture metadata the transcription service needs.
type Clip struct {
	Data       []byte    `json:"data"`
	Format     string    `json:"format"` // wav, mp3, webm, ...
	SampleRate int       `json:"sample_rate"`
	Duration   float64   `json:"duration"` // seconds
	Timestamp  time.Time `json:"timestamp"`
}

// Transcriber converts audio clips to text using Whisper.
type Transcriber struct {
	client *openai.Client
	model  string
}

// NewTranscriber creates a Transcriber. The API key comes from the
// environment, matching the OpenAI completion client.
func NewTranscriber(model string) (*Transcriber, error) {
	apiKey := os.Getenv("AUTOPILOT_OPENAI_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("AUTOPILOT_OPENAI_KEY or OPENAI_API_KEY environment variable required")
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &Transcriber{client: openai.NewClient(apiKey), model: model}, nil
}

// Transcribe resolves the clip to text.
func (t *Transcriber) Transcribe(ctx context.Context, clip Clip) (string, error) {
	if len(clip.Data) == 0 {
		return "", fmt.Errorf("empty audio clip")
	}
	format := clip.Format
	if format == "" {
		format = "wav"
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: "clip." + format,
		Reader:   bytes.NewReader(clip.Data),
	})
	if err != nil {
		return "", fmt.Errorf("transcription API error: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("transcription produced no text")
	}
	return text, nil
}
