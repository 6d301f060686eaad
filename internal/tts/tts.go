package tts

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/haguro/elevenlabs-go"
)

const requestTimeout = 30 * time.Second

// Provider synthesizes speech audio for a piece of text. The audio is
// written to w as an MP3 stream.
type Provider interface {
	Synthesize(ctx context.Context, text string, w io.Writer) error
}

// ElevenLabs is a speech-synthesis provider backed by the ElevenLabs API
type ElevenLabs struct {
	apiKey  string
	voiceID string
	modelID string
}

// NewElevenLabs creates an ElevenLabs speech provider
func NewElevenLabs(apiKey, voiceID, modelID string) *ElevenLabs {
	return &ElevenLabs{apiKey: apiKey, voiceID: voiceID, modelID: modelID}
}

// Synthesize streams synthesized speech for text into w
func (e *ElevenLabs) Synthesize(ctx context.Context, text string, w io.Writer) error {
	client := elevenlabs.NewClient(ctx, e.apiKey, requestTimeout)

	err := client.TextToSpeechStream(w, e.voiceID, elevenlabs.TextToSpeechRequest{
		Text:    text,
		ModelID: e.modelID,
	})
	if err != nil {
		return fmt.Errorf("speech synthesis failed: %w", err)
	}

	return nil
}
