package speech

import "context"

// Result is one transcription event from the provider. Interim results are
// delivered with IsFinal false when the stream is configured to emit them.
type Result struct {
	Text    string
	IsFinal bool
}

// LiveSession is one live transcription stream. Audio frames go in,
// recognized text comes out on Results. The channel is closed when the
// stream ends, whether by Stop or by a provider-side close.
type LiveSession interface {
	SendAudio(data []byte) error
	Results() <-chan Result
	Stop() error
}

// Provider opens live transcription sessions against a speech-to-text service
type Provider interface {
	Start(ctx context.Context, cfg StreamConfig) (LiveSession, error)
}

// StreamConfig describes the audio stream handed to the provider
type StreamConfig struct {
	Punctuate      bool
	InterimResults bool
	Language       string
	Encoding       string
	SampleRate     int
	Channels       int
}

// DefaultStreamConfig matches the audio Discord delivers after opus decoding
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Punctuate:      true,
		InterimResults: false,
		Language:       "en-US",
		Encoding:       "linear16",
		SampleRate:     48000,
		Channels:       2,
	}
}
