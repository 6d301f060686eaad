package bot

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/ethanbaker/eva/internal/tts"
	"layeh.com/gopus"
)

// maxOpusBytes bounds one encoded frame
const maxOpusBytes = (frameSize * 2) * 2

// speakInto synthesizes text and plays it into the voice connection. Playback
// is serialized so overlapping replies queue instead of mixing.
func (b *Bot) speakInto(ctx context.Context, vc *discordgo.VoiceConnection, text string) error {
	b.speakMu.Lock()
	defer b.speakMu.Unlock()

	var buf bytes.Buffer
	if err := b.speech.Synthesize(ctx, text, &buf); err != nil {
		return err
	}

	pcm, rate, err := tts.DecodeMP3(&buf)
	if err != nil {
		return err
	}
	pcm = tts.Resample(pcm, rate, sampleRate)

	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return fmt.Errorf("failed to create opus encoder: %w", err)
	}

	_ = vc.Speaking(true)
	defer func() { _ = vc.Speaking(false) }()

	for _, frame := range tts.Frames(pcm, frameSize) {
		data, err := encoder.Encode(frame, frameSize, maxOpusBytes)
		if err != nil {
			return fmt.Errorf("failed to encode audio frame: %w", err)
		}

		select {
		case vc.OpusSend <- data:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}
