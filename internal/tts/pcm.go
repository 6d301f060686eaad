package tts

import (
	"encoding/binary"
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// DecodeMP3 decodes an MP3 stream into interleaved 16-bit stereo samples and
// reports the source sample rate. go-mp3 always emits two channels.
func DecodeMP3(r io.Reader) ([]int16, int, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode mp3: %w", err)
	}

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read mp3 stream: %w", err)
	}

	pcm := make([]int16, len(raw)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}

	return pcm, decoder.SampleRate(), nil
}

// Resample converts interleaved stereo samples between sample rates using
// linear interpolation. Good enough for synthesized speech headed into a
// lossy voice channel.
func Resample(pcm []int16, from, to int) []int16 {
	if from == to || len(pcm) == 0 {
		return pcm
	}

	inFrames := len(pcm) / 2
	outFrames := int(int64(inFrames) * int64(to) / int64(from))
	out := make([]int16, outFrames*2)

	for i := 0; i < outFrames; i++ {
		pos := float64(i) * float64(from) / float64(to)
		idx := int(pos)
		frac := pos - float64(idx)

		next := idx + 1
		if next >= inFrames {
			next = inFrames - 1
		}

		for ch := 0; ch < 2; ch++ {
			a := float64(pcm[idx*2+ch])
			b := float64(pcm[next*2+ch])
			out[i*2+ch] = int16(a + (b-a)*frac)
		}
	}

	return out
}

// Frames splits interleaved stereo samples into fixed-size frames of
// frameSize samples per channel, zero-padding the final frame
func Frames(pcm []int16, frameSize int) [][]int16 {
	step := frameSize * 2
	var frames [][]int16

	for start := 0; start < len(pcm); start += step {
		end := start + step
		if end <= len(pcm) {
			frames = append(frames, pcm[start:end])
			continue
		}

		last := make([]int16, step)
		copy(last, pcm[start:])
		frames = append(frames, last)
	}

	return frames
}
