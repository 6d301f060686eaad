package tts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResample(t *testing.T) {
	t.Run("same rate is a pass-through", func(t *testing.T) {
		pcm := []int16{1, 2, 3, 4}
		assert.Equal(t, pcm, Resample(pcm, 48000, 48000))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Resample(nil, 22050, 48000))
	})

	t.Run("upsampling doubles the frame count", func(t *testing.T) {
		// Two stereo frames at 24kHz -> four at 48kHz
		pcm := []int16{100, 200, 300, 400}
		out := Resample(pcm, 24000, 48000)

		require.Len(t, out, 8)
		// First frame is preserved exactly
		assert.Equal(t, int16(100), out[0])
		assert.Equal(t, int16(200), out[1])
		// Interpolated frame sits between the sources
		assert.Equal(t, int16(200), out[2])
		assert.Equal(t, int16(300), out[3])
	})

	t.Run("downsampling halves the frame count", func(t *testing.T) {
		pcm := []int16{10, 10, 20, 20, 30, 30, 40, 40}
		out := Resample(pcm, 48000, 24000)
		require.Len(t, out, 4)
		assert.Equal(t, int16(10), out[0])
		assert.Equal(t, int16(30), out[2])
	})
}

func TestFrames(t *testing.T) {
	t.Run("exact multiple", func(t *testing.T) {
		pcm := make([]int16, 8)
		frames := Frames(pcm, 2)
		require.Len(t, frames, 2)
		assert.Len(t, frames[0], 4)
	})

	t.Run("final frame is zero-padded", func(t *testing.T) {
		pcm := []int16{1, 2, 3, 4, 5, 6}
		frames := Frames(pcm, 2)
		require.Len(t, frames, 2)

		assert.Equal(t, []int16{1, 2, 3, 4}, frames[0])
		assert.Equal(t, []int16{5, 6, 0, 0}, frames[1])
	})

	t.Run("empty input yields no frames", func(t *testing.T) {
		assert.Empty(t, Frames(nil, 960))
	})
}
