package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport(t *testing.T) {
	t.Run("empty session returns ErrEmptyTranscript", func(t *testing.T) {
		r := NewRegistry()
		s, err := r.Create(NewKey("g", "c"), "General")
		require.NoError(t, err)

		e := NewExporter(t.TempDir(), nil)
		_, err = e.Export(s)
		assert.ErrorIs(t, err, ErrEmptyTranscript)
	})

	t.Run("writes the transcript and leaves the log untouched", func(t *testing.T) {
		r := NewRegistry()
		key := NewKey("g", "c")
		s, err := r.Create(key, "General")
		require.NoError(t, err)

		require.NoError(t, r.Append(key, "u1", "hello"))
		require.NoError(t, r.Append(key, "u2", "hi"))

		dir := t.TempDir()
		e := NewExporter(dir, nil)

		path, err := e.Export(s)
		require.NoError(t, err)
		assert.Equal(t, dir, filepath.Dir(path))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "Transcript from Discord Voice Channel: General")
		assert.Contains(t, string(content), "u1: hello")
		assert.Contains(t, string(content), "u2: hi")

		// Export does not clear
		assert.Equal(t, 2, s.Len())
	})

	t.Run("filename embeds a second-granularity timestamp", func(t *testing.T) {
		r := NewRegistry()
		key := NewKey("g", "c")
		s, err := r.Create(key, "General")
		require.NoError(t, err)
		require.NoError(t, r.Append(key, "u1", "hello"))

		e := NewExporter(t.TempDir(), nil)
		path, err := e.Export(s)
		require.NoError(t, err)

		name := filepath.Base(path)
		assert.Regexp(t, `^transcript_\d{8}_\d{6}\.txt$`, name)
	})

	t.Run("resolver supplies display names with raw id fallback", func(t *testing.T) {
		r := NewRegistry()
		key := NewKey("g", "c")
		s, err := r.Create(key, "General")
		require.NoError(t, err)

		require.NoError(t, r.Append(key, "111", "hello"))
		require.NoError(t, r.Append(key, "222", "hi"))

		resolve := func(userID string) string {
			if userID == "111" {
				return "alice"
			}
			return "" // lookup failed, fall back to raw ID
		}

		e := NewExporter(t.TempDir(), resolve)
		path, err := e.Export(s)
		require.NoError(t, err)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "alice: hello")
		assert.Contains(t, string(content), "222: hi")
	})
}

func TestExportMatchesExportAndClear(t *testing.T) {
	r := NewRegistry()
	key := NewKey("g", "c")
	s, err := r.Create(key, "General")
	require.NoError(t, err)

	require.NoError(t, r.Append(key, "u1", "hello"))
	require.NoError(t, r.Append(key, "u2", "world"))

	e := NewExporter(t.TempDir(), nil)

	path1, err := e.Export(s)
	require.NoError(t, err)
	content1, err := os.ReadFile(path1)
	require.NoError(t, err)

	path2, err := e.ExportAndClear(s)
	require.NoError(t, err)
	content2, err := os.ReadFile(path2)
	require.NoError(t, err)

	assert.Equal(t, string(content1), string(content2))
}

func TestExportAndClear(t *testing.T) {
	t.Run("empties the log and keeps the session active", func(t *testing.T) {
		r := NewRegistry()
		key := NewKey("g", "c")
		s, err := r.Create(key, "General")
		require.NoError(t, err)

		require.NoError(t, r.Append(key, "u1", "hello"))
		require.NoError(t, r.Append(key, "u1", "   "))

		e := NewExporter(t.TempDir(), nil)
		path, err := e.ExportAndClear(s)
		require.NoError(t, err)

		content, err := os.ReadFile(path)
		require.NoError(t, err)

		// Exactly one entry line: the whitespace fragment was never stored
		lines := 0
		for _, line := range strings.Split(string(content), "\n") {
			if strings.HasPrefix(line, "[") {
				lines++
			}
		}
		assert.Equal(t, 1, lines)
		assert.Contains(t, string(content), "u1: hello")

		assert.Equal(t, 0, s.Len())
		assert.True(t, s.Active())

		// Nothing left to save
		_, err = e.ExportAndClear(s)
		assert.ErrorIs(t, err, ErrEmptyTranscript)
	})

	t.Run("failed write puts the log back", func(t *testing.T) {
		r := NewRegistry()
		key := NewKey("g", "c")
		s, err := r.Create(key, "General")
		require.NoError(t, err)

		require.NoError(t, r.Append(key, "u1", "hello"))
		require.NoError(t, r.Append(key, "u2", "world"))

		// A regular file where the export directory should be makes the
		// write fail
		blocked := filepath.Join(t.TempDir(), "blocked")
		require.NoError(t, os.WriteFile(blocked, nil, 0644))

		e := NewExporter(blocked, nil)
		_, err = e.ExportAndClear(s)
		require.Error(t, err)

		// The captured entries survive the failure, in order
		entries := s.Snapshot()
		require.Len(t, entries, 2)
		assert.Equal(t, "hello", entries[0].Text)
		assert.Equal(t, "world", entries[1].Text)
		assert.True(t, s.Active())

		// A later save into a writable directory recovers everything
		path, err := NewExporter(t.TempDir(), nil).ExportAndClear(s)
		require.NoError(t, err)
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "u1: hello")
		assert.Contains(t, string(content), "u2: world")
		assert.Equal(t, 0, s.Len())
	})
}

func TestRenderTranscript(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 9, 26, 0, time.Local)
	entries := []Entry{
		{UserID: "u1", Text: "hello", CapturedAt: now.Add(-time.Minute)},
		{UserID: "u2", Text: "world", CapturedAt: now},
	}

	content := renderTranscript("General", entries, now, nil)

	expected := "Transcript from Discord Voice Channel: General\n" +
		"Date: 2025-03-14 15:09:26\n" +
		strings.Repeat("-", 50) + "\n\n" +
		"[15:08:26] u1: hello\n" +
		"[15:09:26] u2: world\n"
	assert.Equal(t, expected, content)

	// Rendering the same entries at the same instant is deterministic, so an
	// export followed by an export-and-clear of an untouched log agrees in
	// content.
	assert.Equal(t, content, renderTranscript("General", entries, now, nil))
}
