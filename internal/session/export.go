package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Resolver maps a speaker's user ID to a display name for the exported
// transcript. Returning an empty string falls back to the raw ID.
type Resolver func(userID string) string

// Exporter serializes a session's transcript log to a plain-text file.
// It borrows a read reference to the session during the call and retains
// nothing afterwards.
type Exporter struct {
	dir     string
	resolve Resolver
}

// NewExporter creates an exporter writing files under dir. resolve may be nil,
// in which case raw user IDs are written.
func NewExporter(dir string, resolve Resolver) *Exporter {
	return &Exporter{dir: dir, resolve: resolve}
}

// Export writes the session's transcript to a freshly named file and returns
// its path. The log is left untouched; callers decide whether to clear it.
// Returns ErrEmptyTranscript when there is nothing to save.
func (e *Exporter) Export(s *Session) (string, error) {
	entries := s.Snapshot()
	if len(entries) == 0 {
		return "", ErrEmptyTranscript
	}
	return e.write(s.ChannelName, s.StartedAt, entries)
}

// ExportAndClear writes the session's transcript and atomically replaces the
// log with an empty one, leaving the session active. Used by the "save now,
// keep recording" flow. If the write fails the drained entries are put back;
// captured speech is never lost to a disk error.
func (e *Exporter) ExportAndClear(s *Session) (string, error) {
	entries := s.drain()
	if len(entries) == 0 {
		return "", ErrEmptyTranscript
	}

	path, err := e.write(s.ChannelName, s.StartedAt, entries)
	if err != nil {
		s.restore(entries)
		return "", err
	}

	return path, nil
}

// write renders the transcript and saves it under the export directory.
// The filename embeds a second-granularity timestamp so repeated exports of
// the same session get distinct files; the rendered header carries the
// session's start date so identical logs always render identical content.
func (e *Exporter) write(channelName string, startedAt time.Time, entries []Entry) (string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create transcript directory: %w", err)
	}

	path := filepath.Join(e.dir, fmt.Sprintf("transcript_%s.txt", time.Now().Format("20060102_150405")))

	content := renderTranscript(channelName, entries, startedAt, e.resolve)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}

	return path, nil
}

// renderTranscript produces the plain-text transcript representation
func renderTranscript(channelName string, entries []Entry, date time.Time, resolve Resolver) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Transcript from Discord Voice Channel: %s\n", channelName)
	fmt.Fprintf(&b, "Date: %s\n", date.Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("-", 50) + "\n\n")

	for _, entry := range entries {
		name := entry.UserID
		if resolve != nil {
			if resolved := resolve(entry.UserID); resolved != "" {
				name = resolved
			}
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", entry.CapturedAt.Format("15:04:05"), name, entry.Text)
	}

	return b.String()
}
