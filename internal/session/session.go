package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDuplicateSession is returned when creating a session for a key that
	// already has an active session
	ErrDuplicateSession = errors.New("session already active for this channel")

	// ErrSessionNotFound is returned when appending to a key with no active session
	ErrSessionNotFound = errors.New("no active session")

	// ErrEmptyTranscript is returned when exporting a session with no entries
	ErrEmptyTranscript = errors.New("no transcripts to save")
)

// Key identifies one (guild, voice channel) pairing. At most one session may
// be active per key at any time.
type Key string

// NewKey builds a session key from a guild ID and a voice channel ID
func NewKey(guildID, channelID string) Key {
	return Key(guildID + "_" + channelID)
}

// Entry is one timestamped, speaker-attributed recognized utterance.
// Entries are never mutated after creation; they are only cleared in bulk
// by an export-and-clear.
type Entry struct {
	UserID     string
	Text       string
	CapturedAt time.Time
}

// Session tracks one active voice-channel transcription engagement
type Session struct {
	ID          uuid.UUID
	Key         Key
	ChannelName string
	StartedAt   time.Time

	mu      sync.Mutex
	active  bool
	entries []Entry
}

// Active reports whether the session is still recording. A destroyed session
// stays in memory only as long as stale callbacks hold a reference to it.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Len returns the number of captured entries
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Elapsed returns the time since the session started
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.StartedAt)
}

// Snapshot returns a copy of the transcript log in arrival order
func (s *Session) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// append adds an entry to the log. The caller (Registry.Append) has already
// validated the text.
func (s *Session) append(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return ErrSessionNotFound
	}
	s.entries = append(s.entries, e)
	return nil
}

// drain atomically snapshots and clears the log, leaving the session active
func (s *Session) drain() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.entries
	s.entries = nil
	return out
}

// restore puts drained entries back at the front of the log, ahead of
// anything appended in the meantime, so arrival order survives a failed
// write after a drain
func (s *Session) restore(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(entries, s.entries...)
}

// deactivate marks the session inactive so callbacks racing a teardown are
// discarded instead of appended
func (s *Session) deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}
