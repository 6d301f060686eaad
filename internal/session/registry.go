package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry owns every Session record. It is constructed once at process start
// and handed to each component that needs it; nothing else may create or
// destroy sessions.
//
// The registry map is guarded by its own lock while each session's log is
// guarded by the session lock, so appends and exports on different keys run
// fully in parallel.
type Registry struct {
	mu       sync.RWMutex
	sessions map[Key]*Session
}

// NewRegistry creates an empty session registry
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[Key]*Session)}
}

// Create inserts a new active session for the given key. If an active session
// already exists for the key the call is rejected with ErrDuplicateSession;
// the caller decides whether to surface that or tear the old session down
// first.
func (r *Registry) Create(key Key, channelName string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[key]; exists {
		return nil, ErrDuplicateSession
	}

	s := &Session{
		ID:          uuid.New(),
		Key:         key,
		ChannelName: channelName,
		StartedAt:   time.Now(),
		active:      true,
	}
	r.sessions[key] = s

	return s, nil
}

// Get returns the session for a key, if one exists
func (r *Registry) Get(key Key) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Destroy removes the session for a key and marks it inactive. Destroying an
// absent key is a no-op: "leave" may be invoked without a prior "join".
func (r *Registry) Destroy(key Key) {
	r.mu.Lock()
	s, ok := r.sessions[key]
	delete(r.sessions, key)
	r.mu.Unlock()

	if ok {
		s.deactivate()
	}
}

// Append records one recognized utterance against the session for key.
// Blank or whitespace-only text is discarded without error; silence fragments
// are not stored. Returns ErrSessionNotFound when no active session exists,
// which callers tolerate (transcription callbacks can race a "leave").
func (r *Registry) Append(key Key, userID, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	s, ok := r.Get(key)
	if !ok {
		return ErrSessionNotFound
	}

	return s.append(Entry{
		UserID:     userID,
		Text:       text,
		CapturedAt: time.Now(),
	})
}

// Count returns the number of registered sessions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
