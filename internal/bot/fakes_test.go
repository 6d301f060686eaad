package bot

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/ethanbaker/eva/internal/session"
	"github.com/ethanbaker/eva/internal/speech"
	"github.com/ethanbaker/eva/pkg/utils"
	"github.com/stretchr/testify/require"
)

// fakeMessenger records everything the bot would have posted to Discord
type fakeMessenger struct {
	mu      sync.Mutex
	nextID  int
	sent    []string          // contents in send order
	edits   []string          // contents in edit order
	content map[string]string // messageID -> latest content
	files   map[string]string // filename -> file content
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{content: make(map[string]string), files: make(map[string]string)}
}

func (m *fakeMessenger) Send(channelID, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("msg-%d", m.nextID)
	m.sent = append(m.sent, content)
	m.content[id] = content
	return id, nil
}

func (m *fakeMessenger) Edit(channelID, messageID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, content)
	m.content[messageID] = content
	return nil
}

func (m *fakeMessenger) SendFile(channelID, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = string(data)
	return nil
}

func (m *fakeMessenger) lastSent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1]
}

func (m *fakeMessenger) fileCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// fakeChat answers with canned content or streams canned chunks
type fakeChat struct {
	response string
	chunks   []string
	err      error
}

func (c *fakeChat) Complete(ctx context.Context, userMessage string) (string, error) {
	return c.response, c.err
}

func (c *fakeChat) Stream(ctx context.Context, userMessage string, onChunk func(string) error) error {
	if c.err != nil {
		return c.err
	}
	for _, chunk := range c.chunks {
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	return nil
}

// fakeLiveSession is a controllable transcription stream
type fakeLiveSession struct {
	mu      sync.Mutex
	audio   [][]byte
	stopped bool
	results chan speech.Result
}

func (s *fakeLiveSession) SendAudio(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append(s.audio, data)
	return nil
}

func (s *fakeLiveSession) Results() <-chan speech.Result {
	return s.results
}

func (s *fakeLiveSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.stopped = true
		close(s.results)
	}
	return nil
}

func (s *fakeLiveSession) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type fakeSpeechProvider struct {
	mu       sync.Mutex
	sessions []*fakeLiveSession
}

func (p *fakeSpeechProvider) Start(ctx context.Context, cfg speech.StreamConfig) (speech.LiveSession, error) {
	s := &fakeLiveSession{results: make(chan speech.Result, 16)}
	p.mu.Lock()
	p.sessions = append(p.sessions, s)
	p.mu.Unlock()
	return s, nil
}

func (p *fakeSpeechProvider) session(i int) *fakeLiveSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i >= len(p.sessions) {
		return nil
	}
	return p.sessions[i]
}

// fakeTTS produces no audio; playback paths are not exercised in tests
type fakeTTS struct{}

func (t *fakeTTS) Synthesize(ctx context.Context, text string, w io.Writer) error {
	return nil
}

// newTestBot builds a bot with fakes in place of Discord and the providers
func newTestBot(t *testing.T, chatProvider *fakeChat) (*Bot, *fakeMessenger, *fakeSpeechProvider) {
	t.Helper()

	cfg := utils.NewConfig(map[string]string{"DISCORD_TOKEN": "test-token"})
	stt := &fakeSpeechProvider{}

	b, err := NewBot(cfg, session.NewRegistry(), stt, chatProvider, &fakeTTS{})
	require.NoError(t, err)

	msg := newFakeMessenger()
	b.msg = msg
	b.exporter = session.NewExporter(t.TempDir(), nil)
	b.findVoice = func(guildID, userID string) (string, string, error) {
		return "", "", fmt.Errorf("not in a voice channel")
	}

	return b, msg, stt
}
