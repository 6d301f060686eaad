package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	deepgramLiveURL  = "wss://api.deepgram.com/v1/listen"
	handshakeTimeout = 30 * time.Second
	keepAliveEvery   = 8 * time.Second
)

// Deepgram streams audio to the Deepgram live transcription websocket API
type Deepgram struct {
	apiKey  string
	liveURL string
}

// NewDeepgram creates a Deepgram live transcription provider
func NewDeepgram(apiKey string) *Deepgram {
	return &Deepgram{apiKey: apiKey, liveURL: deepgramLiveURL}
}

// Start dials the live endpoint and returns a running session
func (d *Deepgram) Start(ctx context.Context, cfg StreamConfig) (LiveSession, error) {
	u, err := url.Parse(d.liveURL)
	if err != nil {
		return nil, fmt.Errorf("invalid deepgram url: %w", err)
	}

	q := u.Query()
	q.Set("punctuate", strconv.FormatBool(cfg.Punctuate))
	q.Set("interim_results", strconv.FormatBool(cfg.InterimResults))
	q.Set("language", cfg.Language)
	q.Set("encoding", cfg.Encoding)
	q.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	q.Set("channels", strconv.Itoa(cfg.Channels))
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Token "+d.apiKey)

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to deepgram: %w", err)
	}

	s := &deepgramSession{
		conn:    conn,
		results: make(chan Result, 16),
		done:    make(chan struct{}),
	}

	go s.readLoop()
	go s.keepAlive()

	return s, nil
}

type deepgramSession struct {
	conn    *websocket.Conn
	results chan Result

	writeMu  sync.Mutex
	stopOnce sync.Once
	done     chan struct{}
}

// deepgramMessage is the subset of the live API response we consume
type deepgramMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// SendAudio forwards one chunk of raw audio to the provider
func (s *deepgramSession) SendAudio(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	select {
	case <-s.done:
		return fmt.Errorf("transcription session is closed")
	default:
	}

	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Results returns the stream of transcription events
func (s *deepgramSession) Results() <-chan Result {
	return s.results
}

// Stop tells the provider to flush and closes the connection. The results
// channel is closed once the read loop drains.
func (s *deepgramSession) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)

		s.writeMu.Lock()
		_ = s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
		err = s.conn.Close()
		s.writeMu.Unlock()
	})
	return err
}

// readLoop consumes provider messages until the connection drops
func (s *deepgramSession) readLoop() {
	defer close(s.results)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				log.Printf("[SPEECH]: deepgram read error: %v", err)
			}
			return
		}

		var msg deepgramMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[SPEECH]: deepgram sent unparseable message: %v", err)
			continue
		}

		if msg.Type != "" && msg.Type != "Results" {
			continue
		}
		if len(msg.Channel.Alternatives) == 0 {
			continue
		}

		transcript := msg.Channel.Alternatives[0].Transcript
		if transcript == "" {
			continue
		}

		select {
		case s.results <- Result{Text: transcript, IsFinal: msg.IsFinal}:
		case <-s.done:
			return
		}
	}
}

// keepAlive pings the provider so it does not time the stream out between
// utterances
func (s *deepgramSession) keepAlive() {
	ticker := time.NewTicker(keepAliveEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"KeepAlive"}`))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
