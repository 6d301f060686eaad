package bot

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/ethanbaker/eva/internal/session"
	"github.com/ethanbaker/eva/internal/speech"
	"layeh.com/gopus"
)

const (
	sampleRate = 48000 // Discord voice sample rate
	channels   = 2
	frameSize  = 960 // samples per channel in one 20ms opus frame
)

// voiceSession ties an active voice connection to its transcription session
type voiceSession struct {
	guildID string
	key     session.Key
	vc      *discordgo.VoiceConnection
	cancel  context.CancelFunc
}

// stop cancels the audio-routing goroutine and disconnects the voice client
func (vs *voiceSession) stop() {
	vs.cancel()
	if vs.vc != nil {
		_ = vs.vc.Disconnect()
	}
}

// speakerMap tracks which user each RTP stream belongs to, fed by the voice
// gateway's speaking updates
type speakerMap struct {
	mu    sync.RWMutex
	users map[uint32]string
}

func newSpeakerMap() *speakerMap {
	return &speakerMap{users: make(map[uint32]string)}
}

func (m *speakerMap) set(ssrc uint32, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[ssrc] = userID
}

func (m *speakerMap) get(ssrc uint32) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	userID, ok := m.users[ssrc]
	return userID, ok
}

// startVoiceSession registers the voice connection and begins routing
// inbound audio to the transcription provider
func (b *Bot) startVoiceSession(guildID string, key session.Key, vc *discordgo.VoiceConnection) *voiceSession {
	ctx, cancel := context.WithCancel(context.Background())
	vs := &voiceSession{guildID: guildID, key: key, vc: vc, cancel: cancel}

	b.mu.Lock()
	b.voices[guildID] = vs
	b.mu.Unlock()

	speakers := newSpeakerMap()
	vc.AddHandler(func(_ *discordgo.VoiceConnection, su *discordgo.VoiceSpeakingUpdate) {
		speakers.set(uint32(su.SSRC), su.UserID)
	})

	go b.routePackets(ctx, key, vc.OpusRecv, speakers)

	return vs
}

// dropVoiceSession removes and returns the guild's voice session, if any
func (b *Bot) dropVoiceSession(guildID string) *voiceSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	vs := b.voices[guildID]
	delete(b.voices, guildID)
	return vs
}

// speakerPipeline is the per-speaker decode-and-transcribe chain. One live
// transcription stream per speaker keeps attribution unambiguous.
type speakerPipeline struct {
	decoder *gopus.Decoder
	live    speech.LiveSession
}

// routePackets consumes opus packets from the voice connection until the
// session is cancelled or the connection drops, fanning them out to
// per-speaker pipelines
func (b *Bot) routePackets(ctx context.Context, key session.Key, packets <-chan *discordgo.Packet, speakers *speakerMap) {
	pipelines := make(map[uint32]*speakerPipeline)
	defer func() {
		for _, p := range pipelines {
			if p != nil {
				_ = p.live.Stop()
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case pkt, ok := <-packets:
			if !ok {
				return
			}

			p, seen := pipelines[pkt.SSRC]
			if !seen {
				// A failed pipeline is remembered as nil so one bad speaker
				// stream does not hammer the provider with reconnects
				p = b.openPipeline(ctx, key, pkt.SSRC, speakers)
				pipelines[pkt.SSRC] = p
			}
			if p == nil {
				continue
			}

			pcm, err := p.decoder.Decode(pkt.Opus, frameSize, false)
			if err != nil {
				continue
			}

			if err := p.live.SendAudio(pcmBytes(pcm)); err != nil {
				log.Printf("[BOT]: audio send failed for %s: %v", key, err)
				_ = p.live.Stop()
				pipelines[pkt.SSRC] = nil
			}
		}
	}
}

// openPipeline starts a live transcription stream for one speaker
func (b *Bot) openPipeline(ctx context.Context, key session.Key, ssrc uint32, speakers *speakerMap) *speakerPipeline {
	decoder, err := gopus.NewDecoder(sampleRate, channels)
	if err != nil {
		log.Printf("[BOT]: failed to create opus decoder: %v", err)
		return nil
	}

	live, err := b.stt.Start(ctx, speech.DefaultStreamConfig())
	if err != nil {
		log.Printf("[BOT]: failed to start transcription stream: %v", err)
		return nil
	}

	go b.consumeResults(key, ssrc, speakers, live)

	return &speakerPipeline{decoder: decoder, live: live}
}

// consumeResults appends final transcription results to the session log.
// Results arriving after teardown are discarded, not propagated.
func (b *Bot) consumeResults(key session.Key, ssrc uint32, speakers *speakerMap, live speech.LiveSession) {
	for result := range live.Results() {
		if !result.IsFinal {
			continue
		}

		userID, ok := speakers.get(ssrc)
		if !ok {
			userID = fmt.Sprintf("ssrc-%d", ssrc)
		}

		if err := b.registry.Append(key, userID, result.Text); err != nil {
			log.Printf("[BOT]: dropping stale transcript for %s: %v", key, err)
		}
	}
}

// pcmBytes converts interleaved samples to the little-endian byte stream the
// transcription provider expects
func pcmBytes(pcm []int16) []byte {
	out := make([]byte, len(pcm)*2)
	for i, sample := range pcm {
		out[2*i] = byte(sample)
		out[2*i+1] = byte(sample >> 8)
	}
	return out
}
