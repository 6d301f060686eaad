package bot

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/ethanbaker/eva/internal/chat"
	"github.com/ethanbaker/eva/internal/session"
	"github.com/ethanbaker/eva/internal/speech"
	"github.com/ethanbaker/eva/internal/tts"
	"github.com/ethanbaker/eva/pkg/utils"
)

// commandTimeout bounds every provider call made on behalf of one command
const commandTimeout = 2 * time.Minute

// Bot represents the Discord bot instance
type Bot struct {
	cfg *utils.Config
	dg  *discordgo.Session

	registry *session.Registry
	exporter *session.Exporter

	stt    speech.Provider
	chat   chat.Provider
	speech tts.Provider

	msg      Messenger
	prefix   string
	commands map[string]commandFunc

	// How many new characters accumulate between streaming message edits
	editEvery int

	// Channel ID where non-command free chat is answered; empty disables it
	botChannelID string

	// Indirection over discordgo state lookups so command handlers can be
	// exercised without a gateway connection
	findVoice    func(guildID, userID string) (channelID, channelName string, err error)
	connectVoice func(guildID, channelID string) (*discordgo.VoiceConnection, error)

	mu     sync.Mutex
	voices map[string]*voiceSession // guildID -> active voice session

	speakMu sync.Mutex
}

// NewBot creates a new Discord bot instance wired to the given registry and
// providers
func NewBot(cfg *utils.Config, registry *session.Registry, sttProvider speech.Provider, chatProvider chat.Provider, ttsProvider tts.Provider) (*Bot, error) {
	token := cfg.Get("DISCORD_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN not set in config or environment")
	}

	dg, err := discordgo.New("Bot " + strings.TrimPrefix(token, "Bot "))
	if err != nil {
		return nil, err
	}

	b := &Bot{
		cfg:          cfg,
		dg:           dg,
		registry:     registry,
		stt:          sttProvider,
		chat:         chatProvider,
		speech:       ttsProvider,
		msg:          &discordMessenger{s: dg},
		prefix:       cfg.GetWithDefault("COMMAND_PREFIX", "!"),
		botChannelID: cfg.Get("BOT_CHANNEL_ID"),
		editEvery:    cfg.GetIntWithDefault("STREAM_EDIT_CHARS", 100),
		voices:       make(map[string]*voiceSession),
	}

	b.exporter = session.NewExporter(
		cfg.GetWithDefault("TRANSCRIPT_DIR", "transcripts"),
		b.resolveDisplayName,
	)

	b.findVoice = b.voiceStateOf
	b.connectVoice = func(guildID, channelID string) (*discordgo.VoiceConnection, error) {
		return dg.ChannelVoiceJoin(guildID, channelID, false, false)
	}

	b.registerCommands()

	// Intents
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildVoiceStates

	// Handlers
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onMessageCreate)

	return b, nil
}

// Registry exposes the session registry for components sharing it
func (b *Bot) Registry() *session.Registry {
	return b.registry
}

// Exporter exposes the transcript exporter for components sharing it
func (b *Bot) Exporter() *session.Exporter {
	return b.exporter
}

// Start the bot and connect to Discord
func (b *Bot) Start() error {
	return b.dg.Open()
}

// Stop tears down active voice sessions and disconnects from Discord
func (b *Bot) Stop() error {
	b.mu.Lock()
	sessions := make([]*voiceSession, 0, len(b.voices))
	for _, vs := range b.voices {
		sessions = append(sessions, vs)
	}
	b.voices = make(map[string]*voiceSession)
	b.mu.Unlock()

	for _, vs := range sessions {
		vs.stop()
		b.registry.Destroy(vs.key)
	}

	return b.dg.Close()
}

// onReady is called when the bot is ready
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("[BOT]: Logged in as: %s#%s", r.User.Username, r.User.Discriminator)
}

// onMessageCreate dispatches prefix commands and answers free chat in the
// configured bot channel
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore messages from the bot itself and from other bots
	if m.Author == nil || m.Author.Bot || m.Author.ID == s.State.User.ID {
		return
	}

	content := strings.TrimSpace(m.Content)
	if content == "" {
		return
	}

	if strings.HasPrefix(content, b.prefix) {
		name, args := splitCommand(strings.TrimPrefix(content, b.prefix))
		if handler, ok := b.commands[name]; ok {
			go handler(&commandContext{
				guildID:   m.GuildID,
				channelID: m.ChannelID,
				authorID:  m.Author.ID,
				args:      args,
			})
		}
		return
	}

	// Free chat: answered in the bot channel only, spoken aloud when a voice
	// connection is active
	if b.botChannelID != "" && m.ChannelID == b.botChannelID {
		go b.handleFreeChat(m.GuildID, m.ChannelID, content)
	}
}

// handleFreeChat answers a non-command message with a chat completion,
// speaking the reply when the bot is in a voice channel
func (b *Bot) handleFreeChat(guildID, channelID, content string) {
	ctx, cancel := contextWithCommandTimeout()
	defer cancel()

	response, err := b.chat.Complete(ctx, content)
	if err != nil {
		b.reply(channelID, fmt.Sprintf("An error occurred: %v", err))
		return
	}

	if vs := b.voiceSessionFor(guildID); vs != nil {
		if err := b.speakInto(ctx, vs.vc, response); err != nil {
			log.Printf("[BOT]: failed to speak response: %v", err)
			b.reply(channelID, response)
		}
		return
	}

	b.reply(channelID, response)
}

// reply sends content to a channel, chunked to Discord's message size limit
func (b *Bot) reply(channelID, content string) {
	for _, chunk := range chunkString(content, 1900) {
		if _, err := b.msg.Send(channelID, chunk); err != nil {
			log.Printf("[BOT]: failed to send reply: %v", err)
			return
		}
	}
}

// voiceSessionFor returns the active voice session for a guild, if any
func (b *Bot) voiceSessionFor(guildID string) *voiceSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.voices[guildID]
}

// voiceStateOf finds the voice channel a user currently occupies
func (b *Bot) voiceStateOf(guildID, userID string) (string, string, error) {
	g, err := b.dg.State.Guild(guildID)
	if err != nil {
		return "", "", fmt.Errorf("guild not cached: %w", err)
	}

	for _, vs := range g.VoiceStates {
		if vs.UserID != userID {
			continue
		}

		name := vs.ChannelID
		if ch, err := b.dg.State.Channel(vs.ChannelID); err == nil {
			name = ch.Name
		}
		return vs.ChannelID, name, nil
	}

	return "", "", fmt.Errorf("user %s is not in a voice channel", userID)
}

// resolveDisplayName maps a user ID to a username for exported transcripts.
// An empty return falls back to the raw ID.
func (b *Bot) resolveDisplayName(userID string) string {
	if user, err := b.dg.User(userID); err == nil {
		return user.Username
	}
	return ""
}
