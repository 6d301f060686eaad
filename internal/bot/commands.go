package bot

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethanbaker/eva/internal/session"
)

// commandContext carries everything a handler needs about the invoking message
type commandContext struct {
	guildID   string
	channelID string
	authorID  string
	args      string
}

type commandFunc func(c *commandContext)

// registerCommands maps command names to handlers. The joinvc/leavevc
// aliases are kept for muscle memory.
func (b *Bot) registerCommands() {
	b.commands = map[string]commandFunc{
		"join":      b.cmdJoin,
		"joinvc":    b.cmdJoin,
		"leave":     b.cmdLeave,
		"leavevc":   b.cmdLeave,
		"status":    b.cmdStatus,
		"savenow":   b.cmdSaveNow,
		"ask":       b.cmdAsk,
		"askstream": b.cmdAskStream,
		"help":      b.cmdHelp,
	}
}

// cmdJoin starts a transcription session in the caller's voice channel
func (b *Bot) cmdJoin(c *commandContext) {
	channelID, channelName, err := b.findVoice(c.guildID, c.authorID)
	if err != nil {
		b.reply(c.channelID, "❌ You need to be in a voice channel first.")
		return
	}

	key := session.NewKey(c.guildID, channelID)
	if _, err := b.registry.Create(key, channelName); err != nil {
		if errors.Is(err, session.ErrDuplicateSession) {
			b.reply(c.channelID, "❌ Already tracking transcriptions in this channel.")
		} else {
			b.reply(c.channelID, fmt.Sprintf("❌ Error starting transcription session: %v", err))
		}
		return
	}

	vc, err := b.connectVoice(c.guildID, channelID)
	if err != nil {
		b.registry.Destroy(key)
		b.reply(c.channelID, fmt.Sprintf("❌ Error joining voice channel: %v", err))
		return
	}

	b.startVoiceSession(c.guildID, key, vc)
	b.reply(c.channelID, fmt.Sprintf("✅ Joined %s and capturing audio!", channelName))
}

// cmdLeave saves the transcript, tears the session down, and disconnects
func (b *Bot) cmdLeave(c *commandContext) {
	vs := b.dropVoiceSession(c.guildID)
	if vs == nil {
		b.reply(c.channelID, "❌ I'm not connected to a voice channel.")
		return
	}

	vs.stop()

	saved := false
	if s, ok := b.registry.Get(vs.key); ok {
		saved = b.exportAndSend(c.channelID, s, false)
	}
	b.registry.Destroy(vs.key)

	if saved {
		b.reply(c.channelID, "👋 Left the voice channel. Transcript has been saved!")
	} else {
		b.reply(c.channelID, "👋 Left the voice channel.")
	}
}

// cmdStatus reports whether the caller's voice channel is being recorded
func (b *Bot) cmdStatus(c *commandContext) {
	channelID, _, err := b.findVoice(c.guildID, c.authorID)
	if err != nil {
		b.reply(c.channelID, "❌ You're not in a voice channel.")
		return
	}

	s, ok := b.registry.Get(session.NewKey(c.guildID, channelID))
	if !ok {
		b.reply(c.channelID, "❌ No active recording session.")
		return
	}

	b.reply(c.channelID, fmt.Sprintf(
		"✅ Currently tracking transcriptions in %s\n📝 %d transcripts captured\n⏱️ Session duration: %s",
		s.ChannelName, s.Len(), formatDuration(s.Elapsed())))
}

// cmdSaveNow exports the transcript and clears the log, keeping the session
// recording
func (b *Bot) cmdSaveNow(c *commandContext) {
	channelID, _, err := b.findVoice(c.guildID, c.authorID)
	if err != nil {
		b.reply(c.channelID, "❌ You're not in a voice channel.")
		return
	}

	s, ok := b.registry.Get(session.NewKey(c.guildID, channelID))
	if !ok {
		b.reply(c.channelID, "❌ No active transcription session.")
		return
	}

	if !b.exportAndSend(c.channelID, s, true) {
		return
	}

	b.reply(c.channelID, "💾 Transcript saved! Continuing to track transcriptions...")
}

// cmdAsk forwards a question to the chat provider and replies with the result
func (b *Bot) cmdAsk(c *commandContext) {
	if c.args == "" {
		b.reply(c.channelID, "Please provide a question.")
		return
	}

	ctx, cancel := contextWithCommandTimeout()
	defer cancel()

	response, err := b.chat.Complete(ctx, c.args)
	if err != nil {
		b.reply(c.channelID, fmt.Sprintf("An error occurred: %v", err))
		return
	}

	b.reply(c.channelID, response)
}

// cmdAskStream forwards a question in streaming mode, progressively editing
// one reply message as chunks arrive
func (b *Bot) cmdAskStream(c *commandContext) {
	if c.args == "" {
		b.reply(c.channelID, "Please provide a question.")
		return
	}

	messageID, err := b.msg.Send(c.channelID, "Thinking...")
	if err != nil {
		log.Printf("[BOT]: failed to send streaming placeholder: %v", err)
		return
	}

	ctx, cancel := contextWithCommandTimeout()
	defer cancel()

	var response strings.Builder
	lastEdit := 0

	err = b.chat.Stream(ctx, c.args, func(chunk string) error {
		response.WriteString(chunk)
		if response.Len()-lastEdit >= b.editEvery {
			lastEdit = response.Len()
			return b.msg.Edit(c.channelID, messageID, response.String())
		}
		return nil
	})
	if err != nil {
		_ = b.msg.Edit(c.channelID, messageID, fmt.Sprintf("Error: %v", err))
		return
	}

	// Final update with the complete response
	final := response.String()
	if final == "" {
		final = "(no content)"
	}
	if err := b.msg.Edit(c.channelID, messageID, final); err != nil {
		log.Printf("[BOT]: failed to finalize streaming reply: %v", err)
	}
}

// cmdHelp prints the static command list
func (b *Bot) cmdHelp(c *commandContext) {
	const helpTemplate = "🎤 **Eva Voice Transcription Bot Commands**\n" +
		"`%[1]sjoin` - Start tracking transcriptions in your voice channel\n" +
		"`%[1]sleave` - Stop tracking, save the transcript, and leave\n" +
		"`%[1]sstatus` - Check tracking status\n" +
		"`%[1]ssavenow` - Save current transcript without stopping\n" +
		"`%[1]sask <question>` - Ask the assistant a question\n" +
		"`%[1]saskstream <question>` - Ask with a streamed reply\n" +
		"`%[1]shelp` - Show this help message"

	b.reply(c.channelID, fmt.Sprintf(helpTemplate, b.prefix))
}

// exportAndSend exports a session's transcript and posts the file to the
// channel. An empty transcript is an informational no-op, not an error.
// Returns true when a file was produced.
func (b *Bot) exportAndSend(channelID string, s *session.Session, clear bool) bool {
	var (
		path string
		err  error
	)
	if clear {
		path, err = b.exporter.ExportAndClear(s)
	} else {
		path, err = b.exporter.Export(s)
	}

	if errors.Is(err, session.ErrEmptyTranscript) {
		b.reply(channelID, "No transcripts to save!")
		return false
	}
	if err != nil {
		b.reply(channelID, fmt.Sprintf("❌ Error saving transcript: %v", err))
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		log.Printf("[BOT]: failed to reopen transcript %s: %v", path, err)
		return true
	}
	defer f.Close()

	if err := b.msg.SendFile(channelID, filepath.Base(path), f); err != nil {
		log.Printf("[BOT]: failed to upload transcript: %v", err)
	}
	return true
}
