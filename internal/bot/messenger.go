package bot

import (
	"io"

	"github.com/bwmarrin/discordgo"
)

// Messenger is the slice of the Discord message API the command handlers
// need. Kept narrow so handlers can be tested without a gateway connection.
type Messenger interface {
	Send(channelID, content string) (messageID string, err error)
	Edit(channelID, messageID, content string) error
	SendFile(channelID, name string, r io.Reader) error
}

type discordMessenger struct {
	s *discordgo.Session
}

func (m *discordMessenger) Send(channelID, content string) (string, error) {
	msg, err := m.s.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (m *discordMessenger) Edit(channelID, messageID, content string) error {
	_, err := m.s.ChannelMessageEdit(channelID, messageID, content)
	return err
}

func (m *discordMessenger) SendFile(channelID, name string, r io.Reader) error {
	_, err := m.s.ChannelFileSend(channelID, name, r)
	return err
}
