package transcription

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/ethanbaker/eva/internal/chat"
	"github.com/ethanbaker/eva/internal/session"
	"github.com/gin-gonic/gin"
)

// requestTimeout bounds the chat-completion call behind one ingest request
const requestTimeout = 2 * time.Minute

// service holds the dependencies shared by the module's handlers
type service struct {
	registry *session.Registry
	exporter *session.Exporter
	chat     chat.Provider
}

var svc *service

// Init wires the module to the process-wide registry, exporter, and chat
// provider. Must run before the first request.
func Init(registry *session.Registry, exporter *session.Exporter, chatProvider chat.Provider) {
	svc = &service{registry: registry, exporter: exporter, chat: chatProvider}
}

// transcriptionRequest is one recognized utterance pushed by an external
// capture pipeline
type transcriptionRequest struct {
	User      string `json:"user"`
	Message   string `json:"message"`
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
}

// sessionRequest addresses one session by its guild and voice channel
type sessionRequest struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
}

// receiveTranscription handles POST requests pushing one utterance. The text
// is appended to the matching session when one is active and answered with a
// chat completion either way.
func receiveTranscription(c *gin.Context) {
	var req transcriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not parse request body"})
		return
	}

	if req.Message == "" {
		c.JSON(http.StatusOK, gin.H{"response": ""})
		return
	}

	// Appends racing a teardown are tolerated, not surfaced
	if req.GuildID != "" && req.ChannelID != "" {
		key := session.NewKey(req.GuildID, req.ChannelID)
		if err := svc.registry.Append(key, req.User, req.Message); err != nil {
			log.Printf("[API]: dropping transcription for %s: %v", key, err)
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	response, err := svc.chat.Complete(ctx, req.Message)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": response})
}

// checkStatus handles POST requests asking whether a session is recording
func checkStatus(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not parse request body"})
		return
	}

	s, ok := svc.registry.Get(session.NewKey(req.GuildID, req.ChannelID))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"status": "inactive"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "active",
		"transcript_count": s.Len(),
		"duration":         int(s.Elapsed().Seconds()),
	})
}

// saveNow handles POST requests exporting a session's log without stopping it
func saveNow(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not parse request body"})
		return
	}

	s, ok := svc.registry.Get(session.NewKey(req.GuildID, req.ChannelID))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"status": "no_session"})
		return
	}

	path, err := svc.exporter.ExportAndClear(s)
	if errors.Is(err, session.ErrEmptyTranscript) {
		c.JSON(http.StatusOK, gin.H{"status": "empty"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "saved", "file": path})
}
