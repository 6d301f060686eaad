package transcription

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the routes for the transcription module
func RegisterRoutes(g *gin.RouterGroup) {
	group := g.Group("/transcription")

	group.POST("", receiveTranscription) // Push one recognized utterance
	group.POST("/status", checkStatus)   // Inspect a session's recording state
	group.POST("/save", saveNow)         // Export-and-clear a session's log
}
