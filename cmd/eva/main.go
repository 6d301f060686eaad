package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethanbaker/eva/internal/api"
	"github.com/ethanbaker/eva/internal/bot"
	"github.com/ethanbaker/eva/internal/chat"
	"github.com/ethanbaker/eva/internal/session"
	"github.com/ethanbaker/eva/internal/speech"
	"github.com/ethanbaker/eva/internal/tts"
	"github.com/ethanbaker/eva/pkg/utils"
)

const defaultSystemPrompt = "You are a helpful Discord voice-chat assistant."

func main() {
	// Find env file
	envFile := ".env"
	if os.Getenv("ENV_FILE") != "" {
		envFile = os.Getenv("ENV_FILE")
	}

	// Load global config
	cfg := utils.NewConfigFromEnv(envFile)

	for _, key := range []string{"DISCORD_TOKEN", "DEEPGRAM_API_KEY", "OPENAI_API_KEY", "ELEVENLABS_API_KEY"} {
		if cfg.Get(key) == "" {
			log.Fatalf("[EVA]: %s not set in config or environment", key)
		}
	}

	// The registry is constructed once here and shared by every component
	// that touches sessions
	registry := session.NewRegistry()

	systemPrompt := utils.LoadPromptWithFallback(
		cfg.GetWithDefault("SYSTEM_PROMPT_FILE", "prompts/system.txt"),
		defaultSystemPrompt,
	)

	chatProvider := chat.NewOpenAI(
		cfg.Get("OPENAI_API_KEY"),
		cfg.GetWithDefault("OPENAI_MODEL", "gpt-3.5-turbo"),
		systemPrompt,
	)
	sttProvider := speech.NewDeepgram(cfg.Get("DEEPGRAM_API_KEY"))
	ttsProvider := tts.NewElevenLabs(
		cfg.Get("ELEVENLABS_API_KEY"),
		cfg.GetWithDefault("ELEVENLABS_VOICE_ID", "19STyYD15bswVz51nqLf"),
		cfg.GetWithDefault("ELEVENLABS_MODEL_ID", "eleven_turbo_v2_5"),
	)

	// Wait for interrupt signal to gracefully shut down the bot
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Println("[EVA]: Starting bot...")

	b, err := bot.NewBot(cfg, registry, sttProvider, chatProvider, ttsProvider)
	if err != nil {
		log.Fatalf("[EVA]: failed to create bot: %v", err)
	}

	if err := b.Start(); err != nil {
		log.Fatalf("[EVA]: failed to start bot: %v", err)
	}

	// The ingest API shares the bot's registry and exporter
	if cfg.GetBool("API_ENABLED") {
		go func() {
			if err := api.Start(cfg, registry, b.Exporter(), chatProvider); err != nil {
				log.Fatalf("[EVA]: failed to start API: %v", err)
			}
		}()
	}

	// Wait for shutdown signal
	log.Println("[EVA]: Bot is running. Press Ctrl+C to exit.")
	<-ctx.Done()

	// Cleanly stop the bot
	if err := b.Stop(); err != nil {
		log.Printf("[EVA]: error during bot shutdown: %v", err)
	}

	log.Println("[EVA]: Bot stopped gracefully")
}
