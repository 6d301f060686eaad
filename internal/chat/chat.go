package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

// Provider answers user messages with a completed reply or a chunk stream
type Provider interface {
	Complete(ctx context.Context, userMessage string) (string, error)
	Stream(ctx context.Context, userMessage string, onChunk func(chunk string) error) error
}

// OpenAI is a chat-completion provider backed by the OpenAI API
type OpenAI struct {
	client       *openai.Client
	model        string
	systemPrompt string
}

// NewOpenAI creates an OpenAI chat provider
func NewOpenAI(apiKey, model, systemPrompt string) *OpenAI {
	return &OpenAI{
		client:       openai.NewClient(apiKey),
		model:        model,
		systemPrompt: systemPrompt,
	}
}

// messages builds the two-message prompt sent on every request. Conversation
// memory across requests is deliberately not kept.
func (o *OpenAI) messages(userMessage string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: o.systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: userMessage},
	}
}

// Complete returns a single completed reply
func (o *OpenAI) Complete(ctx context.Context, userMessage string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: o.messages(userMessage),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// Stream forwards reply chunks to onChunk as they arrive. A non-nil error
// from onChunk aborts the stream.
func (o *OpenAI) Stream(ctx context.Context, userMessage string, onChunk func(chunk string) error) error {
	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: o.messages(userMessage),
		Stream:   true,
	})
	if err != nil {
		return fmt.Errorf("chat completion stream failed: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("chat completion stream failed: %w", err)
		}

		if len(resp.Choices) == 0 {
			continue
		}

		chunk := resp.Choices[0].Delta.Content
		if chunk == "" {
			continue
		}

		if err := onChunk(chunk); err != nil {
			return err
		}
	}
}
