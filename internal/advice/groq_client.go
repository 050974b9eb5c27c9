package advice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultGroqBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// ErrGroqNotConfigured is returned by NewGroqClient without an API key.
// Construction fails closed rather than letting requests reach the
// provider with empty credentials.
var ErrGroqNotConfigured = errors.New("advice: groq api key is required")

// GroqClient implements LLMClient against Groq's chat completions API.
// Groq speaks the OpenAI wire protocol, so the OpenAI SDK is pointed at
// a different base URL rather than hand-rolling the HTTP layer.
type GroqClient struct {
	client *openai.Client
}

// NewGroqClient builds a Groq-backed client. baseURL is overridable for
// tests; empty means the public Groq endpoint.
func NewGroqClient(apiKey, baseURL string) (*GroqClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrGroqNotConfigured
	}
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultGroqBaseURL
	}
	cfg.BaseURL = baseURL
	return &GroqClient{client: openai.NewClientWithConfig(cfg)}, nil
}

// Complete sends a blocking chat completion request.
func (c *GroqClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return LLMResponse{}, errors.New("advice: groq model id is required")
	}

	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req, false))
	if err != nil {
		return LLMResponse{}, fmt.Errorf("advice: groq completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return LLMResponse{}, errors.New("advice: groq returned no choices")
	}

	out := LLMResponse{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		StopReason: string(resp.Choices[0].FinishReason),
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}
	return out, nil
}

// CompleteStream emits partial completion text as it arrives.
func (c *GroqClient) CompleteStream(ctx context.Context, req LLMRequest) (<-chan StreamChunk, error) {
	if strings.TrimSpace(req.Model) == "" {
		return nil, errors.New("advice: groq model id is required")
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(req, true))
	if err != nil {
		return nil, fmt.Errorf("advice: groq stream failed: %w", err)
	}

	chunks := make(chan StreamChunk, 32)
	go func() {
		defer close(chunks)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				chunks <- StreamChunk{Done: true}
				return
			}
			if err != nil {
				chunks <- StreamChunk{Error: err, Done: true}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if delta := resp.Choices[0].Delta.Content; delta != "" {
				chunks <- StreamChunk{Text: delta}
			}
		}
	}()
	return chunks, nil
}

func (c *GroqClient) buildRequest(req LLMRequest, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.System)+len(req.Messages))
	for _, block := range req.System {
		if strings.TrimSpace(block) == "" {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: block,
		})
	}
	for _, msg := range req.Messages {
		role := msg.Role
		switch role {
		case ChatRoleSystem, ChatRoleUser, ChatRoleAssistant:
		default:
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}

	out := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   stream,
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = int(req.MaxTokens)
	}
	if req.Temperature >= 0 {
		out.Temperature = req.Temperature
	}
	if req.TopP > 0 {
		out.TopP = req.TopP
	}
	return out
}
