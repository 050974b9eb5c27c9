package advice

import (
	"context"

	"github.com/medicarehealth/practice-platform/pkg/logging"
)

// FallbackLLMClient wraps a primary LLM client with a fallback provider.
// If the primary fails, it automatically retries with the fallback.
type FallbackLLMClient struct {
	primary  LLMClient
	fallback LLMClient
	logger   *logging.Logger
}

// NewFallbackLLMClient creates a new fallback-enabled LLM client.
// If fallback is nil, the client will only use the primary provider.
func NewFallbackLLMClient(primary, fallback LLMClient, logger *logging.Logger) *FallbackLLMClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackLLMClient{primary: primary, fallback: fallback, logger: logger}
}

// Complete sends a completion request to the primary LLM. If it fails
// and a fallback is configured, retries with the fallback.
func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}

	c.logger.Warn("primary LLM failed, attempting fallback",
		"error", err.Error(),
		"fallback_available", c.fallback != nil,
	)
	if c.fallback == nil {
		return LLMResponse{}, err
	}

	fallbackResp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("fallback LLM also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return LLMResponse{}, fallbackErr
	}

	c.logger.Info("fallback LLM succeeded after primary failure")
	return fallbackResp, nil
}

// CompleteStream streams from the primary when it supports streaming.
// On a failed stream start it degrades: a streaming fallback streams, a
// plain fallback completes once and is emitted as a single chunk.
func (c *FallbackLLMClient) CompleteStream(ctx context.Context, req LLMRequest) (<-chan StreamChunk, error) {
	if primary, ok := c.primary.(StreamingLLMClient); ok {
		chunks, err := primary.CompleteStream(ctx, req)
		if err == nil {
			return chunks, nil
		}
		c.logger.Warn("primary LLM stream failed, attempting fallback",
			"error", err.Error(),
			"fallback_available", c.fallback != nil,
		)
		if c.fallback == nil {
			return nil, err
		}
		return c.fallbackStream(ctx, req)
	}
	return singleChunkStream(ctx, c, req)
}

func (c *FallbackLLMClient) fallbackStream(ctx context.Context, req LLMRequest) (<-chan StreamChunk, error) {
	if streamer, ok := c.fallback.(StreamingLLMClient); ok {
		return streamer.CompleteStream(ctx, req)
	}
	return singleChunkStream(ctx, c.fallback, req)
}

// singleChunkStream adapts a blocking completion into the stream shape.
func singleChunkStream(ctx context.Context, client LLMClient, req LLMRequest) (<-chan StreamChunk, error) {
	resp, err := client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	chunks := make(chan StreamChunk, 2)
	chunks <- StreamChunk{Text: resp.Text}
	chunks <- StreamChunk{Done: true, Usage: resp.Usage}
	close(chunks)
	return chunks, nil
}
