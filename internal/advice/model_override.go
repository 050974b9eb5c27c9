package advice

import "context"

// PinnedModelClient rewrites every request to a fixed model id before
// delegating. The fallback provider lives in a different model
// namespace than the primary, so the caller's model name would not
// resolve there.
type PinnedModelClient struct {
	inner   LLMClient
	modelID string
}

func PinModel(inner LLMClient, modelID string) *PinnedModelClient {
	return &PinnedModelClient{inner: inner, modelID: modelID}
}

func (c *PinnedModelClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	req.Model = c.modelID
	return c.inner.Complete(ctx, req)
}

func (c *PinnedModelClient) CompleteStream(ctx context.Context, req LLMRequest) (<-chan StreamChunk, error) {
	req.Model = c.modelID
	if streamer, ok := c.inner.(StreamingLLMClient); ok {
		return streamer.CompleteStream(ctx, req)
	}
	return singleChunkStream(ctx, c.inner, req)
}

var _ StreamingLLMClient = (*PinnedModelClient)(nil)
