package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

func (a *Adapter) Complete(ctx context.Context, systemInstruction, query string) (string, error) {
	a.logger.Sugar().With("model", a.chatModel).Info("generating answer")

	completion, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstruction),
			openai.UserMessage(query),
		},
		Model: a.chatModel,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", upstreamError(err))
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat model returned no choices")
	}

	return completion.Choices[0].Message.Content, nil
}
