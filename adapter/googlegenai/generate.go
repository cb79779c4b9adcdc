package googlegenai

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

func (a *Adapter) Complete(ctx context.Context, systemInstruction, query string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}

	a.logger.Sugar().With("model", a.generativeModel).Info("generating answer")

	resp, err := a.client.Models.GenerateContent(
		ctx,
		a.generativeModel,
		genai.Text(query),
		config,
	)
	if err != nil {
		return "", fmt.Errorf("calling generative model: %w", upstreamError(err))
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("generative model returned no candidates")
	}

	return resp.Text(), nil
}
