package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/RichardKnop/pdfrag"
)

func (a *Adapter) EmbedDocuments(ctx context.Context, chunks []pdfrag.Chunk) ([]pdfrag.Vector, error) {
	a.logger.Sugar().With("chunks", len(chunks)).Info("invoking embedding model")

	vectors, err := a.embed(ctx, pdfrag.ChunkContents(chunks))
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedded batch size mismatch")
	}
	return vectors, nil
}

func (a *Adapter) EmbedContent(ctx context.Context, content string) (pdfrag.Vector, error) {
	vectors, err := a.embed(ctx, []string{content})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedded batch size mismatch")
	}
	return vectors[0], nil
}

func (a *Adapter) embed(ctx context.Context, texts []string) ([]pdfrag.Vector, error) {
	resp, err := a.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", upstreamError(err))
	}

	// Results carry their input index, which is not guaranteed to match
	// the response order.
	vectors := make([]pdfrag.Vector, len(resp.Data))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		vec := make(pdfrag.Vector, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		vectors[data.Index] = vec
	}

	return vectors, nil
}
