package googlegenai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/RichardKnop/pdfrag"
)

func (a *Adapter) EmbedDocuments(ctx context.Context, chunks []pdfrag.Chunk) ([]pdfrag.Vector, error) {
	// Use the batch embedding API to embed all chunks at once.
	contents := make([]*genai.Content, 0, len(chunks))
	for _, aChunk := range chunks {
		contents = append(contents, genai.NewContentFromText(aChunk.Content, genai.RoleUser))
	}

	a.logger.Sugar().With("chunks", len(chunks)).Info("invoking embedding model")

	embedResponse, err := a.client.Models.EmbedContent(ctx,
		a.embeddingModel,
		contents,
		&genai.EmbedContentConfig{TaskType: "RETRIEVAL_DOCUMENT"},
	)
	if err != nil {
		return nil, fmt.Errorf("embed content error: %w", upstreamError(err))
	}

	if len(embedResponse.Embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedded batch size mismatch")
	}

	vectors := make([]pdfrag.Vector, 0, len(embedResponse.Embeddings))
	for _, embedding := range embedResponse.Embeddings {
		vectors = append(vectors, embedding.Values)
	}

	return vectors, nil
}

func (a *Adapter) EmbedContent(ctx context.Context, content string) (pdfrag.Vector, error) {
	embedResponse, err := a.client.Models.EmbedContent(ctx,
		a.embeddingModel,
		[]*genai.Content{genai.NewContentFromText(content, genai.RoleUser)},
		&genai.EmbedContentConfig{TaskType: "RETRIEVAL_QUERY"},
	)
	if err != nil {
		return nil, fmt.Errorf("embed content error: %w", upstreamError(err))
	}
	if len(embedResponse.Embeddings) != 1 {
		return nil, fmt.Errorf("embedded batch size mismatch")
	}
	return embedResponse.Embeddings[0].Values, nil
}
