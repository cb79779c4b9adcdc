package hugot

import (
	"context"
	"fmt"

	"github.com/RichardKnop/pdfrag"
)

func (a *Adapter) EmbedDocuments(ctx context.Context, chunks []pdfrag.Chunk) ([]pdfrag.Vector, error) {
	vectors := make([]pdfrag.Vector, 0, len(chunks))

	for start := 0; start < len(chunks); start += a.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+a.batchSize, len(chunks))
		batch := pdfrag.ChunkContents(chunks[start:end])

		embeddingResult, err := a.pipeline.RunPipeline(batch)
		if err != nil {
			return nil, fmt.Errorf("embedding pipeline: %w", err)
		}
		if len(embeddingResult.Embeddings) != len(batch) {
			return nil, fmt.Errorf("embedded batch size mismatch")
		}

		for _, embedding := range embeddingResult.Embeddings {
			vectors = append(vectors, embedding)
		}
	}

	a.logger.Sugar().With("chunks", len(chunks)).Debug("embedded chunks")

	return vectors, nil
}

func (a *Adapter) EmbedContent(ctx context.Context, content string) (pdfrag.Vector, error) {
	embeddingResult, err := a.pipeline.RunPipeline([]string{content})
	if err != nil {
		return nil, fmt.Errorf("embedding pipeline: %w", err)
	}
	if len(embeddingResult.Embeddings) != 1 {
		return nil, fmt.Errorf("embedded batch size mismatch")
	}
	return embeddingResult.Embeddings[0], nil
}
