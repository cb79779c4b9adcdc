package chromem

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gofrs/uuid/v5"
	chromem "github.com/philippgille/chromem-go"

	"github.com/RichardKnop/pdfrag"
)

func (a *Adapter) CreateCollection(ctx context.Context, dim int) error {
	_, err := a.db.GetOrCreateCollection(a.collectionName, map[string]string{"dim": strconv.Itoa(dim)}, noEmbeddings)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	a.logger.Sugar().With("collection", a.collectionName, "dim", dim).Info("created chromem collection")

	return nil
}

func (a *Adapter) SaveChunks(ctx context.Context, chunks []pdfrag.Chunk, vectors []pdfrag.Vector) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("number of vectors and chunks must match")
	}

	collection := a.db.GetCollection(a.collectionName, noEmbeddings)
	if collection == nil {
		return pdfrag.ErrCollectionNotFound
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for i, aChunk := range chunks {
		docs = append(docs, chromem.Document{
			ID:        uuid.Must(uuid.NewV4()).String(),
			Content:   aChunk.Content,
			Embedding: vectors[i],
			Metadata: map[string]string{
				"job_id":    aChunk.JobID.String(),
				"file_name": aChunk.FileName,
				"page":      strconv.Itoa(aChunk.Page),
				"chunk":     strconv.Itoa(aChunk.Index),
			},
		})
	}

	if err := collection.AddDocuments(ctx, docs, a.concurrency); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}

	return nil
}

func (a *Adapter) SearchChunks(ctx context.Context, vector pdfrag.Vector, limit int) ([]pdfrag.Chunk, error) {
	collection := a.db.GetCollection(a.collectionName, noEmbeddings)
	if collection == nil {
		return nil, pdfrag.ErrCollectionNotFound
	}

	// chromem-go requires nResults <= collection size.
	count := collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := collection.QueryEmbedding(ctx, vector, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	chunks := make([]pdfrag.Chunk, 0, len(results))
	for _, r := range results {
		aChunk, err := mapResult(r)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, aChunk)
	}

	return chunks, nil
}

func mapResult(r chromem.Result) (pdfrag.Chunk, error) {
	jobID, err := uuid.FromString(r.Metadata["job_id"])
	if err != nil {
		return pdfrag.Chunk{}, fmt.Errorf("invalid job_id in document %s: %w", r.ID, err)
	}
	page, _ := strconv.Atoi(r.Metadata["page"])
	index, _ := strconv.Atoi(r.Metadata["chunk"])

	return pdfrag.Chunk{
		JobID:    pdfrag.JobID{UUID: jobID},
		FileName: r.Metadata["file_name"],
		Content:  r.Content,
		Page:     page,
		Index:    index,
		Score:    r.Similarity,
	}, nil
}
