package qdrant

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/RichardKnop/pdfrag"
)

// CreateCollection creates the collection. A collection created concurrently
// by another worker is not an error.
func (a *Adapter) CreateCollection(ctx context.Context, dim int) error {
	err := a.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: a.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: a.distance,
		}),
	})
	if err != nil {
		if alreadyExists(err) {
			return nil
		}
		return fmt.Errorf("failed to create collection: %w", err)
	}

	a.logger.Sugar().With("collection", a.collectionName, "dim", dim).Info("created qdrant collection")

	return nil
}

func (a *Adapter) SaveChunks(ctx context.Context, chunks []pdfrag.Chunk, vectors []pdfrag.Vector) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("number of vectors and chunks must match")
	}

	points := make([]*qdrant.PointStruct, 0, len(vectors))
	for i, aChunk := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.Must(uuid.NewV4()).String()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: map[string]*qdrant.Value{
				"content":   qdrant.NewValueString(aChunk.Content),
				"job_id":    qdrant.NewValueString(aChunk.JobID.String()),
				"file_name": qdrant.NewValueString(aChunk.FileName),
				"page":      qdrant.NewValueInt(int64(aChunk.Page)),
				"chunk":     qdrant.NewValueInt(int64(aChunk.Index)),
			},
		})
	}

	wait := true
	if _, err := a.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: a.collectionName,
		Points:         points,
		Wait:           &wait,
	}); err != nil {
		if notFound(err) {
			return pdfrag.ErrCollectionNotFound
		}
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

func (a *Adapter) SearchChunks(ctx context.Context, vector pdfrag.Vector, limit int) ([]pdfrag.Chunk, error) {
	limit64 := uint64(limit)
	hits, err := a.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: a.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit64,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if notFound(err) {
			return nil, pdfrag.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	chunks := make([]pdfrag.Chunk, 0, len(hits))
	for _, hit := range hits {
		aChunk, err := mapScoredPoint(hit)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, aChunk)
	}

	return chunks, nil
}

func mapScoredPoint(hit *qdrant.ScoredPoint) (pdfrag.Chunk, error) {
	content, ok := hit.GetPayload()["content"]
	if !ok {
		return pdfrag.Chunk{}, fmt.Errorf("missing content in point %s", hit.GetId().GetUuid())
	}

	jobID, err := uuid.FromString(hit.GetPayload()["job_id"].GetStringValue())
	if err != nil {
		return pdfrag.Chunk{}, fmt.Errorf("invalid job_id: %w", err)
	}

	return pdfrag.Chunk{
		JobID:    pdfrag.JobID{UUID: jobID},
		FileName: hit.GetPayload()["file_name"].GetStringValue(),
		Content:  content.GetStringValue(),
		Page:     int(hit.GetPayload()["page"].GetIntegerValue()),
		Index:    int(hit.GetPayload()["chunk"].GetIntegerValue()),
		Score:    hit.GetScore(),
	}, nil
}

func notFound(err error) bool {
	if status.Code(err) == codes.NotFound {
		return true
	}
	return strings.Contains(err.Error(), "doesn't exist")
}

func alreadyExists(err error) bool {
	if status.Code(err) == codes.AlreadyExists {
		return true
	}
	return strings.Contains(err.Error(), "already exists")
}
