package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"

	"github.com/RichardKnop/pdfrag"
)

// CreateCollection creates the search index. An index created concurrently
// by another worker is not an error.
func (a *Adapter) CreateCollection(ctx context.Context, dim int) error {
	_, err := a.client.FTCreate(ctx,
		a.indexName,
		&redis.FTCreateOptions{
			OnHash: true,
			Prefix: []any{a.indexPrefix},
		},
		&redis.FieldSchema{
			FieldName: "content",
			FieldType: redis.SearchFieldTypeText,
		},
		&redis.FieldSchema{
			FieldName: "job_id",
			FieldType: redis.SearchFieldTypeTag,
		},
		&redis.FieldSchema{
			FieldName: "file_name",
			FieldType: redis.SearchFieldTypeTag,
		},
		&redis.FieldSchema{
			FieldName: "page",
			FieldType: redis.SearchFieldTypeNumeric,
		},
		&redis.FieldSchema{
			FieldName: "chunk",
			FieldType: redis.SearchFieldTypeNumeric,
		},
		&redis.FieldSchema{
			FieldName: "embedding",
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				HNSWOptions: &redis.FTHNSWOptions{
					Dim:            dim,
					DistanceMetric: a.vectorDistanceMetric,
					Type:           "FLOAT32",
				},
			},
		},
	).Result()
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "index already exists") {
			a.indexed.Store(true)
			return nil
		}
		return fmt.Errorf("error creating redis index: %w", err)
	}

	a.indexed.Store(true)
	a.logger.Sugar().With("index name", a.indexName, "dim", dim).Info("created redis index")

	return nil
}

func (a *Adapter) indexExists(ctx context.Context) (bool, error) {
	indexes, err := a.client.FT_List(ctx).Result()
	if err != nil {
		return false, err
	}
	for _, existingIndex := range indexes {
		if existingIndex == a.indexName {
			a.indexed.Store(true)
			return true, nil
		}
	}
	a.indexed.Store(false)
	return false, nil
}

// SaveChunks appends chunks to the index. HSET succeeds whether or not the
// index exists, so until the index has been seen a missing index is reported
// as ErrCollectionNotFound. That way the first append creates the index.
func (a *Adapter) SaveChunks(ctx context.Context, chunks []pdfrag.Chunk, vectors []pdfrag.Vector) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors must have the same length")
	}

	if !a.indexed.Load() {
		exists, err := a.indexExists(ctx)
		if err != nil {
			return fmt.Errorf("error checking redis index: %w", err)
		}
		if !exists {
			return pdfrag.ErrCollectionNotFound
		}
	}

	if _, err := a.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, vector := range vectors {
			key := fmt.Sprintf("%s%v", a.indexPrefix, uuid.Must(uuid.NewV4()))
			pipe.HSet(ctx,
				key,
				map[string]any{
					"content":   chunks[i].Content,
					"job_id":    chunks[i].JobID.String(),
					"file_name": chunks[i].FileName,
					"page":      chunks[i].Page,
					"chunk":     chunks[i].Index,
					"embedding": floatsToBytes(vector),
				},
			)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("error saving chunks: %w", err)
	}

	return nil
}

func (a *Adapter) SearchChunks(ctx context.Context, vector pdfrag.Vector, limit int) ([]pdfrag.Chunk, error) {
	query := fmt.Sprintf("*=>[KNN %d @embedding $vec AS vector_distance]", limit)

	// The results are ordered according to the value of the vector_distance field,
	// with the lowest distance indicating the greatest similarity to the query.
	results, err := a.client.FTSearchWithArgs(ctx,
		a.indexName,
		query,
		&redis.FTSearchOptions{
			Return: []redis.FTSearchReturn{
				{FieldName: "vector_distance"},
				{FieldName: "content"},
				{FieldName: "job_id"},
				{FieldName: "file_name"},
				{FieldName: "page"},
				{FieldName: "chunk"},
			},
			DialectVersion: a.dialectVersion,
			Params: map[string]any{
				"vec": floatsToBytes(vector),
			},
			SortBy: []redis.FTSearchSortBy{{FieldName: "vector_distance", Asc: true}},
			Limit:  limit,
		},
	).Result()
	if err != nil {
		exists, existsErr := a.indexExists(ctx)
		if existsErr == nil && !exists {
			return nil, pdfrag.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("error searching chunks: %w", err)
	}

	return a.mapRedisDocuments(results.Docs)
}

func (a *Adapter) mapRedisDocuments(rds []redis.Document) ([]pdfrag.Chunk, error) {
	chunks := make([]pdfrag.Chunk, 0, len(rds))

	for _, rd := range rds {
		aChunk, err := a.mapRedisDocument(rd)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, aChunk)
	}

	return chunks, nil
}

func (a *Adapter) mapRedisDocument(rd redis.Document) (pdfrag.Chunk, error) {
	content, ok := rd.Fields["content"]
	if !ok {
		return pdfrag.Chunk{}, fmt.Errorf("missing content field in document %s", rd.ID)
	}

	page, err := strconv.Atoi(rd.Fields["page"])
	if err != nil {
		return pdfrag.Chunk{}, fmt.Errorf("invalid page number: %w", err)
	}

	index, err := strconv.Atoi(rd.Fields["chunk"])
	if err != nil {
		return pdfrag.Chunk{}, fmt.Errorf("invalid chunk index: %w", err)
	}

	jobID, err := uuid.FromString(rd.Fields["job_id"])
	if err != nil {
		return pdfrag.Chunk{}, fmt.Errorf("invalid job_id: %w", err)
	}

	var score float32
	if distance, err := strconv.ParseFloat(rd.Fields["vector_distance"], 32); err == nil {
		score = a.score(float32(distance))
	}

	return pdfrag.Chunk{
		JobID:    pdfrag.JobID{UUID: jobID},
		FileName: rd.Fields["file_name"],
		Content:  content,
		Page:     page,
		Index:    index,
		Score:    score,
	}, nil
}

// score turns a distance into a similarity where higher is closer.
func (a *Adapter) score(distance float32) float32 {
	switch a.vectorDistanceMetric {
	case "L2":
		return 1 / (1 + distance)
	default:
		return 1 - distance
	}
}

// helper function to convert []float32 to []byte
func floatsToBytes(fs []float32) []byte {
	buf := make([]byte, len(fs)*4)

	for i, f := range fs {
		u := math.Float32bits(f)
		binary.NativeEndian.PutUint32(buf[i*4:], u)
	}

	return buf
}
