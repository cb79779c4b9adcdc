package weaviate

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/RichardKnop/pdfrag"
)

// CreateCollection creates the class. Vectors are always supplied by the
// embedder so no vectorizer module is configured.
func (a *Adapter) CreateCollection(ctx context.Context, dim int) error {
	cls := &models.Class{
		Class:      a.className,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "content", DataType: []string{"text"}},
			{Name: "job_id", DataType: []string{"text"}},
			{Name: "file_name", DataType: []string{"text"}},
			{Name: "page", DataType: []string{"int"}},
			{Name: "chunk", DataType: []string{"int"}},
		},
	}
	if err := a.client.Schema().ClassCreator().WithClass(cls).Do(ctx); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("weaviate error: %w", err)
	}

	a.logger.Sugar().With("class", a.className, "dim", dim).Info("created weaviate class")

	return nil
}

// SaveChunks refuses to write into a missing class, otherwise Weaviate's
// auto schema would create one with inferred property types.
func (a *Adapter) SaveChunks(ctx context.Context, chunks []pdfrag.Chunk, vectors []pdfrag.Vector) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("number of vectors and chunks must match")
	}

	if err := a.checkClass(ctx); err != nil {
		return err
	}

	objects := make([]*models.Object, len(chunks))
	for i, aChunk := range chunks {
		if len(vectors[i]) == 0 {
			return fmt.Errorf("empty vector")
		}
		objects[i] = &models.Object{
			Class: a.className,
			Properties: map[string]any{
				"content":   aChunk.Content,
				"job_id":    aChunk.JobID.String(),
				"file_name": aChunk.FileName,
				"page":      aChunk.Page,
				"chunk":     aChunk.Index,
			},
			Vector: models.C11yVector(vectors[i]),
		}
	}

	results, err := a.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate error: %w", err)
	}
	for _, res := range results {
		if res.Result != nil && res.Result.Errors != nil && len(res.Result.Errors.Error) > 0 {
			return fmt.Errorf("weaviate batch error: %s", res.Result.Errors.Error[0].Message)
		}
	}

	a.logger.Sugar().With("count", len(objects)).Debug("stored objects in weaviate")

	return nil
}

func (a *Adapter) SearchChunks(ctx context.Context, vector pdfrag.Vector, limit int) ([]pdfrag.Chunk, error) {
	if err := a.checkClass(ctx); err != nil {
		return nil, err
	}

	gql := a.client.GraphQL()
	nearVector := gql.NearVectorArgBuilder().WithVector([]float32(vector))

	graphqlResponse, err := gql.Get().
		WithNearVector(nearVector).
		WithClassName(a.className).
		WithFields(
			graphql.Field{Name: "content"},
			graphql.Field{Name: "job_id"},
			graphql.Field{Name: "file_name"},
			graphql.Field{Name: "page"},
			graphql.Field{Name: "chunk"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
		).
		WithLimit(limit).
		Do(ctx)
	if err := combinedWeaviateError(graphqlResponse, err); err != nil {
		return nil, err
	}

	return decodeGetChunkResults(a.className, graphqlResponse)
}

func (a *Adapter) checkClass(ctx context.Context) error {
	exists, err := a.client.Schema().ClassExistenceChecker().WithClassName(a.className).Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate error: %w", err)
	}
	if !exists {
		return pdfrag.ErrCollectionNotFound
	}
	return nil
}

// decodeGetChunkResults decodes the result returned by Weaviate's GraphQL Get
// query; these are returned as a nested map[string]any (just like JSON
// unmarshaled into a map[string]any).
func decodeGetChunkResults(className string, graphqlResponse *models.GraphQLResponse) ([]pdfrag.Chunk, error) {
	data, ok := graphqlResponse.Data["Get"]
	if !ok {
		return nil, fmt.Errorf("get key not found in result")
	}
	doc, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("get key unexpected type")
	}
	slc, ok := doc[className].([]any)
	if !ok {
		return nil, fmt.Errorf("%s is not a list of results", className)
	}

	out := make([]pdfrag.Chunk, 0, len(slc))
	for _, s := range slc {
		smap, ok := s.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("invalid element in list of chunks")
		}
		content, ok := smap["content"].(string)
		if !ok {
			return nil, fmt.Errorf("expected content in chunk")
		}
		page, ok := smap["page"].(float64)
		if !ok {
			return nil, fmt.Errorf("expected page in chunk")
		}
		index, _ := smap["chunk"].(float64)
		fileName, _ := smap["file_name"].(string)
		id, ok := smap["job_id"].(string)
		if !ok {
			return nil, fmt.Errorf("expected job_id in chunk")
		}
		jobID, err := uuid.FromString(id)
		if err != nil {
			return nil, fmt.Errorf("invalid job_id in chunk: %w", err)
		}

		aChunk := pdfrag.Chunk{
			JobID:    pdfrag.JobID{UUID: jobID},
			FileName: fileName,
			Content:  content,
			Page:     int(page),
			Index:    int(index),
		}
		if additional, ok := smap["_additional"].(map[string]any); ok {
			if distance, ok := additional["distance"].(float64); ok {
				aChunk.Score = float32(1 - distance)
			}
		}
		out = append(out, aChunk)
	}
	return out, nil
}

// combinedWeaviateError generates an error if err is non-nil or result has
// errors, and returns an error (or nil if there's no error). It's useful for
// the results of the Weaviate GraphQL API's "Do" calls.
func combinedWeaviateError(graphqlResponse *models.GraphQLResponse, err error) error {
	if err != nil {
		return err
	}
	if len(graphqlResponse.Errors) != 0 {
		var ss []string
		for _, e := range graphqlResponse.Errors {
			ss = append(ss, e.Message)
		}
		return fmt.Errorf("weaviate error: %v", ss)
	}
	return nil
}
