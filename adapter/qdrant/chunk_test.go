package qdrant

import (
	"errors"
	"fmt"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/RichardKnop/pdfrag"
)

func TestMapScoredPoint(t *testing.T) {
	t.Parallel()

	jobID := pdfrag.NewJobID()

	aChunk, err := mapScoredPoint(&qdrant.ScoredPoint{
		Id: qdrant.NewIDUUID("f47ac10b-58cc-4372-a567-0e02b2c3d479"),
		Payload: map[string]*qdrant.Value{
			"content":   qdrant.NewValueString("Paris is the capital of France."),
			"job_id":    qdrant.NewValueString(jobID.String()),
			"file_name": qdrant.NewValueString("france.pdf"),
			"page":      qdrant.NewValueInt(3),
			"chunk":     qdrant.NewValueInt(7),
		},
		Score: 0.87,
	})
	require.NoError(t, err)

	expected := pdfrag.Chunk{
		JobID:    jobID,
		FileName: "france.pdf",
		Content:  "Paris is the capital of France.",
		Page:     3,
		Index:    7,
		Score:    0.87,
	}
	assert.Equal(t, expected, aChunk)

	_, err = mapScoredPoint(&qdrant.ScoredPoint{Payload: map[string]*qdrant.Value{}})
	require.Error(t, err)
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, notFound(status.Error(codes.NotFound, "Not found: Collection `pdf-docs` doesn't exist!")))
	assert.True(t, notFound(fmt.Errorf("upsert: %w", status.Error(codes.NotFound, "missing"))))
	assert.False(t, notFound(status.Error(codes.Unavailable, "connection refused")))
	assert.False(t, notFound(errors.New("boom")))
}

func TestAlreadyExists(t *testing.T) {
	t.Parallel()

	assert.True(t, alreadyExists(status.Error(codes.AlreadyExists, "exists")))
	assert.True(t, alreadyExists(status.Error(codes.InvalidArgument, "Wrong input: Collection `pdf-docs` already exists!")))
	assert.False(t, alreadyExists(status.Error(codes.InvalidArgument, "Wrong input: vector size")))
}
