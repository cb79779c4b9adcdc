package qdrant

import (
	"github.com/RichardKnop/pdfrag"
)

const testDim = 8

func (s *QdrantTestSuite) TestSaveChunks_CreateFallback() {
	ctx, cancel := testContext()
	defer cancel()

	var (
		jobID  = pdfrag.NewJobID()
		chunks = []pdfrag.Chunk{
			{JobID: jobID, FileName: "a.pdf", Content: "first", Page: 1, Index: 0},
			{JobID: jobID, FileName: "a.pdf", Content: "second", Page: 1, Index: 1},
			{JobID: jobID, FileName: "a.pdf", Content: "third", Page: 2, Index: 2},
		}
		vectors = []pdfrag.Vector{
			unitVector(testDim, 0),
			unitVector(testDim, 1),
			unitVector(testDim, 2),
		}
	)

	err := s.adapter.SaveChunks(ctx, chunks, vectors)
	s.Require().ErrorIs(err, pdfrag.ErrCollectionNotFound)

	_, err = s.adapter.SearchChunks(ctx, unitVector(testDim, 0), 2)
	s.Require().ErrorIs(err, pdfrag.ErrCollectionNotFound)

	s.Require().NoError(s.adapter.CreateCollection(ctx, testDim))
	s.Require().NoError(s.adapter.CreateCollection(ctx, testDim))
	s.Require().NoError(s.adapter.SaveChunks(ctx, chunks, vectors))

	results, err := s.adapter.SearchChunks(ctx, unitVector(testDim, 1), 2)
	s.Require().NoError(err)
	s.Require().Len(results, 2)
	s.Equal(chunks[1], pdfrag.Chunk{
		JobID:    results[0].JobID,
		FileName: results[0].FileName,
		Content:  results[0].Content,
		Page:     results[0].Page,
		Index:    results[0].Index,
	})
	s.InDelta(1.0, results[0].Score, 0.0001)

	// Unrelated queries still return the nearest neighbours.
	results, err = s.adapter.SearchChunks(ctx, unitVector(testDim, 7), 2)
	s.Require().NoError(err)
	s.Len(results, 2)
}

func unitVector(dim, axis int) pdfrag.Vector {
	vec := make(pdfrag.Vector, dim)
	vec[axis] = 1
	return vec
}
