package redis

import (
	"math/rand/v2"

	"github.com/RichardKnop/pdfrag"
)

const testDim = 16

func (s *RedisTestSuite) TestSaveChunks_MissingIndex() {
	ctx, cancel := testContext()
	defer cancel()

	var (
		jobID  = pdfrag.NewJobID()
		chunks = []pdfrag.Chunk{
			{JobID: jobID, FileName: "test.pdf", Content: "This is a test chunk.", Page: 1},
		}
		vectors = []pdfrag.Vector{testVector(testDim, 0, 1)}
	)

	err := s.adapter.SaveChunks(ctx, chunks, vectors)
	s.Require().ErrorIs(err, pdfrag.ErrCollectionNotFound)
	s.False(s.adapter.indexed.Load())

	keys, err := s.client.Keys(ctx, "test:*").Result()
	s.Require().NoError(err)
	s.Empty(keys)

	s.Require().NoError(s.adapter.CreateCollection(ctx, testDim))
	s.True(s.adapter.indexed.Load())
	// Creating the index twice is fine.
	s.Require().NoError(s.adapter.CreateCollection(ctx, testDim))

	s.Require().NoError(s.adapter.SaveChunks(ctx, chunks, vectors))
}

func (s *RedisTestSuite) TestSaveChunks_IndexCreatedElsewhere() {
	ctx, cancel := testContext()
	defer cancel()

	// Another worker created the index, this adapter has not seen it yet.
	other := New(s.client, WithIndexName("test-idx"), WithIndexPrefix("test:"))
	s.Require().NoError(other.CreateCollection(ctx, testDim))
	s.False(s.adapter.indexed.Load())

	chunks := []pdfrag.Chunk{{JobID: pdfrag.NewJobID(), FileName: "a.pdf", Content: "A chunk.", Page: 1}}
	s.Require().NoError(s.adapter.SaveChunks(ctx, chunks, []pdfrag.Vector{unitVector(testDim, 0)}))
	s.True(s.adapter.indexed.Load())

	results, err := s.adapter.SearchChunks(ctx, unitVector(testDim, 0), 1)
	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.Equal("A chunk.", results[0].Content)
}

func (s *RedisTestSuite) TestSearchChunks() {
	ctx, cancel := testContext()
	defer cancel()

	_, err := s.adapter.SearchChunks(ctx, testVector(testDim, 0, 1), 2)
	s.Require().ErrorIs(err, pdfrag.ErrCollectionNotFound)

	s.Require().NoError(s.adapter.CreateCollection(ctx, testDim))

	var (
		jobID1 = pdfrag.NewJobID()
		jobID2 = pdfrag.NewJobID()
		chunks = []pdfrag.Chunk{
			{JobID: jobID1, FileName: "a.pdf", Content: "This is a test chunk.", Page: 1, Index: 0},
			{JobID: jobID1, FileName: "a.pdf", Content: "This is another test chunk.", Page: 2, Index: 1},
			{JobID: jobID2, FileName: "b.pdf", Content: "This is a chunk from another file.", Page: 3, Index: 0},
		}
		vectors = []pdfrag.Vector{
			unitVector(testDim, 0),
			unitVector(testDim, 1),
			unitVector(testDim, 2),
		}
	)
	s.Require().NoError(s.adapter.SaveChunks(ctx, chunks, vectors))

	// Closest to the second chunk, then the third one.
	query := unitVector(testDim, 1)
	query[2] = 0.5

	results, err := s.adapter.SearchChunks(ctx, query, 2)
	s.Require().NoError(err)
	s.Require().Len(results, 2)

	s.Equal(chunks[1].Content, results[0].Content)
	s.Equal(chunks[1].JobID, results[0].JobID)
	s.Equal("a.pdf", results[0].FileName)
	s.Equal(2, results[0].Page)
	s.Equal(1, results[0].Index)
	s.Equal(chunks[2].Content, results[1].Content)
	s.Greater(results[0].Score, results[1].Score)

	// Unrelated queries still return the nearest neighbours.
	results, err = s.adapter.SearchChunks(ctx, unitVector(testDim, 10), 2)
	s.Require().NoError(err)
	s.Len(results, 2)
}

func testVector(dim int, min, max float32) pdfrag.Vector {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = min + rand.Float32()*(max-min)
	}
	return vec
}

func unitVector(dim, axis int) pdfrag.Vector {
	vec := make(pdfrag.Vector, dim)
	vec[axis] = 1
	return vec
}
