package pdfrag

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"mime/multipart"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPDF = []byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

type testServer struct {
	*ragServer
	extractor   *fakeExtractor
	embedder    *fakeEmbedder
	vectorStore *fakeVectorStore
	chatModel   *fakeChatModel
	queue       *fakeQueue
	storage     *fakeStorage
	store       *memStore
}

func newTestServer(t *testing.T, options ...Option) *testServer {
	t.Helper()

	ts := &testServer{
		extractor: &fakeExtractor{
			pages: []Page{
				{Number: 1, Text: "The quick brown fox jumps over the lazy dog."},
			},
		},
		embedder:    &fakeEmbedder{dim: 4},
		vectorStore: &fakeVectorStore{},
		chatModel:   &fakeChatModel{answer: "42"},
		queue:       newFakeQueue(),
		storage:     &fakeStorage{dir: t.TempDir()},
		store:       newMemStore(),
	}
	ts.ragServer = New(
		ts.extractor,
		fixedSplitter{size: 16},
		ts.embedder,
		ts.vectorStore,
		ts.chatModel,
		ts.queue,
		ts.storage,
		ts.store,
		options...,
	)
	return ts
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestUploadFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file is rejected before touching the queue", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t)
		_, err := ts.UploadFile(testContext(t), nil, nil)
		require.ErrorIs(t, err, ErrMissingFile)
		assert.Equal(t, 0, ts.queue.enqueued)
	})

	t.Run("non pdf file is rejected", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t)
		_, err := ts.UploadFile(
			testContext(t),
			bytes.NewReader([]byte("just some plain text")),
			&multipart.FileHeader{Filename: "notes.txt"},
		)
		require.ErrorIs(t, err, ErrInvalidFileType)
		assert.Equal(t, 0, ts.queue.enqueued)
	})

	t.Run("pdf is stored and enqueued", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t)
		aJob, err := ts.UploadFile(
			testContext(t),
			bytes.NewReader(testPDF),
			&multipart.FileHeader{Filename: "../reports/annual.pdf", Size: int64(len(testPDF))},
		)
		require.NoError(t, err)

		hash := sha256.Sum256(testPDF)
		assert.Equal(t, "annual.pdf", aJob.FileName)
		assert.Equal(t, "application/pdf", aJob.ContentType)
		assert.Equal(t, int64(len(testPDF)), aJob.Size)
		assert.Equal(t, hex.EncodeToString(hash[:]), aJob.Hash)
		assert.Equal(t, JobStatusQueued, aJob.Status)
		assert.Equal(t, 1, ts.queue.enqueued)

		stored, err := os.ReadFile(aJob.Location)
		require.NoError(t, err)
		assert.Equal(t, testPDF, stored)

		saved, err := ts.FindJob(testContext(t), aJob.ID)
		require.NoError(t, err)
		assert.Equal(t, JobStatusQueued, saved.Status)
	})

	t.Run("job is failed when enqueue fails", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t)
		ts.queue.enqueueErr = errBoom

		_, err := ts.UploadFile(
			testContext(t),
			bytes.NewReader(testPDF),
			&multipart.FileHeader{Filename: "annual.pdf"},
		)
		require.ErrorIs(t, err, errBoom)

		jobs, err := ts.ListJobs(testContext(t), JobFilter{}, SortParams{})
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, JobStatusFailed, jobs[0].Status)
		assert.Contains(t, jobs[0].StatusMessage, "boom")
	})
}

func TestFindJob_NotFound(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	_, err := ts.FindJob(testContext(t), NewJobID())
	require.ErrorIs(t, err, ErrNotFound)
}
