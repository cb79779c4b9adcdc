package pdfrag

import (
	"context"
	"database/sql"
	"io"
)

// Extractor extracts page level text from a PDF document.
type Extractor interface {
	Extract(ctx context.Context, fileName string, contents io.ReadSeeker) ([]Page, error)
}

// Splitter splits a page of text into overlapping chunks.
type Splitter interface {
	Split(text string) []string
}

// Embedder encodes chunks and queries as vectors
type Embedder interface {
	Name() string
	EmbedDocuments(ctx context.Context, chunks []Chunk) ([]Vector, error)
	EmbedContent(ctx context.Context, content string) (Vector, error)
}

// VectorStore persists chunks with their vectors in a named collection and
// searches it by vector similarity. SaveChunks returns ErrCollectionNotFound
// when the collection does not exist yet.
type VectorStore interface {
	Name() string
	SaveChunks(ctx context.Context, chunks []Chunk, vectors []Vector) error
	CreateCollection(ctx context.Context, dim int) error
	SearchChunks(ctx context.Context, vector Vector, limit int) ([]Chunk, error)
}

// ChatModel sends a system instruction and a user query to a hosted chat completion API.
type ChatModel interface {
	Name() string
	Complete(ctx context.Context, systemInstruction, query string) (string, error)
}

// JobQueue hands ingest jobs from the HTTP layer to workers.
type JobQueue interface {
	Enqueue(ctx context.Context, job *IngestJob) error
	// Dequeue blocks until a job is available. It returns ErrQueueEmpty
	// when nothing arrived within the queue's wait timeout.
	Dequeue(ctx context.Context) (*IngestJob, error)
	Ack(ctx context.Context, job *IngestJob) error
	// Fail releases a failed job and puts it back on the queue when requeue
	// is set.
	Fail(ctx context.Context, job *IngestJob, requeue bool) error
}

// FileStorage stores uploaded documents. Remote storages are downloaded into
// a temporary local file before processing.
type FileStorage interface {
	Remote() bool
	Write(ctx context.Context, name string, data io.Reader) (location string, err error)
	Read(ctx context.Context, location string) (io.ReadCloser, error)
	Delete(ctx context.Context, location string) error
}

type JobStore interface {
	Transactional
	SaveJobs(ctx context.Context, jobs ...*IngestJob) error
	FindJob(ctx context.Context, id JobID) (*IngestJob, error)
	ListJobs(ctx context.Context, filter JobFilter, params SortParams) ([]*IngestJob, error)
}

type Transactional interface {
	Transactional(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error
}
