package pdfrag

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

type fakeExtractor struct {
	mu     sync.Mutex
	pages  []Page
	err    error
	opened string
	// block makes Extract wait until ctx is done.
	block  bool
}

func (e *fakeExtractor) Extract(ctx context.Context, fileName string, contents io.ReadSeeker) ([]Page, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f, ok := contents.(*os.File); ok {
		e.opened = f.Name()
	}
	if e.err != nil {
		return nil, e.err
	}
	// Make sure the document is actually readable.
	if _, err := io.ReadAll(contents); err != nil {
		return nil, err
	}
	return e.pages, nil
}

type fakeEmbedder struct {
	mu    sync.Mutex
	dim   int
	err   error
	calls int
}

func (e *fakeEmbedder) Name() string { return "fake" }

func (e *fakeEmbedder) EmbedDocuments(ctx context.Context, chunks []Chunk) ([]Vector, error) {
	e.mu.Lock()
	e.calls += 1
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	vectors := make([]Vector, 0, len(chunks))
	for _, aChunk := range chunks {
		v, _ := e.EmbedContent(ctx, aChunk.Content)
		vectors = append(vectors, v)
	}
	return vectors, nil
}

func (e *fakeEmbedder) EmbedContent(ctx context.Context, content string) (Vector, error) {
	if e.err != nil {
		return nil, e.err
	}
	v := make(Vector, e.dim)
	for i := range v {
		v[i] = float32(len(content) + i)
	}
	return v, nil
}

type fakeVectorStore struct {
	mu          sync.Mutex
	exists      bool
	dim         int
	chunks      []Chunk
	createCalls int
	searchCalls int
	saveErr     error
}

func (s *fakeVectorStore) Name() string { return "fake" }

func (s *fakeVectorStore) SaveChunks(ctx context.Context, chunks []Chunk, vectors []Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if !s.exists {
		return ErrCollectionNotFound
	}
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *fakeVectorStore) CreateCollection(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls += 1
	s.exists = true
	s.dim = dim
	return nil
}

func (s *fakeVectorStore) SearchChunks(ctx context.Context, vector Vector, limit int) ([]Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchCalls += 1
	if !s.exists {
		return nil, ErrCollectionNotFound
	}
	if limit > len(s.chunks) {
		limit = len(s.chunks)
	}
	return append([]Chunk(nil), s.chunks[:limit]...), nil
}

type fakeChatModel struct {
	answer      string
	err         error
	calls       int
	instruction string
	query       string
}

func (m *fakeChatModel) Name() string { return "fake" }

func (m *fakeChatModel) Complete(ctx context.Context, systemInstruction, query string) (string, error) {
	m.calls += 1
	m.instruction = systemInstruction
	m.query = query
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

type fakeQueue struct {
	mu         sync.Mutex
	jobs       chan *IngestJob
	enqueueErr error
	dequeueErr error
	enqueued   int
	acked      []JobID
	failed     []JobID
	// onRequeue runs right after a failed job was pushed back, the way
	// another consumer could pick it up immediately.
	onRequeue  func()
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		jobs: make(chan *IngestJob, 16),
	}
}

func (q *fakeQueue) Enqueue(ctx context.Context, aJob *IngestJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.enqueued += 1
	q.jobs <- payloadOf(aJob)
	return nil
}

// payloadOf keeps only what a real queue payload would carry.
func payloadOf(aJob *IngestJob) *IngestJob {
	return &IngestJob{
		ID:       aJob.ID,
		FileName: aJob.FileName,
		Location: aJob.Location,
		Attempts: aJob.Attempts,
	}
}

func (q *fakeQueue) Dequeue(ctx context.Context) (*IngestJob, error) {
	if q.dequeueErr != nil {
		return nil, q.dequeueErr
	}
	select {
	case aJob := <-q.jobs:
		return aJob, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return nil, ErrQueueEmpty
	}
}

func (q *fakeQueue) Ack(ctx context.Context, aJob *IngestJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, aJob.ID)
	return nil
}

func (q *fakeQueue) Fail(ctx context.Context, aJob *IngestJob, requeue bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	q.failed = append(q.failed, aJob.ID)
	if requeue {
		q.jobs <- payloadOf(aJob)
	}
	onRequeue := q.onRequeue
	q.mu.Unlock()

	if requeue && onRequeue != nil {
		onRequeue()
	}
	return nil
}

type fakeStorage struct {
	dir     string
	remote  bool
	deleted []string
}

func (s *fakeStorage) Remote() bool { return s.remote }

func (s *fakeStorage) Write(ctx context.Context, name string, contents io.Reader) (string, error) {
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, contents); err != nil {
		return "", err
	}
	if s.remote {
		return "fake://" + name, nil
	}
	return path, nil
}

func (s *fakeStorage) Read(ctx context.Context, location string) (io.ReadCloser, error) {
	if len(location) > len("fake://") && location[:len("fake://")] == "fake://" {
		location = filepath.Join(s.dir, location[len("fake://"):])
	}
	return os.Open(location)
}

func (s *fakeStorage) Delete(ctx context.Context, location string) error {
	s.deleted = append(s.deleted, location)
	return nil
}

type memStore struct {
	mu   sync.Mutex
	jobs map[JobID]IngestJob
}

func newMemStore() *memStore {
	return &memStore{jobs: map[JobID]IngestJob{}}
}

func (s *memStore) Transactional(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (s *memStore) SaveJobs(ctx context.Context, jobs ...*IngestJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, aJob := range jobs {
		saved := *aJob
		saved.Receipt = ""
		s.jobs[aJob.ID] = saved
	}
	return nil
}

func (s *memStore) FindJob(ctx context.Context, id JobID) (*IngestJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	aJob, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &aJob, nil
}

func (s *memStore) ListJobs(ctx context.Context, filter JobFilter, params SortParams) ([]*IngestJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var jobs []*IngestJob
	for _, aJob := range s.jobs {
		if filter.Status != "" && aJob.Status != filter.Status {
			continue
		}
		if !filter.LastUpdatedBefore.IsZero() && !aJob.Updated.T.Before(filter.LastUpdatedBefore.T) {
			continue
		}
		aJob := aJob
		jobs = append(jobs, &aJob)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Created.T.Before(jobs[j].Created.T)
	})
	return jobs, nil
}

func (s *memStore) get(id JobID) IngestJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

var errBoom = errors.New("boom")
