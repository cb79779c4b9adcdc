package pdfrag

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultCollection is the vector collection all documents are indexed into.
const DefaultCollection = "pdf-docs"

var (
	ErrNotFound           = errors.New("not found")
	ErrMissingFile        = errors.New("no file uploaded")
	ErrInvalidFileType    = errors.New("invalid file type")
	ErrEmptyQuery         = errors.New("query is required")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrQueueEmpty         = errors.New("queue empty")
	ErrInvalidSortParams  = errors.New("invalid sort params")
)

type clock func() time.Time

type ragServer struct {
	extractor      Extractor
	splitter       Splitter
	embedder       Embedder
	vectorStore    VectorStore
	chatModel      ChatModel
	queue          JobQueue
	storage        FileStorage
	store          JobStore
	now            clock
	logger         *zap.Logger
	topK           int
	concurrency    int
	maxAttempts    int
	jobTimeout     time.Duration
	sweepInterval  time.Duration
	// dequeueBackoff is how long a consumer waits after a dequeue error.
	dequeueBackoff time.Duration
}

type Option func(*ragServer)

func WithLogger(logger *zap.Logger) Option {
	return func(rs *ragServer) {
		rs.logger = logger
	}
}

// WithTopK sets how many nearest chunks are passed to the chat model as context.
func WithTopK(k int) Option {
	return func(rs *ragServer) {
		rs.topK = k
	}
}

// WithConcurrency sets the number of jobs a worker process runs at the same time.
func WithConcurrency(n int) Option {
	return func(rs *ragServer) {
		rs.concurrency = n
	}
}

// WithMaxAttempts sets how many times a job is attempted before it is failed.
// The default of 1 means failed jobs are never retried.
func WithMaxAttempts(n int) Option {
	return func(rs *ragServer) {
		rs.maxAttempts = n
	}
}

func WithJobTimeout(timeout time.Duration) Option {
	return func(rs *ragServer) {
		rs.jobTimeout = timeout
	}
}

func WithSweepInterval(interval time.Duration) Option {
	return func(rs *ragServer) {
		rs.sweepInterval = interval
	}
}

const (
	defaultTopK           = 2
	defaultConcurrency    = 1
	defaultMaxAttempts    = 1
	defaultJobTimeout     = 15 * time.Minute
	defaultSweepInterval  = 1 * time.Minute
	defaultDequeueBackoff = 1 * time.Second
)

func New(
	extractor Extractor,
	splitter Splitter,
	embedder Embedder,
	vectorStore VectorStore,
	chatModel ChatModel,
	queue JobQueue,
	storage FileStorage,
	store JobStore,
	options ...Option,
) *ragServer {
	rs := &ragServer{
		extractor:      extractor,
		splitter:       splitter,
		embedder:       embedder,
		vectorStore:    vectorStore,
		chatModel:      chatModel,
		queue:          queue,
		storage:        storage,
		store:          store,
		now:            func() time.Time { return time.Now().UTC() },
		logger:         zap.NewNop(),
		topK:           defaultTopK,
		concurrency:    defaultConcurrency,
		maxAttempts:    defaultMaxAttempts,
		jobTimeout:     defaultJobTimeout,
		sweepInterval:  defaultSweepInterval,
		dequeueBackoff: defaultDequeueBackoff,
	}

	for _, o := range options {
		o(rs)
	}

	if rs.topK < 1 {
		rs.topK = defaultTopK
	}
	if rs.concurrency < 1 {
		rs.concurrency = defaultConcurrency
	}
	if rs.maxAttempts < 1 {
		rs.maxAttempts = defaultMaxAttempts
	}

	return rs
}
