package chromem

import (
	"context"
	"errors"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/RichardKnop/pdfrag"
)

// Adapter is an embedded vector store, handy for running everything in a
// single process without external services.
type Adapter struct {
	db             *chromem.DB
	collectionName string
	concurrency    int
	logger         *zap.Logger
}

type Option func(*Adapter)

func WithCollectionName(name string) Option {
	return func(a *Adapter) {
		a.collectionName = name
	}
}

func WithConcurrency(concurrency int) Option {
	return func(a *Adapter) {
		a.concurrency = concurrency
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// New returns an in-memory store, or a persistent one when dir is set.
func New(dir string, options ...Option) (*Adapter, error) {
	a := &Adapter{
		collectionName: pdfrag.DefaultCollection,
		concurrency:    1,
		logger:         zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	if dir == "" {
		a.db = chromem.NewDB()
	} else {
		db, err := chromem.NewPersistentDB(dir, true)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem db: %w", err)
		}
		a.db = db
	}

	a.logger.Sugar().With(
		"collection", a.collectionName,
		"directory", dir,
	).Info("init chromem adapter")

	return a, nil
}

const adapterName = "chromem"

func (a *Adapter) Name() string {
	return adapterName
}

var errNoEmbeddingFunc = errors.New("chromem adapter expects precomputed embeddings")

// noEmbeddings stops chromem from falling back to its default OpenAI
// embedding function. Vectors always come from the configured embedder.
func noEmbeddings(ctx context.Context, text string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}
