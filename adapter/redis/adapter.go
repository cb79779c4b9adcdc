package redis

import (
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/RichardKnop/pdfrag"
)

// Adapter is a vector store backed by a RediSearch index over hashes.
type Adapter struct {
	client               *redis.Client
	indexName            string
	indexPrefix          string
	dialectVersion       int
	vectorDistanceMetric string
	logger               *zap.Logger
	// indexed is set once the index was seen or created.
	indexed              atomic.Bool
}

type Option func(*Adapter)

const (
	defaultDialectVersion       = 2
	defaultVectorDistanceMetric = "COSINE"
)

func New(client *redis.Client, options ...Option) *Adapter {
	a := &Adapter{
		client:               client,
		indexName:            pdfrag.DefaultCollection,
		indexPrefix:          pdfrag.DefaultCollection + ":",
		dialectVersion:       defaultDialectVersion,
		vectorDistanceMetric: defaultVectorDistanceMetric,
		logger:               zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	a.logger.Sugar().With(
		"index name", a.indexName,
		"prefix", a.indexPrefix,
		"dialect version", a.dialectVersion,
		"vector distance metric", a.vectorDistanceMetric,
	).Info("init redis adapter")

	return a
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

func WithIndexName(indexName string) Option {
	return func(a *Adapter) {
		a.indexName = indexName
	}
}

func WithIndexPrefix(prefix string) Option {
	return func(a *Adapter) {
		a.indexPrefix = prefix
	}
}

func WithDialectVersion(version int) Option {
	return func(a *Adapter) {
		a.dialectVersion = version
	}
}

// WithVectorDistanceMetric sets the index metric, one of "COSINE", "IP" or "L2".
func WithVectorDistanceMetric(metric string) Option {
	return func(a *Adapter) {
		a.vectorDistanceMetric = metric
	}
}

const adapterName = "redis"

func (a *Adapter) Name() string {
	return adapterName
}
