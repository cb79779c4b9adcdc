package qdrant

import (
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/RichardKnop/pdfrag"
)

// Adapter is a vector store backed by a Qdrant collection.
type Adapter struct {
	client         *qdrant.Client
	collectionName string
	distance       qdrant.Distance
	logger         *zap.Logger
}

type Option func(*Adapter)

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

func WithCollectionName(name string) Option {
	return func(a *Adapter) {
		a.collectionName = name
	}
}

func WithDistance(distance qdrant.Distance) Option {
	return func(a *Adapter) {
		a.distance = distance
	}
}

func New(client *qdrant.Client, options ...Option) *Adapter {
	a := &Adapter{
		client:         client,
		collectionName: pdfrag.DefaultCollection,
		distance:       qdrant.Distance_Cosine,
		logger:         zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	a.logger.Sugar().With(
		"collection", a.collectionName,
		"distance", a.distance.String(),
	).Info("init qdrant adapter")

	return a
}

const adapterName = "qdrant"

func (a *Adapter) Name() string {
	return adapterName
}
