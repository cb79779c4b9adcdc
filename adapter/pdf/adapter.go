package pdf

import (
	"go.uber.org/zap"
)

// Adapter extracts text locally, one page at a time.
type Adapter struct {
	maxPages int
	logger   *zap.Logger
}

type Option func(*Adapter)

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// WithMaxPages limits extraction to the first n pages, 0 means all pages.
func WithMaxPages(n int) Option {
	return func(a *Adapter) {
		a.maxPages = n
	}
}

func New(options ...Option) *Adapter {
	a := &Adapter{
		logger: zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	a.logger.Sugar().With(
		"max pages", a.maxPages,
	).Info("init pdf adapter")

	return a
}
