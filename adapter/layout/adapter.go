package layout

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Adapter extracts text with a pdf-document-layout-analysis service.
type Adapter struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

type Option func(*Adapter)

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

func WithBaseURL(url string) Option {
	return func(a *Adapter) {
		a.baseURL = url
	}
}

func WithHttpClient(client *http.Client) Option {
	return func(a *Adapter) {
		a.httpClient = client
	}
}

const defaultBaseURL = "http://pdf-document-layout-analysis:5060"

func New(options ...Option) *Adapter {
	a := &Adapter{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    defaultBaseURL,
		logger:     zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	a.logger.Sugar().With(
		"base URL", a.baseURL,
	).Info("init layout adapter")

	return a
}
