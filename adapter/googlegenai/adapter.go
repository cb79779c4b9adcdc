package googlegenai

import (
	"errors"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/RichardKnop/pdfrag"
)

// Adapter talks to the Gemini API. It can serve as both the embedder and
// the chat model.
type Adapter struct {
	client          *genai.Client
	embeddingModel  string
	generativeModel string
	logger          *zap.Logger
}

type Option func(*Adapter)

func WithEmbeddingModel(model string) Option {
	return func(a *Adapter) {
		a.embeddingModel = model
	}
}

func WithGenerativeModel(model string) Option {
	return func(a *Adapter) {
		a.generativeModel = model
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

const (
	DefaultEmbeddingModel  = "gemini-embedding-001"
	DefaultGenerativeModel = "gemini-2.5-flash"
)

func New(client *genai.Client, options ...Option) *Adapter {
	a := &Adapter{
		client:          client,
		embeddingModel:  DefaultEmbeddingModel,
		generativeModel: DefaultGenerativeModel,
		logger:          zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	a.logger.Sugar().With(
		"embedding model", a.embeddingModel,
		"generative model", a.generativeModel,
	).Info("init google genai adapter")

	return a
}

const adapterName = "google-genai"

func (a *Adapter) Name() string {
	return adapterName
}

func upstreamError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &pdfrag.UpstreamError{
			Provider:   adapterName,
			StatusCode: apiErr.Code,
			Payload:    apiErr.Message,
			Err:        err,
		}
	}
	return err
}
