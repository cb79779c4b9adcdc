package openai

import (
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/RichardKnop/pdfrag"
)

// Adapter calls an OpenAI compatible API for chat completions and
// embeddings. Point it at another provider with option.WithBaseURL.
type Adapter struct {
	client         openai.Client
	chatModel      string
	embeddingModel string
	logger         *zap.Logger
}

type Option func(*Adapter)

func WithChatModel(model string) Option {
	return func(a *Adapter) {
		a.chatModel = model
	}
}

func WithEmbeddingModel(model string) Option {
	return func(a *Adapter) {
		a.embeddingModel = model
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

const (
	DefaultChatModel      = openai.ChatModelGPT4oMini
	DefaultEmbeddingModel = openai.EmbeddingModelTextEmbedding3Small
)

// New builds the client from request options, typically option.WithAPIKey
// and option.WithBaseURL. Without them the client reads OPENAI_API_KEY and
// OPENAI_BASE_URL from the environment.
func New(requestOptions []option.RequestOption, options ...Option) *Adapter {
	a := &Adapter{
		client:         openai.NewClient(requestOptions...),
		chatModel:      DefaultChatModel,
		embeddingModel: DefaultEmbeddingModel,
		logger:         zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	a.logger.Sugar().With(
		"chat model", a.chatModel,
		"embedding model", a.embeddingModel,
	).Info("init openai adapter")

	return a
}

const adapterName = "openai"

func (a *Adapter) Name() string {
	return adapterName
}

func upstreamError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &pdfrag.UpstreamError{
			Provider:   adapterName,
			StatusCode: apiErr.StatusCode,
			Payload:    apiErr.RawJSON(),
			Err:        err,
		}
	}
	return err
}
