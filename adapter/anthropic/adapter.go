package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/RichardKnop/pdfrag"
)

// Adapter is a chat model backed by the Anthropic Messages API.
type Adapter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	logger    *zap.Logger
}

type Option func(*Adapter)

func WithModel(model string) Option {
	return func(a *Adapter) {
		a.model = model
	}
}

func WithMaxTokens(maxTokens int64) Option {
	return func(a *Adapter) {
		a.maxTokens = maxTokens
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

const (
	DefaultModel     = "claude-sonnet-4-0"
	defaultMaxTokens = 4096
)

func New(requestOptions []option.RequestOption, options ...Option) *Adapter {
	a := &Adapter{
		client:    anthropic.NewClient(requestOptions...),
		model:     DefaultModel,
		maxTokens: defaultMaxTokens,
		logger:    zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	a.logger.Sugar().With(
		"model", a.model,
		"max tokens", a.maxTokens,
	).Info("init anthropic adapter")

	return a
}

const adapterName = "anthropic"

func (a *Adapter) Name() string {
	return adapterName
}

func (a *Adapter) Complete(ctx context.Context, systemInstruction, query string) (string, error) {
	a.logger.Sugar().With("model", a.model).Info("generating answer")

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemInstruction},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(query)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", upstreamError(err))
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	return b.String(), nil
}

func upstreamError(err error) error {
	var apiErr *anthropic.Error
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
