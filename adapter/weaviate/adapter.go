package weaviate

import (
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.uber.org/zap"
)

// DefaultClassName is the Weaviate class holding chunks. Class names must
// start with a capital letter so the shared collection name can't be used.
const DefaultClassName = "PdfDocs"

type Adapter struct {
	client    *weaviate.Client
	className string
	logger    *zap.Logger
}

type Option func(*Adapter)

func WithClassName(className string) Option {
	return func(a *Adapter) {
		a.className = className
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

func New(client *weaviate.Client, options ...Option) *Adapter {
	a := &Adapter{
		client:    client,
		className: DefaultClassName,
		logger:    zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	a.logger.Sugar().With("class", a.className).Info("init weaviate adapter")

	return a
}

// ClassNameFor turns a collection name such as "pdf-docs" into a valid class
// name such as "PdfDocs". Class names must match ^[A-Z][_0-9A-Za-z]*$.
func ClassNameFor(collection string) string {
	parts := strings.FieldsFunc(collection, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_')
	})

	var b strings.Builder
	for _, part := range parts {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}

	className := b.String()
	switch {
	case className == "":
		return DefaultClassName
	case className[0] < 'A' || className[0] > 'Z':
		return "C" + className
	default:
		return className
	}
}

func (a *Adapter) ClassName() string {
	return a.className
}

const adapterName = "weaviate"

func (a *Adapter) Name() string {
	return adapterName
}
