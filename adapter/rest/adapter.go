package rest

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/RichardKnop/pdfrag"
)

type RagServer interface {
	UploadFile(ctx context.Context, file io.ReadSeeker, header *multipart.FileHeader) (*pdfrag.IngestJob, error)
	Chat(ctx context.Context, query string) (*pdfrag.Answer, error)
	FindJob(ctx context.Context, id pdfrag.JobID) (*pdfrag.IngestJob, error)
	ListJobs(ctx context.Context, filter pdfrag.JobFilter, params pdfrag.SortParams) ([]*pdfrag.IngestJob, error)
}

type Adapter struct {
	ragServer RagServer
	logger    *zap.Logger
}

type Option func(*Adapter)

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

func New(ragServer RagServer, options ...Option) *Adapter {
	a := &Adapter{
		ragServer: ragServer,
		logger:    zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	return a
}

const (
	defaultTimeout = 3 * time.Second
	uploadTimeout  = 60 * time.Second
	// Chat waits on two model round trips.
	chatTimeout = 120 * time.Second
)

func (a *Adapter) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /upload/pdf", a.UploadPDF)
	mux.HandleFunc("GET /chat", a.Chat)
	mux.HandleFunc("POST /chat", a.ChatJSON)
	mux.HandleFunc("GET /jobs", a.ListJobs)
	mux.HandleFunc("GET /jobs/{id}", a.GetJobById)
}

// Handler returns a mux with all routes registered.
func (a *Adapter) Handler() http.Handler {
	mux := http.NewServeMux()
	a.RegisterHandlers(mux)
	return mux
}
