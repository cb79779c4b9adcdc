package pdfrag

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

// Answer is the chat model's reply together with the chunks it was given as context.
type Answer struct {
	Text   string
	Chunks []Chunk
}

// UpstreamError is returned when a hosted model API rejects a request.
// Payload holds the raw error body returned by the API, when there was one.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Payload    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

//go:embed templates/system.tmpl
var systemTemplateStr string

var systemTemplate = template.Must(template.New("system").Parse(systemTemplateStr))

// SystemInstruction renders the instruction that restricts the model to the
// retrieved chunks. Chunk contents are embedded verbatim.
func SystemInstruction(chunks []Chunk) (string, error) {
	var b strings.Builder
	if err := systemTemplate.Execute(&b, struct{ Context []string }{ChunkContents(chunks)}); err != nil {
		return "", fmt.Errorf("rendering system instruction: %w", err)
	}
	return b.String(), nil
}

// Chat answers a query using the nearest indexed chunks as context.
func (rs *ragServer) Chat(ctx context.Context, query string) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	log := rs.logger.Sugar().With("query", query)
	log.Info("received query")

	// Embed the query contents.
	vector, err := rs.embedder.EmbedContent(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query content: %w", err)
	}

	// Search the vector store to find the most relevant (closest in vector space)
	// chunks to the query.
	chunks, err := rs.vectorStore.SearchChunks(ctx, vector, rs.topK)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	log.With("chunks", len(chunks)).Info("found chunks")

	instruction, err := SystemInstruction(chunks)
	if err != nil {
		return nil, err
	}

	text, err := rs.chatModel.Complete(ctx, instruction, query)
	if err != nil {
		return nil, fmt.Errorf("calling chat model: %w", err)
	}

	return &Answer{
		Text:   text,
		Chunks: chunks,
	}, nil
}
