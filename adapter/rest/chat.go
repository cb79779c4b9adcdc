package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/RichardKnop/pdfrag"
)

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Answer    string     `json:"answer"`
	Documents []Document `json:"documents"`
}

type Document struct {
	Content  string  `json:"content"`
	FileName string  `json:"file_name"`
	Page     int     `json:"page"`
	Chunk    int     `json:"chunk"`
	Score    float32 `json:"score"`
}

// Ask a question about the indexed documents
// (GET /chat)
func (a *Adapter) Chat(w http.ResponseWriter, r *http.Request) {
	var message string
	if err := runtime.BindQueryParameter("form", true, true, "message", r.URL.Query(), &message); err != nil {
		renderJSONError(w, http.StatusBadRequest, fmt.Errorf("invalid format for parameter message: %w", err))
		return
	}

	a.chat(w, r, message)
}

// Same as GET /chat with the message in a JSON body, for long questions
// (POST /chat)
func (a *Adapter) ChatJSON(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, pdfrag.MB)

	req := new(ChatRequest)
	if err := readRequestJSON(r, req); err != nil {
		renderJSONError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	a.chat(w, r, req.Message)
}

func (a *Adapter) chat(w http.ResponseWriter, r *http.Request, message string) {
	if strings.TrimSpace(message) == "" {
		renderJSONError(w, http.StatusBadRequest, pdfrag.ErrEmptyQuery)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()

	answer, err := a.ragServer.Chat(ctx, message)
	if err != nil {
		if errors.Is(err, pdfrag.ErrEmptyQuery) {
			renderJSONError(w, http.StatusBadRequest, err)
			return
		}

		a.logger.Sugar().With("error", err).Error("error answering query")

		response := ErrorResponse{Error: err.Error()}
		var upstreamErr *pdfrag.UpstreamError
		if errors.As(err, &upstreamErr) {
			response.Details = upstreamErr.Payload
		}
		renderJSONWithStatus(w, http.StatusInternalServerError, response)
		return
	}

	renderJSON(w, mapAnswer(answer))
}

func mapAnswer(answer *pdfrag.Answer) ChatResponse {
	response := ChatResponse{
		Answer:    answer.Text,
		Documents: make([]Document, 0, len(answer.Chunks)),
	}
	for _, aChunk := range answer.Chunks {
		response.Documents = append(response.Documents, Document{
			Content:  aChunk.Content,
			FileName: aChunk.FileName,
			Page:     aChunk.Page,
			Chunk:    aChunk.Index,
			Score:    aChunk.Score,
		})
	}
	return response
}
