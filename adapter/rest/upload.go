package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/RichardKnop/pdfrag"
)

const uploadField = "pdf"

// Upload a PDF and queue it for indexing
// (POST /upload/pdf)
func (a *Adapter) UploadPDF(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), uploadTimeout)
	defer cancel()

	if r.ContentLength > pdfrag.MaxFileSize+pdfrag.MB {
		renderJSONError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("file is larger than %d bytes", pdfrag.MaxFileSize))
		return
	}

	// Limit the size of the request body to prevent large uploads. This will return
	// io.MaxBytesError if the request body exceeds the limit while being read.
	// The extra MB leaves room for the multipart framing around the file.
	r.Body = http.MaxBytesReader(w, r.Body, pdfrag.MaxFileSize+pdfrag.MB)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			renderJSONError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("file is larger than %d bytes", maxBytesErr.Limit))
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			renderJSONError(w, http.StatusBadRequest, pdfrag.ErrMissingFile)
		default:
			renderJSONError(w, http.StatusBadRequest, fmt.Errorf("error reading file from request: %w", err))
		}
		return
	}
	defer file.Close()

	if header.Size > pdfrag.MaxFileSize {
		renderJSONError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("file is larger than %d bytes", pdfrag.MaxFileSize))
		return
	}

	aJob, err := a.ragServer.UploadFile(ctx, file, header)
	if err != nil {
		if errors.Is(err, pdfrag.ErrMissingFile) || errors.Is(err, pdfrag.ErrInvalidFileType) {
			renderJSONError(w, http.StatusBadRequest, err)
			return
		}
		a.logger.Sugar().With("error", err).Error("error uploading file")
		renderJSONError(w, http.StatusInternalServerError, fmt.Errorf("error uploading file: %w", err))
		return
	}

	w.Header().Set("Location", "/jobs/"+aJob.ID.String())
	renderJSONWithStatus(w, http.StatusAccepted, mapJob(aJob))
}
