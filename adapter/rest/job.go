package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/RichardKnop/pdfrag"
)

type Job struct {
	ID            string    `json:"id"`
	FileName      string    `json:"file_name"`
	ContentType   string    `json:"content_type"`
	Size          int64     `json:"size"`
	Hash          string    `json:"hash"`
	Status        string    `json:"status"`
	StatusMessage string    `json:"status_message,omitempty"`
	Attempts      int       `json:"attempts"`
	Chunks        int       `json:"chunks"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Jobs struct {
	Jobs []Job `json:"jobs"`
}

const (
	defaultLimit = 100
	maxLimit     = 100
)

func mapJob(aJob *pdfrag.IngestJob) Job {
	return Job{
		ID:            aJob.ID.String(),
		FileName:      aJob.FileName,
		ContentType:   aJob.ContentType,
		Size:          aJob.Size,
		Hash:          aJob.Hash,
		Status:        string(aJob.Status),
		StatusMessage: aJob.StatusMessage,
		Attempts:      aJob.Attempts,
		Chunks:        aJob.Chunks,
		CreatedAt:     aJob.Created.T,
		UpdatedAt:     aJob.Updated.T,
	}
}

func mapJobs(jobs []*pdfrag.IngestJob) Jobs {
	apiResponse := Jobs{
		Jobs: make([]Job, 0, len(jobs)),
	}
	for _, aJob := range jobs {
		apiResponse.Jobs = append(apiResponse.Jobs, mapJob(aJob))
	}
	return apiResponse
}

type ListJobsParams struct {
	Status *string
	SortBy *string
	Order  *string
	Limit  *int
}

// List ingestion jobs
// (GET /jobs)
func (a *Adapter) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), defaultTimeout)
	defer cancel()

	var params ListJobsParams
	for name, dest := range map[string]any{
		"status":  &params.Status,
		"sort_by": &params.SortBy,
		"order":   &params.Order,
		"limit":   &params.Limit,
	} {
		if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
			renderJSONError(w, http.StatusBadRequest, fmt.Errorf("invalid format for parameter %s: %w", name, err))
			return
		}
	}

	filter, sortParams, err := params.parse()
	if err != nil {
		renderJSONError(w, http.StatusBadRequest, err)
		return
	}

	jobs, err := a.ragServer.ListJobs(ctx, filter, sortParams)
	if err != nil {
		if errors.Is(err, pdfrag.ErrInvalidSortParams) {
			renderJSONError(w, http.StatusBadRequest, err)
			return
		}
		a.logger.Sugar().With("error", err).Error("error listing jobs")
		renderJSONError(w, http.StatusInternalServerError, fmt.Errorf("error listing jobs: %w", err))
		return
	}

	renderJSON(w, mapJobs(jobs))
}

func (p ListJobsParams) parse() (pdfrag.JobFilter, pdfrag.SortParams, error) {
	var (
		filter     pdfrag.JobFilter
		sortParams = pdfrag.SortParams{Limit: defaultLimit}
	)

	if p.Status != nil {
		status := pdfrag.JobStatus(*p.Status)
		switch status {
		case pdfrag.JobStatusQueued, pdfrag.JobStatusProcessing, pdfrag.JobStatusCompleted, pdfrag.JobStatusSkipped, pdfrag.JobStatusFailed:
			filter.Status = status
		default:
			return filter, sortParams, fmt.Errorf("invalid status: %s", *p.Status)
		}
	}

	if p.Limit != nil {
		if *p.Limit < 1 || *p.Limit > maxLimit {
			return filter, sortParams, fmt.Errorf("limit must be between 1 and %d", maxLimit)
		}
		sortParams.Limit = *p.Limit
	}

	if p.SortBy != nil {
		sortParams.By = *p.SortBy
	}

	if p.Order != nil {
		order := pdfrag.SortOrder(*p.Order)
		if order != pdfrag.SortOrderAsc && order != pdfrag.SortOrderDesc {
			return filter, sortParams, fmt.Errorf("invalid order: %s", *p.Order)
		}
		sortParams.Order = order
	}

	return filter, sortParams, nil
}

// Get a single job by ID
// (GET /jobs/{id})
func (a *Adapter) GetJobById(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), defaultTimeout)
	defer cancel()

	var id openapi_types.UUID
	if err := runtime.BindStyledParameterWithOptions("simple", "id", r.PathValue("id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	}); err != nil {
		renderJSONError(w, http.StatusBadRequest, fmt.Errorf("invalid format for parameter id: %w", err))
		return
	}

	aJob, err := a.ragServer.FindJob(ctx, pdfrag.JobID{UUID: uuid.UUID(id)})
	if err != nil {
		if errors.Is(err, pdfrag.ErrNotFound) {
			renderJSONError(w, http.StatusNotFound, fmt.Errorf("job not found"))
			return
		}
		a.logger.Sugar().With("error", err).Error("error finding job")
		renderJSONError(w, http.StatusInternalServerError, fmt.Errorf("error finding job: %w", err))
		return
	}

	renderJSON(w, mapJob(aJob))
}
