package pdfragtest

import (
	"time"

	"github.com/RichardKnop/pdfrag"
)

type JobOption func(*pdfrag.IngestJob)

func WithJobStatus(status pdfrag.JobStatus) JobOption {
	return func(j *pdfrag.IngestJob) {
		j.Status = status
	}
}

func WithJobAttempts(attempts int) JobOption {
	return func(j *pdfrag.IngestJob) {
		j.Attempts = attempts
	}
}

func WithJobLocation(location string) JobOption {
	return func(j *pdfrag.IngestJob) {
		j.Location = location
	}
}

func WithJobCreated(created time.Time) JobOption {
	return func(j *pdfrag.IngestJob) {
		j.Created = pdfrag.Time{T: created}
	}
}

func WithJobUpdated(updated time.Time) JobOption {
	return func(j *pdfrag.IngestJob) {
		j.Updated = pdfrag.Time{T: updated}
	}
}

var jobStates = []pdfrag.JobStatus{
	pdfrag.JobStatusQueued,
	pdfrag.JobStatusProcessing,
	pdfrag.JobStatusCompleted,
	pdfrag.JobStatusSkipped,
	pdfrag.JobStatusFailed,
}

func (g *DataGen) Job(options ...JobOption) *pdfrag.IngestJob {
	g.ShuffleAnySlice(jobStates)

	fileName := g.Word() + ".pdf"
	aJob := pdfrag.IngestJob{
		ID:          pdfrag.NewJobID(),
		FileName:    fileName,
		ContentType: "application/pdf",
		Size:        int64(g.Number(1, pdfrag.MaxFileSize)),
		Hash:        g.LetterN(64),
		Location:    "/tmp/" + fileName,
		Status:      jobStates[0],
		Created:     pdfrag.Time{T: g.now},
		Updated:     pdfrag.Time{T: g.now},
	}

	for _, o := range options {
		o(&aJob)
	}

	return &aJob
}

// Chunks generates n chunks of a single document, one per page.
func (g *DataGen) Chunks(n int) []pdfrag.Chunk {
	var (
		jobID    = pdfrag.NewJobID()
		fileName = g.Word() + ".pdf"
		chunks   = make([]pdfrag.Chunk, 0, n)
	)
	for i := range n {
		chunks = append(chunks, pdfrag.Chunk{
			JobID:    jobID,
			FileName: fileName,
			Content:  g.Sentence(12),
			Page:     i + 1,
			Index:    i,
		})
	}
	return chunks
}

// Vectors generates n random vectors of the given dimension.
func (g *DataGen) Vectors(n, dim int) []pdfrag.Vector {
	vectors := make([]pdfrag.Vector, 0, n)
	for range n {
		v := make(pdfrag.Vector, dim)
		for i := range v {
			v[i] = g.Float32Range(-1, 1)
		}
		vectors = append(vectors, v)
	}
	return vectors
}
