package pdfrag

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
)

type JobID struct{ uuid.UUID }

func NewJobID() JobID {
	return JobID{uuid.Must(uuid.NewV4())}
}

type JobStatus string

const (
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusSkipped    JobStatus = "SKIPPED"
	JobStatusFailed     JobStatus = "FAILED"
)

// IngestJob is a queued request to index one uploaded document.
type IngestJob struct {
	ID            JobID
	FileName      string
	ContentType   string
	Size          int64
	Hash          string
	Location      string // where the uploaded document is stored
	Status        JobStatus
	StatusMessage string
	Attempts      int
	Chunks        int
	Created       Time
	Updated       Time
	// Receipt is set by the queue on dequeue and identifies the delivery.
	Receipt string
}

// Start moves a queued job into processing.
func (j *IngestJob) Start(updatedAt time.Time) error {
	if j.Status != JobStatusQueued {
		return fmt.Errorf("cannot change status from %s to %s", j.Status, JobStatusProcessing)
	}

	j.Status = JobStatusProcessing
	j.StatusMessage = ""
	j.Attempts += 1
	j.Updated = Time{T: updatedAt}

	return nil
}

// Requeue puts a processing job back into the queued state after the queue redelivered it.
func (j *IngestJob) Requeue(message string, updatedAt time.Time) error {
	if j.Status != JobStatusProcessing {
		return fmt.Errorf("cannot change status from %s to %s", j.Status, JobStatusQueued)
	}

	j.Status = JobStatusQueued
	j.StatusMessage = message
	j.Updated = Time{T: updatedAt}

	return nil
}

// CompleteWithStatus changes the status of a job to a completion status,
// either JobStatusCompleted, JobStatusSkipped or JobStatusFailed.
func (j *IngestJob) CompleteWithStatus(newStatus JobStatus, message string, updatedAt time.Time) error {
	switch newStatus {
	case JobStatusCompleted, JobStatusSkipped, JobStatusFailed:
	default:
		return fmt.Errorf("%s is not a completion status", newStatus)
	}

	if j.Status != JobStatusProcessing {
		return fmt.Errorf("cannot change status from %s to %s", j.Status, newStatus)
	}

	j.Status = newStatus
	j.StatusMessage = message
	j.Updated = Time{T: updatedAt}

	return nil
}

type JobFilter struct {
	Status            JobStatus
	LastUpdatedBefore Time
}

const timeFormat = "2006-01-02T15:04:05.000Z"

// Time is stored as an ISO 8601 string with millisecond precision.
type Time struct {
	T time.Time
}

func (t Time) Value() (driver.Value, error) {
	return t.T.UTC().Format(timeFormat), nil
}

func (t *Time) Scan(value any) error {
	switch v := value.(type) {
	case time.Time:
		t.T = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported time value: %T", value)
	}
}

func (t *Time) parse(s string) error {
	parsed, err := time.Parse(timeFormat, s)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("parsing time %q: %w", s, err)
		}
	}
	t.T = parsed.UTC()
	return nil
}

func (t Time) IsZero() bool {
	return t.T.IsZero()
}

func (t Time) Add(d time.Duration) Time {
	return Time{T: t.T.Add(d)}
}
