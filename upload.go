package pdfrag

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
)

const (
	MB          = 1 << 20
	MaxFileSize = 20 * MB
)

// UploadFile stores an uploaded PDF and enqueues a job to index it. It returns
// once the job is enqueued, indexing happens in the background.
func (rs *ragServer) UploadFile(ctx context.Context, file io.ReadSeeker, header *multipart.FileHeader) (*IngestJob, error) {
	if file == nil || header == nil {
		return nil, ErrMissingFile
	}

	contentType, ok, err := checkContentType(file)
	if err != nil {
		return nil, fmt.Errorf("error checking content type: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFileType, contentType)
	}

	// Reset the file offset to the beginning for further reading
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("error seeking file to start: %w", err)
	}

	var (
		id       = NewJobID()
		fileName = filepath.Base(header.Filename)
		log      = rs.logger.Sugar().With("job", id, "file name", fileName)
	)

	log.With("size", header.Size).Info("uploading file")

	var (
		hashWriter = sha256.New()
		counter    = new(countingWriter)
		reader     = io.TeeReader(file, io.MultiWriter(hashWriter, counter))
	)
	location, err := rs.storage.Write(ctx, fmt.Sprintf("%s-%s", id, fileName), reader)
	if err != nil {
		return nil, fmt.Errorf("error storing file: %w", err)
	}

	now := rs.now()
	aJob := &IngestJob{
		ID:          id,
		FileName:    fileName,
		ContentType: contentType,
		Size:        counter.n,
		Hash:        hex.EncodeToString(hashWriter.Sum(nil)),
		Location:    location,
		Status:      JobStatusQueued,
		Created:     Time{T: now},
		Updated:     Time{T: now},
	}

	if err := rs.store.Transactional(ctx, &sql.TxOptions{}, func(ctx context.Context) error {
		return rs.store.SaveJobs(ctx, aJob)
	}); err != nil {
		saveErr := fmt.Errorf("error saving job: %w", err)
		if err := rs.storage.Delete(ctx, location); err != nil {
			return nil, errors.Join(saveErr, fmt.Errorf("error deleting file: %w", err))
		}
		return nil, saveErr
	}

	if err := rs.queue.Enqueue(ctx, aJob); err != nil {
		enqueueErr := fmt.Errorf("error enqueueing job: %w", err)
		aJob.Status = JobStatusFailed
		aJob.StatusMessage = enqueueErr.Error()
		aJob.Updated = Time{T: rs.now()}
		if err := rs.store.Transactional(ctx, &sql.TxOptions{}, func(ctx context.Context) error {
			return rs.store.SaveJobs(ctx, aJob)
		}); err != nil {
			return nil, errors.Join(enqueueErr, fmt.Errorf("error saving job: %w", err))
		}
		return nil, enqueueErr
	}

	log.With("location", location).Info("job enqueued")

	return aJob, nil
}

func (rs *ragServer) FindJob(ctx context.Context, id JobID) (*IngestJob, error) {
	var aJob *IngestJob
	if err := rs.store.Transactional(ctx, &sql.TxOptions{}, func(ctx context.Context) error {
		var err error
		aJob, err = rs.store.FindJob(ctx, id)
		return err
	}); err != nil {
		return nil, err
	}
	return aJob, nil
}

func (rs *ragServer) ListJobs(ctx context.Context, filter JobFilter, params SortParams) ([]*IngestJob, error) {
	var jobs []*IngestJob
	if err := rs.store.Transactional(ctx, &sql.TxOptions{}, func(ctx context.Context) error {
		var err error
		jobs, err = rs.store.ListJobs(ctx, filter, params)
		return err
	}); err != nil {
		return nil, err
	}
	return jobs, nil
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

var allowedContentTypes = map[string]struct{}{
	"application/pdf": {},
}

func checkContentType(reader io.Reader) (string, bool, error) {
	contentType, err := detectContentType(reader)
	if err != nil {
		return "", false, err
	}
	_, ok := allowedContentTypes[contentType]
	return contentType, ok, nil
}

func detectContentType(reader io.Reader) (string, error) {
	// At most the first 512 bytes of data are used:
	// https://golang.org/src/net/http/sniff.go?s=646:688#L11
	buff := make([]byte, 512)

	bytesRead, err := io.ReadFull(reader, buff)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}

	// Slice to remove fill-up zero values which cause a wrong content type detection in the next step
	// (for example a text file which is smaller than 512 bytes)
	buff = buff[:bytesRead]

	return http.DetectContentType(buff), nil
}
