package pdfrag

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	maxJitter = 100 * time.Millisecond

	// releaseTimeout bounds acking or failing a job and recording its outcome,
	// which happens after the job timeout may already have expired.
	releaseTimeout = 10 * time.Second

	// maxDequeueErrors is how many dequeue errors in a row stop a consumer.
	maxDequeueErrors = 10
)

var errTooManyDequeueErrors = errors.New("too many dequeue errors")

// errNoText marks documents without any extractable text. It is a soft
// failure: the job is skipped and never retried.
var errNoText = errors.New("no text extracted from document")

// ProcessJobs starts consuming ingest jobs from the queue. The returned
// function blocks until all consumers stopped after ctx was cancelled, or
// after a consumer gave up because the queue kept failing.
func (rs *ragServer) ProcessJobs(ctx context.Context) func() {
	g, ctx := errgroup.WithContext(ctx)

	for i := range rs.concurrency {
		g.Go(func() error {
			return rs.consume(ctx, i)
		})
	}

	g.Go(func() error {
		rs.sweep(ctx)
		return nil
	})

	return func() {
		if err := g.Wait(); err != nil {
			rs.logger.Sugar().With("error", err).Error("stopped processing jobs")
			return
		}
		rs.logger.Info("stopped processing jobs")
	}
}

func (rs *ragServer) consume(ctx context.Context, consumer int) error {
	var (
		rand   = rand.New(rand.NewSource(time.Now().UnixNano() + int64(consumer)))
		log    = rs.logger.Sugar().With("consumer", consumer)
		failed int
	)

	log.Info("started consuming jobs")

	for {
		if ctx.Err() != nil {
			return nil
		}

		aJob, err := rs.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueEmpty) {
				failed = 0
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			failed += 1
			log.With("error", err, "failed", failed).Error("error dequeueing job")
			if failed >= maxDequeueErrors {
				return fmt.Errorf("consumer %d: %w: %w", consumer, errTooManyDequeueErrors, err)
			}
			jitterDuration := rs.dequeueBackoff + time.Duration(rand.Int63n(int64(maxJitter)))
			if err := jitter(ctx, jitterDuration); err != nil {
				return nil
			}
			continue
		}
		failed = 0

		// Jobs are not cancelled once started, only bounded by the job timeout.
		if err := rs.handleJob(context.WithoutCancel(ctx), aJob); err != nil {
			log.With("job", aJob.ID, "error", err).Error("error handling job")
		}
	}
}

func jitter(ctx context.Context, jitterDuration time.Duration) error {
	select {
	case <-time.After(jitterDuration):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handleJob runs a single delivery of a job. Processing is bounded by the job
// timeout, releasing the job and recording its outcome is not.
func (rs *ragServer) handleJob(ctx context.Context, aJob *IngestJob) error {
	log := rs.logger.Sugar().With("job", aJob.ID, "file name", aJob.FileName)

	processCtx, cancel := context.WithTimeout(ctx, rs.jobTimeout)
	defer cancel()

	releaseCtx, cancelRelease := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancelRelease()

	if err := rs.startJob(processCtx, aJob); err != nil {
		// The job record is missing or not queued, do not process it twice.
		if failErr := rs.queue.Fail(releaseCtx, aJob, false); failErr != nil {
			return errors.Join(err, fmt.Errorf("release job: %w", failErr))
		}
		return err
	}

	perr := rs.processJob(processCtx, aJob)
	switch {
	case perr == nil:
		log.With("chunks", aJob.Chunks).Info("job completed")
		if err := rs.queue.Ack(releaseCtx, aJob); err != nil {
			return fmt.Errorf("ack job: %w", err)
		}
		return rs.completeJob(releaseCtx, aJob, JobStatusCompleted, "")
	case errors.Is(perr, errNoText):
		log.Warn("no text extracted from document, skipping")
		if err := rs.queue.Ack(releaseCtx, aJob); err != nil {
			return fmt.Errorf("ack job: %w", err)
		}
		return rs.completeJob(releaseCtx, aJob, JobStatusSkipped, perr.Error())
	case aJob.Attempts < rs.maxAttempts:
		log.With("error", perr, "attempt", aJob.Attempts).Error("job failed, retrying")
		// The record must be queued again before the job is redelivered,
		// otherwise another consumer would refuse to start it.
		if err := rs.requeueJob(releaseCtx, aJob, perr.Error()); err != nil {
			return err
		}
		if err := rs.queue.Fail(releaseCtx, aJob, true); err != nil {
			return fmt.Errorf("requeue job: %w", err)
		}
		return nil
	default:
		log.With("error", perr).Error("job failed")
		if err := rs.queue.Fail(releaseCtx, aJob, false); err != nil {
			return fmt.Errorf("fail job: %w", err)
		}
		return rs.completeJob(releaseCtx, aJob, JobStatusFailed, perr.Error())
	}
}

// processJob resolves, extracts, splits, embeds and indexes a single document.
func (rs *ragServer) processJob(ctx context.Context, aJob *IngestJob) error {
	log := rs.logger.Sugar().With("job", aJob.ID, "file name", aJob.FileName)

	contents, cleanup, err := rs.openDocument(ctx, aJob)
	if err != nil {
		return err
	}
	var indexed bool
	defer func() {
		if err := contents.Close(); err != nil {
			log.With("error", err).Warn("error closing document")
		}
		if indexed {
			cleanup()
		}
	}()

	log.With("location", aJob.Location).Info("processing document")

	pages, err := rs.extractor.Extract(ctx, aJob.FileName, contents)
	if err != nil {
		return fmt.Errorf("error extracting text: %w", err)
	}
	if nonBlankPages(pages) == 0 {
		return errNoText
	}

	chunks := SplitPages(rs.splitter, pages)
	if len(chunks) == 0 {
		return errNoText
	}
	for i := range chunks {
		chunks[i].JobID = aJob.ID
		chunks[i].FileName = aJob.FileName
	}

	log.With("pages", len(pages), "chunks", len(chunks)).Info("generating vectors for chunks")

	// Use the batch embedding API to embed all chunks at once.
	vectors, err := rs.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return fmt.Errorf("error generating vectors: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedded batch size mismatch: %d vectors for %d chunks", len(vectors), len(chunks))
	}

	if err := rs.saveChunks(ctx, chunks, vectors); err != nil {
		return err
	}
	aJob.Chunks = len(chunks)
	indexed = true

	return nil
}

// saveChunks appends to the existing collection and falls back to creating
// the collection when the append reports it missing.
func (rs *ragServer) saveChunks(ctx context.Context, chunks []Chunk, vectors []Vector) error {
	err := rs.vectorStore.SaveChunks(ctx, chunks, vectors)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCollectionNotFound) {
		return fmt.Errorf("saving chunks: %w", err)
	}

	rs.logger.Sugar().With("vector store", rs.vectorStore.Name()).Info("collection not found, creating it")

	if err := rs.vectorStore.CreateCollection(ctx, len(vectors[0])); err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}
	if err := rs.vectorStore.SaveChunks(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("saving chunks to new collection: %w", err)
	}

	return nil
}

// openDocument returns the document contents and a cleanup func to call once
// the document was indexed. Remote documents are downloaded into a temporary
// local file which cleanup removes, local documents are left where they are.
func (rs *ragServer) openDocument(ctx context.Context, aJob *IngestJob) (io.ReadSeekCloser, func(), error) {
	if !rs.storage.Remote() {
		f, err := os.Open(aJob.Location)
		if err != nil {
			return nil, nil, fmt.Errorf("opening file: %w", err)
		}
		return f, func() {}, nil
	}

	remote, err := rs.storage.Read(ctx, aJob.Location)
	if err != nil {
		return nil, nil, fmt.Errorf("reading remote file: %w", err)
	}
	defer remote.Close()

	tempFile, err := os.CreateTemp("", "pdfrag-*.pdf")
	if err != nil {
		return nil, nil, fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := io.Copy(tempFile, remote); err != nil {
		tempFile.Close()
		return nil, nil, fmt.Errorf("downloading remote file: %w", err)
	}
	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		tempFile.Close()
		return nil, nil, fmt.Errorf("error seeking file to start: %w", err)
	}

	log := rs.logger.Sugar().With("job", aJob.ID, "temp file", tempFile.Name())
	log.Info("downloaded remote file")

	return tempFile, func() {
		if err := os.Remove(tempFile.Name()); err != nil {
			log.With("error", err).Warn("error removing temp file")
		}
	}, nil
}

func (rs *ragServer) startJob(ctx context.Context, aJob *IngestJob) error {
	return rs.store.Transactional(ctx, &sql.TxOptions{}, func(ctx context.Context) error {
		saved, err := rs.store.FindJob(ctx, aJob.ID)
		if err != nil {
			return fmt.Errorf("find job: %w", err)
		}
		// The queue payload only carries what is needed to process the job,
		// the record is the source of truth for everything else.
		aJob.ContentType = saved.ContentType
		aJob.Size = saved.Size
		aJob.Hash = saved.Hash
		aJob.Status = saved.Status
		aJob.Attempts = saved.Attempts
		aJob.Created = saved.Created

		if err := aJob.Start(rs.now()); err != nil {
			return fmt.Errorf("change status: %w", err)
		}
		rs.logger.Sugar().With("job", aJob.ID, "status", aJob.Status, "attempt", aJob.Attempts).Info("state change for job")

		return rs.store.SaveJobs(ctx, aJob)
	})
}

func (rs *ragServer) completeJob(ctx context.Context, aJob *IngestJob, status JobStatus, message string) error {
	return rs.store.Transactional(ctx, &sql.TxOptions{}, func(ctx context.Context) error {
		if err := aJob.CompleteWithStatus(status, message, rs.now()); err != nil {
			return fmt.Errorf("change status: %w", err)
		}
		rs.logger.Sugar().With("job", aJob.ID, "status", aJob.Status).Info("state change for job")

		return rs.store.SaveJobs(ctx, aJob)
	})
}

func (rs *ragServer) requeueJob(ctx context.Context, aJob *IngestJob, message string) error {
	return rs.store.Transactional(ctx, &sql.TxOptions{}, func(ctx context.Context) error {
		if err := aJob.Requeue(message, rs.now()); err != nil {
			return fmt.Errorf("change status: %w", err)
		}
		rs.logger.Sugar().With("job", aJob.ID, "status", aJob.Status).Info("state change for job")

		return rs.store.SaveJobs(ctx, aJob)
	})
}

func (rs *ragServer) sweep(ctx context.Context) {
	ticker := time.NewTicker(rs.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			total, err := rs.failStuckJobs(ctx)
			if err != nil {
				rs.logger.Sugar().With("error", err).Error("error failing stuck jobs")
			} else if total > 0 {
				rs.logger.Sugar().With("total", total).Warn("failed stuck jobs")
			}
		}
	}
}

// failStuckJobs marks jobs that have been processing for longer than the job timeout as failed.
func (rs *ragServer) failStuckJobs(ctx context.Context) (int, error) {
	var total int
	if err := rs.store.Transactional(ctx, &sql.TxOptions{}, func(ctx context.Context) error {
		now := rs.now()

		jobs, err := rs.store.ListJobs(ctx, JobFilter{
			Status:            JobStatusProcessing,
			LastUpdatedBefore: Time{T: now.Add(-rs.jobTimeout)},
		}, SortParams{})
		if err != nil {
			return fmt.Errorf("list jobs: %w", err)
		}

		for _, aJob := range jobs {
			if err := aJob.CompleteWithStatus(JobStatusFailed, "timed out", now); err != nil {
				return fmt.Errorf("change status: %w", err)
			}
		}

		if err := rs.store.SaveJobs(ctx, jobs...); err != nil {
			return fmt.Errorf("save jobs: %w", err)
		}
		total = len(jobs)

		return nil
	}); err != nil {
		return 0, err
	}

	return total, nil
}
