package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/RichardKnop/pdfrag"
	"github.com/RichardKnop/pdfrag/pdfragtest"
)

var (
	testNow = time.Now().UTC()
	gen     = pdfragtest.New(testNow.UnixNano(), testNow)
)

func (s *StoreTestSuite) TestFindJob() {
	ctx, cancel := testContext()
	defer cancel()

	aJob := gen.Job(pdfragtest.WithJobStatus(pdfrag.JobStatusFailed))
	aJob.StatusMessage = "error generating vectors"
	aJob.Attempts = 2

	s.Require().NoError(s.adapter.SaveJobs(ctx, aJob), "error saving job")

	s.Run("Find existing job", func() {
		savedJob, err := s.adapter.FindJob(ctx, aJob.ID)
		s.Require().NoError(err)
		s.Equal(aJob, savedJob)
	})

	s.Run("Find unknown job", func() {
		_, err := s.adapter.FindJob(ctx, pdfrag.NewJobID())
		s.Require().ErrorIs(err, pdfrag.ErrNotFound)
	})
}

func (s *StoreTestSuite) TestSaveJobs_Upsert() {
	ctx, cancel := testContext()
	defer cancel()

	var (
		now  = time.Now().UTC().Truncate(time.Millisecond)
		job1 = gen.Job(
			pdfragtest.WithJobStatus(pdfrag.JobStatusQueued),
			pdfragtest.WithJobCreated(now),
			pdfragtest.WithJobUpdated(now),
		)
		job2 = gen.Job(
			pdfragtest.WithJobStatus(pdfrag.JobStatusQueued),
			pdfragtest.WithJobCreated(now.Add(time.Second)),
			pdfragtest.WithJobUpdated(now.Add(time.Second)),
		)
	)

	s.Require().NoError(s.adapter.SaveJobs(ctx, job1, job2))

	s.Require().NoError(job1.Start(now.Add(time.Minute)))
	s.Require().NoError(job1.CompleteWithStatus(pdfrag.JobStatusCompleted, "", now.Add(2*time.Minute)))
	job1.Chunks = 12
	s.Require().NoError(s.adapter.SaveJobs(ctx, job1))

	savedJob, err := s.adapter.FindJob(ctx, job1.ID)
	s.Require().NoError(err)
	s.Equal(pdfrag.JobStatusCompleted, savedJob.Status)
	s.Equal(1, savedJob.Attempts)
	s.Equal(12, savedJob.Chunks)
	s.Equal(now, savedJob.Created.T)
	s.Equal(now.Add(2*time.Minute), savedJob.Updated.T)

	jobs, err := s.adapter.ListJobs(ctx, pdfrag.JobFilter{}, pdfrag.SortParams{})
	s.Require().NoError(err)
	s.Require().Len(jobs, 2)
	// Newest first by default.
	s.Equal(job2.ID, jobs[0].ID)
	s.Equal(job1.ID, jobs[1].ID)
}

func (s *StoreTestSuite) TestListJobs() {
	ctx, cancel := testContext()
	defer cancel()

	var (
		now    = time.Now().UTC().Truncate(time.Millisecond)
		queued = gen.Job(
			pdfragtest.WithJobStatus(pdfrag.JobStatusQueued),
			pdfragtest.WithJobCreated(now.Add(-3*time.Hour)),
			pdfragtest.WithJobUpdated(now.Add(-3*time.Hour)),
		)
		stuck = gen.Job(
			pdfragtest.WithJobStatus(pdfrag.JobStatusProcessing),
			pdfragtest.WithJobCreated(now.Add(-2*time.Hour)),
			pdfragtest.WithJobUpdated(now.Add(-2*time.Hour)),
		)
		running = gen.Job(
			pdfragtest.WithJobStatus(pdfrag.JobStatusProcessing),
			pdfragtest.WithJobCreated(now.Add(-time.Hour)),
			pdfragtest.WithJobUpdated(now),
		)
	)
	s.Require().NoError(s.adapter.SaveJobs(ctx, queued, stuck, running))

	s.Run("Filter by status", func() {
		jobs, err := s.adapter.ListJobs(ctx, pdfrag.JobFilter{Status: pdfrag.JobStatusProcessing}, pdfrag.SortParams{})
		s.Require().NoError(err)
		s.Equal([]*pdfrag.IngestJob{running, stuck}, jobs)
	})

	s.Run("Filter by last updated", func() {
		jobs, err := s.adapter.ListJobs(ctx, pdfrag.JobFilter{
			Status:            pdfrag.JobStatusProcessing,
			LastUpdatedBefore: pdfrag.Time{T: now.Add(-time.Minute)},
		}, pdfrag.SortParams{})
		s.Require().NoError(err)
		s.Equal([]*pdfrag.IngestJob{stuck}, jobs)
	})

	s.Run("Sort and limit", func() {
		jobs, err := s.adapter.ListJobs(ctx, pdfrag.JobFilter{}, pdfrag.SortParams{
			By:    "created",
			Order: pdfrag.SortOrderAsc,
			Limit: 2,
		})
		s.Require().NoError(err)
		s.Equal([]*pdfrag.IngestJob{queued, stuck}, jobs)
	})

	s.Run("Invalid sort params", func() {
		_, err := s.adapter.ListJobs(ctx, pdfrag.JobFilter{}, pdfrag.SortParams{By: "location"})
		s.Require().ErrorIs(err, pdfrag.ErrInvalidSortParams)
	})
}

func (s *StoreTestSuite) TestTransactional_Rollback() {
	ctx, cancel := testContext()
	defer cancel()

	var (
		aJob    = gen.Job()
		errStop = errors.New("stop")
	)

	err := s.adapter.Transactional(ctx, &sql.TxOptions{}, func(ctx context.Context) error {
		if err := s.adapter.SaveJobs(ctx, aJob); err != nil {
			return err
		}
		// The job is visible inside the transaction.
		if _, err := s.adapter.FindJob(ctx, aJob.ID); err != nil {
			return err
		}
		return errStop
	})
	s.Require().ErrorIs(err, errStop)

	_, err = s.adapter.FindJob(ctx, aJob.ID)
	s.Require().ErrorIs(err, pdfrag.ErrNotFound)
}
