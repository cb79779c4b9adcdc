package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/RichardKnop/pdfrag"
)

func (a *Adapter) SaveJobs(ctx context.Context, jobs ...*pdfrag.IngestJob) error {
	if len(jobs) < 1 {
		return nil
	}

	return a.inTxDo(ctx, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if err := a.execQueryCheckRowsAffected(ctx, tx, insertJobsQuery{jobs: jobs}); err != nil {
			return fmt.Errorf("exec insert jobs query failed: %w", err)
		}
		return nil
	})
}

type insertJobsQuery struct {
	jobs []*pdfrag.IngestJob
}

func (q insertJobsQuery) SQL() (string, []any) {
	if len(q.jobs) == 0 {
		return "", nil
	}

	query := `
		insert into "ingest_job" (
			"id",
			"file_name",
			"content_type",
			"file_size",
			"file_hash",
			"location",
			"status",
			"status_message",
			"attempts",
			"chunks",
			"created",
			"updated"
		)
		values `
	args := make([]any, 0, len(q.jobs)*12)
	for i, aJob := range q.jobs {
		if i > 0 {
			query += `, `
		}
		query += `(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		args = append(
			args,
			aJob.ID,
			aJob.FileName,
			aJob.ContentType,
			aJob.Size,
			aJob.Hash,
			aJob.Location,
			aJob.Status,
			sql.NullString{String: aJob.StatusMessage, Valid: aJob.StatusMessage != ""},
			aJob.Attempts,
			aJob.Chunks,
			aJob.Created,
			aJob.Updated,
		)
	}
	query += `
		on conflict("id") do update set
			"file_name"=excluded."file_name",
			"content_type"=excluded."content_type",
			"file_size"=excluded."file_size",
			"file_hash"=excluded."file_hash",
			"location"=excluded."location",
			"status"=excluded."status",
			"status_message"=excluded."status_message",
			"attempts"=excluded."attempts",
			"chunks"=excluded."chunks",
			"updated"=excluded."updated"
	`

	return query, args
}

const selectJobColumns = `
		select
			j."id",
			j."file_name",
			j."content_type",
			j."file_size",
			j."file_hash",
			j."location",
			j."status",
			j."status_message",
			j."attempts",
			j."chunks",
			j."created",
			j."updated"
		from "ingest_job" j
`

func (a *Adapter) FindJob(ctx context.Context, id pdfrag.JobID) (*pdfrag.IngestJob, error) {
	var aJob *pdfrag.IngestJob
	if err := a.inTxDo(ctx, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		query, args := findJobQuery{id: id}.SQL()

		stmt, err := tx.PrepareContext(ctx, a.rebind(query))
		if err != nil {
			return fmt.Errorf("prepare find job statement failed: %w", err)
		}
		defer stmt.Close()

		aJob, err = scanJob(stmt.QueryRowContext(ctx, args...))
		return err
	}); err != nil {
		return nil, err
	}

	return aJob, nil
}

type findJobQuery struct {
	id pdfrag.JobID
}

func (q findJobQuery) SQL() (string, []any) {
	return selectJobColumns + ` where j."id" = ?`, []any{q.id}
}

var sortableBy = []string{"created", "updated", "file_name", "status"}

func (a *Adapter) ListJobs(ctx context.Context, filter pdfrag.JobFilter, params pdfrag.SortParams) ([]*pdfrag.IngestJob, error) {
	if !params.Valid(sortableBy) {
		return nil, fmt.Errorf("%w: %+v", pdfrag.ErrInvalidSortParams, params)
	}

	var jobs []*pdfrag.IngestJob
	if err := a.inTxDo(ctx, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		query, args := selectJobsQuery{
			filter: filter,
			params: params,
		}.SQL()

		rows, err := tx.QueryContext(ctx, a.rebind(query), args...)
		if err != nil {
			return fmt.Errorf("select jobs query failed: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			aJob, err := scanJob(rows)
			if err != nil {
				return err
			}
			jobs = append(jobs, aJob)
		}

		return rows.Err()
	}); err != nil {
		return nil, err
	}

	return jobs, nil
}

type selectJobsQuery struct {
	filter pdfrag.JobFilter
	params pdfrag.SortParams
}

func (q selectJobsQuery) SQL() (string, []any) {
	query := selectJobColumns

	where, args := jobFilterClauses(q.filter)
	if where != "" {
		query += " where " + where
	}

	params := q.params
	if params.By == "" {
		params.By = "created"
		params.Order = pdfrag.SortOrderDesc
	}
	// Break ties on the primary key so paging is stable.
	query += params.SQL()
	if params.Limit > 0 {
		query = strings.Replace(query, " limit ", `, j."id" limit `, 1)
	} else {
		query += `, j."id"`
	}

	return query, args
}

func jobFilterClauses(filter pdfrag.JobFilter) (string, []any) {
	var (
		clauses = []string{}
		args    = []any{}
	)

	if filter.Status != "" {
		clauses = append(clauses, `j."status" = ?`)
		args = append(args, filter.Status)
	}

	if !filter.LastUpdatedBefore.IsZero() {
		clauses = append(clauses, `j."updated" < ?`)
		args = append(args, filter.LastUpdatedBefore)
	}

	if len(clauses) == 0 {
		return "", nil
	}

	return strings.Join(clauses, " and "), args
}

func scanJob(row Scannable) (*pdfrag.IngestJob, error) {
	var (
		aJob          = new(pdfrag.IngestJob)
		statusMessage = sql.NullString{}
	)

	if err := row.Scan(
		&aJob.ID,
		&aJob.FileName,
		&aJob.ContentType,
		&aJob.Size,
		&aJob.Hash,
		&aJob.Location,
		&aJob.Status,
		&statusMessage,
		&aJob.Attempts,
		&aJob.Chunks,
		&aJob.Created,
		&aJob.Updated,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pdfrag.ErrNotFound
		}
		return nil, fmt.Errorf("scan job failed: %w", err)
	}

	if statusMessage.Valid {
		aJob.StatusMessage = statusMessage.String
	}

	return aJob, nil
}
