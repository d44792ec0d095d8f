package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpattn/crmdash/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const importJobColumns = `id, file_name, file_type, data_type, status, total_rows, success_rows, failed_rows,
	error_log, imported_by, COALESCE(imported_by_name, ''), started_at, completed_at, created_at`

type importJobRepository struct {
	pool *pgxpool.Pool
}

// NewImportJobRepository wires a repository backed by pgxpool.
func NewImportJobRepository(pool *pgxpool.Pool) ImportJobRepository {
	return &importJobRepository{pool: pool}
}

func scanImportJob(row pgx.Row) (domain.ImportJob, error) {
	var (
		job         domain.ImportJob
		dataType    string
		status      string
		completedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&job.ID, &job.FileName, &job.FileType, &dataType, &status, &job.TotalRows, &job.SuccessRows,
		&job.FailedRows, &job.ErrorLog, &job.ImportedBy, &job.ImportedByName, &job.StartedAt,
		&completedAt, &job.CreatedAt,
	)
	if err != nil {
		return domain.ImportJob{}, err
	}
	job.DataType = domain.DataType(dataType)
	job.Status = domain.ImportStatus(status)
	job.CompletedAt = timeValue(completedAt)
	if job.ErrorLog == nil {
		job.ErrorLog = []string{}
	}
	return job, nil
}

func (r *importJobRepository) Create(ctx context.Context, job domain.ImportJob) (domain.ImportJob, error) {
	if r.pool == nil {
		return domain.ImportJob{}, fmt.Errorf("import job repository not initialized")
	}

	status := job.Status
	if status == "" {
		status = domain.ImportStatusPending
	}
	errorLog := job.ErrorLog
	if errorLog == nil {
		errorLog = []string{}
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO data_imports (file_name, file_type, data_type, status, total_rows, error_log,
			imported_by, imported_by_name, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+importJobColumns,
		job.FileName, job.FileType, string(job.DataType), string(status), job.TotalRows, errorLog,
		job.ImportedBy, nullText(job.ImportedByName), job.StartedAt,
	)
	created, err := scanImportJob(row)
	if err != nil {
		return domain.ImportJob{}, wrap("create import job", err)
	}
	return created, nil
}

func (r *importJobRepository) GetByID(ctx context.Context, id int64) (domain.ImportJob, error) {
	job, err := scanImportJob(r.pool.QueryRow(ctx, `SELECT `+importJobColumns+` FROM data_imports WHERE id = $1`, id))
	if err != nil {
		return domain.ImportJob{}, wrap("get import job", err)
	}
	return job, nil
}

// Finish writes the terminal outcome. The status guard makes the terminal write happen at most once.
func (r *importJobRepository) Finish(ctx context.Context, id int64, outcome domain.JobOutcome) (domain.ImportJob, error) {
	if !outcome.Status.Terminal() {
		return domain.ImportJob{}, fmt.Errorf("failed to finish import job %d: %w: %s is not terminal", id, ErrConflict, outcome.Status)
	}
	errorLog := outcome.ErrorLog
	if errorLog == nil {
		errorLog = []string{}
	}

	row := r.pool.QueryRow(ctx,
		`UPDATE data_imports
		 SET status = $2,
		     total_rows = $3,
		     success_rows = $4,
		     failed_rows = $5,
		     error_log = $6,
		     completed_at = $7,
		     updated_at = NOW()
		 WHERE id = $1 AND status IN ('pending', 'processing')
		 RETURNING `+importJobColumns,
		id, string(outcome.Status), outcome.TotalRows, outcome.SuccessRows, outcome.FailedRows, errorLog, outcome.CompletedAt,
	)
	job, err := scanImportJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ImportJob{}, fmt.Errorf("failed to finish import job %d: %w: job missing or already terminal", id, ErrConflict)
	}
	if err != nil {
		return domain.ImportJob{}, wrap("finish import job", err)
	}
	return job, nil
}

func (r *importJobRepository) List(ctx context.Context, filter domain.ImportJobFilter) ([]domain.ImportJob, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("import job repository not initialized")
	}
	limit, offset := clampLimit(filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx,
		`SELECT `+importJobColumns+`
		 FROM data_imports
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		string(filter.Status), limit, offset,
	)
	if err != nil {
		return nil, wrap("list import jobs", err)
	}
	defer rows.Close()

	jobs := []domain.ImportJob{}
	for rows.Next() {
		job, err := scanImportJob(rows)
		if err != nil {
			return nil, wrap("scan import job", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate import jobs", err)
	}
	return jobs, nil
}
