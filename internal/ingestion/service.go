package ingestion

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rpattn/crmdash/internal/domain"
	"github.com/rpattn/crmdash/internal/repository"

	"github.com/rs/zerolog"
)

// OrganizationStore is the customer store as seen by the import.
type OrganizationStore interface {
	OrganizationFinder
	Create(ctx context.Context, org domain.Organization) (domain.Organization, error)
}

// SubsidiaryStore is the subsidiary store as seen by the import.
type SubsidiaryStore interface {
	SubsidiaryFinder
	Create(ctx context.Context, sub domain.Subsidiary) (domain.Subsidiary, error)
}

// OpportunityStore persists imported opportunities.
type OpportunityStore interface {
	Create(ctx context.Context, opp domain.Opportunity) (domain.Opportunity, error)
}

// DealStore persists imported deals.
type DealStore interface {
	Create(ctx context.Context, deal domain.Deal) (domain.Deal, error)
}

// NewsStore persists imported news items.
type NewsStore interface {
	Create(ctx context.Context, item domain.NewsItem) (domain.NewsItem, error)
}

// ProjectStore persists imported projects and their recommendations.
type ProjectStore interface {
	Create(ctx context.Context, project domain.Project) (domain.Project, error)
	CreateRecommendation(ctx context.Context, rec domain.Recommendation) (domain.Recommendation, error)
}

// JobStore records import jobs.
type JobStore interface {
	Create(ctx context.Context, job domain.ImportJob) (domain.ImportJob, error)
	Finish(ctx context.Context, id int64, outcome domain.JobOutcome) (domain.ImportJob, error)
}

// Stores groups the collaborators an import writes to.
type Stores struct {
	Organizations OrganizationStore
	Subsidiaries  SubsidiaryStore
	Opportunities OpportunityStore
	Deals         DealStore
	News          NewsStore
	Projects      ProjectStore
	Jobs          JobStore
}

// Limits bound a single upload. Zero disables a limit.
type Limits struct {
	MaxBytes int
	MaxRows  int
}

// Service runs spreadsheet imports.
type Service struct {
	stores Stores
	limits Limits
	now    func() time.Time
}

// NewService creates a new import service.
func NewService(stores Stores, limits Limits) *Service {
	return &Service{
		stores: stores,
		limits: limits,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Request describes one upload.
type Request struct {
	DataType   domain.DataType
	FileName   string
	FileBase64 string
	Actor      domain.Actor
}

// Result summarizes an import whose row loop ran to the end.
type Result struct {
	Success      bool     `json:"success"`
	JobID        int64    `json:"jobId"`
	TotalRows    int      `json:"totalRows"`
	SuccessCount int      `json:"successCount"`
	FailedCount  int      `json:"failedCount"`
	Errors       []string `json:"errors"`
}

// RowResult is the outcome of one row. Err is a row-level failure; it never stops the batch.
type RowResult struct {
	Row int
	ID  int64
	Err error
}

// OK reports whether the row was committed.
func (r RowResult) OK() bool {
	return r.Err == nil
}

// Message formats the row failure for the job log.
func (r RowResult) Message() string {
	return fmt.Sprintf("Row %d: %s", r.Row, r.Err)
}

type tally struct {
	total   int
	success int
	failed  int
	errors  []string
}

func (t *tally) add(res RowResult) {
	if res.OK() {
		t.success++
		return
	}
	t.failed++
	t.errors = append(t.errors, res.Message())
}

// isBatchFatal separates job-level errors from row-level ones.
func isBatchFatal(err error) bool {
	var decode *DecodeFailure
	return errors.As(err, &decode) ||
		errors.Is(err, repository.ErrUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func defaultFileName(dataType domain.DataType, now time.Time) string {
	return fmt.Sprintf("Import_%s_%s.xlsx", dataType, now.Format("2006-01-02"))
}

func fileType(fileName string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if ext == "" {
		return "xlsx"
	}
	return ext
}

// Import records a job, commits each row independently and writes the job's terminal state
// exactly once. A job-level failure is returned as an error after the job is marked failed.
func (s *Service) Import(ctx context.Context, req Request) (Result, error) {
	dataType, err := domain.ParseDataType(string(req.DataType))
	if err != nil {
		return Result{}, err
	}
	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		fileName = defaultFileName(dataType, s.now())
	}

	// The run outlives the caller: a dropped connection must not leave half a batch unaccounted.
	ctx = context.WithoutCancel(ctx)

	job, err := s.stores.Jobs.Create(ctx, domain.NewImportJob(dataType, fileName, fileType(fileName), req.Actor))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create import job: %w", err)
	}

	logger := zerolog.Ctx(ctx).With().
		Int64("import_job_id", job.ID).
		Str("data_type", string(dataType)).
		Str("file_name", fileName).
		Logger()
	ctx = logger.WithContext(ctx)
	logger.Info().Msg("import started")

	counts, runErr := s.run(ctx, dataType, fileName, req)
	if runErr != nil {
		outcome := domain.FailedOutcome(runErr, counts.total, counts.success, counts.failed, s.now())
		if _, err := s.stores.Jobs.Finish(ctx, job.ID, outcome); err != nil {
			logger.Error().Err(err).Msg("failed to mark import job failed")
		}
		logger.Error().Err(runErr).Msg("import failed")
		return Result{}, fmt.Errorf("import %d failed: %w", job.ID, runErr)
	}

	outcome := domain.CompletedOutcome(counts.total, counts.success, counts.failed, counts.errors, s.now())
	if _, err := s.stores.Jobs.Finish(ctx, job.ID, outcome); err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			fallback := domain.FailedOutcome(err, counts.total, counts.success, counts.failed, s.now())
			if _, ferr := s.stores.Jobs.Finish(ctx, job.ID, fallback); ferr != nil {
				logger.Error().Err(ferr).Msg("failed to mark import job failed")
			}
		}
		return Result{}, fmt.Errorf("failed to complete import job %d: %w", job.ID, err)
	}

	logger.Info().
		Int("total_rows", counts.total).
		Int("success_rows", counts.success).
		Int("failed_rows", counts.failed).
		Msg("import completed")

	return Result{
		Success:      true,
		JobID:        job.ID,
		TotalRows:    counts.total,
		SuccessCount: counts.success,
		FailedCount:  counts.failed,
		Errors:       nonNil(counts.errors),
	}, nil
}

func (s *Service) run(ctx context.Context, dataType domain.DataType, fileName string, req Request) (tally, error) {
	decoded := DecodeBase64(req.FileBase64, DecodeOptions{
		FileName: fileName,
		MaxBytes: s.limits.MaxBytes,
		MaxRows:  s.limits.MaxRows,
	})
	if decoded.Failure != nil {
		return tally{}, decoded.Failure
	}
	table := decoded.Table

	c := &committer{
		stores:   s.stores,
		resolver: NewResolver(s.stores.Organizations, s.stores.Subsidiaries),
	}
	counts := tally{total: table.TotalRows}
	logger := zerolog.Ctx(ctx)

	for i, raw := range table.Rows {
		if err := ctx.Err(); err != nil {
			return counts, err
		}
		res := s.processRow(ctx, c, dataType, req.Actor, i+1, NewRecord(dataType, table.Headers, raw))
		if res.Err != nil && isBatchFatal(res.Err) {
			return counts, res.Err
		}
		if !res.OK() {
			logger.Debug().Int("row", res.Row).Err(res.Err).Msg("row rejected")
		}
		counts.add(res)
	}
	return counts, nil
}

func (s *Service) processRow(ctx context.Context, c *committer, dataType domain.DataType, actor domain.Actor, row int, rec Record) RowResult {
	plan, err := buildRow(dataType, rec, actor, s.now())
	if err != nil {
		return RowResult{Row: row, Err: err}
	}
	id, err := plan.commit(ctx, c)
	if err != nil {
		return RowResult{Row: row, Err: err}
	}
	return RowResult{Row: row, ID: id}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
