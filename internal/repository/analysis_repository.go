package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/crmdash/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const analysisLogColumns = `id, entity_type, entity_id, analysis_type, prompt, COALESCE(result, ''), status,
	COALESCE(error_message, ''), requested_by, created_at, completed_at`

type analysisLogRepository struct {
	pool *pgxpool.Pool
}

// NewAnalysisLogRepository wires a repository backed by pgxpool.
func NewAnalysisLogRepository(pool *pgxpool.Pool) AnalysisLogRepository {
	return &analysisLogRepository{pool: pool}
}

func scanAnalysisLog(row pgx.Row) (domain.AnalysisLog, error) {
	var (
		log          domain.AnalysisLog
		analysisType string
		completedAt  pgtype.Timestamptz
	)
	err := row.Scan(
		&log.ID, &log.EntityType, &log.EntityID, &analysisType, &log.Prompt, &log.Result, &log.Status,
		&log.ErrorMessage, &log.RequestedBy, &log.CreatedAt, &completedAt,
	)
	if err != nil {
		return domain.AnalysisLog{}, err
	}
	log.AnalysisType = domain.AnalysisType(analysisType)
	log.CompletedAt = timeValue(completedAt)
	return log, nil
}

func (r *analysisLogRepository) Create(ctx context.Context, log domain.AnalysisLog) (domain.AnalysisLog, error) {
	status := log.Status
	if status == "" {
		status = domain.AnalysisStatusProcessing
	}
	created, err := scanAnalysisLog(r.pool.QueryRow(ctx,
		`INSERT INTO ai_analysis_logs (entity_type, entity_id, analysis_type, prompt, status, requested_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+analysisLogColumns,
		log.EntityType, log.EntityID, string(log.AnalysisType), log.Prompt, status, log.RequestedBy,
	))
	if err != nil {
		return domain.AnalysisLog{}, wrap("create analysis log", err)
	}
	return created, nil
}

func (r *analysisLogRepository) UpdatePrompt(ctx context.Context, id int64, prompt string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE ai_analysis_logs SET prompt = $2 WHERE id = $1`, id, prompt)
	if err != nil {
		return wrap("update analysis prompt", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update analysis log %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *analysisLogRepository) Complete(ctx context.Context, id int64, result string) (domain.AnalysisLog, error) {
	log, err := scanAnalysisLog(r.pool.QueryRow(ctx,
		`UPDATE ai_analysis_logs SET status = 'completed', result = $2, completed_at = NOW()
		 WHERE id = $1
		 RETURNING `+analysisLogColumns,
		id, result,
	))
	if err != nil {
		return domain.AnalysisLog{}, wrap("complete analysis log", err)
	}
	return log, nil
}

func (r *analysisLogRepository) Fail(ctx context.Context, id int64, message string) (domain.AnalysisLog, error) {
	log, err := scanAnalysisLog(r.pool.QueryRow(ctx,
		`UPDATE ai_analysis_logs SET status = 'failed', error_message = $2, completed_at = NOW()
		 WHERE id = $1
		 RETURNING `+analysisLogColumns,
		id, message,
	))
	if err != nil {
		return domain.AnalysisLog{}, wrap("fail analysis log", err)
	}
	return log, nil
}

func (r *analysisLogRepository) ListByEntity(ctx context.Context, entityType string, entityID int64) ([]domain.AnalysisLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+analysisLogColumns+`
		 FROM ai_analysis_logs
		 WHERE entity_type = $1 AND entity_id = $2
		 ORDER BY created_at DESC, id DESC
		 LIMIT 100`,
		entityType, entityID,
	)
	if err != nil {
		return nil, wrap("list analysis logs", err)
	}
	defer rows.Close()

	logs := []domain.AnalysisLog{}
	for rows.Next() {
		log, err := scanAnalysisLog(rows)
		if err != nil {
			return nil, wrap("scan analysis log", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate analysis logs", err)
	}
	return logs, nil
}

type dashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository wires a repository backed by pgxpool.
func NewDashboardRepository(pool *pgxpool.Pool) DashboardRepository {
	return &dashboardRepository{pool: pool}
}

func (r *dashboardRepository) Stats(ctx context.Context) (domain.DashboardStats, error) {
	var stats domain.DashboardStats
	err := r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM subsidiaries),
			(SELECT COUNT(*) FROM opportunities WHERE status = 'active'),
			(SELECT COALESCE(SUM(amount), 0)::BIGINT FROM opportunities WHERE status = 'active'),
			(SELECT COUNT(*) FROM deals),
			(SELECT COALESCE(SUM(amount), 0)::BIGINT FROM deals),
			(SELECT COUNT(*) FROM news_items WHERE NOT is_read)`,
	).Scan(
		&stats.CustomerCount, &stats.SubsidiaryCount, &stats.ActiveOpportunityCount,
		&stats.ActiveOpportunityAmount, &stats.DealCount, &stats.DealAmount, &stats.UnreadNewsCount,
	)
	if err != nil {
		return domain.DashboardStats{}, wrap("compute dashboard stats", err)
	}
	return stats, nil
}
