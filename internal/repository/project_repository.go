package repository

import (
	"context"
	"strings"

	"github.com/rpattn/crmdash/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type projectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository wires a repository backed by pgxpool.
func NewProjectRepository(pool *pgxpool.Pool) ProjectRepository {
	return &projectRepository{pool: pool}
}

const projectColumns = `id, COALESCE(original_id, ''), name, investment, COALESCE(country, ''), COALESCE(sector, ''),
	COALESCE(stage, ''), COALESCE(contractor, ''), start_date, COALESCE(summary, ''), created_at`

func (r *projectRepository) Create(ctx context.Context, project domain.Project) (domain.Project, error) {
	var (
		created domain.Project
		start   pgtype.Date
	)
	err := r.pool.QueryRow(ctx,
		`INSERT INTO projects (original_id, name, investment, country, sector, stage, contractor, start_date, summary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+projectColumns,
		nullText(project.OriginalID), strings.TrimSpace(project.Name), project.Investment, nullText(project.Country),
		nullText(project.Sector), nullText(project.Stage), nullText(project.Contractor), nullDate(project.StartDate),
		nullText(project.Summary),
	).Scan(
		&created.ID, &created.OriginalID, &created.Name, &created.Investment, &created.Country, &created.Sector,
		&created.Stage, &created.Contractor, &start, &created.Summary, &created.CreatedAt,
	)
	if err != nil {
		return domain.Project{}, wrap("create project", err)
	}
	created.StartDate = dateValue(start)
	return created, nil
}

func (r *projectRepository) CreateRecommendation(ctx context.Context, rec domain.Recommendation) (domain.Recommendation, error) {
	var created domain.Recommendation
	err := r.pool.QueryRow(ctx,
		`INSERT INTO ai_recommendations (project_id, product_name, rank, confidence, ai_score)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, project_id, product_name, rank, COALESCE(confidence, ''), ai_score, created_at`,
		strings.TrimSpace(rec.ProjectID), strings.TrimSpace(rec.ProductName), rec.Rank, nullText(rec.Confidence), rec.AIScore,
	).Scan(
		&created.ID, &created.ProjectID, &created.ProductName, &created.Rank, &created.Confidence,
		&created.AIScore, &created.CreatedAt,
	)
	if err != nil {
		return domain.Recommendation{}, wrap("create recommendation", err)
	}
	return created, nil
}

func (r *projectRepository) List(ctx context.Context, limit, offset int) ([]domain.Project, error) {
	limit, offset = clampLimit(limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY id DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, wrap("list projects", err)
	}
	defer rows.Close()

	projects := []domain.Project{}
	for rows.Next() {
		var (
			p     domain.Project
			start pgtype.Date
		)
		if err := rows.Scan(
			&p.ID, &p.OriginalID, &p.Name, &p.Investment, &p.Country, &p.Sector,
			&p.Stage, &p.Contractor, &start, &p.Summary, &p.CreatedAt,
		); err != nil {
			return nil, wrap("scan project", err)
		}
		p.StartDate = dateValue(start)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate projects", err)
	}
	return projects, nil
}

func (r *projectRepository) ListRecommendations(ctx context.Context, projectID string) ([]domain.Recommendation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, product_name, rank, COALESCE(confidence, ''), ai_score, created_at
		 FROM ai_recommendations
		 WHERE project_id = $1
		 ORDER BY rank NULLS LAST, id`,
		strings.TrimSpace(projectID),
	)
	if err != nil {
		return nil, wrap("list recommendations", err)
	}
	defer rows.Close()

	recs := []domain.Recommendation{}
	for rows.Next() {
		var rec domain.Recommendation
		if err := rows.Scan(&rec.ID, &rec.ProjectID, &rec.ProductName, &rec.Rank, &rec.Confidence, &rec.AIScore, &rec.CreatedAt); err != nil {
			return nil, wrap("scan recommendation", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate recommendations", err)
	}
	return recs, nil
}
