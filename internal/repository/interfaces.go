package repository

import (
	"context"

	"github.com/rpattn/crmdash/internal/domain"
)

// OrganizationRepository defines the interface for organization operations
type OrganizationRepository interface {
	Create(ctx context.Context, org domain.Organization) (domain.Organization, error)
	GetByID(ctx context.Context, id int64) (domain.Organization, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Organization, error)
	// FindByName returns the best case-insensitive substring match on name or registered name.
	FindByName(ctx context.Context, name string) (domain.Organization, error)
	List(ctx context.Context, filter domain.OrganizationFilter) ([]domain.Organization, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, org domain.Organization) (domain.Organization, error)
	Delete(ctx context.Context, id int64) error
}

// SubsidiaryRepository defines the interface for subsidiary operations
type SubsidiaryRepository interface {
	Create(ctx context.Context, sub domain.Subsidiary) (domain.Subsidiary, error)
	GetByID(ctx context.Context, id int64) (domain.Subsidiary, error)
	// FindByExactName returns the oldest subsidiary whose name equals name exactly.
	FindByExactName(ctx context.Context, name string) (domain.Subsidiary, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]domain.Subsidiary, error)
	ListWithCoordinates(ctx context.Context, customerID *int64) ([]domain.Subsidiary, error)
	Update(ctx context.Context, sub domain.Subsidiary) (domain.Subsidiary, error)
	Delete(ctx context.Context, id int64) error
}

// OpportunityRepository defines the interface for opportunity operations
type OpportunityRepository interface {
	Create(ctx context.Context, opp domain.Opportunity) (domain.Opportunity, error)
	GetByID(ctx context.Context, id int64) (domain.Opportunity, error)
	List(ctx context.Context, filter domain.OpportunityFilter) ([]domain.Opportunity, error)
	TotalsByStage(ctx context.Context) ([]domain.StageTotal, error)
	Delete(ctx context.Context, id int64) error
}

// DealRepository defines the interface for deal operations
type DealRepository interface {
	Create(ctx context.Context, deal domain.Deal) (domain.Deal, error)
	GetByID(ctx context.Context, id int64) (domain.Deal, error)
	List(ctx context.Context, filter domain.DealFilter) ([]domain.Deal, error)
	TotalsByMonth(ctx context.Context, months int) ([]domain.MonthTotal, error)
	Delete(ctx context.Context, id int64) error
}

// NewsRepository defines the interface for news operations
type NewsRepository interface {
	Create(ctx context.Context, item domain.NewsItem) (domain.NewsItem, error)
	GetByID(ctx context.Context, id int64) (domain.NewsItem, error)
	List(ctx context.Context, filter domain.NewsFilter) ([]domain.NewsItem, error)
	MarkRead(ctx context.Context, id int64) error
	CountUnread(ctx context.Context) (int64, error)
	// ReplaceForCustomer swaps a customer's news for items in one transaction.
	ReplaceForCustomer(ctx context.Context, customerID int64, items []domain.NewsItem) ([]domain.NewsItem, error)
}

// ProjectRepository defines the interface for project and recommendation operations
type ProjectRepository interface {
	Create(ctx context.Context, project domain.Project) (domain.Project, error)
	CreateRecommendation(ctx context.Context, rec domain.Recommendation) (domain.Recommendation, error)
	List(ctx context.Context, limit, offset int) ([]domain.Project, error)
	ListRecommendations(ctx context.Context, projectID string) ([]domain.Recommendation, error)
}

// ImportJobRepository persists import jobs and their single terminal outcome.
type ImportJobRepository interface {
	Create(ctx context.Context, job domain.ImportJob) (domain.ImportJob, error)
	GetByID(ctx context.Context, id int64) (domain.ImportJob, error)
	// Finish applies the terminal outcome. It returns ErrConflict if the job is already terminal.
	Finish(ctx context.Context, id int64, outcome domain.JobOutcome) (domain.ImportJob, error)
	List(ctx context.Context, filter domain.ImportJobFilter) ([]domain.ImportJob, error)
}

// AnalysisLogRepository persists AI analysis requests.
type AnalysisLogRepository interface {
	Create(ctx context.Context, log domain.AnalysisLog) (domain.AnalysisLog, error)
	UpdatePrompt(ctx context.Context, id int64, prompt string) error
	Complete(ctx context.Context, id int64, result string) (domain.AnalysisLog, error)
	Fail(ctx context.Context, id int64, message string) (domain.AnalysisLog, error)
	ListByEntity(ctx context.Context, entityType string, entityID int64) ([]domain.AnalysisLog, error)
}

// DashboardRepository computes aggregate figures across stores.
type DashboardRepository interface {
	Stats(ctx context.Context) (domain.DashboardStats, error)
}
