package commands

import (
	"context"
	"fmt"

	"github.com/rpattn/crmdash/internal/config"
	"github.com/rpattn/crmdash/internal/db"
	"github.com/rpattn/crmdash/internal/ingestion"
	"github.com/rpattn/crmdash/internal/logger"
	"github.com/rpattn/crmdash/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type Globals struct {
	Debug     bool
	ConfigDir string
	Version   string
}

// setup loads configuration and returns a context carrying the process logger.
func (g *Globals) setup(ctx context.Context) (context.Context, config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(g.ConfigDir)
	if err != nil {
		return ctx, config.Config{}, zerolog.Nop(), err
	}
	log := logger.Setup(g.Debug || cfg.Log.Debug)
	return log.WithContext(ctx), cfg, log, nil
}

type repositories struct {
	orgs      repository.OrganizationRepository
	subs      repository.SubsidiaryRepository
	opps      repository.OpportunityRepository
	deals     repository.DealRepository
	news      repository.NewsRepository
	projects  repository.ProjectRepository
	jobs      repository.ImportJobRepository
	analysis  repository.AnalysisLogRepository
	dashboard repository.DashboardRepository
}

func newRepositories(pool *pgxpool.Pool) repositories {
	return repositories{
		orgs:      repository.NewOrganizationRepository(pool),
		subs:      repository.NewSubsidiaryRepository(pool),
		opps:      repository.NewOpportunityRepository(pool),
		deals:     repository.NewDealRepository(pool),
		news:      repository.NewNewsRepository(pool),
		projects:  repository.NewProjectRepository(pool),
		jobs:      repository.NewImportJobRepository(pool),
		analysis:  repository.NewAnalysisLogRepository(pool),
		dashboard: repository.NewDashboardRepository(pool),
	}
}

func (r repositories) importer(limits ingestion.Limits) *ingestion.Service {
	return ingestion.NewService(ingestion.Stores{
		Organizations: r.orgs,
		Subsidiaries:  r.subs,
		Opportunities: r.opps,
		Deals:         r.deals,
		News:          r.news,
		Projects:      r.projects,
		Jobs:          r.jobs,
	}, limits)
}

// connect opens the pool, applying migrations first so a fresh database is usable.
func connect(ctx context.Context, cfg db.Config) (*db.Connection, error) {
	if err := db.RunMigrations(cfg); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db.NewConnection(ctx, cfg)
}
