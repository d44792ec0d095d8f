//go:build integration

package repository_test

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/rpattn/crmdash/internal/db"
	"github.com/rpattn/crmdash/internal/domain"
	"github.com/rpattn/crmdash/internal/ingestion"
	"github.com/rpattn/crmdash/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T, ctx context.Context) *db.Connection {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "crmdash",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := db.Config{
		Host:     host,
		Port:     port.Int(),
		User:     "test",
		Password: "test",
		DBName:   "crmdash",
		SSLMode:  "disable",
	}
	require.NoError(t, db.RunMigrations(cfg))

	conn, err := db.NewConnection(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(conn.Close)
	return conn
}

func TestPostgresStores(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()
	conn := setupPostgres(t, ctx)

	orgs := repository.NewOrganizationRepository(conn.Pool)
	subs := repository.NewSubsidiaryRepository(conn.Pool)
	opps := repository.NewOpportunityRepository(conn.Pool)
	deals := repository.NewDealRepository(conn.Pool)
	news := repository.NewNewsRepository(conn.Pool)
	projects := repository.NewProjectRepository(conn.Pool)
	jobs := repository.NewImportJobRepository(conn.Pool)

	t.Run("import job finishes once", func(t *testing.T) {
		job, err := jobs.Create(ctx, domain.NewImportJob(domain.DataTypeCustomer, "a.xlsx", "xlsx", domain.Actor{ID: 3, Name: "Ann"}))
		require.NoError(t, err)
		assert.Equal(t, domain.ImportStatusPending, job.Status)

		done, err := jobs.Finish(ctx, job.ID, domain.CompletedOutcome(2, 1, 1, []string{"Row 3: bad"}, time.Now().UTC()))
		require.NoError(t, err)
		assert.Equal(t, domain.ImportStatusCompleted, done.Status)
		assert.Equal(t, []string{"Row 3: bad"}, done.ErrorLog)
		require.NotNil(t, done.CompletedAt)

		_, err = jobs.Finish(ctx, job.ID, domain.FailedOutcome(errors.New("late"), 0, 0, 0, time.Now().UTC()))
		require.ErrorIs(t, err, repository.ErrConflict)

		_, err = jobs.Finish(ctx, 987654, domain.FailedOutcome(errors.New("x"), 0, 0, 0, time.Now().UTC()))
		require.Error(t, err)
	})

	t.Run("name lookups", func(t *testing.T) {
		_, err := orgs.Create(ctx, domain.NewOrganization("Umbrella Corporation"))
		require.NoError(t, err)

		found, err := orgs.FindByName(ctx, "umbrella")
		require.NoError(t, err)
		assert.Equal(t, "Umbrella Corporation", found.Name)

		_, err = orgs.FindByName(ctx, "100%_match")
		require.ErrorIs(t, err, repository.ErrNotFound)

		_, err = subs.FindByExactName(ctx, "nothing here")
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("csv import end to end", func(t *testing.T) {
		svc := ingestion.NewService(ingestion.Stores{
			Organizations: orgs,
			Subsidiaries:  subs,
			Opportunities: opps,
			Deals:         deals,
			News:          news,
			Projects:      projects,
			Jobs:          jobs,
		}, ingestion.Limits{MaxBytes: 1 << 20, MaxRows: 100})

		encode := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

		res, err := svc.Import(ctx, ingestion.Request{
			DataType:   domain.DataTypeCustomer,
			FileName:   "orgs.csv",
			FileBase64: encode("Company Name,Industry\nStark Industries,Defense\n"),
			Actor:      domain.Actor{ID: 1, Name: "cli"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, res.SuccessCount)

		res, err = svc.Import(ctx, ingestion.Request{
			DataType:   domain.DataTypeSubsidiary,
			FileName:   "subs.csv",
			FileBase64: encode("name,parent company,latitude,longitude\nStark EU,Stark Industries,52.5,13.4\nStark Berlin,Stark EU,52.52,13.40\nLost,Nobody,,\n"),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, res.SuccessCount)
		assert.Equal(t, []string{"Row 3: Parent company not found: Nobody"}, res.Errors)

		berlin, err := subs.FindByExactName(ctx, "Stark Berlin")
		require.NoError(t, err)
		eu, err := subs.FindByExactName(ctx, "Stark EU")
		require.NoError(t, err)
		require.NotNil(t, berlin.ParentSubsidiaryID)
		assert.Equal(t, eu.ID, *berlin.ParentSubsidiaryID)
		assert.Equal(t, eu.CustomerID, berlin.CustomerID)

		res, err = svc.Import(ctx, ingestion.Request{
			DataType:   domain.DataTypeDeal,
			FileName:   "deals.csv",
			FileBase64: encode("deal name,customer,amount\nArmor,Stark,\"1,000.50\"\n"),
		})
		require.NoError(t, err)
		require.Equal(t, 1, res.SuccessCount, res.Errors)

		list, err := deals.List(ctx, domain.DealFilter{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, int64(100050), list[0].Amount)

		job, err := jobs.GetByID(ctx, res.JobID)
		require.NoError(t, err)
		assert.Equal(t, domain.ImportStatusCompleted, job.Status)
		assert.Equal(t, 1, job.SuccessRows)
	})

	t.Run("news replacement", func(t *testing.T) {
		org, err := orgs.Create(ctx, domain.NewOrganization("Wayne Enterprises"))
		require.NoError(t, err)
		_, err = news.Create(ctx, domain.NewNewsItem(org.ID, "old"))
		require.NoError(t, err)

		saved, err := news.ReplaceForCustomer(ctx, org.ID, []domain.NewsItem{
			domain.NewNewsItem(0, "fresh one"),
			domain.NewNewsItem(0, "fresh two"),
		})
		require.NoError(t, err)
		require.Len(t, saved, 2)

		items, err := news.List(ctx, domain.NewsFilter{CustomerID: &org.ID})
		require.NoError(t, err)
		require.Len(t, items, 2)
		for _, it := range items {
			assert.NotEqual(t, "old", it.Title)
		}
	})
}
