package ingestion

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/rpattn/crmdash/internal/domain"
	"github.com/rpattn/crmdash/internal/repository"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type idSeq struct{ next int64 }

func (s *idSeq) id() int64 {
	s.next++
	return s.next
}

type fakeOrgs struct {
	seq     *idSeq
	created []domain.Organization
	failOn  map[string]error
}

func (f *fakeOrgs) Create(_ context.Context, org domain.Organization) (domain.Organization, error) {
	if err := f.failOn[org.Name]; err != nil {
		return domain.Organization{}, err
	}
	org.ID = f.seq.id()
	f.created = append(f.created, org)
	return org, nil
}

func (f *fakeOrgs) FindByName(_ context.Context, name string) (domain.Organization, error) {
	needle := strings.ToLower(name)
	for _, org := range f.created {
		if strings.EqualFold(org.Name, name) {
			return org, nil
		}
	}
	for _, org := range f.created {
		if strings.Contains(strings.ToLower(org.Name), needle) || strings.Contains(strings.ToLower(org.RegisteredName), needle) {
			return org, nil
		}
	}
	return domain.Organization{}, fmt.Errorf("failed to find organization: %w", repository.ErrNotFound)
}

type fakeSubs struct {
	seq     *idSeq
	created []domain.Subsidiary
}

func (f *fakeSubs) Create(_ context.Context, sub domain.Subsidiary) (domain.Subsidiary, error) {
	sub.ID = f.seq.id()
	f.created = append(f.created, sub)
	return sub, nil
}

func (f *fakeSubs) FindByExactName(_ context.Context, name string) (domain.Subsidiary, error) {
	for _, sub := range f.created {
		if sub.Name == name {
			return sub, nil
		}
	}
	return domain.Subsidiary{}, fmt.Errorf("failed to find subsidiary: %w", repository.ErrNotFound)
}

type fakeOpps struct {
	seq     *idSeq
	created []domain.Opportunity
	failAt  int
	failErr error
}

func (f *fakeOpps) Create(_ context.Context, opp domain.Opportunity) (domain.Opportunity, error) {
	if f.failErr != nil && len(f.created)+1 >= f.failAt {
		return domain.Opportunity{}, f.failErr
	}
	opp.ID = f.seq.id()
	f.created = append(f.created, opp)
	return opp, nil
}

type fakeDeals struct {
	seq     *idSeq
	created []domain.Deal
}

func (f *fakeDeals) Create(_ context.Context, deal domain.Deal) (domain.Deal, error) {
	deal.ID = f.seq.id()
	f.created = append(f.created, deal)
	return deal, nil
}

type fakeNews struct {
	seq     *idSeq
	created []domain.NewsItem
}

func (f *fakeNews) Create(_ context.Context, item domain.NewsItem) (domain.NewsItem, error) {
	item.ID = f.seq.id()
	f.created = append(f.created, item)
	return item, nil
}

type fakeProjects struct {
	seq             *idSeq
	created         []domain.Project
	recommendations []domain.Recommendation
}

func (f *fakeProjects) Create(_ context.Context, project domain.Project) (domain.Project, error) {
	project.ID = f.seq.id()
	f.created = append(f.created, project)
	return project, nil
}

func (f *fakeProjects) CreateRecommendation(_ context.Context, rec domain.Recommendation) (domain.Recommendation, error) {
	rec.ID = f.seq.id()
	f.recommendations = append(f.recommendations, rec)
	return rec, nil
}

// fakeJobs enforces the same single terminal write as the database guard.
type fakeJobs struct {
	seq         *idSeq
	jobs        map[int64]domain.ImportJob
	finishCalls int
	failStatus  domain.ImportStatus
	failErr     error
}

func (f *fakeJobs) Create(_ context.Context, job domain.ImportJob) (domain.ImportJob, error) {
	job.ID = f.seq.id()
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeJobs) Finish(_ context.Context, id int64, outcome domain.JobOutcome) (domain.ImportJob, error) {
	f.finishCalls++
	if f.failErr != nil && outcome.Status == f.failStatus {
		return domain.ImportJob{}, f.failErr
	}
	job, ok := f.jobs[id]
	if !ok || job.Status.Terminal() {
		return domain.ImportJob{}, fmt.Errorf("failed to finish import job %d: %w", id, repository.ErrConflict)
	}
	job.Status = outcome.Status
	job.TotalRows = outcome.TotalRows
	job.SuccessRows = outcome.SuccessRows
	job.FailedRows = outcome.FailedRows
	job.ErrorLog = outcome.ErrorLog
	at := outcome.CompletedAt
	job.CompletedAt = &at
	f.jobs[id] = job
	return job, nil
}

func (f *fakeJobs) List(_ context.Context, filter domain.ImportJobFilter) ([]domain.ImportJob, error) {
	out := []domain.ImportJob{}
	for _, job := range f.jobs {
		if filter.Status == "" || job.Status == filter.Status {
			out = append(out, job)
		}
	}
	return out, nil
}

func (f *fakeJobs) only(t *testing.T) domain.ImportJob {
	t.Helper()
	require.Len(t, f.jobs, 1)
	for _, job := range f.jobs {
		return job
	}
	return domain.ImportJob{}
}

type fixture struct {
	orgs     *fakeOrgs
	subs     *fakeSubs
	opps     *fakeOpps
	deals    *fakeDeals
	news     *fakeNews
	projects *fakeProjects
	jobs     *fakeJobs
	service  *Service
}

func newFixture() *fixture {
	seq := &idSeq{}
	jobSeq := &idSeq{next: 1000}
	f := &fixture{
		orgs:     &fakeOrgs{seq: seq},
		subs:     &fakeSubs{seq: seq},
		opps:     &fakeOpps{seq: seq},
		deals:    &fakeDeals{seq: seq},
		news:     &fakeNews{seq: seq},
		projects: &fakeProjects{seq: seq},
		jobs:     &fakeJobs{seq: jobSeq, jobs: map[int64]domain.ImportJob{}},
	}
	f.service = NewService(Stores{
		Organizations: f.orgs,
		Subsidiaries:  f.subs,
		Opportunities: f.opps,
		Deals:         f.deals,
		News:          f.news,
		Projects:      f.projects,
		Jobs:          f.jobs,
	}, Limits{})
	return f
}

func (f *fixture) seedOrg(name string) domain.Organization {
	org, _ := f.orgs.Create(context.Background(), domain.NewOrganization(name))
	return org
}

func xlsxBytes(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &values))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func xlsxBase64(t *testing.T, rows ...[]any) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(xlsxBytes(t, rows...))
}
