package ingestion

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rpattn/crmdash/internal/domain"
	"github.com/rpattn/crmdash/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testActor = domain.Actor{ID: 9, Name: "Importer"}

func TestImportCustomersCountsMissingNameAsRowFailure(t *testing.T) {
	f := newFixture()

	result, err := f.service.Import(context.Background(), Request{
		DataType: domain.DataTypeCustomer,
		FileName: "customers.xlsx",
		FileBase64: xlsxBase64(t,
			[]any{"Company Name", "Industry"},
			[]any{"Acme Corp", "Tech"},
			[]any{"", "Retail"},
			[]any{"Beta LLC", ""},
		),
		Actor: testActor,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "Row 2: "), result.Errors[0])

	require.Len(t, f.orgs.created, 2)
	assert.Equal(t, "Acme Corp", f.orgs.created[0].Name)
	assert.Equal(t, "Tech", f.orgs.created[0].Industry)
	assert.Equal(t, "", f.orgs.created[1].Industry)
	assert.Equal(t, domain.DefaultOperatingStatus, f.orgs.created[1].OperatingStatus)
	require.NotNil(t, f.orgs.created[0].CreatedBy)
	assert.Equal(t, testActor.ID, *f.orgs.created[0].CreatedBy)

	job := f.jobs.only(t)
	assert.Equal(t, domain.ImportStatusCompleted, job.Status)
	assert.Equal(t, 3, job.TotalRows)
	assert.Equal(t, 2, job.SuccessRows)
	assert.Equal(t, 1, job.FailedRows)
	assert.Equal(t, result.Errors, job.ErrorLog)
	assert.Equal(t, "xlsx", job.FileType)
	assert.Equal(t, 1, f.jobs.finishCalls)
}

func TestImportSubsidiariesBuildsNestedHierarchy(t *testing.T) {
	f := newFixture()
	acme := f.seedOrg("Acme Corp")

	result, err := f.service.Import(context.Background(), Request{
		DataType: domain.DataTypeSubsidiary,
		FileBase64: xlsxBase64(t,
			[]any{"Subsidiary Name", "Parent Company", "Country"},
			[]any{"Acme EU", "Acme Corp", "Belgium"},
			[]any{"Acme EU Germany", "Acme EU", "Germany"},
			[]any{"Orphan GmbH", "Nobody Inc", "Austria"},
		),
		Actor: testActor,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, []string{"Row 3: Parent company not found: Nobody Inc"}, result.Errors)

	require.Len(t, f.subs.created, 2)
	eu, germany := f.subs.created[0], f.subs.created[1]

	assert.Equal(t, acme.ID, eu.CustomerID)
	assert.Nil(t, eu.ParentSubsidiaryID)

	assert.Equal(t, acme.ID, germany.CustomerID)
	require.NotNil(t, germany.ParentSubsidiaryID)
	assert.Equal(t, eu.ID, *germany.ParentSubsidiaryID)
	assert.Equal(t, "Germany", germany.Country)
}

func TestImportSubsidiaryWithExplicitCustomerID(t *testing.T) {
	f := newFixture()

	result, err := f.service.Import(context.Background(), Request{
		DataType: domain.DataTypeSubsidiary,
		FileBase64: xlsxBase64(t,
			[]any{"name", "Customer ID", "Ownership %"},
			[]any{"Direct Sub", 77, "55.5%"},
			[]any{"Over Owned", 77, 150},
		),
		Actor: testActor,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Row 2: Ownership percentage must be between 0 and 100")

	require.Len(t, f.subs.created, 1)
	assert.Equal(t, int64(77), f.subs.created[0].CustomerID)
	require.NotNil(t, f.subs.created[0].OwnershipPercentage)
	assert.InDelta(t, 55.5, *f.subs.created[0].OwnershipPercentage, 0.0001)
}

func TestImportDealScalesAmountToMinorUnits(t *testing.T) {
	f := newFixture()
	acme := f.seedOrg("Acme Corp")

	result, err := f.service.Import(context.Background(), Request{
		DataType: domain.DataTypeDeal,
		FileBase64: xlsxBase64(t,
			[]any{"Deal Name", "Customer", "Amount"},
			[]any{"Big Sale", "acme", 1000},
			[]any{"Free Pilot", "Acme Corp", ""},
			[]any{"Lost Cause", "Globex", 10},
		),
		Actor: testActor,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, []string{"Row 3: Customer not found: Globex"}, result.Errors)

	require.Len(t, f.deals.created, 2)
	assert.Equal(t, int64(100000), f.deals.created[0].Amount)
	assert.Equal(t, acme.ID, f.deals.created[0].CustomerID)
	assert.Equal(t, int64(0), f.deals.created[1].Amount)
	assert.Equal(t, domain.StatusActive, f.deals.created[0].Status)
	assert.Equal(t, testActor.Name, f.deals.created[0].ClosedByName)
}

func TestImportOpportunitiesValidatesRanges(t *testing.T) {
	f := newFixture()
	f.seedOrg("Acme Corp")

	result, err := f.service.Import(context.Background(), Request{
		DataType: domain.DataTypeOpportunity,
		FileBase64: xlsxBase64(t,
			[]any{"商机名称", "客户名称", "金额", "概率", "Stage"},
			[]any{"Cloud Migration", "Acme", "1,250.50", 60, "Proposal"},
			[]any{"Too Sure", "Acme", 10, 120, ""},
			[]any{"Weird Stage", "Acme", 10, 10, "sleeping"},
			[]any{"Negative", "Acme", -5, 10, ""},
		),
		Actor: testActor,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 3, result.FailedCount)
	assert.Contains(t, result.Errors[0], "Row 2: Probability")
	assert.Contains(t, result.Errors[1], "Row 3: Unknown opportunity stage")
	assert.Contains(t, result.Errors[2], "Row 4: Amount must not be negative")

	require.Len(t, f.opps.created, 1)
	opp := f.opps.created[0]
	assert.Equal(t, int64(125050), opp.Amount)
	assert.Equal(t, domain.StageProposal, opp.Stage)
	require.NotNil(t, opp.Probability)
	assert.Equal(t, 60, *opp.Probability)
}

func TestImportNewsProjectsAndRecommendations(t *testing.T) {
	f := newFixture()
	f.seedOrg("Acme Corp")
	ctx := context.Background()

	news, err := f.service.Import(ctx, Request{
		DataType: domain.DataTypeNews,
		FileBase64: xlsxBase64(t,
			[]any{"标题", "客户", "Sentiment"},
			[]any{"Acme opens plant", "Acme Corp", "Positive"},
		),
		Actor: testActor,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, news.SuccessCount)
	require.Len(t, f.news.created, 1)
	assert.Equal(t, domain.NewsSourceImport, f.news.created[0].SourceName)
	assert.Equal(t, "positive", f.news.created[0].Sentiment)
	assert.NotNil(t, f.news.created[0].PublishedDate)
	assert.False(t, f.news.created[0].IsRead)

	projects, err := f.service.Import(ctx, Request{
		DataType: domain.DataTypeProject,
		FileBase64: xlsxBase64(t,
			[]any{"Project ID", "Project Name", "Investment", "Start Date"},
			[]any{"P-1", "Harbour Bridge", 2500000, "2024-03-01"},
		),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, projects.SuccessCount)
	require.Len(t, f.projects.created, 1)
	assert.Equal(t, "P-1", f.projects.created[0].OriginalID)
	require.NotNil(t, f.projects.created[0].Investment)
	assert.Equal(t, int64(250000000), *f.projects.created[0].Investment)
	require.NotNil(t, f.projects.created[0].StartDate)
	assert.Equal(t, "2024-03-01", f.projects.created[0].StartDate.Format("2006-01-02"))

	recs, err := f.service.Import(ctx, Request{
		DataType: domain.DataTypeRecommendation,
		FileBase64: xlsxBase64(t,
			[]any{"Project ID", "Product", "Rank", "Score"},
			[]any{"P-1", "Steel Cable", 1, 0.93},
			[]any{"P-1", "", 2, 0.5},
		),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, recs.SuccessCount)
	assert.Equal(t, []string{"Row 2: Product name is required"}, recs.Errors)
	require.Len(t, f.projects.recommendations, 1)
	require.NotNil(t, f.projects.recommendations[0].AIScore)
	assert.InDelta(t, 0.93, *f.projects.recommendations[0].AIScore, 0.0001)
}

func TestImportDecodeFailureMarksJobFailed(t *testing.T) {
	f := newFixture()

	_, err := f.service.Import(context.Background(), Request{
		DataType:   domain.DataTypeCustomer,
		FileName:   "broken.xlsx",
		FileBase64: base64.StdEncoding.EncodeToString([]byte("definitely not a workbook")),
		Actor:      testActor,
	})
	require.Error(t, err)

	var decode *DecodeFailure
	require.ErrorAs(t, err, &decode)

	job := f.jobs.only(t)
	assert.Equal(t, domain.ImportStatusFailed, job.Status)
	require.Len(t, job.ErrorLog, 1)
	assert.True(t, strings.HasPrefix(job.ErrorLog[0], domain.CriticalErrorPrefix))
	assert.NotNil(t, job.CompletedAt)
	assert.Equal(t, 1, f.jobs.finishCalls)
}

func TestImportStorageOutageAbortsBatch(t *testing.T) {
	f := newFixture()
	f.seedOrg("Acme Corp")
	f.opps.failAt = 2
	f.opps.failErr = fmt.Errorf("failed to create opportunity: %w: connection refused", repository.ErrUnavailable)

	_, err := f.service.Import(context.Background(), Request{
		DataType: domain.DataTypeOpportunity,
		FileBase64: xlsxBase64(t,
			[]any{"Opportunity", "Customer"},
			[]any{"First", "Acme"},
			[]any{"Second", "Acme"},
			[]any{"Third", "Acme"},
		),
		Actor: testActor,
	})
	require.ErrorIs(t, err, repository.ErrUnavailable)

	job := f.jobs.only(t)
	assert.Equal(t, domain.ImportStatusFailed, job.Status)
	assert.Equal(t, 3, job.TotalRows)
	assert.Equal(t, 1, job.SuccessRows)
	require.Len(t, job.ErrorLog, 1)
	assert.Contains(t, job.ErrorLog[0], "connection refused")
	assert.Len(t, f.opps.created, 1)
}

func TestImportConflictIsRowLevel(t *testing.T) {
	f := newFixture()
	f.orgs.failOn = map[string]error{
		"Dup Co": fmt.Errorf("failed to create organization: %w: duplicate", repository.ErrConflict),
	}

	result, err := f.service.Import(context.Background(), Request{
		DataType: domain.DataTypeCustomer,
		FileBase64: xlsxBase64(t,
			[]any{"name"},
			[]any{"Dup Co"},
			[]any{"Fine Co"},
		),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Contains(t, result.Errors[0], "Row 1: ")
}

func TestImportCompletionWriteFailureFallsBackToFailed(t *testing.T) {
	f := newFixture()
	f.jobs.failStatus = domain.ImportStatusCompleted
	f.jobs.failErr = errors.New("write timeout")

	_, err := f.service.Import(context.Background(), Request{
		DataType:   domain.DataTypeCustomer,
		FileBase64: xlsxBase64(t, []any{"name"}, []any{"Solo"}),
	})
	require.Error(t, err)

	job := f.jobs.only(t)
	assert.Equal(t, domain.ImportStatusFailed, job.Status)
	assert.Equal(t, 1, job.SuccessRows)
	assert.Equal(t, 2, f.jobs.finishCalls)
}

func TestImportReimportCreatesDuplicates(t *testing.T) {
	f := newFixture()
	payload := xlsxBase64(t, []any{"Company"}, []any{"Acme Corp"})

	for i := 0; i < 2; i++ {
		result, err := f.service.Import(context.Background(), Request{DataType: domain.DataTypeCustomer, FileBase64: payload})
		require.NoError(t, err)
		assert.Equal(t, 1, result.SuccessCount)
	}
	assert.Len(t, f.orgs.created, 2)
	assert.Len(t, f.jobs.jobs, 2)
}

func TestImportRejectsUnknownDataTypeWithoutJob(t *testing.T) {
	f := newFixture()

	_, err := f.service.Import(context.Background(), Request{DataType: "widgets", FileBase64: "AAAA"})
	require.Error(t, err)
	assert.Empty(t, f.jobs.jobs)
}

func TestImportRowLimitIsJobLevel(t *testing.T) {
	f := newFixture()
	f.service.limits.MaxRows = 1

	_, err := f.service.Import(context.Background(), Request{
		DataType:   domain.DataTypeCustomer,
		FileBase64: xlsxBase64(t, []any{"name"}, []any{"A"}, []any{"B"}),
	})
	require.Error(t, err)
	assert.Equal(t, domain.ImportStatusFailed, f.jobs.only(t).Status)
	assert.Empty(t, f.orgs.created)
}

func TestPreviewMapsHeadersWithoutWriting(t *testing.T) {
	f := newFixture()

	result, err := f.service.Preview(context.Background(), PreviewRequest{
		DataType: domain.DataTypeDeal,
		FileBase64: xlsxBase64(t,
			[]any{"Deal Name", "Amount", "Mystery"},
			[]any{"Big Sale", 10, "x"},
			[]any{"", 5, "y"},
		),
		Limit: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 2, result.InvalidRows)
	assert.Equal(t, []PreviewHeader{
		{Original: "Deal Name", Field: "name", Recognized: true},
		{Original: "Amount", Field: "amount", Recognized: true},
		{Original: "Mystery", Field: "Mystery", Recognized: false},
	}, result.Headers)
	assert.Equal(t, []string{"customerName"}, result.MissingFields)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Big Sale", result.Rows[0].Values["name"])
	assert.Equal(t, []string{"Customer name is required"}, result.Rows[0].Errors)

	assert.Empty(t, f.jobs.jobs)
	assert.Empty(t, f.deals.created)
}
