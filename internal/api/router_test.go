package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rpattn/crmdash/internal/analysis"
	"github.com/rpattn/crmdash/internal/auth"
	"github.com/rpattn/crmdash/internal/domain"
	"github.com/rpattn/crmdash/internal/ingestion"
	"github.com/rpattn/crmdash/internal/middleware"
	"github.com/rpattn/crmdash/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Unimplemented methods fall through to the nil embedded interface and panic.

type memOrgs struct {
	repository.OrganizationRepository
	mu         sync.Mutex
	orgs       map[int64]domain.Organization
	next       int64
	batchCalls int
}

func newMemOrgs(seed ...domain.Organization) *memOrgs {
	m := &memOrgs{orgs: map[int64]domain.Organization{}, next: 100}
	for _, o := range seed {
		m.orgs[o.ID] = o
	}
	return m
}

func (m *memOrgs) Create(_ context.Context, org domain.Organization) (domain.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	org.ID = m.next
	m.orgs[org.ID] = org
	return org, nil
}

func (m *memOrgs) GetByID(_ context.Context, id int64) (domain.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orgs[id]; ok {
		return o, nil
	}
	return domain.Organization{}, repository.ErrNotFound
}

func (m *memOrgs) GetByIDs(_ context.Context, ids []int64) ([]domain.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	out := []domain.Organization{}
	for _, id := range ids {
		if o, ok := m.orgs[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrgs) Update(_ context.Context, org domain.Organization) (domain.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orgs[org.ID]; !ok {
		return domain.Organization{}, repository.ErrNotFound
	}
	m.orgs[org.ID] = org
	return org, nil
}

type memSubs struct {
	repository.SubsidiaryRepository
	subs []domain.Subsidiary
}

func (m *memSubs) ListByCustomer(_ context.Context, customerID int64) ([]domain.Subsidiary, error) {
	out := []domain.Subsidiary{}
	for _, s := range m.subs {
		if s.CustomerID == customerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSubs) ListWithCoordinates(_ context.Context, customerID *int64) ([]domain.Subsidiary, error) {
	out := []domain.Subsidiary{}
	for _, s := range m.subs {
		if s.Latitude == nil || s.Longitude == nil {
			continue
		}
		if customerID != nil && s.CustomerID != *customerID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type memLogs struct {
	repository.AnalysisLogRepository
	logs []domain.AnalysisLog
}

func (m *memLogs) Create(_ context.Context, log domain.AnalysisLog) (domain.AnalysisLog, error) {
	log.ID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, log)
	return log, nil
}

func (m *memLogs) UpdatePrompt(_ context.Context, id int64, prompt string) error {
	m.logs[id-1].Prompt = prompt
	return nil
}

func (m *memLogs) Complete(_ context.Context, id int64, result string) (domain.AnalysisLog, error) {
	m.logs[id-1].Status = domain.AnalysisStatusCompleted
	m.logs[id-1].Result = result
	return m.logs[id-1], nil
}

func (m *memLogs) Fail(_ context.Context, id int64, message string) (domain.AnalysisLog, error) {
	m.logs[id-1].Status = domain.AnalysisStatusFailed
	m.logs[id-1].ErrorMessage = message
	return m.logs[id-1], nil
}

type stubDashboard struct{ stats domain.DashboardStats }

func (s stubDashboard) Stats(context.Context) (domain.DashboardStats, error) { return s.stats, nil }

type harness struct {
	handler http.Handler
	orgs    *memOrgs
	subs    *memSubs
	logs    *memLogs
	token   string
}

func ptr[T any](v T) *T { return &v }

func newHarness(t *testing.T) *harness {
	t.Helper()
	tokens, err := auth.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)
	token, err := tokens.Issue(domain.Actor{ID: 7, Name: "Grace"})
	require.NoError(t, err)

	orgs := newMemOrgs(
		domain.Organization{ID: 1, Name: "Acme", Industry: "Manufacturing"},
		domain.Organization{ID: 2, Name: "Globex"},
	)
	subs := &memSubs{subs: []domain.Subsidiary{
		{ID: 10, CustomerID: 1, Name: "Acme EU", EntityType: "HQ", Latitude: ptr(48.1), Longitude: ptr(11.5)},
		{ID: 11, CustomerID: 1, ParentSubsidiaryID: ptr(int64(10)), Name: "Acme Munich", EntityType: "branch", Latitude: ptr(48.2), Longitude: ptr(11.6)},
		{ID: 12, CustomerID: 2, Name: "Globex Asia", OperatingStatus: "Dissolved", Latitude: ptr(1.3), Longitude: ptr(103.8)},
		{ID: 13, CustomerID: 2, Name: "Globex Remote"},
	}}
	logs := &memLogs{}

	handler := NewRouter(Deps{
		Organizations: orgs,
		Subsidiaries:  subs,
		AnalysisLogs:  logs,
		Dashboard:     stubDashboard{stats: domain.DashboardStats{CustomerCount: 2, SubsidiaryCount: 4}},
		Importer:      ingestion.NewService(ingestion.Stores{}, ingestion.Limits{MaxBytes: 1 << 20, MaxRows: 10}),
		Analyzer:      analysis.NewAnalyzer(analysis.NewClient(nil), orgs, logs),
		Tokens:        tokens,
		Logger:        zerolog.Nop(),
		CookieName:    "crmdash_session",
		CORSOrigins:   []string{"http://localhost:3000"},
		MaxBodyBytes:  1 << 20,
	})
	return &harness{handler: handler, orgs: orgs, subs: subs, logs: logs, token: token}
}

func (h *harness) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthCarriesRequestID(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestCreateCustomerRequiresActor(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/customers", map[string]any{"name": "Initech"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/customers", map[string]any{"name": "  Initech  ", "industry": "Software"}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created domain.Organization
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Initech", created.Name)
	assert.Equal(t, domain.DefaultOperatingStatus, created.OperatingStatus)
	require.NotNil(t, created.CreatedBy)
	assert.Equal(t, int64(7), *created.CreatedBy)
}

func TestCreateCustomerValidation(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/customers", map[string]any{"name": " "}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/customers", map[string]any{"name": "X", "employee_count": -1}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/customers", map[string]any{"name": "X", "unknown": 1}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateCustomerIsPartial(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPut, "/api/customers/1", map[string]any{"description": "Rockets"}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	org := h.orgs.orgs[1]
	assert.Equal(t, "Acme", org.Name)
	assert.Equal(t, "Manufacturing", org.Industry)
	assert.Equal(t, "Rockets", org.Description)

	rec = h.do(t, http.MethodPut, "/api/customers/999", map[string]any{"notes": "x"}, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/customers/abc", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubsidiaryTree(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/customers/1/tree", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var tree []domain.SubsidiaryNode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tree))
	require.Len(t, tree, 1)
	assert.Equal(t, "Acme EU", tree[0].Name)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "Acme Munich", tree[0].Children[0].Name)
}

func TestGeoMarkersLoadCustomerNamesInOneBatch(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/geographic/markers", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var markers []domain.GeoMarker
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &markers))
	require.Len(t, markers, 3)

	byName := map[string]domain.GeoMarker{}
	for _, m := range markers {
		byName[m.Name] = m
	}
	assert.Equal(t, "hq", byName["Acme EU"].Type)
	assert.Equal(t, "branch", byName["Acme Munich"].Type)
	assert.Equal(t, "inactive", byName["Globex Asia"].Type)
	assert.Equal(t, "Acme", byName["Acme Munich"].CustomerName)
	assert.Equal(t, "Globex", byName["Globex Asia"].CustomerName)
	assert.Equal(t, 1, h.orgs.batchCalls)

	rec = h.do(t, http.MethodGet, "/api/geographic/markers?customerId=2", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &markers))
	assert.Len(t, markers, 1)
}

func TestAnalyzeCustomer(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/ai/analyze", map[string]any{"customerId": 1, "analysisType": "talking_points"}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result analysis.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, analysis.DevelopmentReply, result.Analysis)
	require.Len(t, h.logs.logs, 1)
	assert.Equal(t, domain.AnalysisStatusCompleted, h.logs.logs[0].Status)

	rec = h.do(t, http.MethodPost, "/api/ai/analyze", map[string]any{"customerId": 1, "analysisType": "horoscope"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/ai/analyze", map[string]any{"customerId": 404, "analysisType": "summary"}, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboardAndImportMount(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/dashboard/stats", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats domain.DashboardStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.CustomerCount)

	rec = h.do(t, http.MethodGet, "/api/import/template/customer", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/auth/me", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Grace")
}

func TestInvalidTokenIsRejected(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
