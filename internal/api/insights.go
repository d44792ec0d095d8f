package api

import (
	"errors"
	"net/http"

	"github.com/rpattn/crmdash/internal/analysis"
	"github.com/rpattn/crmdash/internal/auth"
	"github.com/rpattn/crmdash/internal/domain"
	"github.com/rpattn/crmdash/internal/httpx"
	"github.com/rpattn/crmdash/internal/middleware"
	"github.com/rpattn/crmdash/internal/orgloader"
	"github.com/rpattn/crmdash/internal/repository"
)

func isStoreError(err error) bool {
	return errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrConflict) ||
		errors.Is(err, repository.ErrUnavailable)
}

func (s *server) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Dashboard.Stats(r.Context())
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}

// geoMarkers lists subsidiaries with coordinates. Owning customer names go through the request's
// organization loader so each customer is fetched once.
func (s *server) geoMarkers(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpx.QueryInt64Ptr(r, "customerId")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	subs, err := s.deps.Subsidiaries.ListWithCoordinates(r.Context(), customerID)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}

	ids := make([]int64, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.CustomerID)
	}
	names := map[int64]string{}
	if loader := middleware.OrgLoaderFromContext(r.Context()); loader != nil && len(ids) > 0 {
		names, err = orgloader.Names(r.Context(), loader, ids)
		if err != nil {
			httpx.WriteStoreError(w, r, err)
			return
		}
	}

	markers := make([]domain.GeoMarker, 0, len(subs))
	for _, sub := range subs {
		if sub.Latitude == nil || sub.Longitude == nil {
			continue
		}
		markers = append(markers, domain.GeoMarker{
			ID:           sub.ID,
			CustomerID:   sub.CustomerID,
			CustomerName: names[sub.CustomerID],
			Name:         sub.Name,
			Latitude:     *sub.Latitude,
			Longitude:    *sub.Longitude,
			Type:         domain.MarkerType(sub),
			Country:      sub.Country,
			City:         sub.City,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, markers)
}

type analyzeInput struct {
	CustomerID   int64  `json:"customerId"`
	AnalysisType string `json:"analysisType"`
}

func (s *server) analyzeCustomer(w http.ResponseWriter, r *http.Request) {
	var in analyzeInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if in.CustomerID <= 0 {
		badRequest(w, r, "customerId is required")
		return
	}
	kind, err := domain.ParseAnalysisType(in.AnalysisType)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())

	result, err := s.deps.Analyzer.AnalyzeCustomer(r.Context(), in.CustomerID, kind, actor)
	if err != nil {
		if errors.Is(err, analysis.ErrAnalysisFailed) {
			httpx.WriteError(w, r, http.StatusBadGateway, "analysis_failed", analysis.ErrAnalysisFailed.Error(), nil)
			return
		}
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (s *server) analysisLogs(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpx.QueryInt64Ptr(r, "customerId")
	if err != nil || customerID == nil {
		badRequest(w, r, "customerId is required")
		return
	}
	logs, err := s.deps.AnalysisLogs.ListByEntity(r.Context(), "customer", *customerID)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, logs)
}
