package api

import (
	"net/http"

	"github.com/rpattn/crmdash/internal/auth"
	"github.com/rpattn/crmdash/internal/domain"
	"github.com/rpattn/crmdash/internal/httpx"

	"github.com/go-chi/chi/v5"
)

func (s *server) newsRoutes(r chi.Router) {
	r.Get("/", s.listNews)
	r.Get("/unread-count", s.unreadNews)
	r.Get("/{id}", s.getNews)
	r.With(auth.RequireActor).Post("/{id}/read", s.markNewsRead)
	r.With(auth.RequireActor).Post("/search", s.searchNews)
}

func (s *server) listNews(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := page(w, r, 50)
	if !ok {
		return
	}
	customerID, err := httpx.QueryInt64Ptr(r, "customerId")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	highlight, err := httpx.QueryBoolPtr(r, "highlight")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	items, err := s.deps.News.List(r.Context(), domain.NewsFilter{
		CustomerID:  customerID,
		IsHighlight: highlight,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (s *server) unreadNews(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.News.CountUnread(r.Context())
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (s *server) getNews(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	item, err := s.deps.News.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (s *server) markNewsRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.deps.News.MarkRead(r.Context(), id); err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type newsSearchInput struct {
	CustomerID int64  `json:"customerId"`
	Query      string `json:"query"`
}

func (s *server) searchNews(w http.ResponseWriter, r *http.Request) {
	var in newsSearchInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if in.CustomerID <= 0 {
		badRequest(w, r, "customerId is required")
		return
	}
	if s.deps.Refresher == nil {
		httpx.WriteError(w, r, http.StatusServiceUnavailable, "unavailable", "news search is not configured", nil)
		return
	}

	items, err := s.deps.Refresher.Refresh(r.Context(), in.CustomerID, in.Query)
	if err != nil {
		if isStoreError(err) {
			httpx.WriteStoreError(w, r, err)
			return
		}
		httpx.WriteError(w, r, http.StatusBadGateway, "feed_unavailable", "failed to fetch news", nil)
		return
	}
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "count": len(items), "ids": ids})
}

func (s *server) projectRoutes(r chi.Router) {
	r.Get("/", s.listProjects)
	r.Get("/{projectId}/recommendations", s.listRecommendations)
}

func (s *server) listProjects(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := page(w, r, 50)
	if !ok {
		return
	}
	projects, err := s.deps.Projects.List(r.Context(), limit, offset)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, projects)
}

func (s *server) listRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.deps.Projects.ListRecommendations(r.Context(), chi.URLParam(r, "projectId"))
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, recs)
}
