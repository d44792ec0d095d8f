package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rpattn/crmdash/internal/auth"
	"github.com/rpattn/crmdash/internal/domain"
	"github.com/rpattn/crmdash/internal/httpx"

	"github.com/go-chi/chi/v5"
)

func (s *server) opportunityRoutes(r chi.Router) {
	r.Get("/", s.listOpportunities)
	r.Get("/by-stage", s.opportunitiesByStage)
	r.Get("/{id}", s.getOpportunity)
	r.With(auth.RequireActor).Post("/", s.createOpportunity)
	r.With(auth.RequireActor).Delete("/{id}", s.deleteOpportunity)
}

func (s *server) dealRoutes(r chi.Router) {
	r.Get("/", s.listDeals)
	r.Get("/by-month", s.dealsByMonth)
	r.Get("/{id}", s.getDeal)
	r.With(auth.RequireActor).Post("/", s.createDeal)
	r.With(auth.RequireActor).Delete("/{id}", s.deleteDeal)
}

func (s *server) listOpportunities(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := page(w, r, 50)
	if !ok {
		return
	}
	customerID, err := httpx.QueryInt64Ptr(r, "customerId")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	opps, err := s.deps.Opportunities.List(r.Context(), domain.OpportunityFilter{
		CustomerID: customerID,
		Stage:      r.URL.Query().Get("stage"),
		Status:     r.URL.Query().Get("status"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, opps)
}

func (s *server) opportunitiesByStage(w http.ResponseWriter, r *http.Request) {
	totals, err := s.deps.Opportunities.TotalsByStage(r.Context())
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, totals)
}

func (s *server) getOpportunity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	opp, err := s.deps.Opportunities.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, opp)
}

type opportunityInput struct {
	CustomerID        int64      `json:"customer_id"`
	SubsidiaryID      *int64     `json:"subsidiary_id"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	Stage             string     `json:"stage"`
	Probability       *int       `json:"probability"`
	Amount            int64      `json:"amount"`
	Currency          string     `json:"currency"`
	ProductType       string     `json:"product_type"`
	ExpectedCloseDate *time.Time `json:"expected_close_date"`
	Notes             string     `json:"notes"`
}

func (s *server) createOpportunity(w http.ResponseWriter, r *http.Request) {
	var in opportunityInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	switch {
	case in.CustomerID <= 0:
		badRequest(w, r, "customer_id is required")
		return
	case strings.TrimSpace(in.Name) == "":
		badRequest(w, r, "name is required")
		return
	case in.Amount < 0:
		badRequest(w, r, "amount must not be negative")
		return
	case in.Probability != nil && (*in.Probability < 0 || *in.Probability > 100):
		badRequest(w, r, "probability must be between 0 and 100")
		return
	case in.Stage != "" && !domain.IsOpportunityStage(in.Stage):
		badRequest(w, r, "unknown stage "+in.Stage)
		return
	}

	opp := domain.NewOpportunity(in.CustomerID, strings.TrimSpace(in.Name))
	opp.SubsidiaryID = in.SubsidiaryID
	opp.Description = in.Description
	if in.Stage != "" {
		opp.Stage = in.Stage
	}
	opp.Probability = in.Probability
	opp.Amount = in.Amount
	if in.Currency != "" {
		opp.Currency = strings.ToUpper(in.Currency)
	}
	opp.ProductType = in.ProductType
	opp.ExpectedCloseDate = in.ExpectedCloseDate
	opp.Notes = in.Notes
	if actor, ok := auth.ActorFromContext(r.Context()); ok {
		id := actor.ID
		opp.OwnerID = &id
		opp.OwnerName = actor.Name
	}

	created, err := s.deps.Opportunities.Create(r.Context(), opp)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (s *server) deleteOpportunity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.deps.Opportunities.Delete(r.Context(), id); err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) listDeals(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := page(w, r, 50)
	if !ok {
		return
	}
	customerID, err := httpx.QueryInt64Ptr(r, "customerId")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	deals, err := s.deps.Deals.List(r.Context(), domain.DealFilter{
		CustomerID: customerID,
		Status:     r.URL.Query().Get("status"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, deals)
}

func (s *server) dealsByMonth(w http.ResponseWriter, r *http.Request) {
	months, err := httpx.QueryInt(r, "months", 12)
	if err != nil || months < 1 || months > 120 {
		badRequest(w, r, "months must be between 1 and 120")
		return
	}
	totals, err := s.deps.Deals.TotalsByMonth(r.Context(), months)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, totals)
}

func (s *server) getDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	deal, err := s.deps.Deals.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, deal)
}

type dealInput struct {
	CustomerID    int64      `json:"customer_id"`
	SubsidiaryID  *int64     `json:"subsidiary_id"`
	OpportunityID *int64     `json:"opportunity_id"`
	Name          string     `json:"name"`
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	ProductType   string     `json:"product_type"`
	Status        string     `json:"status"`
	ClosedDate    *time.Time `json:"closed_date"`
	Notes         string     `json:"notes"`
}

func (s *server) createDeal(w http.ResponseWriter, r *http.Request) {
	var in dealInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	switch {
	case in.CustomerID <= 0:
		badRequest(w, r, "customer_id is required")
		return
	case strings.TrimSpace(in.Name) == "":
		badRequest(w, r, "name is required")
		return
	case in.Amount < 0:
		badRequest(w, r, "amount must not be negative")
		return
	case in.Status != "" && !domain.IsDealStatus(in.Status):
		badRequest(w, r, "unknown status "+in.Status)
		return
	}

	closed := time.Now().UTC()
	if in.ClosedDate != nil {
		closed = in.ClosedDate.UTC()
	}
	deal := domain.NewDeal(in.CustomerID, strings.TrimSpace(in.Name), closed)
	deal.SubsidiaryID = in.SubsidiaryID
	deal.OpportunityID = in.OpportunityID
	deal.Amount = in.Amount
	if in.Currency != "" {
		deal.Currency = strings.ToUpper(in.Currency)
	}
	deal.ProductType = in.ProductType
	if in.Status != "" {
		deal.Status = in.Status
	}
	deal.Notes = in.Notes
	if actor, ok := auth.ActorFromContext(r.Context()); ok {
		id := actor.ID
		deal.ClosedBy = &id
		deal.ClosedByName = actor.Name
	}

	created, err := s.deps.Deals.Create(r.Context(), deal)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (s *server) deleteDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.deps.Deals.Delete(r.Context(), id); err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
