package api

import (
	"net/http"
	"strings"

	"github.com/rpattn/crmdash/internal/auth"
	"github.com/rpattn/crmdash/internal/domain"
	"github.com/rpattn/crmdash/internal/httpx"

	"github.com/go-chi/chi/v5"
)

func (s *server) customerRoutes(r chi.Router) {
	r.Get("/", s.listCustomers)
	r.Get("/count", s.countCustomers)
	r.Get("/{id}", s.getCustomer)
	r.Get("/{id}/subsidiaries", s.listSubsidiariesByCustomer)
	r.Get("/{id}/tree", s.subsidiaryTree)
	r.Group(func(w chi.Router) {
		w.Use(auth.RequireActor)
		w.Post("/", s.createCustomer)
		w.Put("/{id}", s.updateCustomer)
		w.Delete("/{id}", s.deleteCustomer)
	})
}

// customerInput is the writable subset of an organization. Nil fields are left unchanged on update.
type customerInput struct {
	Name                *string `json:"name"`
	RegisteredName      *string `json:"registered_name"`
	LocalName           *string `json:"local_name"`
	Industry            *string `json:"industry"`
	BusinessType        *string `json:"business_type"`
	OperatingStatus     *string `json:"operating_status"`
	IsIndependent       *bool   `json:"is_independent"`
	RegistrationCountry *string `json:"registration_country"`
	RegistrationAddress *string `json:"registration_address"`
	Website             *string `json:"website"`
	Phone               *string `json:"phone"`
	Email               *string `json:"email"`
	AnnualRevenue       *int64  `json:"annual_revenue"`
	RevenueCurrency     *string `json:"revenue_currency"`
	EmployeeCount       *int    `json:"employee_count"`
	RiskLevel           *string `json:"risk_level"`
	CEOName             *string `json:"ceo_name"`
	Description         *string `json:"description"`
	Notes               *string `json:"notes"`
}

func (in customerInput) apply(org *domain.Organization) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&org.Name, in.Name)
	set(&org.RegisteredName, in.RegisteredName)
	set(&org.LocalName, in.LocalName)
	set(&org.Industry, in.Industry)
	set(&org.BusinessType, in.BusinessType)
	set(&org.OperatingStatus, in.OperatingStatus)
	set(&org.RegistrationCountry, in.RegistrationCountry)
	set(&org.RegistrationAddress, in.RegistrationAddress)
	set(&org.Website, in.Website)
	set(&org.Phone, in.Phone)
	set(&org.Email, in.Email)
	set(&org.RevenueCurrency, in.RevenueCurrency)
	set(&org.RiskLevel, in.RiskLevel)
	set(&org.CEOName, in.CEOName)
	set(&org.Description, in.Description)
	set(&org.Notes, in.Notes)
	if in.IsIndependent != nil {
		org.IsIndependent = *in.IsIndependent
	}
	if in.AnnualRevenue != nil {
		org.AnnualRevenue = in.AnnualRevenue
	}
	if in.EmployeeCount != nil {
		org.EmployeeCount = in.EmployeeCount
	}
}

func (in customerInput) validate() string {
	if in.AnnualRevenue != nil && *in.AnnualRevenue < 0 {
		return "annual_revenue must not be negative"
	}
	if in.EmployeeCount != nil && *in.EmployeeCount < 0 {
		return "employee_count must not be negative"
	}
	return ""
}

func (s *server) listCustomers(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := page(w, r, 50)
	if !ok {
		return
	}
	orgs, err := s.deps.Organizations.List(r.Context(), domain.OrganizationFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orgs)
}

func (s *server) countCustomers(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Organizations.Count(r.Context())
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (s *server) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	org, err := s.deps.Organizations.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, org)
}

func (s *server) createCustomer(w http.ResponseWriter, r *http.Request) {
	var in customerInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		badRequest(w, r, "name is required")
		return
	}
	if msg := in.validate(); msg != "" {
		badRequest(w, r, msg)
		return
	}

	org := domain.NewOrganization(*in.Name)
	in.apply(&org)
	if actor, ok := auth.ActorFromContext(r.Context()); ok {
		id := actor.ID
		org.CreatedBy = &id
	}

	created, err := s.deps.Organizations.Create(r.Context(), org)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (s *server) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in customerInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		badRequest(w, r, "name must not be empty")
		return
	}
	if msg := in.validate(); msg != "" {
		badRequest(w, r, msg)
		return
	}

	org, err := s.deps.Organizations.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	in.apply(&org)

	updated, err := s.deps.Organizations.Update(r.Context(), org)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (s *server) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.deps.Organizations.Delete(r.Context(), id); err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
