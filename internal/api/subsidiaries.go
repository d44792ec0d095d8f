package api

import (
	"net/http"
	"strings"

	"github.com/rpattn/crmdash/internal/auth"
	"github.com/rpattn/crmdash/internal/domain"
	"github.com/rpattn/crmdash/internal/httpx"

	"github.com/go-chi/chi/v5"
)

func (s *server) subsidiaryRoutes(r chi.Router) {
	r.Get("/{id}", s.getSubsidiary)
	r.Group(func(w chi.Router) {
		w.Use(auth.RequireActor)
		w.Post("/", s.createSubsidiary)
		w.Put("/{id}", s.updateSubsidiary)
		w.Delete("/{id}", s.deleteSubsidiary)
	})
}

type subsidiaryInput struct {
	CustomerID          *int64   `json:"customer_id"`
	ParentSubsidiaryID  *int64   `json:"parent_subsidiary_id"`
	Name                *string  `json:"name"`
	LocalName           *string  `json:"local_name"`
	EntityType          *string  `json:"entity_type"`
	OwnershipPercentage *float64 `json:"ownership_percentage"`
	Country             *string  `json:"country"`
	Region              *string  `json:"region"`
	City                *string  `json:"city"`
	Address             *string  `json:"address"`
	Latitude            *float64 `json:"latitude"`
	Longitude           *float64 `json:"longitude"`
	Industry            *string  `json:"industry"`
	OperatingStatus     *string  `json:"operating_status"`
	EmployeeCount       *int     `json:"employee_count"`
	Description         *string  `json:"description"`
}

func (in subsidiaryInput) validate() string {
	switch {
	case in.OwnershipPercentage != nil && (*in.OwnershipPercentage < 0 || *in.OwnershipPercentage > 100):
		return "ownership_percentage must be between 0 and 100"
	case in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90):
		return "latitude must be between -90 and 90"
	case in.Longitude != nil && (*in.Longitude < -180 || *in.Longitude > 180):
		return "longitude must be between -180 and 180"
	case in.EmployeeCount != nil && *in.EmployeeCount < 0:
		return "employee_count must not be negative"
	}
	return ""
}

func (in subsidiaryInput) apply(sub *domain.Subsidiary) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&sub.Name, in.Name)
	set(&sub.LocalName, in.LocalName)
	set(&sub.EntityType, in.EntityType)
	set(&sub.Country, in.Country)
	set(&sub.Region, in.Region)
	set(&sub.City, in.City)
	set(&sub.Address, in.Address)
	set(&sub.Industry, in.Industry)
	set(&sub.OperatingStatus, in.OperatingStatus)
	set(&sub.Description, in.Description)
	if in.OwnershipPercentage != nil {
		sub.OwnershipPercentage = in.OwnershipPercentage
	}
	if in.Latitude != nil {
		sub.Latitude = in.Latitude
	}
	if in.Longitude != nil {
		sub.Longitude = in.Longitude
	}
	if in.EmployeeCount != nil {
		sub.EmployeeCount = in.EmployeeCount
	}
}

func (s *server) listSubsidiariesByCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	subs, err := s.deps.Subsidiaries.ListByCustomer(r.Context(), id)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, subs)
}

// subsidiaryTree nests a customer's subsidiaries by parent link.
func (s *server) subsidiaryTree(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	subs, err := s.deps.Subsidiaries.ListByCustomer(r.Context(), id)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, domain.BuildSubsidiaryTree(subs))
}

func (s *server) getSubsidiary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sub, err := s.deps.Subsidiaries.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sub)
}

func (s *server) createSubsidiary(w http.ResponseWriter, r *http.Request) {
	var in subsidiaryInput
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

	// A parent subsidiary decides the root customer; otherwise the customer id is required.
	var parent domain.ParentRef
	switch {
	case in.ParentSubsidiaryID != nil:
		p, err := s.deps.Subsidiaries.GetByID(r.Context(), *in.ParentSubsidiaryID)
		if err != nil {
			httpx.WriteStoreError(w, r, err)
			return
		}
		parent = domain.ParentFromSubsidiary(p)
	case in.CustomerID != nil:
		if _, err := s.deps.Organizations.GetByID(r.Context(), *in.CustomerID); err != nil {
			httpx.WriteStoreError(w, r, err)
			return
		}
		parent = domain.ParentRef{CustomerID: *in.CustomerID}
	default:
		badRequest(w, r, "customer_id or parent_subsidiary_id is required")
		return
	}

	sub := domain.NewSubsidiary(parent, *in.Name)
	in.apply(&sub)
	created, err := s.deps.Subsidiaries.Create(r.Context(), sub)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (s *server) updateSubsidiary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in subsidiaryInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if in.CustomerID != nil || in.ParentSubsidiaryID != nil {
		badRequest(w, r, "moving a subsidiary is not supported")
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

	sub, err := s.deps.Subsidiaries.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	in.apply(&sub)
	updated, err := s.deps.Subsidiaries.Update(r.Context(), sub)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (s *server) deleteSubsidiary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.deps.Subsidiaries.Delete(r.Context(), id); err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
