package domain

import (
	"strings"
	"time"
)

// Subsidiary is a branch or affiliate owned by an Organization. ParentSubsidiaryID is nil when the
// immediate parent is the Organization itself; CustomerID always points at the root Organization.
type Subsidiary struct {
	ID                  int64     `json:"id"`
	CustomerID          int64     `json:"customer_id"`
	ParentSubsidiaryID  *int64    `json:"parent_subsidiary_id,omitempty"`
	Name                string    `json:"name"`
	LocalName           string    `json:"local_name,omitempty"`
	EntityType          string    `json:"entity_type"`
	OwnershipPercentage *float64  `json:"ownership_percentage,omitempty"`
	Country             string    `json:"country,omitempty"`
	Region              string    `json:"region,omitempty"`
	City                string    `json:"city,omitempty"`
	Address             string    `json:"address,omitempty"`
	Latitude            *float64  `json:"latitude,omitempty"`
	Longitude           *float64  `json:"longitude,omitempty"`
	Industry            string    `json:"industry,omitempty"`
	OperatingStatus     string    `json:"operating_status,omitempty"`
	EmployeeCount       *int      `json:"employee_count,omitempty"`
	AnnualRevenue       *int64    `json:"annual_revenue,omitempty"`
	RevenueCurrency     string    `json:"revenue_currency,omitempty"`
	RelationshipType    string    `json:"relationship_type"`
	Description         string    `json:"description,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

const (
	DefaultEntityType       = "subsidiary"
	DefaultRelationshipType = "customer"
)

// ParentRef identifies where a subsidiary hangs in the corporate tree.
type ParentRef struct {
	CustomerID         int64
	ParentSubsidiaryID *int64
}

// ParentFromSubsidiary returns the reference for a child placed directly under s. The root
// customer is inherited from s rather than taken from s's own id.
func ParentFromSubsidiary(s Subsidiary) ParentRef {
	id := s.ID
	return ParentRef{CustomerID: s.CustomerID, ParentSubsidiaryID: &id}
}

// NewSubsidiary creates a subsidiary under the given parent.
func NewSubsidiary(parent ParentRef, name string) Subsidiary {
	now := time.Now().UTC()
	return Subsidiary{
		CustomerID:         parent.CustomerID,
		ParentSubsidiaryID: parent.ParentSubsidiaryID,
		Name:               strings.TrimSpace(name),
		EntityType:         DefaultEntityType,
		RelationshipType:   DefaultRelationshipType,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// SubsidiaryNode is a subsidiary with its nested children.
type SubsidiaryNode struct {
	Subsidiary
	Children []*SubsidiaryNode `json:"children"`
}

// BuildSubsidiaryTree nests a flat subsidiary list by parent link. Subsidiaries whose parent is
// missing from the list are treated as roots so that nothing is dropped.
func BuildSubsidiaryTree(subs []Subsidiary) []*SubsidiaryNode {
	nodes := make(map[int64]*SubsidiaryNode, len(subs))
	for _, s := range subs {
		nodes[s.ID] = &SubsidiaryNode{Subsidiary: s, Children: []*SubsidiaryNode{}}
	}

	roots := []*SubsidiaryNode{}
	for _, s := range subs {
		node := nodes[s.ID]
		if s.ParentSubsidiaryID != nil {
			if parent, ok := nodes[*s.ParentSubsidiaryID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// MarkerType classifies a subsidiary for map rendering.
func MarkerType(s Subsidiary) string {
	status := strings.ToLower(strings.TrimSpace(s.OperatingStatus))
	if status == "inactive" || status == "dissolved" {
		return "inactive"
	}

	entityType := strings.ToLower(strings.TrimSpace(s.EntityType))
	switch entityType {
	case "":
		return DefaultEntityType
	case "hq", "headquarters":
		return "hq"
	default:
		return entityType
	}
}

// GeoMarker is a subsidiary location on the map.
type GeoMarker struct {
	ID           int64   `json:"id"`
	CustomerID   int64   `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Type         string  `json:"type"`
	Country      string  `json:"country,omitempty"`
	City         string  `json:"city,omitempty"`
}
