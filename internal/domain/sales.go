package domain

import "time"

// Opportunity is a sales opportunity with a customer.
type Opportunity struct {
	ID                int64      `json:"id"`
	CustomerID        int64      `json:"customer_id"`
	SubsidiaryID      *int64     `json:"subsidiary_id,omitempty"`
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	Stage             string     `json:"stage"`
	Status            string     `json:"status"`
	Probability       *int       `json:"probability,omitempty"`
	Amount            int64      `json:"amount"`
	Currency          string     `json:"currency"`
	ProductType       string     `json:"product_type,omitempty"`
	ExpectedCloseDate *time.Time `json:"expected_close_date,omitempty"`
	OwnerID           *int64     `json:"owner_id,omitempty"`
	OwnerName         string     `json:"owner_name,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Opportunity stages in pipeline order.
const (
	StageLead        = "lead"
	StageQualified   = "qualified"
	StageProposal    = "proposal"
	StageNegotiation = "negotiation"
	StageClosedWon   = "closed_won"
	StageClosedLost  = "closed_lost"
)

var opportunityStages = []string{StageLead, StageQualified, StageProposal, StageNegotiation, StageClosedWon, StageClosedLost}

// OpportunityStages lists the known stages in pipeline order.
func OpportunityStages() []string {
	out := make([]string, len(opportunityStages))
	copy(out, opportunityStages)
	return out
}

// IsOpportunityStage reports whether stage is a known pipeline stage.
func IsOpportunityStage(stage string) bool {
	for _, s := range opportunityStages {
		if s == stage {
			return true
		}
	}
	return false
}

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"

	DefaultCurrency = "USD"
)

// NewOpportunity creates an active opportunity at the lead stage.
func NewOpportunity(customerID int64, name string) Opportunity {
	now := time.Now().UTC()
	return Opportunity{
		CustomerID: customerID,
		Name:       name,
		Stage:      StageLead,
		Status:     StatusActive,
		Currency:   DefaultCurrency,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// OpportunityFilter narrows opportunity listings.
type OpportunityFilter struct {
	CustomerID *int64
	Stage      string
	Status     string
	Limit      int
	Offset     int
}

// StageTotal aggregates opportunities for one stage.
type StageTotal struct {
	Stage  string `json:"stage"`
	Count  int64  `json:"count"`
	Amount int64  `json:"amount"`
}

// Deal is a closed sale.
type Deal struct {
	ID            int64     `json:"id"`
	CustomerID    int64     `json:"customer_id"`
	SubsidiaryID  *int64    `json:"subsidiary_id,omitempty"`
	OpportunityID *int64    `json:"opportunity_id,omitempty"`
	Name          string    `json:"name"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	ProductType   string    `json:"product_type,omitempty"`
	Status        string    `json:"status"`
	ClosedDate    time.Time `json:"closed_date"`
	ClosedBy      *int64    `json:"closed_by,omitempty"`
	ClosedByName  string    `json:"closed_by_name,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewDeal creates an active deal closed at the given time.
func NewDeal(customerID int64, name string, closedAt time.Time) Deal {
	now := time.Now().UTC()
	return Deal{
		CustomerID: customerID,
		Name:       name,
		Currency:   DefaultCurrency,
		Status:     StatusActive,
		ClosedDate: closedAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsDealStatus reports whether status is a known deal status.
func IsDealStatus(status string) bool {
	switch status {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// DealFilter narrows deal listings.
type DealFilter struct {
	CustomerID *int64
	Status     string
	Limit      int
	Offset     int
}

// MonthTotal aggregates deal amounts for one calendar month (YYYY-MM).
type MonthTotal struct {
	Month  string `json:"month"`
	Count  int64  `json:"count"`
	Amount int64  `json:"amount"`
}
