package domain

import (
	"fmt"
	"time"
)

// AnalysisType selects the prompt used for a customer analysis.
type AnalysisType string

const (
	AnalysisSummary        AnalysisType = "summary"
	AnalysisProductMatch   AnalysisType = "product_match"
	AnalysisTalkingPoints  AnalysisType = "talking_points"
	AnalysisRiskAssessment AnalysisType = "risk_assessment"
)

// ParseAnalysisType validates an analysis type name.
func ParseAnalysisType(value string) (AnalysisType, error) {
	switch t := AnalysisType(value); t {
	case AnalysisSummary, AnalysisProductMatch, AnalysisTalkingPoints, AnalysisRiskAssessment:
		return t, nil
	}
	return "", fmt.Errorf("unsupported analysis type %q", value)
}

const (
	AnalysisStatusProcessing = "processing"
	AnalysisStatusCompleted  = "completed"
	AnalysisStatusFailed     = "failed"
)

// AnalysisLog records one AI analysis request and its outcome.
type AnalysisLog struct {
	ID           int64        `json:"id"`
	EntityType   string       `json:"entity_type"`
	EntityID     int64        `json:"entity_id"`
	AnalysisType AnalysisType `json:"analysis_type"`
	Prompt       string       `json:"prompt"`
	Result       string       `json:"result,omitempty"`
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	RequestedBy  *int64       `json:"requested_by,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// DashboardStats summarises the store for the dashboard landing page.
type DashboardStats struct {
	CustomerCount           int64 `json:"customer_count"`
	SubsidiaryCount         int64 `json:"subsidiary_count"`
	ActiveOpportunityCount  int64 `json:"active_opportunity_count"`
	ActiveOpportunityAmount int64 `json:"active_opportunity_amount"`
	DealCount               int64 `json:"deal_count"`
	DealAmount              int64 `json:"deal_amount"`
	UnreadNewsCount         int64 `json:"unread_news_count"`
}

// Actor is the authenticated user behind a request.
type Actor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
