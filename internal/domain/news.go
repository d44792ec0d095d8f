package domain

import "time"

// NewsItem is a piece of news attached to a customer.
type NewsItem struct {
	ID             int64      `json:"id"`
	CustomerID     int64      `json:"customer_id"`
	SubsidiaryID   *int64     `json:"subsidiary_id,omitempty"`
	Title          string     `json:"title"`
	Summary        string     `json:"summary,omitempty"`
	Content        string     `json:"content,omitempty"`
	SourceURL      string     `json:"source_url,omitempty"`
	SourceName     string     `json:"source_name,omitempty"`
	PublishedDate  *time.Time `json:"published_date,omitempty"`
	Category       string     `json:"category,omitempty"`
	Sentiment      string     `json:"sentiment"`
	RelevanceScore *int       `json:"relevance_score,omitempty"`
	IsHighlight    bool       `json:"is_highlight"`
	IsRead         bool       `json:"is_read"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

const (
	DefaultSentiment = "unknown"

	NewsSourceImport = "Excel Import"
)

// NewNewsItem creates an unread news item.
func NewNewsItem(customerID int64, title string) NewsItem {
	now := time.Now().UTC()
	return NewsItem{
		CustomerID: customerID,
		Title:      title,
		Sentiment:  DefaultSentiment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewsFilter narrows news listings.
type NewsFilter struct {
	CustomerID  *int64
	IsHighlight *bool
	Limit       int
	Offset      int
}

// Project is an infrastructure project tracked for product recommendations.
type Project struct {
	ID         int64      `json:"id"`
	OriginalID string     `json:"original_id,omitempty"`
	Name       string     `json:"name"`
	Investment *int64     `json:"investment,omitempty"`
	Country    string     `json:"country,omitempty"`
	Sector     string     `json:"sector,omitempty"`
	Stage      string     `json:"stage,omitempty"`
	Contractor string     `json:"contractor,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	Summary    string     `json:"summary,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Recommendation is a ranked product suggestion for a project, keyed by the project's original id.
type Recommendation struct {
	ID          int64     `json:"id"`
	ProjectID   string    `json:"project_id"`
	ProductName string    `json:"product_name"`
	Rank        *int      `json:"rank,omitempty"`
	Confidence  string    `json:"confidence,omitempty"`
	AIScore     *float64  `json:"ai_score,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
