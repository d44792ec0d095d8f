package newsfeed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rpattn/crmdash/internal/domain"

	"github.com/rs/zerolog"
)

// DefaultMaxItems caps how many feed entries replace a customer's news.
const DefaultMaxItems = 10

// Searcher fetches feed items for a keyword.
type Searcher interface {
	Search(ctx context.Context, keyword string) ([]Item, error)
}

// CustomerReader loads the customer whose news is refreshed.
type CustomerReader interface {
	GetByID(ctx context.Context, id int64) (domain.Organization, error)
}

// NewsReplacer swaps a customer's stored news in one step.
type NewsReplacer interface {
	ReplaceForCustomer(ctx context.Context, customerID int64, items []domain.NewsItem) ([]domain.NewsItem, error)
}

// Refresher replaces a customer's stored news with fresh feed results.
type Refresher struct {
	feed      Searcher
	customers CustomerReader
	news      NewsReplacer
	maxItems  int
	now       func() time.Time
}

// NewRefresher returns a Refresher keeping at most maxItems entries; zero means DefaultMaxItems.
func NewRefresher(feed Searcher, customers CustomerReader, news NewsReplacer, maxItems int) *Refresher {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Refresher{feed: feed, customers: customers, news: news, maxItems: maxItems, now: time.Now}
}

// Refresh searches for query, or the customer's name when query is blank. Existing news is only
// replaced once the feed has been fetched successfully.
func (r *Refresher) Refresh(ctx context.Context, customerID int64, query string) ([]domain.NewsItem, error) {
	customer, err := r.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("load customer %d: %w", customerID, err)
	}

	keyword := strings.TrimSpace(query)
	if keyword == "" {
		keyword = customer.Name
	}

	found, err := r.feed.Search(ctx, keyword)
	if err != nil {
		return nil, err
	}
	if len(found) > r.maxItems {
		found = found[:r.maxItems]
	}

	now := r.now().UTC()
	items := make([]domain.NewsItem, 0, len(found))
	for _, f := range found {
		item := domain.NewNewsItem(customerID, f.Title)
		item.Summary = f.Summary
		item.Content = f.Content
		item.SourceName = f.Source
		item.SourceURL = f.Link
		item.Sentiment = "neutral"
		item.Category = "General"
		item.PublishedDate = f.Published
		if item.PublishedDate == nil {
			item.PublishedDate = &now
		}
		items = append(items, item)
	}

	saved, err := r.news.ReplaceForCustomer(ctx, customerID, items)
	if err != nil {
		return nil, fmt.Errorf("replace news for customer %d: %w", customerID, err)
	}
	zerolog.Ctx(ctx).Info().Int64("customer_id", customerID).Int("count", len(saved)).Msg("news refreshed")
	return saved, nil
}
