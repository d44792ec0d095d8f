package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/rpattn/crmdash/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const newsColumns = `id, customer_id, subsidiary_id, title, COALESCE(summary, ''), COALESCE(content, ''),
	COALESCE(source_url, ''), COALESCE(source_name, ''), published_date, COALESCE(category, ''), sentiment,
	relevance_score, is_highlight, is_read, created_at, updated_at`

const insertNewsSQL = `INSERT INTO news_items (customer_id, subsidiary_id, title, summary, content, source_url,
		source_name, published_date, category, sentiment, relevance_score, is_highlight, is_read)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	 RETURNING ` + newsColumns

type newsRepository struct {
	pool *pgxpool.Pool
}

// NewNewsRepository wires a repository backed by pgxpool.
func NewNewsRepository(pool *pgxpool.Pool) NewsRepository {
	return &newsRepository{pool: pool}
}

func scanNewsItem(row pgx.Row) (domain.NewsItem, error) {
	var (
		n         domain.NewsItem
		published pgtype.Timestamptz
	)
	err := row.Scan(
		&n.ID, &n.CustomerID, &n.SubsidiaryID, &n.Title, &n.Summary, &n.Content,
		&n.SourceURL, &n.SourceName, &published, &n.Category, &n.Sentiment,
		&n.RelevanceScore, &n.IsHighlight, &n.IsRead, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return domain.NewsItem{}, err
	}
	n.PublishedDate = timeValue(published)
	return n, nil
}

func newsArgs(item domain.NewsItem) []any {
	sentiment := strings.TrimSpace(item.Sentiment)
	if sentiment == "" {
		sentiment = domain.DefaultSentiment
	}
	var published pgtype.Timestamptz
	if item.PublishedDate != nil {
		published = pgtype.Timestamptz{Time: *item.PublishedDate, Valid: true}
	}
	return []any{
		item.CustomerID, item.SubsidiaryID, strings.TrimSpace(item.Title), nullText(item.Summary),
		nullText(item.Content), nullText(item.SourceURL), nullText(item.SourceName), published,
		nullText(item.Category), sentiment, item.RelevanceScore, item.IsHighlight, item.IsRead,
	}
}

func (r *newsRepository) Create(ctx context.Context, item domain.NewsItem) (domain.NewsItem, error) {
	created, err := scanNewsItem(r.pool.QueryRow(ctx, insertNewsSQL, newsArgs(item)...))
	if err != nil {
		return domain.NewsItem{}, wrap("create news item", err)
	}
	return created, nil
}

func (r *newsRepository) GetByID(ctx context.Context, id int64) (domain.NewsItem, error) {
	item, err := scanNewsItem(r.pool.QueryRow(ctx, `SELECT `+newsColumns+` FROM news_items WHERE id = $1`, id))
	if err != nil {
		return domain.NewsItem{}, wrap("get news item", err)
	}
	return item, nil
}

func (r *newsRepository) List(ctx context.Context, filter domain.NewsFilter) ([]domain.NewsItem, error) {
	limit, offset := clampLimit(filter.Limit, filter.Offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+newsColumns+`
		 FROM news_items
		 WHERE ($1::BIGINT IS NULL OR customer_id = $1)
		   AND ($2::BOOLEAN IS NULL OR is_highlight = $2)
		 ORDER BY published_date DESC NULLS LAST, id DESC
		 LIMIT $3 OFFSET $4`,
		filter.CustomerID, filter.IsHighlight, limit, offset,
	)
	if err != nil {
		return nil, wrap("list news", err)
	}
	defer rows.Close()

	items := []domain.NewsItem{}
	for rows.Next() {
		item, err := scanNewsItem(rows)
		if err != nil {
			return nil, wrap("scan news item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate news", err)
	}
	return items, nil
}

func (r *newsRepository) MarkRead(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE news_items SET is_read = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return wrap("mark news read", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to mark news %d read: %w", id, ErrNotFound)
	}
	return nil
}

func (r *newsRepository) CountUnread(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM news_items WHERE NOT is_read`).Scan(&count); err != nil {
		return 0, wrap("count unread news", err)
	}
	return count, nil
}

func (r *newsRepository) ReplaceForCustomer(ctx context.Context, customerID int64, items []domain.NewsItem) ([]domain.NewsItem, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, wrap("begin news replacement", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM news_items WHERE customer_id = $1`, customerID); err != nil {
		return nil, wrap("clear customer news", err)
	}

	created := make([]domain.NewsItem, 0, len(items))
	for _, item := range items {
		item.CustomerID = customerID
		saved, err := scanNewsItem(tx.QueryRow(ctx, insertNewsSQL, newsArgs(item)...))
		if err != nil {
			return nil, wrap("insert news item", err)
		}
		created = append(created, saved)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrap("commit news replacement", err)
	}
	return created, nil
}
