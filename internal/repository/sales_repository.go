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

const opportunityColumns = `id, customer_id, subsidiary_id, name, COALESCE(description, ''), stage, status,
	probability, amount, currency, COALESCE(product_type, ''), expected_close_date, owner_id,
	COALESCE(owner_name, ''), COALESCE(notes, ''), created_at, updated_at`

type opportunityRepository struct {
	pool *pgxpool.Pool
}

// NewOpportunityRepository wires a repository backed by pgxpool.
func NewOpportunityRepository(pool *pgxpool.Pool) OpportunityRepository {
	return &opportunityRepository{pool: pool}
}

func scanOpportunity(row pgx.Row) (domain.Opportunity, error) {
	var (
		o         domain.Opportunity
		closeDate pgtype.Date
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.SubsidiaryID, &o.Name, &o.Description, &o.Stage, &o.Status,
		&o.Probability, &o.Amount, &o.Currency, &o.ProductType, &closeDate, &o.OwnerID,
		&o.OwnerName, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.Opportunity{}, err
	}
	o.ExpectedCloseDate = dateValue(closeDate)
	return o, nil
}

func (r *opportunityRepository) Create(ctx context.Context, opp domain.Opportunity) (domain.Opportunity, error) {
	stage := opp.Stage
	if stage == "" {
		stage = domain.StageLead
	}
	status := opp.Status
	if status == "" {
		status = domain.StatusActive
	}
	currency := strings.TrimSpace(opp.Currency)
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO opportunities (customer_id, subsidiary_id, name, description, stage, status, probability,
			amount, currency, product_type, expected_close_date, owner_id, owner_name, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING `+opportunityColumns,
		opp.CustomerID, opp.SubsidiaryID, strings.TrimSpace(opp.Name), nullText(opp.Description), stage, status,
		opp.Probability, opp.Amount, currency, nullText(opp.ProductType), nullDate(opp.ExpectedCloseDate),
		opp.OwnerID, nullText(opp.OwnerName), nullText(opp.Notes),
	)
	created, err := scanOpportunity(row)
	if err != nil {
		return domain.Opportunity{}, wrap("create opportunity", err)
	}
	return created, nil
}

func (r *opportunityRepository) GetByID(ctx context.Context, id int64) (domain.Opportunity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+opportunityColumns+` FROM opportunities WHERE id = $1`, id)
	opp, err := scanOpportunity(row)
	if err != nil {
		return domain.Opportunity{}, wrap("get opportunity", err)
	}
	return opp, nil
}

func (r *opportunityRepository) List(ctx context.Context, filter domain.OpportunityFilter) ([]domain.Opportunity, error) {
	limit, offset := clampLimit(filter.Limit, filter.Offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+opportunityColumns+`
		 FROM opportunities
		 WHERE ($1::BIGINT IS NULL OR customer_id = $1)
		   AND ($2 = '' OR stage = $2)
		   AND ($3 = '' OR status = $3)
		 ORDER BY updated_at DESC, id DESC
		 LIMIT $4 OFFSET $5`,
		filter.CustomerID, filter.Stage, filter.Status, limit, offset,
	)
	if err != nil {
		return nil, wrap("list opportunities", err)
	}
	defer rows.Close()

	opps := []domain.Opportunity{}
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, wrap("scan opportunity", err)
		}
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate opportunities", err)
	}
	return opps, nil
}

func (r *opportunityRepository) TotalsByStage(ctx context.Context) ([]domain.StageTotal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT stage, COUNT(*), COALESCE(SUM(amount), 0)::BIGINT
		 FROM opportunities
		 GROUP BY stage
		 ORDER BY stage`)
	if err != nil {
		return nil, wrap("total opportunities by stage", err)
	}
	defer rows.Close()

	byStage := map[string]domain.StageTotal{}
	for rows.Next() {
		var total domain.StageTotal
		if err := rows.Scan(&total.Stage, &total.Count, &total.Amount); err != nil {
			return nil, wrap("scan stage total", err)
		}
		byStage[total.Stage] = total
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate stage totals", err)
	}

	// known stages first in pipeline order, then anything else the data holds
	totals := []domain.StageTotal{}
	for _, stage := range domain.OpportunityStages() {
		total, ok := byStage[stage]
		if !ok {
			total = domain.StageTotal{Stage: stage}
		}
		totals = append(totals, total)
		delete(byStage, stage)
	}
	for _, total := range byStage {
		totals = append(totals, total)
	}
	return totals, nil
}

func (r *opportunityRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM opportunities WHERE id = $1`, id)
	if err != nil {
		return wrap("delete opportunity", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete opportunity %d: %w", id, ErrNotFound)
	}
	return nil
}

const dealColumns = `id, customer_id, subsidiary_id, opportunity_id, name, amount, currency,
	COALESCE(product_type, ''), status, closed_date, closed_by, COALESCE(closed_by_name, ''),
	COALESCE(notes, ''), created_at, updated_at`

type dealRepository struct {
	pool *pgxpool.Pool
}

// NewDealRepository wires a repository backed by pgxpool.
func NewDealRepository(pool *pgxpool.Pool) DealRepository {
	return &dealRepository{pool: pool}
}

func scanDeal(row pgx.Row) (domain.Deal, error) {
	var d domain.Deal
	err := row.Scan(
		&d.ID, &d.CustomerID, &d.SubsidiaryID, &d.OpportunityID, &d.Name, &d.Amount, &d.Currency,
		&d.ProductType, &d.Status, &d.ClosedDate, &d.ClosedBy, &d.ClosedByName,
		&d.Notes, &d.CreatedAt, &d.UpdatedAt,
	)
	return d, err
}

func (r *dealRepository) Create(ctx context.Context, deal domain.Deal) (domain.Deal, error) {
	status := deal.Status
	if status == "" {
		status = domain.StatusActive
	}
	currency := strings.TrimSpace(deal.Currency)
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO deals (customer_id, subsidiary_id, opportunity_id, name, amount, currency, product_type,
			status, closed_date, closed_by, closed_by_name, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING `+dealColumns,
		deal.CustomerID, deal.SubsidiaryID, deal.OpportunityID, strings.TrimSpace(deal.Name), deal.Amount,
		currency, nullText(deal.ProductType), status, deal.ClosedDate, deal.ClosedBy,
		nullText(deal.ClosedByName), nullText(deal.Notes),
	)
	created, err := scanDeal(row)
	if err != nil {
		return domain.Deal{}, wrap("create deal", err)
	}
	return created, nil
}

func (r *dealRepository) GetByID(ctx context.Context, id int64) (domain.Deal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1`, id)
	deal, err := scanDeal(row)
	if err != nil {
		return domain.Deal{}, wrap("get deal", err)
	}
	return deal, nil
}

func (r *dealRepository) List(ctx context.Context, filter domain.DealFilter) ([]domain.Deal, error) {
	limit, offset := clampLimit(filter.Limit, filter.Offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+dealColumns+`
		 FROM deals
		 WHERE ($1::BIGINT IS NULL OR customer_id = $1)
		   AND ($2 = '' OR status = $2)
		 ORDER BY closed_date DESC, id DESC
		 LIMIT $3 OFFSET $4`,
		filter.CustomerID, filter.Status, limit, offset,
	)
	if err != nil {
		return nil, wrap("list deals", err)
	}
	defer rows.Close()

	deals := []domain.Deal{}
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, wrap("scan deal", err)
		}
		deals = append(deals, deal)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate deals", err)
	}
	return deals, nil
}

func (r *dealRepository) TotalsByMonth(ctx context.Context, months int) ([]domain.MonthTotal, error) {
	if months <= 0 {
		months = 12
	}
	rows, err := r.pool.Query(ctx,
		`SELECT TO_CHAR(DATE_TRUNC('month', closed_date), 'YYYY-MM') AS month, COUNT(*), COALESCE(SUM(amount), 0)::BIGINT
		 FROM deals
		 WHERE closed_date >= DATE_TRUNC('month', NOW()) - make_interval(months => $1 - 1)
		 GROUP BY month
		 ORDER BY month`,
		months,
	)
	if err != nil {
		return nil, wrap("total deals by month", err)
	}
	defer rows.Close()

	totals := []domain.MonthTotal{}
	for rows.Next() {
		var total domain.MonthTotal
		if err := rows.Scan(&total.Month, &total.Count, &total.Amount); err != nil {
			return nil, wrap("scan month total", err)
		}
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate month totals", err)
	}
	return totals, nil
}

func (r *dealRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM deals WHERE id = $1`, id)
	if err != nil {
		return wrap("delete deal", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete deal %d: %w", id, ErrNotFound)
	}
	return nil
}
