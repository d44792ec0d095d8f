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

const organizationColumns = `id, name, COALESCE(registered_name, ''), COALESCE(local_name, ''), COALESCE(trade_name, ''),
	COALESCE(global_one_id, ''), COALESCE(industry, ''), COALESCE(industry_code, ''), COALESCE(business_type, ''),
	founded_date, operating_status, is_independent, COALESCE(registration_country, ''),
	COALESCE(registration_address, ''), COALESCE(registration_number, ''), COALESCE(website, ''),
	COALESCE(phone, ''), COALESCE(email, ''), capital_amount, COALESCE(capital_currency, ''), annual_revenue,
	COALESCE(revenue_currency, ''), revenue_year, employee_count, COALESCE(stock_exchange, ''),
	COALESCE(stock_symbol, ''), risk_level, COALESCE(risk_description, ''), COALESCE(ceo_name, ''),
	COALESCE(description, ''), COALESCE(notes, ''), created_by, created_at, updated_at`

// organizationRepository implements OrganizationRepository interface
type organizationRepository struct {
	pool *pgxpool.Pool
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(pool *pgxpool.Pool) OrganizationRepository {
	return &organizationRepository{pool: pool}
}

func scanOrganization(row pgx.Row) (domain.Organization, error) {
	var (
		org     domain.Organization
		founded pgtype.Date
	)
	err := row.Scan(
		&org.ID, &org.Name, &org.RegisteredName, &org.LocalName, &org.TradeName,
		&org.GlobalOneID, &org.Industry, &org.IndustryCode, &org.BusinessType,
		&founded, &org.OperatingStatus, &org.IsIndependent, &org.RegistrationCountry,
		&org.RegistrationAddress, &org.RegistrationNumber, &org.Website,
		&org.Phone, &org.Email, &org.CapitalAmount, &org.CapitalCurrency, &org.AnnualRevenue,
		&org.RevenueCurrency, &org.RevenueYear, &org.EmployeeCount, &org.StockExchange,
		&org.StockSymbol, &org.RiskLevel, &org.RiskDescription, &org.CEOName,
		&org.Description, &org.Notes, &org.CreatedBy, &org.CreatedAt, &org.UpdatedAt,
	)
	if err != nil {
		return domain.Organization{}, err
	}
	org.FoundedDate = dateValue(founded)
	return org, nil
}

func organizationArgs(org domain.Organization) []any {
	status := org.OperatingStatus
	if strings.TrimSpace(status) == "" {
		status = domain.DefaultOperatingStatus
	}
	risk := org.RiskLevel
	if strings.TrimSpace(risk) == "" {
		risk = domain.DefaultRiskLevel
	}
	return []any{
		strings.TrimSpace(org.Name), nullText(org.RegisteredName), nullText(org.LocalName), nullText(org.TradeName),
		nullText(org.GlobalOneID), nullText(org.Industry), nullText(org.IndustryCode), nullText(org.BusinessType),
		nullDate(org.FoundedDate), status, org.IsIndependent, nullText(org.RegistrationCountry),
		nullText(org.RegistrationAddress), nullText(org.RegistrationNumber), nullText(org.Website),
		nullText(org.Phone), nullText(org.Email), org.CapitalAmount, nullText(org.CapitalCurrency), org.AnnualRevenue,
		nullText(org.RevenueCurrency), org.RevenueYear, org.EmployeeCount, nullText(org.StockExchange),
		nullText(org.StockSymbol), risk, nullText(org.RiskDescription), nullText(org.CEOName),
		nullText(org.Description), nullText(org.Notes),
	}
}

// Create creates a new organization
func (r *organizationRepository) Create(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	args := append(organizationArgs(org), org.CreatedBy)
	row := r.pool.QueryRow(ctx,
		`INSERT INTO customers (name, registered_name, local_name, trade_name, global_one_id, industry,
			industry_code, business_type, founded_date, operating_status, is_independent, registration_country,
			registration_address, registration_number, website, phone, email, capital_amount, capital_currency,
			annual_revenue, revenue_currency, revenue_year, employee_count, stock_exchange, stock_symbol,
			risk_level, risk_description, ceo_name, description, notes, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31)
		 RETURNING `+organizationColumns,
		args...,
	)
	created, err := scanOrganization(row)
	if err != nil {
		return domain.Organization{}, wrap("create organization", err)
	}
	return created, nil
}

// GetByID retrieves an organization by ID
func (r *organizationRepository) GetByID(ctx context.Context, id int64) (domain.Organization, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+organizationColumns+` FROM customers WHERE id = $1`, id)
	org, err := scanOrganization(row)
	if err != nil {
		return domain.Organization{}, wrap("get organization", err)
	}
	return org, nil
}

// GetByIDs retrieves the organizations for ids in no particular order; missing ids are skipped.
func (r *organizationRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Organization, error) {
	if len(ids) == 0 {
		return []domain.Organization{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+organizationColumns+` FROM customers WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, wrap("get organizations", err)
	}
	return collectOrganizations(rows)
}

// FindByName prefers an exact case-insensitive name match, then the most recently updated
// substring match on name or registered name.
func (r *organizationRepository) FindByName(ctx context.Context, name string) (domain.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Organization{}, fmt.Errorf("failed to find organization: %w: empty name", ErrNotFound)
	}
	row := r.pool.QueryRow(ctx,
		`SELECT `+organizationColumns+`
		 FROM customers
		 WHERE name ILIKE '%' || $1 || '%' OR registered_name ILIKE '%' || $1 || '%'
		 ORDER BY (LOWER(name) = LOWER($2)) DESC, updated_at DESC, id DESC
		 LIMIT 1`,
		escapeLike(name), name,
	)
	org, err := scanOrganization(row)
	if err != nil {
		return domain.Organization{}, wrap(fmt.Sprintf("find organization %q", name), err)
	}
	return org, nil
}

// List retrieves organizations, optionally filtered by a search term across name, registered name
// and industry.
func (r *organizationRepository) List(ctx context.Context, filter domain.OrganizationFilter) ([]domain.Organization, error) {
	limit, offset := clampLimit(filter.Limit, filter.Offset)
	search := strings.TrimSpace(filter.Search)

	var (
		rows pgx.Rows
		err  error
	)
	if search == "" {
		rows, err = r.pool.Query(ctx,
			`SELECT `+organizationColumns+` FROM customers ORDER BY updated_at DESC, id DESC LIMIT $1 OFFSET $2`,
			limit, offset)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT `+organizationColumns+`
			 FROM customers
			 WHERE name ILIKE '%' || $1 || '%'
			    OR registered_name ILIKE '%' || $1 || '%'
			    OR industry ILIKE '%' || $1 || '%'
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $2 OFFSET $3`,
			escapeLike(search), limit, offset)
	}
	if err != nil {
		return nil, wrap("list organizations", err)
	}
	return collectOrganizations(rows)
}

func collectOrganizations(rows pgx.Rows) ([]domain.Organization, error) {
	defer rows.Close()

	organizations := []domain.Organization{}
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, wrap("scan organization", err)
		}
		organizations = append(organizations, org)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate organizations", err)
	}
	return organizations, nil
}

// Count returns the number of organizations.
func (r *organizationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&count); err != nil {
		return 0, wrap("count organizations", err)
	}
	return count, nil
}

// Update updates an organization
func (r *organizationRepository) Update(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	args := append(organizationArgs(org), org.ID)
	row := r.pool.QueryRow(ctx,
		`UPDATE customers SET name = $1, registered_name = $2, local_name = $3, trade_name = $4,
			global_one_id = $5, industry = $6, industry_code = $7, business_type = $8, founded_date = $9,
			operating_status = $10, is_independent = $11, registration_country = $12, registration_address = $13,
			registration_number = $14, website = $15, phone = $16, email = $17, capital_amount = $18,
			capital_currency = $19, annual_revenue = $20, revenue_currency = $21, revenue_year = $22,
			employee_count = $23, stock_exchange = $24, stock_symbol = $25, risk_level = $26,
			risk_description = $27, ceo_name = $28, description = $29, notes = $30, updated_at = NOW()
		 WHERE id = $31
		 RETURNING `+organizationColumns,
		args...,
	)
	updated, err := scanOrganization(row)
	if err != nil {
		return domain.Organization{}, wrap("update organization", err)
	}
	return updated, nil
}

// Delete deletes an organization
func (r *organizationRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return wrap("delete organization", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete organization %d: %w", id, ErrNotFound)
	}
	return nil
}
