package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/rpattn/crmdash/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const subsidiaryColumns = `id, customer_id, parent_subsidiary_id, name, COALESCE(local_name, ''), entity_type,
	ownership_percentage, COALESCE(country, ''), COALESCE(region, ''), COALESCE(city, ''), COALESCE(address, ''),
	latitude, longitude, COALESCE(industry, ''), COALESCE(operating_status, ''), employee_count, annual_revenue,
	COALESCE(revenue_currency, ''), relationship_type, COALESCE(description, ''), created_at, updated_at`

type subsidiaryRepository struct {
	pool *pgxpool.Pool
}

// NewSubsidiaryRepository wires a repository backed by pgxpool.
func NewSubsidiaryRepository(pool *pgxpool.Pool) SubsidiaryRepository {
	return &subsidiaryRepository{pool: pool}
}

func scanSubsidiary(row pgx.Row) (domain.Subsidiary, error) {
	var s domain.Subsidiary
	err := row.Scan(
		&s.ID, &s.CustomerID, &s.ParentSubsidiaryID, &s.Name, &s.LocalName, &s.EntityType,
		&s.OwnershipPercentage, &s.Country, &s.Region, &s.City, &s.Address,
		&s.Latitude, &s.Longitude, &s.Industry, &s.OperatingStatus, &s.EmployeeCount, &s.AnnualRevenue,
		&s.RevenueCurrency, &s.RelationshipType, &s.Description, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

func subsidiaryArgs(s domain.Subsidiary) []any {
	entityType := strings.TrimSpace(s.EntityType)
	if entityType == "" {
		entityType = domain.DefaultEntityType
	}
	relationship := strings.TrimSpace(s.RelationshipType)
	if relationship == "" {
		relationship = domain.DefaultRelationshipType
	}
	return []any{
		s.CustomerID, s.ParentSubsidiaryID, strings.TrimSpace(s.Name), nullText(s.LocalName), entityType,
		s.OwnershipPercentage, nullText(s.Country), nullText(s.Region), nullText(s.City), nullText(s.Address),
		s.Latitude, s.Longitude, nullText(s.Industry), nullText(s.OperatingStatus), s.EmployeeCount, s.AnnualRevenue,
		nullText(s.RevenueCurrency), relationship, nullText(s.Description),
	}
}

func (r *subsidiaryRepository) Create(ctx context.Context, sub domain.Subsidiary) (domain.Subsidiary, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO subsidiaries (customer_id, parent_subsidiary_id, name, local_name, entity_type,
			ownership_percentage, country, region, city, address, latitude, longitude, industry,
			operating_status, employee_count, annual_revenue, revenue_currency, relationship_type, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		 RETURNING `+subsidiaryColumns,
		subsidiaryArgs(sub)...,
	)
	created, err := scanSubsidiary(row)
	if err != nil {
		return domain.Subsidiary{}, wrap("create subsidiary", err)
	}
	return created, nil
}

func (r *subsidiaryRepository) GetByID(ctx context.Context, id int64) (domain.Subsidiary, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+subsidiaryColumns+` FROM subsidiaries WHERE id = $1`, id)
	sub, err := scanSubsidiary(row)
	if err != nil {
		return domain.Subsidiary{}, wrap("get subsidiary", err)
	}
	return sub, nil
}

func (r *subsidiaryRepository) FindByExactName(ctx context.Context, name string) (domain.Subsidiary, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+subsidiaryColumns+` FROM subsidiaries WHERE name = $1 ORDER BY id LIMIT 1`,
		strings.TrimSpace(name),
	)
	sub, err := scanSubsidiary(row)
	if err != nil {
		return domain.Subsidiary{}, wrap(fmt.Sprintf("find subsidiary %q", name), err)
	}
	return sub, nil
}

func (r *subsidiaryRepository) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Subsidiary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+subsidiaryColumns+` FROM subsidiaries WHERE customer_id = $1 ORDER BY id`,
		customerID,
	)
	if err != nil {
		return nil, wrap("list subsidiaries", err)
	}
	return collectSubsidiaries(rows)
}

func (r *subsidiaryRepository) ListWithCoordinates(ctx context.Context, customerID *int64) ([]domain.Subsidiary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+subsidiaryColumns+`
		 FROM subsidiaries
		 WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		   AND ($1::BIGINT IS NULL OR customer_id = $1)
		 ORDER BY id`,
		customerID,
	)
	if err != nil {
		return nil, wrap("list subsidiary locations", err)
	}
	return collectSubsidiaries(rows)
}

func collectSubsidiaries(rows pgx.Rows) ([]domain.Subsidiary, error) {
	defer rows.Close()

	subs := []domain.Subsidiary{}
	for rows.Next() {
		sub, err := scanSubsidiary(rows)
		if err != nil {
			return nil, wrap("scan subsidiary", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate subsidiaries", err)
	}
	return subs, nil
}

func (r *subsidiaryRepository) Update(ctx context.Context, sub domain.Subsidiary) (domain.Subsidiary, error) {
	if sub.ParentSubsidiaryID != nil && *sub.ParentSubsidiaryID == sub.ID {
		return domain.Subsidiary{}, fmt.Errorf("failed to update subsidiary: %w: subsidiary cannot be its own parent", ErrConflict)
	}
	args := append(subsidiaryArgs(sub), sub.ID)
	row := r.pool.QueryRow(ctx,
		`UPDATE subsidiaries SET customer_id = $1, parent_subsidiary_id = $2, name = $3, local_name = $4,
			entity_type = $5, ownership_percentage = $6, country = $7, region = $8, city = $9, address = $10,
			latitude = $11, longitude = $12, industry = $13, operating_status = $14, employee_count = $15,
			annual_revenue = $16, revenue_currency = $17, relationship_type = $18, description = $19,
			updated_at = NOW()
		 WHERE id = $20
		 RETURNING `+subsidiaryColumns,
		args...,
	)
	updated, err := scanSubsidiary(row)
	if err != nil {
		return domain.Subsidiary{}, wrap("update subsidiary", err)
	}
	return updated, nil
}

func (r *subsidiaryRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subsidiaries WHERE id = $1`, id)
	if err != nil {
		return wrap("delete subsidiary", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete subsidiary %d: %w", id, ErrNotFound)
	}
	return nil
}
