package domain

import (
	"strings"
	"time"
)

// Organization is a top-level customer company.
type Organization struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name"`
	RegisteredName      string     `json:"registered_name,omitempty"`
	LocalName           string     `json:"local_name,omitempty"`
	TradeName           string     `json:"trade_name,omitempty"`
	GlobalOneID         string     `json:"global_one_id,omitempty"`
	Industry            string     `json:"industry,omitempty"`
	IndustryCode        string     `json:"industry_code,omitempty"`
	BusinessType        string     `json:"business_type,omitempty"`
	FoundedDate         *time.Time `json:"founded_date,omitempty"`
	OperatingStatus     string     `json:"operating_status"`
	IsIndependent       bool       `json:"is_independent"`
	RegistrationCountry string     `json:"registration_country,omitempty"`
	RegistrationAddress string     `json:"registration_address,omitempty"`
	RegistrationNumber  string     `json:"registration_number,omitempty"`
	Website             string     `json:"website,omitempty"`
	Phone               string     `json:"phone,omitempty"`
	Email               string     `json:"email,omitempty"`
	CapitalAmount       *int64     `json:"capital_amount,omitempty"`
	CapitalCurrency     string     `json:"capital_currency,omitempty"`
	AnnualRevenue       *int64     `json:"annual_revenue,omitempty"`
	RevenueCurrency     string     `json:"revenue_currency,omitempty"`
	RevenueYear         *int       `json:"revenue_year,omitempty"`
	EmployeeCount       *int       `json:"employee_count,omitempty"`
	StockExchange       string     `json:"stock_exchange,omitempty"`
	StockSymbol         string     `json:"stock_symbol,omitempty"`
	RiskLevel           string     `json:"risk_level"`
	RiskDescription     string     `json:"risk_description,omitempty"`
	CEOName             string     `json:"ceo_name,omitempty"`
	Description         string     `json:"description,omitempty"`
	Notes               string     `json:"notes,omitempty"`
	CreatedBy           *int64     `json:"created_by,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

const (
	DefaultOperatingStatus = "active"
	DefaultRiskLevel       = "unknown"
)

// NewOrganization creates an organization with the default status fields populated.
func NewOrganization(name string) Organization {
	now := time.Now().UTC()
	return Organization{
		Name:            strings.TrimSpace(name),
		OperatingStatus: DefaultOperatingStatus,
		IsIndependent:   true,
		RiskLevel:       DefaultRiskLevel,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// WithName returns a copy of the organization with an updated name.
func (o Organization) WithName(name string) Organization {
	o.Name = strings.TrimSpace(name)
	o.UpdatedAt = time.Now().UTC()
	return o
}

// WithDescription returns a copy of the organization with an updated description.
func (o Organization) WithDescription(description string) Organization {
	o.Description = description
	o.UpdatedAt = time.Now().UTC()
	return o
}

// OrganizationFilter narrows organization listings.
type OrganizationFilter struct {
	Search string
	Limit  int
	Offset int
}
