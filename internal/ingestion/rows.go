package ingestion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rpattn/crmdash/internal/domain"
)

// rowPlan is a validated row waiting for reference resolution and insert.
type rowPlan interface {
	commit(ctx context.Context, c *committer) (int64, error)
}

type committer struct {
	stores   Stores
	resolver *Resolver
}

// fieldReader keeps the first coercion error so row builders read straight through.
type fieldReader struct {
	rec Record
	err error
}

func (p *fieldReader) text(field string) string {
	return p.rec.String(field)
}

func (p *fieldReader) lower(field, fallback string) string {
	if s, ok := p.rec.Text(field); ok {
		return strings.ToLower(s)
	}
	return fallback
}

func (p *fieldReader) date(field, label string) *time.Time {
	if p.err != nil {
		return nil
	}
	t, err := p.rec.Date(field, label)
	p.err = err
	return t
}

func (p *fieldReader) money(field, label string) *int64 {
	if p.err != nil {
		return nil
	}
	v, err := p.rec.Money(field, label)
	p.err = err
	return v
}

func (p *fieldReader) amount(field, label string) int64 {
	if p.err != nil {
		return 0
	}
	v, err := p.rec.MoneyOrZero(field, label)
	p.err = err
	return v
}

func (p *fieldReader) count(field, label string) *int {
	if p.err != nil {
		return nil
	}
	v, err := p.rec.Count(field, label)
	p.err = err
	return v
}

func (p *fieldReader) intRange(field, label string, lo, hi int) *int {
	if p.err != nil {
		return nil
	}
	v, err := p.rec.IntInRange(field, label, lo, hi)
	p.err = err
	return v
}

func (p *fieldReader) float(field, label string) *float64 {
	if p.err != nil {
		return nil
	}
	v, err := p.rec.Float(field, label)
	p.err = err
	return v
}

func (p *fieldReader) floatRange(field, label string, lo, hi float64) *float64 {
	if p.err != nil {
		return nil
	}
	v, err := p.rec.FloatInRange(field, label, lo, hi)
	p.err = err
	return v
}

func (p *fieldReader) id(field, label string) *int64 {
	if p.err != nil {
		return nil
	}
	v, err := p.rec.IntInRange(field, label, 1, math.MaxInt32)
	if err != nil {
		p.err = fmt.Errorf("%s must be a positive whole number", label)
		return nil
	}
	if v == nil {
		return nil
	}
	id := int64(*v)
	return &id
}

func required(rec Record, field, message string) (string, error) {
	v, ok := rec.Text(field)
	if !ok {
		return "", errors.New(message)
	}
	return v, nil
}

func actorID(actor domain.Actor) *int64 {
	if actor.ID == 0 {
		return nil
	}
	id := actor.ID
	return &id
}

// buildRow validates and coerces one record without touching any store.
func buildRow(dataType domain.DataType, rec Record, actor domain.Actor, now time.Time) (rowPlan, error) {
	switch dataType {
	case domain.DataTypeCustomer:
		return buildCustomer(rec, actor)
	case domain.DataTypeSubsidiary:
		return buildSubsidiary(rec)
	case domain.DataTypeOpportunity:
		return buildOpportunity(rec, actor)
	case domain.DataTypeDeal:
		return buildDeal(rec, actor, now)
	case domain.DataTypeNews:
		return buildNews(rec, now)
	case domain.DataTypeProject:
		return buildProject(rec)
	case domain.DataTypeRecommendation:
		return buildRecommendation(rec)
	default:
		return nil, fmt.Errorf("unsupported data type %q", dataType)
	}
}

type customerRow struct {
	org domain.Organization
}

func buildCustomer(rec Record, actor domain.Actor) (rowPlan, error) {
	name, err := required(rec, "name", "Company name is required")
	if err != nil {
		return nil, err
	}
	p := &fieldReader{rec: rec}

	org := domain.NewOrganization(name)
	org.RegisteredName = p.text("registeredName")
	org.LocalName = p.text("localName")
	org.TradeName = p.text("tradeName")
	org.GlobalOneID = p.text("globalOneId")
	org.Industry = p.text("industry")
	org.IndustryCode = p.text("industryCode")
	org.BusinessType = p.text("businessType")
	org.FoundedDate = p.date("foundedDate", "Founded date")
	org.OperatingStatus = p.lower("operatingStatus", domain.DefaultOperatingStatus)
	org.IsIndependent = rec.Bool("isIndependent", true)
	org.RegistrationCountry = p.text("registrationCountry")
	org.RegistrationAddress = p.text("registrationAddress")
	org.RegistrationNumber = p.text("registrationNumber")
	org.Website = p.text("website")
	org.Phone = p.text("phone")
	org.Email = p.text("email")
	org.CapitalAmount = p.money("capitalAmount", "Capital amount")
	org.CapitalCurrency = rec.Currency("capitalCurrency", "")
	org.AnnualRevenue = p.money("annualRevenue", "Annual revenue")
	org.RevenueCurrency = rec.Currency("revenueCurrency", "")
	org.RevenueYear = p.intRange("revenueYear", "Revenue year", minYear, maxYear)
	org.EmployeeCount = p.count("employeeCount", "Employee count")
	org.StockExchange = p.text("stockExchange")
	org.StockSymbol = p.text("stockSymbol")
	org.RiskLevel = p.lower("riskLevel", domain.DefaultRiskLevel)
	org.RiskDescription = p.text("riskDescription")
	org.CEOName = p.text("ceoName")
	org.Description = p.text("description")
	org.Notes = p.text("notes")
	org.CreatedBy = actorID(actor)
	if p.err != nil {
		return nil, p.err
	}
	return customerRow{org: org}, nil
}

func (r customerRow) commit(ctx context.Context, c *committer) (int64, error) {
	created, err := c.stores.Organizations.Create(ctx, r.org)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

type subsidiaryRow struct {
	sub        domain.Subsidiary
	customerID *int64
	parentName string
}

func buildSubsidiary(rec Record) (rowPlan, error) {
	name, err := required(rec, "name", "Subsidiary name is required")
	if err != nil {
		return nil, err
	}
	p := &fieldReader{rec: rec}

	row := subsidiaryRow{
		sub:        domain.NewSubsidiary(domain.ParentRef{}, name),
		customerID: p.id("customerId", "Customer id"),
		parentName: p.text("parentName"),
	}
	if p.err == nil && row.customerID == nil && row.parentName == "" {
		return nil, errors.New("Parent company name or customer id is required")
	}

	sub := &row.sub
	sub.LocalName = p.text("localName")
	sub.EntityType = p.lower("entityType", domain.DefaultEntityType)
	sub.OwnershipPercentage = p.floatRange("ownershipPercentage", "Ownership percentage", 0, 100)
	sub.Country = p.text("country")
	sub.Region = p.text("region")
	sub.City = p.text("city")
	sub.Address = p.text("address")
	sub.Latitude = p.floatRange("latitude", "Latitude", -90, 90)
	sub.Longitude = p.floatRange("longitude", "Longitude", -180, 180)
	sub.Industry = p.text("industry")
	sub.OperatingStatus = p.lower("operatingStatus", domain.DefaultOperatingStatus)
	sub.EmployeeCount = p.count("employeeCount", "Employee count")
	sub.AnnualRevenue = p.money("annualRevenue", "Annual revenue")
	sub.RevenueCurrency = rec.Currency("revenueCurrency", "")
	sub.RelationshipType = p.lower("relationshipType", domain.DefaultRelationshipType)
	sub.Description = p.text("description")
	if p.err != nil {
		return nil, p.err
	}
	return row, nil
}

func (r subsidiaryRow) commit(ctx context.Context, c *committer) (int64, error) {
	parent, err := c.resolver.ResolveParent(ctx, r.customerID, r.parentName)
	if err != nil {
		return 0, err
	}
	sub := r.sub
	sub.CustomerID = parent.CustomerID
	sub.ParentSubsidiaryID = parent.ParentSubsidiaryID

	created, err := c.stores.Subsidiaries.Create(ctx, sub)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

type opportunityRow struct {
	opp          domain.Opportunity
	customerName string
}

func buildOpportunity(rec Record, actor domain.Actor) (rowPlan, error) {
	name, err := required(rec, "name", "Opportunity name is required")
	if err != nil {
		return nil, err
	}
	customer, err := required(rec, "customerName", "Customer name is required")
	if err != nil {
		return nil, err
	}
	p := &fieldReader{rec: rec}

	opp := domain.NewOpportunity(0, name)
	opp.Stage = strings.ReplaceAll(p.lower("stage", domain.StageLead), " ", "_")
	if !domain.IsOpportunityStage(opp.Stage) {
		return nil, fmt.Errorf("Unknown opportunity stage: %s", opp.Stage)
	}
	opp.Amount = p.amount("amount", "Amount")
	opp.Currency = rec.Currency("currency", domain.DefaultCurrency)
	opp.Probability = p.intRange("probability", "Probability", 0, 100)
	opp.ProductType = p.text("productType")
	opp.ExpectedCloseDate = p.date("expectedCloseDate", "Expected close date")
	opp.Description = p.text("description")
	opp.Notes = p.text("notes")
	opp.OwnerID = actorID(actor)
	opp.OwnerName = actor.Name
	if p.err != nil {
		return nil, p.err
	}
	return opportunityRow{opp: opp, customerName: customer}, nil
}

func (r opportunityRow) commit(ctx context.Context, c *committer) (int64, error) {
	customerID, err := c.resolver.ResolveCustomer(ctx, r.customerName)
	if err != nil {
		return 0, err
	}
	opp := r.opp
	opp.CustomerID = customerID

	created, err := c.stores.Opportunities.Create(ctx, opp)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

type dealRow struct {
	deal         domain.Deal
	customerName string
}

func buildDeal(rec Record, actor domain.Actor, now time.Time) (rowPlan, error) {
	name, err := required(rec, "name", "Deal name is required")
	if err != nil {
		return nil, err
	}
	customer, err := required(rec, "customerName", "Customer name is required")
	if err != nil {
		return nil, err
	}
	p := &fieldReader{rec: rec}

	closedAt := now
	if t := p.date("closedDate", "Closed date"); t != nil {
		closedAt = *t
	}
	deal := domain.NewDeal(0, name, closedAt)
	deal.Amount = p.amount("amount", "Amount")
	deal.Currency = rec.Currency("currency", domain.DefaultCurrency)
	deal.ProductType = p.text("productType")
	deal.Status = p.lower("status", domain.StatusActive)
	if !domain.IsDealStatus(deal.Status) {
		return nil, fmt.Errorf("Unknown deal status: %s", deal.Status)
	}
	deal.Notes = p.text("notes")
	deal.ClosedBy = actorID(actor)
	deal.ClosedByName = actor.Name
	if p.err != nil {
		return nil, p.err
	}
	return dealRow{deal: deal, customerName: customer}, nil
}

func (r dealRow) commit(ctx context.Context, c *committer) (int64, error) {
	customerID, err := c.resolver.ResolveCustomer(ctx, r.customerName)
	if err != nil {
		return 0, err
	}
	deal := r.deal
	deal.CustomerID = customerID

	created, err := c.stores.Deals.Create(ctx, deal)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

type newsRow struct {
	item         domain.NewsItem
	customerName string
}

func buildNews(rec Record, now time.Time) (rowPlan, error) {
	title, err := required(rec, "title", "News title is required")
	if err != nil {
		return nil, err
	}
	customer, err := required(rec, "customerName", "Customer name is required")
	if err != nil {
		return nil, err
	}
	p := &fieldReader{rec: rec}

	item := domain.NewNewsItem(0, title)
	item.Summary = p.text("summary")
	item.Content = p.text("content")
	item.SourceURL = p.text("sourceUrl")
	item.SourceName = p.text("sourceName")
	if item.SourceName == "" {
		item.SourceName = domain.NewsSourceImport
	}
	item.PublishedDate = p.date("publishedDate", "Published date")
	if item.PublishedDate == nil {
		published := now
		item.PublishedDate = &published
	}
	item.Category = p.text("category")
	item.Sentiment = p.lower("sentiment", domain.DefaultSentiment)
	item.RelevanceScore = p.intRange("relevanceScore", "Relevance score", 0, 100)
	if p.err != nil {
		return nil, p.err
	}
	return newsRow{item: item, customerName: customer}, nil
}

func (r newsRow) commit(ctx context.Context, c *committer) (int64, error) {
	customerID, err := c.resolver.ResolveCustomer(ctx, r.customerName)
	if err != nil {
		return 0, err
	}
	item := r.item
	item.CustomerID = customerID

	created, err := c.stores.News.Create(ctx, item)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

type projectRow struct {
	project domain.Project
}

func buildProject(rec Record) (rowPlan, error) {
	name, err := required(rec, "name", "Project name is required")
	if err != nil {
		return nil, err
	}
	p := &fieldReader{rec: rec}

	project := domain.Project{
		OriginalID: p.text("originalId"),
		Name:       name,
		Investment: p.money("investment", "Investment"),
		Country:    p.text("country"),
		Sector:     p.text("sector"),
		Stage:      p.text("stage"),
		Contractor: p.text("contractor"),
		StartDate:  p.date("startDate", "Start date"),
		Summary:    p.text("summary"),
	}
	if p.err != nil {
		return nil, p.err
	}
	return projectRow{project: project}, nil
}

func (r projectRow) commit(ctx context.Context, c *committer) (int64, error) {
	created, err := c.stores.Projects.Create(ctx, r.project)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

type recommendationRow struct {
	rec domain.Recommendation
}

func buildRecommendation(rec Record) (rowPlan, error) {
	projectID, err := required(rec, "projectId", "Project id is required")
	if err != nil {
		return nil, err
	}
	product, err := required(rec, "productName", "Product name is required")
	if err != nil {
		return nil, err
	}
	p := &fieldReader{rec: rec}

	recommendation := domain.Recommendation{
		ProjectID:   projectID,
		ProductName: product,
		Rank:        p.intRange("rank", "Rank", 1, math.MaxInt32),
		Confidence:  p.text("confidence"),
		AIScore:     p.float("aiScore", "AI score"),
	}
	if p.err != nil {
		return nil, p.err
	}
	return recommendationRow{rec: recommendation}, nil
}

func (r recommendationRow) commit(ctx context.Context, c *committer) (int64, error) {
	created, err := c.stores.Projects.CreateRecommendation(ctx, r.rec)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}
