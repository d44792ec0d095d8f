package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rpattn/crmdash/internal/domain"
	"github.com/rpattn/crmdash/internal/repository"
)

// OrganizationFinder looks customers up by name fragment.
type OrganizationFinder interface {
	FindByName(ctx context.Context, name string) (domain.Organization, error)
}

// SubsidiaryFinder looks subsidiaries up by exact name.
type SubsidiaryFinder interface {
	FindByExactName(ctx context.Context, name string) (domain.Subsidiary, error)
}

// Resolver turns human-entered company names into store identifiers.
type Resolver struct {
	orgs OrganizationFinder
	subs SubsidiaryFinder
}

// NewResolver builds a resolver over the given stores.
func NewResolver(orgs OrganizationFinder, subs SubsidiaryFinder) *Resolver {
	return &Resolver{orgs: orgs, subs: subs}
}

// ResolveParent places a subsidiary in the corporate tree. An explicit customer id wins. Otherwise
// the name is matched against customers first, then against existing subsidiaries, in which case
// the root customer is inherited from the matched subsidiary.
func (r *Resolver) ResolveParent(ctx context.Context, customerID *int64, parentName string) (domain.ParentRef, error) {
	if customerID != nil {
		return domain.ParentRef{CustomerID: *customerID}, nil
	}
	parentName = strings.TrimSpace(parentName)
	if parentName == "" {
		return domain.ParentRef{}, errors.New("Parent company name or customer id is required")
	}

	org, err := r.orgs.FindByName(ctx, parentName)
	switch {
	case err == nil:
		return domain.ParentRef{CustomerID: org.ID}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return domain.ParentRef{}, fmt.Errorf("look up parent company %q: %w", parentName, err)
	}

	sub, err := r.subs.FindByExactName(ctx, parentName)
	switch {
	case err == nil:
		return domain.ParentFromSubsidiary(sub), nil
	case errors.Is(err, repository.ErrNotFound):
		return domain.ParentRef{}, fmt.Errorf("Parent company not found: %s", parentName)
	default:
		return domain.ParentRef{}, fmt.Errorf("look up parent subsidiary %q: %w", parentName, err)
	}
}

// ResolveCustomer finds the customer a sales or news row belongs to.
func (r *Resolver) ResolveCustomer(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	org, err := r.orgs.FindByName(ctx, name)
	switch {
	case err == nil:
		return org.ID, nil
	case errors.Is(err, repository.ErrNotFound):
		return 0, fmt.Errorf("Customer not found: %s", name)
	default:
		return 0, fmt.Errorf("look up customer %q: %w", name, err)
	}
}
