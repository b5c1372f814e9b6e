package catalog

import (
	"context"
	"sort"
	"sync"

	"trainrx/internal/types"
)

// SortRules orders rules by priority (critical first), then creation time,
// keeping declaration order for ties.
func SortRules(rules []types.Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		ri, rj := rules[i].Priority.Rank(), rules[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
}

// Repository serves a Catalog. The catalog can be replaced at runtime;
// readers always see a complete catalog.
type Repository struct {
	mu      sync.RWMutex
	catalog *Catalog
}

// NewRepository returns a repository serving c.
func NewRepository(c *Catalog) *Repository {
	return &Repository{catalog: c}
}

// Swap installs c and returns the previous catalog.
func (r *Repository) Swap(c *Catalog) *Catalog {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.catalog
	r.catalog = c
	return prev
}

// Catalog returns the catalog currently served.
func (r *Repository) Catalog() *Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog
}

// ResolveVersion finds a tenant's version; types.DefaultVersion selects the
// tenant's default.
func (r *Repository) ResolveVersion(ctx context.Context, tenant, id string) (types.Version, error) {
	if err := ctx.Err(); err != nil {
		return types.Version{}, err
	}
	v, ok := r.Catalog().lookup(tenant, id)
	if !ok {
		return types.Version{}, &types.NotFoundError{Resource: "guideline version", ID: id}
	}
	return v.Version, nil
}

// ListRules returns a version's rules ordered for evaluation.
func (r *Repository) ListRules(ctx context.Context, tenant, versionID string) ([]types.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := r.Catalog().lookup(tenant, versionID)
	if !ok {
		return nil, &types.NotFoundError{Resource: "guideline version", ID: versionID}
	}
	rules := append([]types.Rule(nil), v.Rules...)
	SortRules(rules)
	return rules, nil
}
