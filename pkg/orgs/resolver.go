package orgs

import (
	"context"
	"database/sql"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// PlanResolver resolves catalog subscription plans by name and billing
// frequency. Plans are immutable reference data, so successful lookups are
// cached; misses are not, so newly seeded plans become visible immediately.
type PlanResolver struct {
	db    *sql.DB
	cache *lru.Cache[string, *SubscriptionPlan]
}

// NewPlanResolver creates a PlanResolver with a bounded lookup cache
func NewPlanResolver(db *sql.DB, cacheSize int) (*PlanResolver, error) {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	cache, err := lru.New[string, *SubscriptionPlan](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan cache: %w", err)
	}
	return &PlanResolver{db: db, cache: cache}, nil
}

// Resolve looks up a catalog plan by (name, frequency).
//
// A miss returns (nil, nil), not an error: provisioning proceeds with an
// absent plan id in that case. Callers that need a hard failure must check
// for a nil plan themselves.
func (r *PlanResolver) Resolve(ctx context.Context, name string, frequency BillingFrequency) (*SubscriptionPlan, error) {
	key := name + "/" + string(frequency)
	if plan, ok := r.cache.Get(key); ok {
		return plan, nil
	}

	query := `
		SELECT id, name, billing_frequency, price_id, created_at
		FROM subscription_plans
		WHERE name = $1 AND billing_frequency = $2
	`
	plan := &SubscriptionPlan{}
	err := r.db.QueryRowContext(ctx, query, name, frequency).Scan(
		&plan.ID, &plan.Name, &plan.BillingFrequency, &plan.PriceID, &plan.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve plan %q/%s: %w", name, frequency, err)
	}

	r.cache.Add(key, plan)
	return plan, nil
}
