package provisioning

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/robfig/cron/v3"

	"github.com/rentdesk/rentdesk/pkg/billing"
	"github.com/rentdesk/rentdesk/pkg/observability"
	"github.com/rentdesk/rentdesk/pkg/orgs"
)

// Reconciler sweeps the billing provider for customers that have no
// matching local org. A rollback after the remote customer was created
// leaves exactly this kind of orphan behind. The sweep detects and reports;
// it never deletes remote objects.
type Reconciler struct {
	store   *orgs.Store
	gateway billing.Gateway
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewReconciler creates a Reconciler
func NewReconciler(store *orgs.Store, gateway billing.Gateway, logger *observability.Logger, metrics *observability.Metrics) *Reconciler {
	return &Reconciler{
		store:   store,
		gateway: gateway,
		logger:  logger,
		metrics: metrics,
	}
}

// Run performs one sweep and returns the orphaned remote customer ids
func (r *Reconciler) Run(ctx context.Context) ([]string, error) {
	local, err := r.store.ListBillingCustomerIDs(ctx)
	if err != nil {
		r.observeRun("error")
		return nil, fmt.Errorf("failed to list local customer ids: %w", err)
	}

	// Listing customers is idempotent, so transient gateway failures are
	// retried with exponential backoff.
	remote, err := backoff.Retry(ctx, func() ([]*billing.Customer, error) {
		return r.gateway.ListCustomers(ctx, 100)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(3))
	if err != nil {
		r.observeRun("error")
		return nil, fmt.Errorf("failed to list remote customers: %w", err)
	}

	var orphans []string
	for _, customer := range remote {
		if _, ok := local[customer.ID]; !ok {
			orphans = append(orphans, customer.ID)
			r.logger.WithFields(map[string]interface{}{
				"customer_id": customer.ID,
				"email":       customer.Email,
			}).Warn("orphaned billing customer with no local org")
		}
	}

	if r.metrics != nil {
		r.metrics.OrphanedCustomersFound.Set(float64(len(orphans)))
	}
	r.observeRun("ok")
	r.logger.WithFields(map[string]interface{}{
		"local":   len(local),
		"remote":  len(remote),
		"orphans": len(orphans),
	}).Info("reconciler sweep finished")

	return orphans, nil
}

// Schedule starts periodic sweeps on the given cron spec and returns the
// runner so the caller can stop it on shutdown.
func (r *Reconciler) Schedule(spec string, timeout time.Duration) (*cron.Cron, error) {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := r.Run(ctx); err != nil {
			r.logger.WithError(err).Warn("reconciler sweep failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid reconciler schedule %q: %w", spec, err)
	}

	c.Start()
	return c, nil
}

func (r *Reconciler) observeRun(status string) {
	if r.metrics != nil {
		r.metrics.ReconcilerRunsTotal.WithLabelValues(status).Inc()
	}
}
