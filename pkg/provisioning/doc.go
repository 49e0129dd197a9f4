// Package provisioning implements the customer provisioning saga: the
// orchestrator that creates an org, its owning user, team, role entity, and
// billing subscription as a single logical unit, plus the post-commit
// notifier, the price-change re-biller, and the orphan reconciler.
//
// All local writes happen inside one orgs.UnitOfWork. Billing gateway calls
// are remote and non-transactional; a rollback after the customer has been
// created remotely leaves an orphaned billing customer behind, which the
// reconciler detects but does not clean up.
package provisioning
