// Package orgs holds the tenant-organization domain model and its
// PostgreSQL persistence: the plan catalog resolver, the transactional
// unit of work used by provisioning, and the non-transactional store used
// by the update path and the reconciler.
//
// An org carries exactly one of a catalog plan linkage or a custom payment
// schedule once provisioning completes; nested structures (settings, custom
// schedule, feature limits, page tree) are stored as JSONB blobs on the org
// row.
package orgs
