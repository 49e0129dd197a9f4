// Package billing wraps the external payment provider behind the Gateway
// interface: customer creation, standing and custom subscriptions, checkout
// sessions for price changes, and ad-hoc draft invoicing.
//
// The remote system is not transactional. Callers decide failure policy:
// provisioning treats any gateway error as fatal, the re-biller logs and
// moves on.
package billing
