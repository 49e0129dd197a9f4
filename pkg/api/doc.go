// Package api exposes the HTTP surface: customer provisioning, org
// management, and the health and metrics endpoints.
package api
