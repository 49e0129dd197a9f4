package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rentdesk/rentdesk/pkg/httputil"
	"github.com/rentdesk/rentdesk/pkg/observability"
	"github.com/rentdesk/rentdesk/pkg/orgs"
	"github.com/rentdesk/rentdesk/pkg/provisioning"
)

// OrgHandlers handles org read and update endpoints
type OrgHandlers struct {
	store    *orgs.Store
	rebiller *provisioning.Rebiller
}

// NewOrgHandlers creates org handlers
func NewOrgHandlers(store *orgs.Store, rebiller *provisioning.Rebiller) *OrgHandlers {
	return &OrgHandlers{store: store, rebiller: rebiller}
}

// RegisterRoutes registers org routes
func (h *OrgHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/orgs/{id:[0-9]+}", h.getOrg).Methods("GET")
	router.HandleFunc("/orgs/{id:[0-9]+}", h.updateOrg).Methods("PUT")
}

// getOrg handles GET /orgs/{id}
func (h *OrgHandlers) getOrg(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	org, err := h.store.GetOrg(r.Context(), id)
	if err != nil {
		if errors.Is(err, orgs.ErrOrgNotFound) {
			httputil.WriteNotFoundError(w, "org not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, org)
}

// updateOrg handles PUT /orgs/{id}. The update commits first; re-billing
// runs after and can never turn a committed update into a failure.
func (h *OrgHandlers) updateOrg(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	var updates orgs.UpdateOrgRequest
	if !httputil.ParseJSONOrError(w, r, &updates) {
		return
	}

	oldOrg, err := h.store.GetOrg(r.Context(), id)
	if err != nil {
		if errors.Is(err, orgs.ErrOrgNotFound) {
			httputil.WriteNotFoundError(w, "org not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	if err := h.store.UpdateOrg(r.Context(), id, &updates); err != nil {
		if errors.Is(err, orgs.ErrOrgNotFound) {
			httputil.WriteNotFoundError(w, "org not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	newOrg, err := h.store.GetOrg(r.Context(), id)
	if err != nil {
		// The update itself committed; report success with what we have.
		observability.FromContext(r.Context()).WithError(err).Warn("could not re-read org after update")
		httputil.WriteSuccess(w, map[string]interface{}{"success": true})
		return
	}

	if h.rebiller != nil {
		h.rebiller.OnOrgUpdated(r.Context(), oldOrg, newOrg)
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"success": true,
		"org":     newOrg,
	})
}
