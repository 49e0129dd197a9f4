package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rentdesk/rentdesk/pkg/httputil"
	"github.com/rentdesk/rentdesk/pkg/observability"
	"github.com/rentdesk/rentdesk/pkg/orgs"
	"github.com/rentdesk/rentdesk/pkg/provisioning"
)

// ProvisionHandlers handles customer provisioning endpoints
type ProvisionHandlers struct {
	orchestrator *provisioning.Orchestrator
	timeout      time.Duration
}

// NewProvisionHandlers creates provisioning handlers. timeout bounds the
// whole saga per request; it must cover the gateway calls made while the
// local transaction is open.
func NewProvisionHandlers(orchestrator *provisioning.Orchestrator, timeout time.Duration) *ProvisionHandlers {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &ProvisionHandlers{orchestrator: orchestrator, timeout: timeout}
}

// RegisterRoutes registers provisioning routes
func (h *ProvisionHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/orgs", h.createOrg).Methods("POST")
}

// createOrg handles POST /orgs
func (h *ProvisionHandlers) createOrg(w http.ResponseWriter, r *http.Request) {
	var req provisioning.ProvisionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := validateProvisionRequest(&req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.orchestrator.Provision(ctx, &req)
	if err != nil {
		h.writeProvisionError(r.Context(), w, err)
		return
	}

	httputil.WriteSuccess(w, result)
}

// writeProvisionError maps saga errors onto responses. Every pre-commit
// failure rolls back and surfaces as a 400; local write failures get a
// sanitized message so SQL details never leak.
func (h *ProvisionHandlers) writeProvisionError(ctx context.Context, w http.ResponseWriter, err error) {
	var duplicate *provisioning.DuplicateAccountError
	var billing *provisioning.RemoteBillingError

	switch {
	case errors.As(err, &duplicate):
		httputil.WriteBadRequest(w, provisioning.DuplicateAccountMessage)
	case errors.As(err, &billing):
		httputil.WriteBadRequest(w, billing.Error())
	default:
		observability.FromContext(ctx).WithError(err).Error("provisioning failed")
		httputil.WriteBadRequest(w, "could not create account")
	}
}

// validateProvisionRequest rejects requests the saga should never see
func validateProvisionRequest(req *provisioning.ProvisionRequest) error {
	if req.AccountType != orgs.OwnerRoleLandlord && req.AccountType != orgs.OwnerRoleAgency {
		return fmt.Errorf("accountType must be %q or %q", orgs.OwnerRoleLandlord, orgs.OwnerRoleAgency)
	}
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	if req.Email == "" {
		return fmt.Errorf("email is required")
	}
	if req.Password == "" {
		return fmt.Errorf("password is required")
	}

	schedule := req.CustomPaymentSchedule
	if schedule.IsCustom() {
		if schedule.Plan != "" {
			return fmt.Errorf("a catalog plan and a custom payment schedule are mutually exclusive")
		}
		if schedule.Amount <= 0 {
			return fmt.Errorf("custom payment schedule amount must be positive")
		}
		if schedule.Currency == "" {
			return fmt.Errorf("custom payment schedule currency is required")
		}
		if schedule.PaymentMethod != orgs.PaymentMethodStripe && schedule.PaymentMethod != orgs.PaymentMethodBankTransfer {
			return fmt.Errorf("paymentMethod must be %q or %q", orgs.PaymentMethodStripe, orgs.PaymentMethodBankTransfer)
		}
	} else if schedule.Plan == "" {
		return fmt.Errorf("either a catalog plan or a custom payment schedule is required")
	}

	return nil
}
