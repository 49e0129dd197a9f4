package provisioning

import (
	"context"

	"github.com/rentdesk/rentdesk/pkg/billing"
	"github.com/rentdesk/rentdesk/pkg/mailer"
	"github.com/rentdesk/rentdesk/pkg/observability"
	"github.com/rentdesk/rentdesk/pkg/orgs"
)

// Rebiller reacts to payment-schedule price changes on an already-committed
// org update by requesting a new checkout session and emailing the customer
// a payment-update link. Everything here is best effort: the update has
// already succeeded and is never reversed or retried because of a
// re-billing failure.
type Rebiller struct {
	store   *orgs.Store
	gateway billing.Gateway
	mailer  mailer.Mailer
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewRebiller creates a Rebiller
func NewRebiller(store *orgs.Store, gateway billing.Gateway, m mailer.Mailer, logger *observability.Logger, metrics *observability.Metrics) *Rebiller {
	return &Rebiller{
		store:   store,
		gateway: gateway,
		mailer:  m,
		logger:  logger,
		metrics: metrics,
	}
}

// OnOrgUpdated runs after a successful org update. It never returns an
// error; failures are logged and swallowed.
func (r *Rebiller) OnOrgUpdated(ctx context.Context, oldOrg, newOrg *orgs.Org) {
	if !r.priceChanged(oldOrg, newOrg) {
		return
	}

	log := observability.FromContext(ctx).WithField("org_id", newOrg.ID)

	session, err := r.gateway.CreatePriceUpdateSession(ctx, newOrg)
	if err != nil {
		r.observe("gateway_error")
		log.WithError(err).Warn("price-update session creation failed")
		return
	}
	if session == nil || session.URL == "" {
		// Bank-transfer customers have nothing to check out; a draft
		// invoice for the new amount goes to finance for manual review.
		if newOrg.CustomPaymentSchedule.PaymentMethod == orgs.PaymentMethodBankTransfer {
			r.invoiceBankTransfer(ctx, newOrg, log)
			return
		}
		r.observe("no_session")
		log.Debug("no price-update session returned")
		return
	}

	owner, err := r.store.GetOwner(ctx, newOrg.ID)
	if err != nil {
		r.observe("owner_lookup_error")
		log.WithError(err).Warn("could not resolve org owner for price-update email")
		return
	}

	schedule := newOrg.CustomPaymentSchedule
	if err := r.mailer.SendPriceUpdated(ctx, owner.Email, newOrg.DisplayName(), session.URL, schedule.Amount, schedule.Currency); err != nil {
		r.observe("email_error")
		log.WithError(err).Warn("price-update email failed")
		return
	}

	r.observe("sent")
	log.WithFields(map[string]interface{}{
		"amount":   schedule.Amount,
		"currency": schedule.Currency,
	}).Info("price-update email sent")
}

// invoiceBankTransfer raises a draft invoice for the updated price. The
// invoice stays a draft; finance reviews and sends it manually.
func (r *Rebiller) invoiceBankTransfer(ctx context.Context, org *orgs.Org, log *observability.Logger) {
	schedule := org.CustomPaymentSchedule

	invoice, err := r.gateway.CreateDraftInvoice(ctx, org.PaymentCustomerID, "Subscription price update")
	if err != nil {
		r.observe("invoice_error")
		log.WithError(err).Warn("draft invoice creation failed")
		return
	}

	amountCents := billing.ToMinorUnits(schedule.Amount)
	if _, err := r.gateway.CreateInvoiceItem(ctx, org.PaymentCustomerID, invoice.ID, amountCents, schedule.Currency, "Updated subscription price"); err != nil {
		r.observe("invoice_error")
		log.WithError(err).Warn("invoice item creation failed")
		return
	}

	r.observe("invoiced")
	log.WithFields(map[string]interface{}{
		"invoice_id": invoice.ID,
		"amount":     schedule.Amount,
		"currency":   schedule.Currency,
	}).Info("draft invoice raised for price update")
}

// priceChanged compares the schedules on amount and currency only. Any
// other schedule field change is ignored for re-billing purposes. Orgs
// without a billing customer or without a custom schedule never re-bill.
func (r *Rebiller) priceChanged(oldOrg, newOrg *orgs.Org) bool {
	newSchedule := newOrg.CustomPaymentSchedule
	if newSchedule == nil || newOrg.PaymentCustomerID == "" {
		return false
	}

	oldSchedule := oldOrg.CustomPaymentSchedule
	if oldSchedule == nil {
		return true
	}
	return oldSchedule.Amount != newSchedule.Amount || oldSchedule.Currency != newSchedule.Currency
}

func (r *Rebiller) observe(status string) {
	if r.metrics != nil {
		r.metrics.RebillSessionsTotal.WithLabelValues(status).Inc()
	}
}
