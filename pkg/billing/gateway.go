package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentdesk/rentdesk/pkg/observability"
	"github.com/rentdesk/rentdesk/pkg/orgs"
)

// Gateway is the capability surface of the payment provider consumed by the
// provisioning orchestrator, the re-biller, the ad-hoc invoicing flow, and
// the reconciler.
type Gateway interface {
	CreateCustomer(ctx context.Context, email, name, internalRef string) (*Customer, error)
	CreateSubscription(ctx context.Context, plan *orgs.SubscriptionPlan, frequency orgs.BillingFrequency, customerID string, isTrial bool, environment string) (*Subscription, error)
	CreateCustomSubscription(ctx context.Context, customerID string, schedule *orgs.PaymentSchedule, features *orgs.PlanFeatures) (*CheckoutSession, error)
	CreatePriceUpdateSession(ctx context.Context, org *orgs.Org) (*CheckoutSession, error)
	CreateDraftInvoice(ctx context.Context, customerID, description string) (*Invoice, error)
	CreateInvoiceItem(ctx context.Context, customerID, invoiceID string, amountCents int64, currency, description string) (*InvoiceItem, error)
	ListCustomers(ctx context.Context, limit int) ([]*Customer, error)
}

// RestGateway talks to a Stripe-style REST API: form-encoded request bodies,
// bearer auth, JSON responses, an Idempotency-Key per mutating call.
type RestGateway struct {
	baseURL     string
	apiKey      string
	environment string
	client      *http.Client
	logger      *observability.Logger
	metrics     *observability.Metrics
}

// NewRestGateway creates a RestGateway. The timeout bounds every remote
// call; a hung call would otherwise hold the provisioning transaction open.
func NewRestGateway(baseURL, apiKey, environment string, timeout time.Duration, logger *observability.Logger, metrics *observability.Metrics) *RestGateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RestGateway{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		environment: environment,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
		metrics:     metrics,
	}
}

// CreateCustomer creates a provider customer. Idempotency is the caller's
// responsibility; provisioning never calls this twice for the same org.
func (g *RestGateway) CreateCustomer(ctx context.Context, email, name, internalRef string) (*Customer, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("name", name)
	form.Set("metadata[user_ref]", internalRef)
	form.Set("metadata[environment]", g.environment)

	customer := &Customer{}
	if err := g.post(ctx, "createCustomer", "/v1/customers", form, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// CreateSubscription creates a standing subscription for a catalog plan
func (g *RestGateway) CreateSubscription(ctx context.Context, plan *orgs.SubscriptionPlan, frequency orgs.BillingFrequency, customerID string, isTrial bool, environment string) (*Subscription, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("items[0][price]", plan.PriceID)
	form.Set("metadata[plan]", plan.Name)
	form.Set("metadata[frequency]", string(frequency))
	form.Set("metadata[environment]", environment)
	if isTrial {
		form.Set("trial_from_plan", "true")
	}

	sub := &Subscription{}
	if err := g.post(ctx, "createSubscription", "/v1/subscriptions", form, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// CreateCustomSubscription opens a checkout session carrying the bespoke
// schedule and feature limits. Used only for custom plans paid through the
// provider.
func (g *RestGateway) CreateCustomSubscription(ctx context.Context, customerID string, schedule *orgs.PaymentSchedule, features *orgs.PlanFeatures) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("mode", "subscription")
	form.Set("line_items[0][price_data][currency]", schedule.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(ToMinorUnits(schedule.Amount), 10))
	setRecurring(form, schedule.Frequency)
	form.Set("line_items[0][quantity]", "1")
	if schedule.TrialPeriodInDays > 0 {
		form.Set("subscription_data[trial_period_days]", strconv.Itoa(schedule.TrialPeriodInDays))
	}
	if schedule.PromoCode != "" {
		form.Set("discounts[0][promotion_code]", schedule.PromoCode)
	}
	if features != nil {
		featuresJSON, err := json.Marshal(features)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal feature list: %w", err)
		}
		form.Set("subscription_data[metadata][features]", string(featuresJSON))
	}

	session := &CheckoutSession{}
	if err := g.post(ctx, "createCustomSubscription", "/v1/checkout/sessions", form, session); err != nil {
		return nil, err
	}
	return session, nil
}

// CreatePriceUpdateSession opens a checkout session for an org whose custom
// schedule changed price. Returns nil when the org has no custom schedule to
// re-bill.
func (g *RestGateway) CreatePriceUpdateSession(ctx context.Context, org *orgs.Org) (*CheckoutSession, error) {
	schedule := org.CustomPaymentSchedule
	if schedule == nil || org.PaymentCustomerID == "" {
		return nil, nil
	}

	form := url.Values{}
	form.Set("customer", org.PaymentCustomerID)
	form.Set("mode", "subscription")
	form.Set("line_items[0][price_data][currency]", schedule.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(ToMinorUnits(schedule.Amount), 10))
	setRecurring(form, schedule.Frequency)
	form.Set("line_items[0][quantity]", "1")
	form.Set("metadata[org_id]", strconv.FormatInt(org.ID, 10))
	form.Set("metadata[reason]", "price_update")

	session := &CheckoutSession{}
	if err := g.post(ctx, "createPriceUpdateSession", "/v1/checkout/sessions", form, session); err != nil {
		return nil, err
	}
	return session, nil
}

// CreateDraftInvoice opens a draft invoice for a customer
func (g *RestGateway) CreateDraftInvoice(ctx context.Context, customerID, description string) (*Invoice, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("description", description)
	form.Set("auto_advance", "false")

	invoice := &Invoice{}
	if err := g.post(ctx, "createDraftInvoice", "/v1/invoices", form, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// CreateInvoiceItem attaches a line item to a draft invoice
func (g *RestGateway) CreateInvoiceItem(ctx context.Context, customerID, invoiceID string, amountCents int64, currency, description string) (*InvoiceItem, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("invoice", invoiceID)
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", currency)
	form.Set("description", description)

	item := &InvoiceItem{}
	if err := g.post(ctx, "createInvoiceItem", "/v1/invoiceitems", form, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ListCustomers pages through provider customers, newest first
func (g *RestGateway) ListCustomers(ctx context.Context, limit int) ([]*Customer, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var customers []*Customer
	startingAfter := ""
	for {
		endpoint := fmt.Sprintf("%s/v1/customers?limit=%d", g.baseURL, limit)
		if startingAfter != "" {
			endpoint += "&starting_after=" + url.QueryEscape(startingAfter)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build listCustomers request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+g.apiKey)

		start := time.Now()
		resp, err := g.client.Do(req)
		g.observe("listCustomers", err, start)
		if err != nil {
			return nil, fmt.Errorf("billing gateway listCustomers failed: %w", err)
		}

		var page struct {
			Data    []*Customer `json:"data"`
			HasMore bool        `json:"has_more"`
		}
		if err := decodeResponse("listCustomers", resp, &page); err != nil {
			return nil, err
		}

		customers = append(customers, page.Data...)
		if !page.HasMore || len(page.Data) == 0 {
			return customers, nil
		}
		startingAfter = page.Data[len(page.Data)-1].ID
	}
}

// post issues a form-encoded POST with an idempotency key and decodes the
// JSON response into out.
func (g *RestGateway) post(ctx context.Context, operation, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	start := time.Now()
	resp, err := g.client.Do(req)
	g.observe(operation, err, start)
	if err != nil {
		return fmt.Errorf("billing gateway %s failed: %w", operation, err)
	}

	return decodeResponse(operation, resp, out)
}

func (g *RestGateway) observe(operation string, err error, start time.Time) {
	if g.metrics != nil {
		g.metrics.ObserveGatewayCall(operation, err, time.Since(start))
	}
	if err != nil && g.logger != nil {
		g.logger.WithError(err).WithField("operation", operation).Warn("billing gateway call failed")
	}
}

// decodeResponse maps non-2xx responses to *GatewayError and decodes
// successful bodies into out.
func decodeResponse(operation string, resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		gwErr := &GatewayError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
		var remote struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &remote) == nil && remote.Error.Message != "" {
			gwErr.Code = remote.Error.Code
			gwErr.Message = remote.Error.Message
		}
		return gwErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	return nil
}

// ToMinorUnits converts a schedule amount to the provider's integer minor
// units (e.g. pounds to pence).
func ToMinorUnits(amount float64) int64 {
	return int64(amount*100 + 0.5)
}

// setRecurring maps a billing frequency onto the provider's recurring
// interval fields. Quarterly has no native interval and becomes every 3
// months.
func setRecurring(form url.Values, f orgs.BillingFrequency) {
	switch f {
	case orgs.FrequencyYearly:
		form.Set("line_items[0][price_data][recurring][interval]", "year")
	case orgs.FrequencyQuarterly:
		form.Set("line_items[0][price_data][recurring][interval]", "month")
		form.Set("line_items[0][price_data][recurring][interval_count]", "3")
	default:
		form.Set("line_items[0][price_data][recurring][interval]", "month")
	}
}
