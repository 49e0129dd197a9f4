package billing

import "fmt"

// Customer is a billing-provider customer object
type Customer struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SubscriptionStatus is the provider-side subscription state
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
)

// Subscription is a standing provider subscription
type Subscription struct {
	ID         string             `json:"id"`
	CustomerID string             `json:"customer"`
	PriceID    string             `json:"price"`
	Status     SubscriptionStatus `json:"status"`
	TrialDays  int                `json:"trial_period_days,omitempty"`
}

// CheckoutSession is a provider checkout session. Subscription may be empty
// until the customer completes the session.
type CheckoutSession struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Subscription string `json:"subscription,omitempty"`
}

// Invoice is a provider draft invoice
type Invoice struct {
	ID          string `json:"id"`
	CustomerID  string `json:"customer"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
}

// InvoiceItem is a line item attached to a draft invoice
type InvoiceItem struct {
	ID          string `json:"id"`
	InvoiceID   string `json:"invoice"`
	AmountCents int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
}

// GatewayError is a failure reported by the billing provider. Its message is
// what provisioning surfaces to the caller on rollback.
type GatewayError struct {
	Operation  string
	StatusCode int
	Code       string
	Message    string
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("billing gateway %s failed: %s (%s)", e.Operation, e.Message, e.Code)
	}
	return fmt.Sprintf("billing gateway %s failed: %s", e.Operation, e.Message)
}
