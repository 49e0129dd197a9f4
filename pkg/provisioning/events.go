package provisioning

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rentdesk/rentdesk/pkg/async"
	"github.com/rentdesk/rentdesk/pkg/billing"
	"github.com/rentdesk/rentdesk/pkg/mailer"
	"github.com/rentdesk/rentdesk/pkg/observability"
	"github.com/rentdesk/rentdesk/pkg/orgs"
)

// EventNewCustomer is the event name emitted after a successful commit
const EventNewCustomer = "new:custom-user"

// NewCustomerEvent carries everything downstream listeners need about a
// freshly provisioned org.
type NewCustomerEvent struct {
	ID                    string                   `json:"id"`
	User                  *orgs.User               `json:"user"`
	Org                   *orgs.Org                `json:"org"`
	CustomPaymentSchedule *orgs.PaymentSchedule    `json:"customPaymentSchedule,omitempty"`
	FeatureList           *orgs.PlanFeatures       `json:"featureList,omitempty"`
	SubscriptionID        string                   `json:"subscriptionId,omitempty"`
	Session               *billing.CheckoutSession `json:"session,omitempty"`
}

// Subscriber reacts to a new-customer event. Errors are logged, never
// propagated; the commit has already happened.
type Subscriber func(ctx context.Context, event NewCustomerEvent) error

// Notifier fans post-commit events out to subscribers. Delivery is
// fire-and-forget: each subscriber runs in its own panic-safe goroutine and
// a failing subscriber can never affect the committed state or the caller's
// response.
type Notifier struct {
	logger  *observability.Logger
	timeout time.Duration

	mu          sync.RWMutex
	subscribers []Subscriber
}

// NewNotifier creates a Notifier. timeout bounds each subscriber run.
func NewNotifier(logger *observability.Logger, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Notifier{logger: logger, timeout: timeout}
}

// Subscribe registers a subscriber for new-customer events
func (n *Notifier) Subscribe(fn Subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscribers = append(n.subscribers, fn)
}

// Publish delivers the event to every subscriber asynchronously
func (n *Notifier) Publish(ctx context.Context, event NewCustomerEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	n.mu.RLock()
	subscribers := make([]Subscriber, len(n.subscribers))
	copy(subscribers, n.subscribers)
	n.mu.RUnlock()

	log := n.logger.WithFields(map[string]interface{}{
		"event":    EventNewCustomer,
		"event_id": event.ID,
		"org_id":   event.Org.ID,
	})
	log.Debugf("publishing to %d subscribers", len(subscribers))

	for _, fn := range subscribers {
		fn := fn
		async.SafeGo(ctx, log, n.timeout, EventNewCustomer, func(ctx context.Context) error {
			return fn(ctx, event)
		})
	}
}

// NewWelcomeEmailSubscriber returns the default subscriber that sends the
// welcome email to the new org owner.
func NewWelcomeEmailSubscriber(m mailer.Mailer) Subscriber {
	return func(ctx context.Context, event NewCustomerEvent) error {
		return m.SendWelcome(ctx, event.User.Email, event.User.Name, event.Org.CleanName)
	}
}
