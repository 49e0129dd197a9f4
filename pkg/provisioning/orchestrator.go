package provisioning

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rentdesk/rentdesk/pkg/billing"
	"github.com/rentdesk/rentdesk/pkg/observability"
	"github.com/rentdesk/rentdesk/pkg/orgs"
)

// ProvisionRequest is the validated input to the saga. Field validation
// happens upstream; the orchestrator still re-derives the custom-plan flag
// from the schedule itself.
type ProvisionRequest struct {
	AccountType           orgs.OwnerRole           `json:"accountType"`
	Name                  string                   `json:"name"`
	Email                 string                   `json:"email"`
	Password              string                   `json:"password"`
	ContactNumber         string                   `json:"contactNumber"`
	AddressLineOne        string                   `json:"addressLineOne"`
	AddressLineTwo        string                   `json:"addressLineTwo,omitempty"`
	City                  string                   `json:"city"`
	PostCode              string                   `json:"postCode"`
	Country               string                   `json:"country"`
	IsWhiteLabelEnabled   bool                     `json:"isWhiteLabelEnabled"`
	LanguagePreferences   orgs.LanguagePreferences `json:"languagePreferences"`
	CustomPaymentSchedule orgs.PaymentSchedule     `json:"customPaymentSchedule"`
	FeatureList           *orgs.PlanFeatures       `json:"featureList,omitempty"`
	Pages                 PageRequest              `json:"pages"`
}

// PageRequest carries the requested page-enablement tree
type PageRequest struct {
	OrgPages []orgs.OrgPage `json:"orgPages,omitempty"`
}

// ProvisionResult is returned to the HTTP layer on success
type ProvisionResult struct {
	User    *orgs.User `json:"user"`
	Org     *orgs.Org  `json:"-"`
	Message string     `json:"msg"`
}

// Orchestrator coordinates the provisioning saga. Local writes go through a
// single unit of work; gateway calls are issued while that transaction is
// open and any failure before commit rolls everything local back.
type Orchestrator struct {
	store    *orgs.Store
	plans    *orgs.PlanResolver
	gateway  billing.Gateway
	notifier *Notifier
	logger   *observability.Logger
	metrics  *observability.Metrics

	environment string
}

// NewOrchestrator creates an Orchestrator
func NewOrchestrator(store *orgs.Store, plans *orgs.PlanResolver, gateway billing.Gateway, notifier *Notifier, logger *observability.Logger, metrics *observability.Metrics, environment string) *Orchestrator {
	return &Orchestrator{
		store:       store,
		plans:       plans,
		gateway:     gateway,
		notifier:    notifier,
		logger:      logger,
		metrics:     metrics,
		environment: environment,
	}
}

// Provision runs the saga. On any error the unit of work is rolled back and
// no local rows survive. Remote billing objects created before the failure
// are NOT compensated: an orphaned billing customer is an accepted failure
// mode, left to the reconciler to detect.
func (o *Orchestrator) Provision(ctx context.Context, req *ProvisionRequest) (*ProvisionResult, error) {
	start := time.Now()
	result, err := o.provision(ctx, req)
	o.observeOutcome(err, time.Since(start))
	return result, err
}

func (o *Orchestrator) provision(ctx context.Context, req *ProvisionRequest) (*ProvisionResult, error) {
	log := observability.FromContext(ctx).WithField("email", req.Email)
	schedule := req.CustomPaymentSchedule
	isCustomPlan := schedule.IsCustom()

	// Step 1: duplicate check, outside any transaction. Two concurrent
	// requests can both pass this; the unique indexes on users are the
	// real backstop and surface below as a duplicate as well.
	existing, err := o.store.FindUserByEmailOrPhone(ctx, req.Email, req.ContactNumber)
	if err != nil {
		return nil, &PersistenceError{Step: "duplicate check", Err: err}
	}
	if existing != nil {
		return nil, &DuplicateAccountError{}
	}

	// Step 2: open the unit of work.
	uow, err := o.store.Begin(ctx)
	if err != nil {
		return nil, &PersistenceError{Step: "begin", Err: err}
	}
	defer uow.Rollback()

	// Step 3: resolve the catalog plan. Custom plans skip the lookup. A
	// catalog miss is not fatal: the org proceeds with no plan linkage.
	var plan *orgs.SubscriptionPlan
	if !isCustomPlan {
		plan, err = o.plans.Resolve(ctx, schedule.Plan, schedule.Frequency)
		if err != nil {
			return nil, &PersistenceError{Step: "plan lookup", Err: err}
		}
		if plan == nil {
			log.WithFields(map[string]interface{}{
				"plan":      schedule.Plan,
				"frequency": schedule.Frequency,
			}).Warn("catalog plan not found, provisioning without plan linkage")
		}
	}

	// Step 4: create the org with merged defaults.
	defaultSettings, defaultPages, err := orgs.LoadDefaults()
	if err != nil {
		return nil, &PersistenceError{Step: "load defaults", Err: err}
	}

	org := &orgs.Org{
		Name:                orgs.NormalizeOrgName(req.Name),
		CleanName:           req.Name,
		OwnerRole:           req.AccountType,
		Country:             req.Country,
		Settings:            orgs.MergeSettings(defaultSettings, req.LanguagePreferences),
		Pages:               orgs.MergePages(defaultPages, req.Pages.OrgPages),
		IsWhiteLabelEnabled: req.IsWhiteLabelEnabled,
	}
	if plan != nil {
		org.PlanID = &plan.ID
	}
	if isCustomPlan {
		org.CustomPaymentSchedule = &schedule
		org.CustomPlanFeatures = req.FeatureList
	}
	if err := uow.CreateOrg(ctx, org); err != nil {
		return nil, &PersistenceError{Step: "create org", Err: err}
	}

	// Step 5: create the owning user inside the same transaction.
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &PersistenceError{Step: "hash password", Err: err}
	}
	user := &orgs.User{
		Name:           req.Name,
		Email:          req.Email,
		PasswordHash:   string(passwordHash),
		ContactNumber:  req.ContactNumber,
		AddressLineOne: req.AddressLineOne,
		AddressLineTwo: req.AddressLineTwo,
		City:           req.City,
		PostCode:       req.PostCode,
		Country:        req.Country,
		Role:           "owner",
		OrgID:          org.ID,
	}
	if err := uow.CreateUser(ctx, user); err != nil {
		if orgs.IsUniqueViolation(err) {
			return nil, &DuplicateAccountError{}
		}
		return nil, &PersistenceError{Step: "create user", Err: err}
	}

	// Step 6: default team, named after the owning user.
	team := &orgs.Team{
		OrgID:  org.ID,
		UserID: user.ID,
		Name:   user.Name,
	}
	if err := uow.CreateTeam(ctx, team); err != nil {
		return nil, &PersistenceError{Step: "create team", Err: err}
	}

	// Step 7: default permission grant.
	if err := uow.GrantDefaultPermissions(ctx, user); err != nil {
		return nil, &PersistenceError{Step: "grant permissions", Err: err}
	}

	// Step 8: remote billing customer, created while the local transaction
	// is still open. From here on a rollback orphans remote state.
	customer, err := o.gateway.CreateCustomer(ctx, user.Email, user.Name, fmt.Sprintf("user-%d", user.ID))
	if err != nil {
		return nil, &RemoteBillingError{Err: err}
	}
	if customer == nil {
		return nil, &RemoteBillingError{Err: fmt.Errorf("billing gateway returned no customer")}
	}

	// Step 9: persist the customer id on the org.
	if err := uow.SetOrgPaymentCustomer(ctx, org, customer.ID); err != nil {
		return nil, &PersistenceError{Step: "set payment customer", Err: err}
	}

	// Step 10: role entity, linked both ways.
	switch req.AccountType {
	case orgs.OwnerRoleAgency:
		agency := &orgs.Agency{OrgID: org.ID, UserID: user.ID, Name: req.Name, Country: req.Country}
		if err := uow.CreateAgency(ctx, agency, user); err != nil {
			return nil, &PersistenceError{Step: "create agency", Err: err}
		}
	default:
		landlord := &orgs.Landlord{OrgID: org.ID, UserID: user.ID, Name: req.Name, Country: req.Country}
		if err := uow.CreateLandlord(ctx, landlord, user); err != nil {
			return nil, &PersistenceError{Step: "create landlord", Err: err}
		}
	}

	// Step 11: subscription, branching on plan type and payment method.
	var subscriptionID string
	var session *billing.CheckoutSession
	switch {
	case isCustomPlan && schedule.PaymentMethod == orgs.PaymentMethodStripe:
		session, err = o.gateway.CreateCustomSubscription(ctx, customer.ID, &schedule, req.FeatureList)
		if err != nil {
			return nil, &RemoteBillingError{Err: err}
		}
		subscriptionID = session.Subscription

	case isCustomPlan:
		// Bank-transfer customers have no provider subscription object.
		log.WithField("org_id", org.ID).Info("custom plan with bank transfer, no subscription created")

	case plan != nil:
		sub, err := o.gateway.CreateSubscription(ctx, plan, schedule.Frequency, customer.ID, schedule.TrialPeriodInDays > 0, o.environment)
		if err != nil {
			return nil, &RemoteBillingError{Err: err}
		}
		subscriptionID = sub.ID

	default:
		// Normal plan that missed the catalog: nothing to subscribe to.
		log.WithField("org_id", org.ID).Warn("no catalog plan resolved, skipping subscription creation")
	}

	// Step 12: persist the subscription id, when one exists.
	if subscriptionID != "" {
		if err := uow.SetOrgSubscription(ctx, org, subscriptionID); err != nil {
			return nil, &PersistenceError{Step: "set subscription", Err: err}
		}
	}

	// Step 13: commit. Everything local becomes durable at once.
	if err := uow.Commit(); err != nil {
		return nil, &PersistenceError{Step: "commit", Err: err}
	}

	log.WithFields(map[string]interface{}{
		"org_id":          org.ID,
		"user_id":         user.ID,
		"custom_plan":     isCustomPlan,
		"subscription_id": subscriptionID,
	}).Info("org provisioned")

	// Step 14: post-commit event, fire and forget.
	if o.notifier != nil {
		o.notifier.Publish(ctx, NewCustomerEvent{
			User:                  user,
			Org:                   org,
			CustomPaymentSchedule: &schedule,
			FeatureList:           req.FeatureList,
			SubscriptionID:        subscriptionID,
			Session:               session,
		})
	}

	return &ProvisionResult{
		User:    user,
		Org:     org,
		Message: "Account created successfully",
	}, nil
}

func (o *Orchestrator) observeOutcome(err error, duration time.Duration) {
	if o.metrics == nil {
		return
	}
	result := "success"
	switch err.(type) {
	case nil:
	case *DuplicateAccountError:
		result = "duplicate"
	case *RemoteBillingError:
		result = "billing_error"
	default:
		result = "persistence_error"
	}
	o.metrics.ProvisioningTotal.WithLabelValues(result).Inc()
	o.metrics.ProvisioningDuration.Observe(duration.Seconds())
}
