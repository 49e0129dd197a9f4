package orgs

import (
	"time"
)

// OwnerRole discriminates which role entity owns an org
type OwnerRole string

const (
	OwnerRoleLandlord OwnerRole = "landlord"
	OwnerRoleAgency   OwnerRole = "agency"
)

// PlanType distinguishes catalog plans from bespoke schedules
type PlanType string

const (
	PlanTypeNormal PlanType = "normal"
	PlanTypeCustom PlanType = "custom"
)

// PaymentMethod is how a custom-plan org pays
type PaymentMethod string

const (
	PaymentMethodStripe       PaymentMethod = "stripe"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// BillingFrequency is a plan's billing cadence
type BillingFrequency string

const (
	FrequencyMonthly   BillingFrequency = "monthly"
	FrequencyQuarterly BillingFrequency = "quarterly"
	FrequencyYearly    BillingFrequency = "yearly"
)

// PaymentSchedule is the requested (and, for custom plans, persisted)
// billing arrangement for an org.
type PaymentSchedule struct {
	PlanType          PlanType         `json:"planType"`
	Plan              string           `json:"plan,omitempty"`
	Frequency         BillingFrequency `json:"frequency"`
	Currency          string           `json:"currency,omitempty"`
	Amount            float64          `json:"amount,omitempty"`
	TrialPeriodInDays int              `json:"trialPeriodInDays,omitempty"`
	PaymentMethod     PaymentMethod    `json:"paymentMethod,omitempty"`
	PromoCode         string           `json:"promoCode,omitempty"`
}

// IsCustom reports whether the schedule requests a bespoke plan
func (s *PaymentSchedule) IsCustom() bool {
	return s != nil && s.PlanType == PlanTypeCustom
}

// PlanFeatures holds the feature limits for a custom-plan org
type PlanFeatures struct {
	PropertyLimit        int   `json:"propertyLimit"`
	TenantLimit          int   `json:"tenantLimit"`
	TeamSizeLimit        int   `json:"teamSizeLimit"`
	StorageLimit         int64 `json:"storageLimit"`
	ESignDocsLimit       int   `json:"eSignDocsLimit"`
	AIInvocationLimit    int   `json:"aiInvocationLimit"`
	CustomTemplatesLimit int   `json:"customTemplatesLimit"`
	PrioritySupport      bool  `json:"prioritySupport"`
	DepositProtection    bool  `json:"depositProtection"`
	AdvancedReporting    bool  `json:"advancedReporting"`
}

// LanguagePreferences overrides the wording used for core nouns in the UI
type LanguagePreferences struct {
	Tenants    string `json:"tenants,omitempty"`
	Properties string `json:"properties,omitempty"`
	Tenancies  string `json:"tenancies,omitempty"`
}

// NotificationPreferences controls which notification channels are on
type NotificationPreferences struct {
	Email bool `json:"email"`
	InApp bool `json:"inApp"`
	SMS   bool `json:"sms"`
}

// OrgSettings is the per-org settings blob
type OrgSettings struct {
	Locale        string                  `json:"locale"`
	Currency      string                  `json:"currency"`
	Timezone      string                  `json:"timezone"`
	Notifications NotificationPreferences `json:"notifications"`
	Language      LanguagePreferences     `json:"language"`
}

// OrgPage is one entry in an org's page-enablement tree
type OrgPage struct {
	Label     string    `json:"label"`
	IsEnabled bool      `json:"isEnabled"`
	Children  []OrgPage `json:"children,omitempty"`
}

// Org is a tenant organization
type Org struct {
	ID                    int64            `json:"id"`
	Name                  string           `json:"name"`
	CleanName             string           `json:"cleanName,omitempty"`
	CompanyName           string           `json:"companyName,omitempty"`
	OwnerRole             OwnerRole        `json:"ownerRole"`
	Country               string           `json:"country"`
	PlanID                *int64           `json:"planId,omitempty"`
	CustomPaymentSchedule *PaymentSchedule `json:"customPaymentSchedule,omitempty"`
	CustomPlanFeatures    *PlanFeatures    `json:"customPlanFeatures,omitempty"`
	Settings              OrgSettings      `json:"settings"`
	Pages                 []OrgPage        `json:"pages,omitempty"`
	PaymentCustomerID     string           `json:"paymentCustomerId,omitempty"`
	SubscriptionID        string           `json:"subscriptionId,omitempty"`
	IsFavourite           bool             `json:"isFavourite"`
	IsTestAccount         bool             `json:"isTestAccount"`
	IsSalesOrg            bool             `json:"isSalesOrg"`
	IsMainOrg             bool             `json:"isMainOrg"`
	IsWhiteLabelEnabled   bool             `json:"isWhiteLabelEnabled"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// DisplayName picks the customer-facing name, falling back when unset
func (o *Org) DisplayName() string {
	if o.CleanName != "" {
		return o.CleanName
	}
	if o.CompanyName != "" {
		return o.CompanyName
	}
	return "Customer"
}

// User is the human operator administering an org
type User struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	ContactNumber  string    `json:"contactNumber"`
	AddressLineOne string    `json:"addressLineOne"`
	AddressLineTwo string    `json:"addressLineTwo,omitempty"`
	City           string    `json:"city"`
	PostCode       string    `json:"postCode"`
	Country        string    `json:"country"`
	Role           string    `json:"role"`
	OrgID          int64     `json:"orgId"`
	LandlordID     *int64    `json:"landlordId,omitempty"`
	AgencyID       *int64    `json:"agencyId,omitempty"`
	Permissions    []string  `json:"permissions,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Team is an org's default collaboration team, one per org
type Team struct {
	ID        int64     `json:"id"`
	OrgID     int64     `json:"orgId"`
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Landlord is the landlord-flavoured owner profile for an org
type Landlord struct {
	ID        int64     `json:"id"`
	OrgID     int64     `json:"orgId"`
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"created_at"`
}

// Agency is the agency-flavoured owner profile for an org
type Agency struct {
	ID        int64     `json:"id"`
	OrgID     int64     `json:"orgId"`
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"created_at"`
}

// SubscriptionPlan is an immutable catalog plan record
type SubscriptionPlan struct {
	ID               int64            `json:"id"`
	Name             string           `json:"name"`
	BillingFrequency BillingFrequency `json:"billingFrequency"`
	PriceID          string           `json:"priceId"`
	CreatedAt        time.Time        `json:"created_at"`
}

// UpdateOrgRequest carries the mutable org fields for the update path.
// Nil pointers leave the corresponding column untouched.
type UpdateOrgRequest struct {
	Name                  *string          `json:"name,omitempty"`
	CleanName             *string          `json:"cleanName,omitempty"`
	CompanyName           *string          `json:"companyName,omitempty"`
	Country               *string          `json:"country,omitempty"`
	CustomPaymentSchedule *PaymentSchedule `json:"customPaymentSchedule,omitempty"`
	CustomPlanFeatures    *PlanFeatures    `json:"customPlanFeatures,omitempty"`
	Settings              *OrgSettings     `json:"settings,omitempty"`
	Pages                 []OrgPage        `json:"pages,omitempty"`
	IsFavourite           *bool            `json:"isFavourite,omitempty"`
	IsTestAccount         *bool            `json:"isTestAccount,omitempty"`
	IsSalesOrg            *bool            `json:"isSalesOrg,omitempty"`
	IsWhiteLabelEnabled   *bool            `json:"isWhiteLabelEnabled,omitempty"`
}

// DefaultPermissions is the idempotent permission grant every owning user
// receives during provisioning.
var DefaultPermissions = []string{
	"org:admin",
	"leases:manage",
	"properties:manage",
	"teams:manage",
	"billing:view",
}
