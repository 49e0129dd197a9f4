package orgs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrOrgNotFound is returned when an org id matches no row
var ErrOrgNotFound = errors.New("org not found")

// Store implements non-transactional reads and the org update path against
// PostgreSQL. Transactional provisioning writes go through a UnitOfWork
// obtained from Begin.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Begin opens a unit of work for a provisioning run
func (s *Store) Begin(ctx context.Context) (*UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	return &UnitOfWork{tx: tx}, nil
}

// FindUserByEmailOrPhone returns the first user matching either identifier,
// or nil when none exists. Used for the pre-transaction duplicate check.
func (s *Store) FindUserByEmailOrPhone(ctx context.Context, email, contactNumber string) (*User, error) {
	query := `
		SELECT id, name, email, contact_number, role, org_id, created_at, updated_at
		FROM users
		WHERE email = $1 OR contact_number = $2
		LIMIT 1
	`
	user := &User{}
	err := s.db.QueryRowContext(ctx, query, email, contactNumber).Scan(
		&user.ID, &user.Name, &user.Email, &user.ContactNumber,
		&user.Role, &user.OrgID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

// GetOrg retrieves an org by id
func (s *Store) GetOrg(ctx context.Context, id int64) (*Org, error) {
	query := `
		SELECT id, name, clean_name, company_name, owner_role, country, plan_id,
		       custom_payment_schedule, custom_plan_features, settings, pages,
		       payment_customer_id, subscription_id,
		       is_favourite, is_test_account, is_sales_org, is_main_org,
		       is_white_label_enabled, created_at, updated_at
		FROM orgs
		WHERE id = $1
	`
	org := &Org{}
	var cleanName, companyName, paymentCustomerID, subscriptionID sql.NullString
	var scheduleJSON, featuresJSON, settingsJSON, pagesJSON []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID, &org.Name, &cleanName, &companyName, &org.OwnerRole, &org.Country, &org.PlanID,
		&scheduleJSON, &featuresJSON, &settingsJSON, &pagesJSON,
		&paymentCustomerID, &subscriptionID,
		&org.IsFavourite, &org.IsTestAccount, &org.IsSalesOrg, &org.IsMainOrg,
		&org.IsWhiteLabelEnabled, &org.CreatedAt, &org.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrOrgNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get org: %w", err)
	}

	org.CleanName = cleanName.String
	org.CompanyName = companyName.String
	org.PaymentCustomerID = paymentCustomerID.String
	org.SubscriptionID = subscriptionID.String

	if len(scheduleJSON) > 0 {
		if err := json.Unmarshal(scheduleJSON, &org.CustomPaymentSchedule); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payment schedule: %w", err)
		}
	}
	if len(featuresJSON) > 0 {
		if err := json.Unmarshal(featuresJSON, &org.CustomPlanFeatures); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plan features: %w", err)
		}
	}
	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &org.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
	}
	if len(pagesJSON) > 0 {
		if err := json.Unmarshal(pagesJSON, &org.Pages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pages: %w", err)
		}
	}

	return org, nil
}

// UpdateOrg applies the non-nil fields of the update request in its own
// short transaction, separate from any provisioning saga.
func (s *Store) UpdateOrg(ctx context.Context, id int64, updates *UpdateOrgRequest) error {
	setClauses := []string{}
	args := []interface{}{}
	argPos := 1

	addClause := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if updates.Name != nil {
		addClause("name", *updates.Name)
	}
	if updates.CleanName != nil {
		addClause("clean_name", *updates.CleanName)
	}
	if updates.CompanyName != nil {
		addClause("company_name", *updates.CompanyName)
	}
	if updates.Country != nil {
		addClause("country", *updates.Country)
	}
	if updates.CustomPaymentSchedule != nil {
		scheduleJSON, err := json.Marshal(updates.CustomPaymentSchedule)
		if err != nil {
			return fmt.Errorf("failed to marshal payment schedule: %w", err)
		}
		addClause("custom_payment_schedule", scheduleJSON)
	}
	if updates.CustomPlanFeatures != nil {
		featuresJSON, err := json.Marshal(updates.CustomPlanFeatures)
		if err != nil {
			return fmt.Errorf("failed to marshal plan features: %w", err)
		}
		addClause("custom_plan_features", featuresJSON)
	}
	if updates.Settings != nil {
		settingsJSON, err := json.Marshal(updates.Settings)
		if err != nil {
			return fmt.Errorf("failed to marshal settings: %w", err)
		}
		addClause("settings", settingsJSON)
	}
	if updates.Pages != nil {
		pagesJSON, err := json.Marshal(updates.Pages)
		if err != nil {
			return fmt.Errorf("failed to marshal pages: %w", err)
		}
		addClause("pages", pagesJSON)
	}
	if updates.IsFavourite != nil {
		addClause("is_favourite", *updates.IsFavourite)
	}
	if updates.IsTestAccount != nil {
		addClause("is_test_account", *updates.IsTestAccount)
	}
	if updates.IsSalesOrg != nil {
		addClause("is_sales_org", *updates.IsSalesOrg)
	}
	if updates.IsWhiteLabelEnabled != nil {
		addClause("is_white_label_enabled", *updates.IsWhiteLabelEnabled)
	}

	if len(setClauses) == 0 {
		return nil // Nothing to update
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE orgs SET %s, updated_at = NOW() WHERE id = $%d",
		strings.Join(setClauses, ", "), argPos)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update org: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrgNotFound
	}

	return nil
}

// GetOwner retrieves the owning user of an org
func (s *Store) GetOwner(ctx context.Context, orgID int64) (*User, error) {
	query := `
		SELECT id, name, email, contact_number, role, org_id, created_at, updated_at
		FROM users
		WHERE org_id = $1 AND role = 'owner'
		LIMIT 1
	`
	user := &User{}
	err := s.db.QueryRowContext(ctx, query, orgID).Scan(
		&user.ID, &user.Name, &user.Email, &user.ContactNumber,
		&user.Role, &user.OrgID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("owner not found for org %d", orgID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get org owner: %w", err)
	}
	return user, nil
}

// ListBillingCustomerIDs returns the remote customer ids referenced by local
// orgs. Input for the reconciler's orphan sweep.
func (s *Store) ListBillingCustomerIDs(ctx context.Context) (map[string]int64, error) {
	query := `SELECT id, payment_customer_id FROM orgs WHERE payment_customer_id IS NOT NULL`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list billing customer ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var orgID int64
		var customerID string
		if err := rows.Scan(&orgID, &customerID); err != nil {
			return nil, fmt.Errorf("failed to scan customer id: %w", err)
		}
		ids[customerID] = orgID
	}
	return ids, rows.Err()
}

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation. The users.email / users.contact_number unique indexes are the
// real backstop behind the pre-transaction duplicate check, which two
// concurrent signups can both pass.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
