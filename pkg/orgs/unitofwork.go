package orgs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// UnitOfWork is the transactional boundary wrapping all local writes in the
// provisioning saga. Every method operates on the same *sql.Tx; nothing is
// durable until Commit. The handle is passed explicitly, never ambient.
type UnitOfWork struct {
	tx   *sql.Tx
	done bool
}

// Commit commits the transaction
func (u *UnitOfWork) Commit() error {
	if u.done {
		return fmt.Errorf("unit of work already finished")
	}
	u.done = true
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit unit of work: %w", err)
	}
	return nil
}

// Rollback rolls the transaction back. Safe to call after Commit; the
// double-finish is ignored so it can sit in a defer.
func (u *UnitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(); err != nil {
		return fmt.Errorf("failed to roll back unit of work: %w", err)
	}
	return nil
}

// CreateOrg inserts the org row and fills in its generated id and timestamps
func (u *UnitOfWork) CreateOrg(ctx context.Context, org *Org) error {
	settingsJSON, err := json.Marshal(org.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	pagesJSON, err := json.Marshal(org.Pages)
	if err != nil {
		return fmt.Errorf("failed to marshal pages: %w", err)
	}

	var scheduleJSON, featuresJSON []byte
	if org.CustomPaymentSchedule != nil {
		if scheduleJSON, err = json.Marshal(org.CustomPaymentSchedule); err != nil {
			return fmt.Errorf("failed to marshal payment schedule: %w", err)
		}
	}
	if org.CustomPlanFeatures != nil {
		if featuresJSON, err = json.Marshal(org.CustomPlanFeatures); err != nil {
			return fmt.Errorf("failed to marshal plan features: %w", err)
		}
	}

	query := `
		INSERT INTO orgs (name, clean_name, company_name, owner_role, country, plan_id,
		                  custom_payment_schedule, custom_plan_features, settings, pages,
		                  is_white_label_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`
	err = u.tx.QueryRowContext(ctx, query,
		org.Name, org.CleanName, org.CompanyName, org.OwnerRole, org.Country, org.PlanID,
		nullableJSON(scheduleJSON), nullableJSON(featuresJSON), settingsJSON, pagesJSON,
		org.IsWhiteLabelEnabled).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create org: %w", err)
	}
	return nil
}

// CreateUser inserts the owning user row linked to the org
func (u *UnitOfWork) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (name, email, password_hash, contact_number,
		                   address_line_one, address_line_two, city, post_code, country,
		                   role, org_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`
	err := u.tx.QueryRowContext(ctx, query,
		user.Name, user.Email, user.PasswordHash, user.ContactNumber,
		user.AddressLineOne, user.AddressLineTwo, user.City, user.PostCode, user.Country,
		user.Role, user.OrgID).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// CreateTeam inserts the org's default team
func (u *UnitOfWork) CreateTeam(ctx context.Context, team *Team) error {
	query := `
		INSERT INTO teams (org_id, user_id, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := u.tx.QueryRowContext(ctx, query, team.OrgID, team.UserID, team.Name).
		Scan(&team.ID, &team.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

// GrantDefaultPermissions assigns the standard owner permission set.
// The grant is a whole-column write, so repeating it is a no-op.
func (u *UnitOfWork) GrantDefaultPermissions(ctx context.Context, user *User) error {
	permissionsJSON, err := json.Marshal(DefaultPermissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	query := `UPDATE users SET permissions = $1 WHERE id = $2`
	if _, err := u.tx.ExecContext(ctx, query, permissionsJSON, user.ID); err != nil {
		return fmt.Errorf("failed to grant permissions: %w", err)
	}
	user.Permissions = append([]string(nil), DefaultPermissions...)
	return nil
}

// CreateLandlord inserts a landlord role entity and links the user to it
func (u *UnitOfWork) CreateLandlord(ctx context.Context, landlord *Landlord, user *User) error {
	query := `
		INSERT INTO landlords (org_id, user_id, name, country)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := u.tx.QueryRowContext(ctx, query, landlord.OrgID, landlord.UserID, landlord.Name, landlord.Country).
		Scan(&landlord.ID, &landlord.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create landlord: %w", err)
	}

	if _, err := u.tx.ExecContext(ctx, `UPDATE users SET landlord_id = $1 WHERE id = $2`, landlord.ID, user.ID); err != nil {
		return fmt.Errorf("failed to link landlord to user: %w", err)
	}
	user.LandlordID = &landlord.ID
	return nil
}

// CreateAgency inserts an agency role entity and links the user to it
func (u *UnitOfWork) CreateAgency(ctx context.Context, agency *Agency, user *User) error {
	query := `
		INSERT INTO agencies (org_id, user_id, name, country)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := u.tx.QueryRowContext(ctx, query, agency.OrgID, agency.UserID, agency.Name, agency.Country).
		Scan(&agency.ID, &agency.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create agency: %w", err)
	}

	if _, err := u.tx.ExecContext(ctx, `UPDATE users SET agency_id = $1 WHERE id = $2`, agency.ID, user.ID); err != nil {
		return fmt.Errorf("failed to link agency to user: %w", err)
	}
	user.AgencyID = &agency.ID
	return nil
}

// SetOrgPaymentCustomer persists the remote billing customer id on the org
func (u *UnitOfWork) SetOrgPaymentCustomer(ctx context.Context, org *Org, customerID string) error {
	query := `UPDATE orgs SET payment_customer_id = $1 WHERE id = $2`
	if _, err := u.tx.ExecContext(ctx, query, customerID, org.ID); err != nil {
		return fmt.Errorf("failed to set payment customer id: %w", err)
	}
	org.PaymentCustomerID = customerID
	return nil
}

// SetOrgSubscription persists the remote subscription id on the org
func (u *UnitOfWork) SetOrgSubscription(ctx context.Context, org *Org, subscriptionID string) error {
	query := `UPDATE orgs SET subscription_id = $1 WHERE id = $2`
	if _, err := u.tx.ExecContext(ctx, query, subscriptionID, org.ID); err != nil {
		return fmt.Errorf("failed to set subscription id: %w", err)
	}
	org.SubscriptionID = subscriptionID
	return nil
}

// nullableJSON maps an absent blob to SQL NULL instead of empty bytes
func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
