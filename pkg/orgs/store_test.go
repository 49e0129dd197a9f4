package orgs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindUserByEmailOrPhone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "name", "email", "contact_number", "role", "org_id", "created_at", "updated_at"}).
		AddRow(int64(1), "Jane", "jane@example.com", "07000000000", "owner", int64(10), now, now)
	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("jane@example.com", "07000000000").
		WillReturnRows(rows)

	user, err := store.FindUserByEmailOrPhone(context.Background(), "jane@example.com", "07000000000")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "owner", user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserByEmailOrPhoneAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	mock.ExpectQuery("SELECT (.+) FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "contact_number", "role", "org_id", "created_at", "updated_at"}))

	user, err := store.FindUserByEmailOrPhone(context.Background(), "nobody@example.com", "")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrg(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "name", "clean_name", "company_name", "owner_role", "country", "plan_id",
		"custom_payment_schedule", "custom_plan_features", "settings", "pages",
		"payment_customer_id", "subscription_id",
		"is_favourite", "is_test_account", "is_sales_org", "is_main_org",
		"is_white_label_enabled", "created_at", "updated_at",
	}).AddRow(
		int64(7), "Acme_org", "Acme", nil, "landlord", "GB", nil,
		[]byte(`{"planType":"custom","amount":250,"currency":"gbp","frequency":"monthly"}`), nil,
		[]byte(`{"locale":"en-GB"}`), []byte(`[{"label":"dashboard","isEnabled":true}]`),
		"cus_123", "sub_456",
		false, false, false, false,
		true, now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM orgs").WithArgs(int64(7)).WillReturnRows(rows)

	org, err := store.GetOrg(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Acme", org.CleanName)
	assert.Equal(t, "cus_123", org.PaymentCustomerID)
	require.NotNil(t, org.CustomPaymentSchedule)
	assert.Equal(t, 250.0, org.CustomPaymentSchedule.Amount)
	assert.True(t, org.IsWhiteLabelEnabled)
	require.Len(t, org.Pages, 1)
	assert.Equal(t, "dashboard", org.Pages[0].Label)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrgNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	mock.ExpectQuery("SELECT (.+) FROM orgs").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	org, err := store.GetOrg(context.Background(), 404)
	assert.Nil(t, org)
	assert.ErrorIs(t, err, ErrOrgNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrg(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	name := "New Name"
	favourite := true

	mock.ExpectExec("UPDATE orgs SET name = \\$1, is_favourite = \\$2, updated_at = NOW\\(\\) WHERE id = \\$3").
		WithArgs(name, favourite, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.UpdateOrg(context.Background(), 7, &UpdateOrgRequest{Name: &name, IsFavourite: &favourite})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrgNoFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	require.NoError(t, store.UpdateOrg(context.Background(), 7, &UpdateOrgRequest{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrgNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	name := "New Name"

	mock.ExpectExec("UPDATE orgs SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.UpdateOrg(context.Background(), 404, &UpdateOrgRequest{Name: &name})
	assert.ErrorIs(t, err, ErrOrgNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "name", "email", "contact_number", "role", "org_id", "created_at", "updated_at"}).
		AddRow(int64(3), "Jane", "jane@example.com", "", "owner", int64(7), now, now)
	mock.ExpectQuery("SELECT (.+) FROM users").WithArgs(int64(7)).WillReturnRows(rows)

	owner, err := store.GetOwner(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", owner.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBillingCustomerIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	rows := sqlmock.NewRows([]string{"id", "payment_customer_id"}).
		AddRow(int64(1), "cus_a").
		AddRow(int64(2), "cus_b")
	mock.ExpectQuery("SELECT id, payment_customer_id FROM orgs").WillReturnRows(rows)

	ids, err := store.ListBillingCustomerIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"cus_a": 1, "cus_b": 2}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}
