package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentdesk/rentdesk/pkg/billing"
	"github.com/rentdesk/rentdesk/pkg/observability"
	"github.com/rentdesk/rentdesk/pkg/orgs"
	"github.com/rentdesk/rentdesk/pkg/provisioning"
)

// stubGateway satisfies billing.Gateway for handler tests
type stubGateway struct{}

func (stubGateway) CreateCustomer(ctx context.Context, email, name, internalRef string) (*billing.Customer, error) {
	return &billing.Customer{ID: "cus_123", Email: email}, nil
}

func (stubGateway) CreateSubscription(ctx context.Context, plan *orgs.SubscriptionPlan, frequency orgs.BillingFrequency, customerID string, isTrial bool, environment string) (*billing.Subscription, error) {
	return &billing.Subscription{ID: "sub_123"}, nil
}

func (stubGateway) CreateCustomSubscription(ctx context.Context, customerID string, schedule *orgs.PaymentSchedule, features *orgs.PlanFeatures) (*billing.CheckoutSession, error) {
	return &billing.CheckoutSession{ID: "cs_123", Subscription: "sub_456"}, nil
}

func (stubGateway) CreatePriceUpdateSession(ctx context.Context, org *orgs.Org) (*billing.CheckoutSession, error) {
	return nil, nil
}

func (stubGateway) CreateDraftInvoice(ctx context.Context, customerID, description string) (*billing.Invoice, error) {
	return &billing.Invoice{ID: "in_123"}, nil
}

func (stubGateway) CreateInvoiceItem(ctx context.Context, customerID, invoiceID string, amountCents int64, currency, description string) (*billing.InvoiceItem, error) {
	return &billing.InvoiceItem{ID: "ii_123"}, nil
}

func (stubGateway) ListCustomers(ctx context.Context, limit int) ([]*billing.Customer, error) {
	return nil, nil
}

func buildServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := orgs.NewStore(db)
	plans, err := orgs.NewPlanResolver(db, 8)
	require.NoError(t, err)

	logger := observability.NewLogger(observability.ErrorLevel, nil)
	orchestrator := provisioning.NewOrchestrator(store, plans, stubGateway{}, nil, logger, nil, "test")
	rebiller := provisioning.NewRebiller(store, stubGateway{}, nil, logger, nil)

	server := NewServer(Options{
		Store:            store,
		Orchestrator:     orchestrator,
		Rebiller:         rebiller,
		Logger:           logger,
		ProvisionTimeout: 5 * time.Second,
	})
	return server, mock
}

func postJSON(t *testing.T, server *Server, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder
}

func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"accountType":   "landlord",
		"name":          "Jane",
		"email":         "jane@example.com",
		"password":      "hunter22",
		"contactNumber": "07000000000",
		"country":       "GB",
		"customPaymentSchedule": map[string]interface{}{
			"planType":  "normal",
			"plan":      "basic",
			"frequency": "monthly",
		},
	}
}

func TestCreateOrgRejectsBadAccountType(t *testing.T) {
	server, _ := buildServer(t)

	payload := validPayload()
	payload["accountType"] = "tenant"

	recorder := postJSON(t, server, "/orgs", payload)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "accountType")
}

func TestCreateOrgRejectsMissingPassword(t *testing.T) {
	server, _ := buildServer(t)

	payload := validPayload()
	delete(payload, "password")

	recorder := postJSON(t, server, "/orgs", payload)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestCreateOrgRejectsPlanAndCustomSchedule(t *testing.T) {
	server, _ := buildServer(t)

	payload := validPayload()
	payload["customPaymentSchedule"] = map[string]interface{}{
		"planType":      "custom",
		"plan":          "basic",
		"frequency":     "monthly",
		"amount":        500,
		"currency":      "gbp",
		"paymentMethod": "stripe",
	}

	recorder := postJSON(t, server, "/orgs", payload)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "mutually exclusive")
}

func TestCreateOrgRejectsInvalidJSON(t *testing.T) {
	server, _ := buildServer(t)

	req := httptest.NewRequest(http.MethodPost, "/orgs", bytes.NewReader([]byte("{not json")))
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestCreateOrgDuplicateReturns400(t *testing.T) {
	server, mock := buildServer(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "email", "contact_number", "role", "org_id", "created_at", "updated_at"}).
		AddRow(int64(9), "Jane", "jane@example.com", "07000000000", "owner", int64(1), now, now)
	mock.ExpectQuery("SELECT (.+) FROM users").WillReturnRows(rows)

	recorder := postJSON(t, server, "/orgs", validPayload())
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, provisioning.DuplicateAccountMessage, body["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrgPersistenceFailureReturns400(t *testing.T) {
	server, mock := buildServer(t)

	// Duplicate check passes, then the transaction cannot be opened. The
	// caller sees a 400 with a sanitized message, never the SQL error.
	mock.ExpectQuery("SELECT (.+) FROM users").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin().WillReturnError(errors.New("pq: connection reset"))

	recorder := postJSON(t, server, "/orgs", validPayload())
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "could not create account", body["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthz(t *testing.T) {
	server, _ := buildServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"))
}

func TestRequestIDPropagation(t *testing.T) {
	server, _ := buildServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)

	assert.Equal(t, "req-42", recorder.Header().Get("X-Request-ID"))
}
