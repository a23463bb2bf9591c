package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gavv/httpexpect"
	"github.com/golang/mock/gomock"
	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/golangci/golangci-billing/internal/api/transportutil"
	"github.com/golangci/golangci-billing/internal/shared/apperrors"
	"github.com/golangci/golangci-billing/internal/shared/config"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/golangci/golangci-billing/pkg/api/billing"
	"github.com/golangci/golangci-billing/pkg/api/models"
	"github.com/gorilla/mux"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite" // sqlite3 driver for tests
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

const testProvider = "stripe"

type testEnv struct {
	t         *testing.T
	provider  *paymentprovider.MockProvider
	db        *gorm.DB
	customer  *models.Customer
	hookCalls int32
	e         *httpexpect.Expect
}

type testEnvOptions struct {
	verifier paymentprovider.SignatureVerifier
	locker   *SubscriptionLocker
}

func newTestEnv(t *testing.T, opts testEnvOptions) *testEnv {
	ctrl := gomock.NewController(t)
	provider := paymentprovider.NewMockProvider(ctrl)
	provider.EXPECT().Name().Return(testProvider).AnyTimes()

	db, err := gorm.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate(&models.Customer{}, &models.Subscription{},
		&models.PaymentGatewayEvent{}).Error)

	customer := &models.Customer{
		Email:            "billing@example.com",
		RemoteCustomerID: "cus_1",
	}
	require.NoError(t, db.Create(customer).Error)

	env := &testEnv{
		t:        t,
		provider: provider,
		db:       db,
		customer: customer,
	}

	log := logutil.NewStderrLog("test")
	cfg := config.NewEnvConfig(log)
	billingSvc, err := billing.NewService(provider, billing.NewGormStore(db), log, billing.Config{
		Clock: func() time.Time {
			return testNow
		},
		AfterSubscriptionUpdate: func(ctx context.Context, c billing.Customer) error {
			atomic.AddInt32(&env.hookCalls, 1)
			return nil
		},
	})
	require.NoError(t, err)

	r := mux.NewRouter()
	RegisterHandlers(NewBasicService(cfg, billingSvc, opts.verifier, opts.locker), &transportutil.HandlerRegContext{
		Router:     r,
		Log:        log,
		ErrTracker: apperrors.NewNopTracker(),
		DB:         db,
		Cfg:        cfg,
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	env.e = httpexpect.New(t, server.URL)

	return env
}

func (e *testEnv) hooks() int {
	return int(atomic.LoadInt32(&e.hookCalls))
}

func (e *testEnv) post(payload []byte) *httpexpect.Response {
	return e.e.POST(fmt.Sprintf("/v1/payments/%s/events", testProvider)).
		WithHeader("Content-Type", "application/json").
		WithBytes(payload).
		Expect()
}

// expectEvent makes the provider confirm the event once.
func (e *testEnv) expectEvent(id, eventType string, object interface{}) *gomock.Call {
	return e.provider.EXPECT().GetEvent(gomock.Any(), id).Return(&paymentprovider.Event{
		ID:     id,
		Type:   eventType,
		Object: mustJSON(e.t, object),
	}, nil)
}

func (e *testEnv) storeSubscription(remoteID string) models.Subscription {
	m := models.Subscription{
		CustomerID:           e.customer.ID,
		Name:                 billing.DefaultSubscriptionName,
		RemoteSubscriptionID: remoteID,
		PlanID:               "plan_a",
		Quantity:             1,
		Status:               string(paymentprovider.SubscriptionStatusActive),
	}
	require.NoError(e.t, e.db.Create(&m).Error)
	return m
}

func (e *testEnv) subscriptions() []models.Subscription {
	var ret []models.Subscription
	require.NoError(e.t, e.db.Order("id").Find(&ret).Error)
	return ret
}

func (e *testEnv) storedEvent(id string) *models.PaymentGatewayEvent {
	var ret models.PaymentGatewayEvent
	err := e.db.Where("provider_id = ?", id).First(&ret).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	require.NoError(e.t, err)
	return &ret
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func eventPayload(t *testing.T, id, eventType string, object interface{}) []byte {
	return mustJSON(t, map[string]interface{}{
		"id":   id,
		"type": eventType,
		"data": map[string]interface{}{
			"object": object,
		},
	})
}

func checkoutSession(subscriptionID, clientReferenceID string) map[string]interface{} {
	return map[string]interface{}{
		"id":                  "cs_1",
		"object":              "checkout.session",
		"mode":                "subscription",
		"customer":            "cus_1",
		"subscription":        subscriptionID,
		"client_reference_id": clientReferenceID,
	}
}

func deletedSubscription(id, customerID string) map[string]interface{} {
	return map[string]interface{}{
		"id":       id,
		"object":   "subscription",
		"customer": customerID,
		"status":   "canceled",
	}
}

func remoteSub(id string) *paymentprovider.Subscription {
	periodEnd := testNow.AddDate(0, 0, 20)
	return &paymentprovider.Subscription{
		ID:               id,
		CustomerID:       "cus_1",
		Status:           paymentprovider.SubscriptionStatusActive,
		PlanID:           "plan_a",
		Quantity:         2,
		Items:            []paymentprovider.SubscriptionItem{{ID: "si_1", PlanID: "plan_a", Quantity: 2}},
		CurrentPeriodEnd: &periodEnd,
	}
}

func signPayload(secret string, payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%d.", ts)))
	_, _ = mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
