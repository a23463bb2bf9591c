package billing

import (
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/golangci/golangci-billing/pkg/api/models"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite" // sqlite3 driver for tests
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

type testEnv struct {
	t        *testing.T
	provider *paymentprovider.MockProvider
	db       *gorm.DB
	svc      *Service
	customer *models.Customer
}

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.AutoMigrate(&models.Customer{}, &models.Subscription{}).Error)
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	ctrl := gomock.NewController(t)
	provider := paymentprovider.NewMockProvider(ctrl)
	db := newTestDB(t)

	svc, err := NewService(provider, NewGormStore(db), logutil.NewStderrLog("test"), Config{
		MetadataAttributes: map[string]string{"metadata_id": "app_id"},
		Clock: func() time.Time {
			return testNow
		},
	})
	require.NoError(t, err)

	customer := &models.Customer{
		Email:            "billing@example.com",
		RemoteCustomerID: "cus_1",
	}
	require.NoError(t, db.Create(customer).Error)

	return &testEnv{
		t:        t,
		provider: provider,
		db:       db,
		svc:      svc,
		customer: customer,
	}
}

func (e testEnv) billable() *Billable {
	return e.svc.Billable(e.customer)
}

func (e testEnv) storeSubscription(m models.Subscription) *Subscription {
	if m.CustomerID == 0 {
		m.CustomerID = e.customer.ID
	}
	if m.Name == "" {
		m.Name = DefaultSubscriptionName
	}
	if m.Quantity == 0 {
		m.Quantity = 1
	}
	require.NoError(e.t, e.db.Create(&m).Error)
	return e.svc.Subscription(&m)
}

func (e testEnv) reloadSubscription(id uint) models.Subscription {
	var m models.Subscription
	require.NoError(e.t, e.db.First(&m, id).Error)
	return m
}

func (e testEnv) countSubscriptions() int {
	var n int
	require.NoError(e.t, e.db.Model(&models.Subscription{}).Count(&n).Error)
	return n
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func boolPtr(v bool) *bool {
	return &v
}

func remoteSub(id string) *paymentprovider.Subscription {
	return &paymentprovider.Subscription{
		ID:               id,
		CustomerID:       "cus_1",
		Status:           paymentprovider.SubscriptionStatusActive,
		PlanID:           "plan_a",
		Quantity:         1,
		Items:            []paymentprovider.SubscriptionItem{{ID: "si_1", PlanID: "plan_a", Quantity: 1}},
		CurrentPeriodEnd: timePtr(testNow.AddDate(0, 0, 20)),
	}
}
