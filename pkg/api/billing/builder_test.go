package billing

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/golangci/golangci-billing/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWithTrialDays(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trialEnd := testNow.AddDate(0, 0, 7)

	created := remoteSub("sub_1")
	created.Status = paymentprovider.SubscriptionStatusTrialing
	env.provider.EXPECT().GetCustomer(gomock.Any(), "cus_1").Return(&paymentprovider.Customer{ID: "cus_1"}, nil)
	env.provider.EXPECT().CreateSubscription(gomock.Any(), &paymentprovider.SubscriptionParams{
		CustomerID: "cus_1",
		PlanID:     "plan_a",
		Quantity:   1,
		TrialEnd:   paymentprovider.At(trialEnd),
		Metadata:   map[string]string{"team": "42"},
	}).Return(created, nil)

	sub, err := env.billable().NewSubscription("main", "plan_a").
		TrialDays(7).
		WithMetadata(map[string]string{"team": "42"}).
		Add(ctx, nil)
	require.NoError(t, err)

	assert.True(t, sub.OnTrial())
	assert.True(t, sub.Active())
	assert.True(t, sub.Valid())
	require.NotNil(t, sub.TrialEndsAt)
	assert.True(t, sub.TrialEndsAt.Equal(trialEnd))

	stored := env.reloadSubscription(sub.ID)
	assert.Equal(t, "main", stored.Name)
	assert.Equal(t, "sub_1", stored.RemoteSubscriptionID)
	assert.Equal(t, "trialing", stored.Status)
	assert.Nil(t, stored.EndsAt)
}

func TestCreateSkippingTrial(t *testing.T) {
	env := newTestEnv(t)
	env.svc.cfg.TaxPercent = 20

	env.provider.EXPECT().UpdateCustomer(gomock.Any(), "cus_1", &paymentprovider.CustomerParams{Source: "tok_visa"}).
		Return(&paymentprovider.Customer{ID: "cus_1"}, nil)
	env.provider.EXPECT().GetCustomer(gomock.Any(), "cus_1").Return(&paymentprovider.Customer{ID: "cus_1"}, nil)
	env.provider.EXPECT().CreateSubscription(gomock.Any(), &paymentprovider.SubscriptionParams{
		CustomerID: "cus_1",
		PlanID:     "plan_a",
		Quantity:   2,
		Coupon:     "OFF10",
		TrialEnd:   paymentprovider.Now(),
		TaxPercent: 20,
	}).Return(remoteSub("sub_1"), nil)

	sub, err := env.billable().NewSubscription("main", "plan_a").
		TrialDays(7).
		SkipTrial().
		Quantity(2).
		WithCoupon("OFF10").
		Create(context.Background(), "tok_visa", nil)
	require.NoError(t, err)

	assert.Nil(t, sub.TrialEndsAt)
	assert.False(t, sub.OnTrial())
	assert.Equal(t, int64(2), sub.Quantity)
}

func TestCreateMakesRemoteCustomer(t *testing.T) {
	env := newTestEnv(t)
	customer := &models.Customer{Email: "new@example.com"}
	require.NoError(t, env.db.Create(customer).Error)

	gomock.InOrder(
		env.provider.EXPECT().CreateCustomer(gomock.Any(), &paymentprovider.CustomerParams{
			Email:  "new@example.com",
			Source: "tok_visa",
			Coupon: "WELCOME",
		}).Return(&paymentprovider.Customer{ID: "cus_new"}, nil),
		env.provider.EXPECT().GetCustomer(gomock.Any(), "cus_new").Return(&paymentprovider.Customer{
			ID:            "cus_new",
			DefaultSource: "card_1",
			Sources:       []paymentprovider.Card{{ID: "card_1", Brand: "Visa", Last4: "4242"}},
		}, nil),
		env.provider.EXPECT().CreateSubscription(gomock.Any(), gomock.Any()).Return(remoteSub("sub_1"), nil),
	)

	b := env.svc.Billable(customer)
	_, err := b.NewSubscription("main", "plan_a").WithCoupon("WELCOME").Create(context.Background(), "tok_visa", nil)
	require.NoError(t, err)

	var stored models.Customer
	require.NoError(t, env.db.First(&stored, customer.ID).Error)
	assert.Equal(t, "cus_new", stored.RemoteCustomerID)
	assert.Equal(t, "Visa", stored.CardBrand)
	assert.Equal(t, "4242", stored.CardLastFour)
	assert.True(t, b.HasCardOnFile())
}

func TestCreateNotSavedLocally(t *testing.T) {
	env := newTestEnv(t)
	env.storeSubscription(models.Subscription{RemoteSubscriptionID: "sub_1"})

	env.provider.EXPECT().GetCustomer(gomock.Any(), "cus_1").Return(&paymentprovider.Customer{ID: "cus_1"}, nil)
	env.provider.EXPECT().CreateSubscription(gomock.Any(), gomock.Any()).Return(remoteSub("sub_1"), nil)

	_, err := env.billable().NewSubscription("main", "plan_a").Add(context.Background(), nil)
	assert.True(t, IsNotSaved(err), "got %v", err)
	assert.Equal(t, 1, env.countSubscriptions())
}
