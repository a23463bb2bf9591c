package billing

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/golangci/golangci-billing/pkg/api/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeWithoutSourceOrCustomer(t *testing.T) {
	env := newTestEnv(t)
	b := env.svc.Billable(&models.Customer{Email: "anonymous@example.com"})

	_, err := b.Charge(context.Background(), 1000, nil)
	assert.Equal(t, ErrNoPaymentSource, errors.Cause(err))
}

func TestChargeDefaultsToCustomer(t *testing.T) {
	env := newTestEnv(t)

	env.provider.EXPECT().CreateCharge(gomock.Any(), &paymentprovider.ChargeParams{
		Amount:     1000,
		Currency:   "usd",
		CustomerID: "cus_1",
	}).Return(&paymentprovider.Charge{ID: "ch_1", Amount: 1000, Paid: true}, nil)
	env.provider.EXPECT().CreateRefund(gomock.Any(), &paymentprovider.RefundParams{ChargeID: "ch_1"}).
		Return(&paymentprovider.Refund{ID: "re_1", ChargeID: "ch_1", Amount: 1000}, nil)

	ch, err := env.billable().Charge(context.Background(), 1000, nil)
	require.NoError(t, err)

	r, err := env.billable().Refund(context.Background(), ch.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), r.Amount)
}

func TestTabRequiresRemoteCustomer(t *testing.T) {
	env := newTestEnv(t)
	b := env.svc.Billable(&models.Customer{})

	_, err := b.Tab(context.Background(), "setup fee", 500, nil)
	assert.Equal(t, ErrNotCustomer, errors.Cause(err))

	_, err = b.InvoiceFor(context.Background(), "setup fee", 500, nil)
	assert.Equal(t, ErrNotCustomer, errors.Cause(err))
}

func TestInvoiceSuppressesOnlyRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.provider.EXPECT().CreateInvoice(gomock.Any(), "cus_1").
		Return(nil, errors.Wrap(paymentprovider.ErrInvalidRequest, "nothing to invoice"))
	ok, err := env.billable().Invoice(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)

	env.provider.EXPECT().CreateInvoice(gomock.Any(), "cus_1").
		Return(nil, errors.Wrap(paymentprovider.ErrUnavailable, "connection reset"))
	_, err = env.billable().Invoice(ctx)
	assert.Equal(t, paymentprovider.ErrUnavailable, errors.Cause(err))
}

func TestInvoiceFor(t *testing.T) {
	env := newTestEnv(t)

	env.provider.EXPECT().CreateInvoiceItem(gomock.Any(), &paymentprovider.InvoiceItemParams{
		CustomerID:  "cus_1",
		Amount:      500,
		Currency:    "usd",
		Description: "setup fee",
	}).Return(&paymentprovider.InvoiceLine{ID: "ii_1"}, nil)
	env.provider.EXPECT().CreateInvoice(gomock.Any(), "cus_1").Return(&paymentprovider.Invoice{ID: "in_1"}, nil)
	env.provider.EXPECT().PayInvoice(gomock.Any(), "in_1").Return(&paymentprovider.Invoice{ID: "in_1", Paid: true}, nil)

	ok, err := env.billable().InvoiceFor(context.Background(), "setup fee", 500, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFindInvoice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.provider.EXPECT().GetInvoice(gomock.Any(), "in_missing").
		Return(nil, errors.Wrap(paymentprovider.ErrNotFound, "no such invoice")).Times(2)

	inv, err := env.billable().FindInvoice(ctx, "in_missing")
	assert.NoError(t, err)
	assert.Nil(t, inv)

	_, err = env.billable().FindInvoiceOrFail(ctx, "in_missing")
	assert.Equal(t, ErrInvoiceNotFound, errors.Cause(err))

	env.provider.EXPECT().GetInvoice(gomock.Any(), "in_1").
		Return(nil, errors.Wrap(paymentprovider.ErrUnavailable, "timeout"))
	_, err = env.billable().FindInvoice(ctx, "in_1")
	assert.Equal(t, paymentprovider.ErrUnavailable, errors.Cause(err))
}

func TestUpcomingInvoiceRejected(t *testing.T) {
	env := newTestEnv(t)

	env.provider.EXPECT().GetUpcomingInvoice(gomock.Any(), "cus_1").
		Return(nil, errors.Wrap(paymentprovider.ErrInvalidRequest, "no upcoming invoices"))

	inv, err := env.billable().UpcomingInvoice(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, inv)
}

func TestInvoicesFiltersPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	invoices := []paymentprovider.Invoice{{ID: "in_1", Paid: true}, {ID: "in_2"}, {ID: "in_3", Paid: true}}
	env.provider.EXPECT().ListInvoices(gomock.Any(), "cus_1", &paymentprovider.InvoiceListParams{Limit: 24}).
		Return(invoices, nil)
	env.provider.EXPECT().ListInvoices(gomock.Any(), "cus_1", &paymentprovider.InvoiceListParams{Limit: 5}).
		Return(invoices, nil)

	paid, err := env.billable().Invoices(ctx, false, 0)
	require.NoError(t, err)
	require.Len(t, paid, 2)
	assert.Equal(t, "in_1", paid[0].ID())
	assert.Equal(t, "in_3", paid[1].ID())

	all, err := env.billable().InvoicesIncludingPending(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUpdateCardFromProviderClearsMissingCard(t *testing.T) {
	env := newTestEnv(t)
	env.customer.SetCard("Visa", "4242")

	env.provider.EXPECT().GetCustomer(gomock.Any(), "cus_1").Return(&paymentprovider.Customer{ID: "cus_1"}, nil)

	b := env.billable()
	require.NoError(t, b.UpdateCardFromProvider(context.Background()))
	assert.False(t, b.HasCardOnFile())

	var stored models.Customer
	require.NoError(t, env.db.First(&stored, env.customer.ID).Error)
	assert.Empty(t, stored.CardBrand)
	assert.Empty(t, stored.CardLastFour)
}

func TestApplyCoupon(t *testing.T) {
	env := newTestEnv(t)

	env.provider.EXPECT().UpdateCustomer(gomock.Any(), "cus_1", &paymentprovider.CustomerParams{Coupon: "OFF10"}).
		Return(&paymentprovider.Customer{ID: "cus_1"}, nil)

	assert.NoError(t, env.billable().ApplyCoupon(context.Background(), "OFF10"))
}

func TestSubscriptionDecisionRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.billable()

	env.storeSubscription(models.Subscription{
		Name:                 "main",
		RemoteSubscriptionID: "sub_old",
		PlanID:               "plan_old",
		EndsAt:               timePtr(testNow.Add(-time.Hour)),
	})
	env.storeSubscription(models.Subscription{
		Name:                 "main",
		RemoteSubscriptionID: "sub_new",
		PlanID:               "plan_a",
		TrialEndsAt:          timePtr(testNow.AddDate(0, 0, 3)),
	})

	sub, err := b.Subscription(ctx, "main")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "sub_new", sub.RemoteSubscriptionID)

	subscribed, err := b.Subscribed(ctx, "main", "")
	require.NoError(t, err)
	assert.True(t, subscribed)

	subscribed, err = b.Subscribed(ctx, "main", "plan_old")
	require.NoError(t, err)
	assert.False(t, subscribed)

	subscribed, err = b.SubscribedToPlan(ctx, []string{"plan_x", "plan_a"}, "main")
	require.NoError(t, err)
	assert.True(t, subscribed)

	onPlan, err := b.OnPlan(ctx, "plan_old")
	require.NoError(t, err)
	assert.False(t, onPlan)

	onPlan, err = b.OnPlan(ctx, "plan_a")
	require.NoError(t, err)
	assert.True(t, onPlan)

	onTrial, err := b.OnTrial(ctx, "main", "plan_a")
	require.NoError(t, err)
	assert.True(t, onTrial)

	onTrial, err = b.OnTrial(ctx, "main", "plan_old")
	require.NoError(t, err)
	assert.False(t, onTrial)

	missing, err := b.Subscription(ctx, "other")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGenericTrial(t *testing.T) {
	env := newTestEnv(t)

	env.customer.TrialEndsAt = timePtr(testNow.AddDate(0, 0, 1))
	b := env.billable()
	assert.True(t, b.OnGenericTrial())

	onTrial, err := b.OnTrial(context.Background(), "", "")
	require.NoError(t, err)
	assert.True(t, onTrial)

	env.customer.TrialEndsAt = timePtr(testNow.Add(-time.Minute))
	assert.False(t, b.OnGenericTrial())
}
