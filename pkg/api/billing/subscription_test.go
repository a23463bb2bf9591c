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

func TestCancelThenResumeWithinGracePeriod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := env.storeSubscription(models.Subscription{RemoteSubscriptionID: "sub_1", PlanID: "plan_a"})

	canceled := remoteSub("sub_1")
	canceled.CancelAtPeriodEnd = true
	env.provider.EXPECT().CancelSubscription(gomock.Any(), "sub_1", true).Return(canceled, nil)

	require.NoError(t, sub.Cancel(ctx))
	assert.True(t, sub.EndsAt.Equal(*canceled.CurrentPeriodEnd))
	assert.True(t, sub.Cancelled())
	assert.True(t, sub.OnGracePeriod())
	assert.True(t, sub.Active())
	assert.True(t, sub.CancelAtPeriodEnd)

	stored := env.reloadSubscription(sub.ID)
	require.NotNil(t, stored.EndsAt)
	assert.True(t, stored.EndsAt.Equal(*canceled.CurrentPeriodEnd))

	env.provider.EXPECT().GetSubscription(gomock.Any(), "sub_1").Return(canceled, nil)
	env.provider.EXPECT().UpdateSubscription(gomock.Any(), "sub_1", &paymentprovider.SubscriptionUpdateParams{
		ItemID:            "si_1",
		PlanID:            "plan_a",
		TrialEnd:          paymentprovider.Now(),
		CancelAtPeriodEnd: boolPtr(false),
	}).Return(remoteSub("sub_1"), nil)

	require.NoError(t, sub.Resume(ctx))
	assert.Nil(t, sub.EndsAt)
	assert.False(t, sub.CancelAtPeriodEnd)
	assert.False(t, sub.Cancelled())

	stored = env.reloadSubscription(sub.ID)
	assert.Nil(t, stored.EndsAt)
	assert.False(t, stored.CancelAtPeriodEnd)
}

func TestCancelOnTrialEndsAtTrialEnd(t *testing.T) {
	env := newTestEnv(t)
	trialEnd := testNow.AddDate(0, 0, 5)
	sub := env.storeSubscription(models.Subscription{RemoteSubscriptionID: "sub_1", TrialEndsAt: &trialEnd})

	env.provider.EXPECT().CancelSubscription(gomock.Any(), "sub_1", true).Return(remoteSub("sub_1"), nil)

	require.NoError(t, sub.Cancel(context.Background()))
	assert.True(t, sub.EndsAt.Equal(trialEnd))
}

func TestResumeOutsideGracePeriodFailsWithoutRemoteCalls(t *testing.T) {
	env := newTestEnv(t)

	notCancelled := env.storeSubscription(models.Subscription{RemoteSubscriptionID: "sub_1"})
	err := notCancelled.Resume(context.Background())
	assert.True(t, IsInvalidState(err), "got %v", err)

	expired := env.storeSubscription(models.Subscription{
		RemoteSubscriptionID: "sub_2",
		EndsAt:               timePtr(testNow.Add(-time.Hour)),
	})
	err = expired.Resume(context.Background())
	assert.True(t, IsInvalidState(err), "got %v", err)

	stored := env.reloadSubscription(expired.ID)
	require.NotNil(t, stored.EndsAt)
}

func TestCancelNowMarksAsCancelled(t *testing.T) {
	env := newTestEnv(t)
	sub := env.storeSubscription(models.Subscription{RemoteSubscriptionID: "sub_1"})

	canceled := remoteSub("sub_1")
	canceled.Status = paymentprovider.SubscriptionStatusCanceled
	env.provider.EXPECT().CancelSubscription(gomock.Any(), "sub_1", false).Return(canceled, nil)

	require.NoError(t, sub.CancelNow(context.Background()))
	assert.True(t, sub.EndsAt.Equal(testNow))
	assert.False(t, sub.Active())
	assert.False(t, sub.OnGracePeriod())
	assert.Equal(t, "canceled", env.reloadSubscription(sub.ID).Status)
}

func TestSwapInvoicesAndClearsCancellation(t *testing.T) {
	env := newTestEnv(t)
	sub := env.storeSubscription(models.Subscription{
		RemoteSubscriptionID: "sub_1",
		PlanID:               "plan_a",
		Quantity:             3,
		EndsAt:               timePtr(testNow.AddDate(0, 0, 3)),
	})

	swapped := remoteSub("sub_1")
	swapped.PlanID = "plan_b"
	gomock.InOrder(
		env.provider.EXPECT().GetSubscription(gomock.Any(), "sub_1").Return(remoteSub("sub_1"), nil),
		env.provider.EXPECT().UpdateSubscription(gomock.Any(), "sub_1", &paymentprovider.SubscriptionUpdateParams{
			ItemID:   "si_1",
			PlanID:   "plan_b",
			Quantity: 3,
			Prorate:  boolPtr(true),
			TrialEnd: paymentprovider.Now(),
		}).Return(swapped, nil),
		env.provider.EXPECT().CreateInvoice(gomock.Any(), "cus_1").Return(&paymentprovider.Invoice{ID: "in_1"}, nil),
		env.provider.EXPECT().PayInvoice(gomock.Any(), "in_1").Return(&paymentprovider.Invoice{ID: "in_1", Paid: true}, nil),
	)

	require.NoError(t, sub.Swap(context.Background(), "plan_b"))

	stored := env.reloadSubscription(sub.ID)
	assert.Equal(t, "plan_b", stored.PlanID)
	assert.Equal(t, int64(3), stored.Quantity)
	assert.Nil(t, stored.EndsAt)
}

func TestSwapIsKeptWhenInvoicePaymentFails(t *testing.T) {
	env := newTestEnv(t)
	sub := env.storeSubscription(models.Subscription{
		RemoteSubscriptionID: "sub_1",
		PlanID:               "plan_a",
		EndsAt:               timePtr(testNow.AddDate(0, 0, 3)),
		CancelAtPeriodEnd:    true,
	})

	swapped := remoteSub("sub_1")
	swapped.PlanID = "plan_b"
	gomock.InOrder(
		env.provider.EXPECT().GetSubscription(gomock.Any(), "sub_1").Return(remoteSub("sub_1"), nil),
		env.provider.EXPECT().UpdateSubscription(gomock.Any(), "sub_1", gomock.Any()).Return(swapped, nil),
		env.provider.EXPECT().CreateInvoice(gomock.Any(), "cus_1").Return(&paymentprovider.Invoice{ID: "in_1"}, nil),
		env.provider.EXPECT().PayInvoice(gomock.Any(), "in_1").
			Return(nil, errors.Wrap(paymentprovider.ErrCardDeclined, "insufficient funds")),
	)

	err := sub.Swap(context.Background(), "plan_b")
	require.Error(t, err)
	assert.True(t, IsNotInvoiced(err), "got %v", err)
	assert.False(t, IsNotSaved(err))
	assert.Equal(t, paymentprovider.ErrCardDeclined, errors.Cause(err))

	stored := env.reloadSubscription(sub.ID)
	assert.Equal(t, "plan_b", stored.PlanID)
	assert.Nil(t, stored.EndsAt)
	assert.False(t, stored.CancelAtPeriodEnd)
}

func TestSwapOnTrialKeepsTrialAndAnchor(t *testing.T) {
	env := newTestEnv(t)
	trialEnd := testNow.AddDate(0, 0, 10)
	sub := env.storeSubscription(models.Subscription{RemoteSubscriptionID: "sub_1", PlanID: "plan_a", TrialEndsAt: &trialEnd})

	env.provider.EXPECT().GetSubscription(gomock.Any(), "sub_1").Return(remoteSub("sub_1"), nil)
	env.provider.EXPECT().UpdateSubscription(gomock.Any(), "sub_1", &paymentprovider.SubscriptionUpdateParams{
		ItemID:             "si_1",
		PlanID:             "plan_b",
		Quantity:           1,
		Prorate:            boolPtr(false),
		TrialEnd:           paymentprovider.At(trialEnd),
		BillingCycleAnchor: paymentprovider.Now(),
	}).Return(remoteSub("sub_1"), nil)
	// nothing to invoice is not a failure
	env.provider.EXPECT().CreateInvoice(gomock.Any(), "cus_1").
		Return(nil, errors.Wrap(paymentprovider.ErrInvalidRequest, "nothing to invoice"))

	require.NoError(t, sub.NoProrate().AnchorBillingCycleNow().Swap(context.Background(), "plan_b"))
	assert.Equal(t, "plan_b", sub.PlanID)
	assert.True(t, sub.OnTrial())
}

func TestDecrementQuantityNeverGoesBelowOne(t *testing.T) {
	env := newTestEnv(t)
	sub := env.storeSubscription(models.Subscription{RemoteSubscriptionID: "sub_1", Quantity: 2})

	env.provider.EXPECT().GetSubscription(gomock.Any(), "sub_1").Return(remoteSub("sub_1"), nil)
	env.provider.EXPECT().UpdateSubscription(gomock.Any(), "sub_1", &paymentprovider.SubscriptionUpdateParams{
		ItemID:   "si_1",
		Quantity: 1,
		Prorate:  boolPtr(true),
	}).Return(remoteSub("sub_1"), nil)

	require.NoError(t, sub.DecrementQuantity(context.Background(), 5))
	assert.Equal(t, int64(1), env.reloadSubscription(sub.ID).Quantity)
}

func TestIncrementAndInvoice(t *testing.T) {
	env := newTestEnv(t)
	sub := env.storeSubscription(models.Subscription{RemoteSubscriptionID: "sub_1", Quantity: 1})

	env.provider.EXPECT().GetSubscription(gomock.Any(), "sub_1").Return(remoteSub("sub_1"), nil).Times(2)
	env.provider.EXPECT().UpdateSubscription(gomock.Any(), "sub_1", &paymentprovider.SubscriptionUpdateParams{
		ItemID:   "si_1",
		Quantity: 3,
		Prorate:  boolPtr(true),
	}).Return(remoteSub("sub_1"), nil)
	env.provider.EXPECT().CreateInvoice(gomock.Any(), "cus_1").Return(&paymentprovider.Invoice{ID: "in_1"}, nil)
	env.provider.EXPECT().PayInvoice(gomock.Any(), "in_1").Return(&paymentprovider.Invoice{ID: "in_1"}, nil)

	require.NoError(t, sub.IncrementAndInvoice(context.Background(), 2))
	assert.Equal(t, int64(3), sub.Quantity)
}

func TestIncrementIsKeptWhenInvoicePaymentFails(t *testing.T) {
	env := newTestEnv(t)
	sub := env.storeSubscription(models.Subscription{RemoteSubscriptionID: "sub_1", Quantity: 1})

	env.provider.EXPECT().GetSubscription(gomock.Any(), "sub_1").Return(remoteSub("sub_1"), nil).Times(2)
	env.provider.EXPECT().UpdateSubscription(gomock.Any(), "sub_1", gomock.Any()).Return(remoteSub("sub_1"), nil)
	env.provider.EXPECT().CreateInvoice(gomock.Any(), "cus_1").Return(&paymentprovider.Invoice{ID: "in_1"}, nil)
	env.provider.EXPECT().PayInvoice(gomock.Any(), "in_1").Return(nil, paymentprovider.ErrCardDeclined)

	err := sub.IncrementAndInvoice(context.Background(), 1)
	assert.True(t, IsNotInvoiced(err), "got %v", err)
	assert.Equal(t, int64(2), env.reloadSubscription(sub.ID).Quantity)
}

func TestRemoteFailureLeavesLocalStateUntouched(t *testing.T) {
	env := newTestEnv(t)
	sub := env.storeSubscription(models.Subscription{RemoteSubscriptionID: "sub_1", Quantity: 2})

	env.provider.EXPECT().GetSubscription(gomock.Any(), "sub_1").Return(remoteSub("sub_1"), nil)
	env.provider.EXPECT().UpdateSubscription(gomock.Any(), "sub_1", gomock.Any()).
		Return(nil, errors.Wrap(paymentprovider.ErrUnavailable, "timeout"))

	err := sub.IncrementQuantity(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, paymentprovider.ErrUnavailable, errors.Cause(err))
	assert.Equal(t, int64(2), sub.Quantity)
	assert.Equal(t, int64(2), env.reloadSubscription(sub.ID).Quantity)
}

func TestLocalSaveFailureAfterRemoteSuccess(t *testing.T) {
	env := newTestEnv(t)
	sub := env.storeSubscription(models.Subscription{RemoteSubscriptionID: "sub_1"})
	require.NoError(t, env.db.Close())

	env.provider.EXPECT().CancelSubscription(gomock.Any(), "sub_1", true).Return(remoteSub("sub_1"), nil)

	err := sub.Cancel(context.Background())
	assert.True(t, IsNotSaved(err), "got %v", err)
}
