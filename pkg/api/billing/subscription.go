package billing

import (
	"context"
	"time"

	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/golangci/golangci-billing/pkg/api/models"
	"github.com/pkg/errors"
)

// Subscription wraps a stored subscription with operations that change it
// remotely first and then locally. A failed remote call leaves the local
// record untouched; a failed local save after a remote success gives
// NotSavedError.
type Subscription struct {
	*models.Subscription

	svc *Service

	prorate            bool
	billingCycleAnchor *paymentprovider.Moment
}

func (s Subscription) logger() logutil.Log {
	return logutil.WrapLogWithContext(s.svc.log, logutil.Context{
		"subscription_id":        s.ID,
		"customer_id":            s.CustomerID,
		"remote_subscription_id": s.RemoteSubscriptionID,
	})
}

func (s Subscription) OnTrial() bool {
	return s.Subscription.OnTrial(s.svc.now())
}

func (s Subscription) OnGracePeriod() bool {
	return s.Subscription.OnGracePeriod(s.svc.now())
}

func (s Subscription) Active() bool {
	return s.Subscription.Active(s.svc.now())
}

func (s Subscription) Valid() bool {
	return s.Subscription.Valid(s.svc.now())
}

func (s *Subscription) NoProrate() *Subscription {
	s.prorate = false
	return s
}

func (s *Subscription) Prorate() *Subscription {
	s.prorate = true
	return s
}

func (s *Subscription) AnchorBillingCycleOn(t time.Time) *Subscription {
	s.billingCycleAnchor = paymentprovider.At(t)
	return s
}

func (s *Subscription) AnchorBillingCycleNow() *Subscription {
	s.billingCycleAnchor = paymentprovider.Now()
	return s
}

func (s Subscription) AsRemoteSubscription(ctx context.Context) (*paymentprovider.Subscription, error) {
	remote, err := s.svc.provider.GetSubscription(ctx, s.RemoteSubscriptionID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch remote subscription %s", s.RemoteSubscriptionID)
	}

	return remote, nil
}

func (s *Subscription) save(ctx context.Context, op string) error {
	if err := s.svc.store.SaveSubscription(ctx, s.Subscription); err != nil {
		s.logger().Errorf("Remote %s succeeded but local save failed: %s", op, err)
		return &NotSavedError{Op: op, Err: err}
	}

	return nil
}

// trialEnd keeps the current trial end while on trial and ends the trial
// otherwise.
func (s Subscription) trialEnd() *paymentprovider.Moment {
	if s.OnTrial() {
		return paymentprovider.At(*s.TrialEndsAt)
	}

	return paymentprovider.Now()
}

func (s *Subscription) mirror(remote *paymentprovider.Subscription) {
	if remote == nil {
		return
	}

	if remote.Status != "" {
		s.Status = string(remote.Status)
	}
	if remote.CurrentPeriodEnd != nil {
		s.CurrentPeriodEnd = remote.CurrentPeriodEnd
	}
}

func (s *Subscription) UpdateQuantity(ctx context.Context, quantity int64) error {
	if quantity < 1 {
		return errors.Errorf("invalid quantity %d", quantity)
	}

	remote, err := s.AsRemoteSubscription(ctx)
	if err != nil {
		return err
	}

	prorate := s.prorate
	updated, err := s.svc.provider.UpdateSubscription(ctx, remote.ID, &paymentprovider.SubscriptionUpdateParams{
		ItemID:   remote.PrimaryItemID(),
		Quantity: quantity,
		Prorate:  &prorate,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to update quantity of remote subscription %s", remote.ID)
	}

	s.Quantity = quantity
	s.mirror(updated)
	return s.save(ctx, "quantity update")
}

func (s *Subscription) IncrementQuantity(ctx context.Context, count int64) error {
	if count < 1 {
		count = 1
	}

	return s.UpdateQuantity(ctx, s.Quantity+count)
}

// IncrementAndInvoice increments the quantity and invoices the customer at
// once instead of waiting for the next billing cycle.
func (s *Subscription) IncrementAndInvoice(ctx context.Context, count int64) error {
	if err := s.IncrementQuantity(ctx, count); err != nil {
		return err
	}

	remote, err := s.AsRemoteSubscription(ctx)
	if err != nil {
		return err
	}

	if _, err = s.svc.invoiceCustomer(ctx, remote.CustomerID); err != nil {
		return &NotInvoicedError{Op: "quantity increment", Err: err}
	}

	return nil
}

// DecrementQuantity never goes below quantity 1.
func (s *Subscription) DecrementQuantity(ctx context.Context, count int64) error {
	if count < 1 {
		count = 1
	}

	quantity := s.Quantity - count
	if quantity < 1 {
		quantity = 1
	}

	return s.UpdateQuantity(ctx, quantity)
}

// Swap moves the subscription to another plan. It always clears a pending
// cancellation.
func (s *Subscription) Swap(ctx context.Context, planID string) error {
	if planID == "" {
		return errors.New("no plan to swap to")
	}

	remote, err := s.AsRemoteSubscription(ctx)
	if err != nil {
		return err
	}

	prorate := s.prorate
	params := &paymentprovider.SubscriptionUpdateParams{
		ItemID:             remote.PrimaryItemID(),
		PlanID:             planID,
		Prorate:            &prorate,
		TrialEnd:           s.trialEnd(),
		BillingCycleAnchor: s.billingCycleAnchor,
	}
	if s.Quantity > 0 {
		params.Quantity = s.Quantity
	}

	updated, err := s.svc.provider.UpdateSubscription(ctx, remote.ID, params)
	if err != nil {
		return errors.Wrapf(err, "failed to swap remote subscription %s to plan %s", remote.ID, planID)
	}

	s.PlanID = planID
	s.EndsAt = nil
	s.CancelAtPeriodEnd = false
	s.mirror(updated)
	if err = s.save(ctx, "swap"); err != nil {
		return err
	}

	// local state matches the remote one here, a failed invoice doesn't undo the swap
	if _, err = s.svc.invoiceCustomer(ctx, remote.CustomerID); err != nil {
		return &NotInvoicedError{Op: "swap", Err: err}
	}

	return nil
}

// Cancel cancels at the end of the trial or of the current period.
func (s *Subscription) Cancel(ctx context.Context) error {
	remote, err := s.svc.provider.CancelSubscription(ctx, s.RemoteSubscriptionID, true)
	if err != nil {
		return errors.Wrapf(err, "failed to cancel remote subscription %s", s.RemoteSubscriptionID)
	}

	var endsAt time.Time
	switch {
	case s.OnTrial():
		endsAt = *s.TrialEndsAt
	case remote.CurrentPeriodEnd != nil:
		endsAt = *remote.CurrentPeriodEnd
	default:
		s.logger().Warnf("No current period end in canceled remote subscription, ending it now")
		endsAt = s.svc.now()
	}

	s.EndsAt = &endsAt
	s.CancelAtPeriodEnd = true
	s.mirror(remote)
	return s.save(ctx, "cancel")
}

func (s *Subscription) CancelNow(ctx context.Context) error {
	remote, err := s.svc.provider.CancelSubscription(ctx, s.RemoteSubscriptionID, false)
	if err != nil {
		return errors.Wrapf(err, "failed to cancel remote subscription %s now", s.RemoteSubscriptionID)
	}

	s.mirror(remote)
	if err = s.MarkAsCancelled(ctx); err != nil {
		return &NotSavedError{Op: "cancel now", Err: err}
	}

	return nil
}

// MarkAsCancelled ends the subscription now locally only.
func (s *Subscription) MarkAsCancelled(ctx context.Context) error {
	now := s.svc.now()
	s.EndsAt = &now
	if err := s.svc.store.SaveSubscription(ctx, s.Subscription); err != nil {
		return errors.Wrap(err, "failed to mark subscription as cancelled")
	}

	return nil
}

// Resume undoes Cancel, it's allowed only within the grace period.
func (s *Subscription) Resume(ctx context.Context) error {
	if !s.OnGracePeriod() {
		return &InvalidStateError{
			Op:     "resume subscription",
			Reason: "it's not within its grace period",
		}
	}

	remote, err := s.AsRemoteSubscription(ctx)
	if err != nil {
		return err
	}

	cancelAtPeriodEnd := false
	updated, err := s.svc.provider.UpdateSubscription(ctx, remote.ID, &paymentprovider.SubscriptionUpdateParams{
		ItemID:            remote.PrimaryItemID(),
		PlanID:            s.PlanID,
		TrialEnd:          s.trialEnd(),
		CancelAtPeriodEnd: &cancelAtPeriodEnd,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to resume remote subscription %s", remote.ID)
	}

	s.EndsAt = nil
	s.CancelAtPeriodEnd = updated.CancelAtPeriodEnd
	s.mirror(updated)
	return s.save(ctx, "resume")
}
