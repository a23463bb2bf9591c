package billing

import (
	"context"
	"time"

	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/golangci/golangci-billing/pkg/api/models"
	"github.com/pkg/errors"
)

// Builder creates a new subscription remotely and stores it locally.
type Builder struct {
	billable *Billable

	name       string
	planID     string
	quantity   int64
	trialDays  int
	trialUntil *time.Time
	skipTrial  bool
	coupon     string
	metadata   map[string]string
}

func (b *Billable) NewSubscription(name, planID string) *Builder {
	return &Builder{
		billable: b,
		name:     name,
		planID:   planID,
		quantity: 1,
	}
}

func (b *Builder) Quantity(quantity int64) *Builder {
	b.quantity = quantity
	return b
}

func (b *Builder) TrialDays(days int) *Builder {
	b.trialDays = days
	b.trialUntil = nil
	return b
}

func (b *Builder) TrialUntil(t time.Time) *Builder {
	b.trialUntil = &t
	b.trialDays = 0
	return b
}

// SkipTrial ends the trial immediately even if the plan has one.
func (b *Builder) SkipTrial() *Builder {
	b.skipTrial = true
	return b
}

func (b *Builder) WithCoupon(coupon string) *Builder {
	b.coupon = coupon
	return b
}

func (b *Builder) WithMetadata(metadata map[string]string) *Builder {
	b.metadata = metadata
	return b
}

// trialEnd gives the trial end to store locally, nil means no trial or
// the plan's own trial.
func (b Builder) trialEnd(now time.Time) *time.Time {
	switch {
	case b.skipTrial:
		return nil
	case b.trialUntil != nil:
		t := *b.trialUntil
		return &t
	case b.trialDays > 0:
		t := now.AddDate(0, 0, b.trialDays)
		return &t
	}

	return nil
}

func (b Builder) trialEndForPayload(now time.Time) *paymentprovider.Moment {
	if b.skipTrial {
		return paymentprovider.Now()
	}

	if t := b.trialEnd(now); t != nil {
		return paymentprovider.At(*t)
	}

	return nil
}

func (b Builder) buildPayload(remoteCustomerID string, now time.Time) *paymentprovider.SubscriptionParams {
	return &paymentprovider.SubscriptionParams{
		CustomerID: remoteCustomerID,
		PlanID:     b.planID,
		Quantity:   b.quantity,
		Coupon:     b.coupon,
		TrialEnd:   b.trialEndForPayload(now),
		TaxPercent: b.billable.TaxPercentage(),
		Metadata:   b.metadata,
	}
}

func (b Builder) remoteCustomer(ctx context.Context, token string,
	opts *paymentprovider.CustomerParams) (*paymentprovider.Customer, error) {

	if !b.billable.HasRemoteID() {
		params := paymentprovider.CustomerParams{}
		if opts != nil {
			params = *opts
		}
		if b.coupon != "" {
			params.Coupon = b.coupon
		}
		return b.billable.CreateAsCustomer(ctx, token, &params)
	}

	if token != "" {
		if err := b.billable.UpdateCard(ctx, token); err != nil {
			return nil, err
		}
	}

	return b.billable.AsRemoteCustomer(ctx)
}

// Add creates the subscription charging the customer's existing source.
func (b *Builder) Add(ctx context.Context, opts *paymentprovider.CustomerParams) (*Subscription, error) {
	return b.Create(ctx, "", opts)
}

// Create creates the subscription. A non-empty token becomes the customer's
// payment source.
func (b *Builder) Create(ctx context.Context, token string, opts *paymentprovider.CustomerParams) (*Subscription, error) {
	if b.planID == "" {
		return nil, errors.New("no plan to subscribe to")
	}
	if b.quantity < 1 {
		return nil, errors.Errorf("invalid quantity %d", b.quantity)
	}

	customer, err := b.remoteCustomer(ctx, token, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get remote customer")
	}

	svc := b.billable.svc
	now := svc.now()
	remote, err := svc.provider.CreateSubscription(ctx, b.buildPayload(customer.ID, now))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create remote subscription to plan %s", b.planID)
	}

	m := &models.Subscription{
		CustomerID:           b.billable.customer.GetID(),
		Name:                 b.name,
		RemoteSubscriptionID: remote.ID,
		PlanID:               b.planID,
		Quantity:             b.quantity,
		Status:               string(remote.Status),
		CurrentPeriodEnd:     remote.CurrentPeriodEnd,
		TrialEndsAt:          b.trialEnd(now),
	}
	if err = svc.store.CreateSubscription(ctx, m); err != nil {
		return nil, &NotSavedError{Op: "subscription create", Err: err}
	}

	sub := svc.Subscription(m)
	sub.logger().Infof("Created subscription to plan %s", b.planID)
	return sub, nil
}
