package implementations

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	uuid "github.com/satori/go.uuid"
)

// Check the struct is implementing the Provider interface.
var _ paymentprovider.Provider = &StableProvider{}

// StableProvider retries transient failures of the underlying provider.
// Rejections (invalid request, not found, declined card) are returned at once.
type StableProvider struct {
	underlying   paymentprovider.Provider
	totalTimeout time.Duration
	maxRetries   int
}

func NewStableProvider(underlying paymentprovider.Provider, totalTimeout time.Duration, maxRetries int) *StableProvider {
	return &StableProvider{
		underlying:   underlying,
		totalTimeout: totalTimeout,
		maxRetries:   maxRetries,
	}
}

func (p StableProvider) Name() string {
	return p.underlying.Name()
}

func (p StableProvider) retry(ctx context.Context, method string, f func() error) error {
	startedAt := time.Now()

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = p.totalTimeout
	bmr := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.maxRetries)), ctx)

	err := backoff.Retry(func() error {
		err := f()
		if err != nil && paymentprovider.IsPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bmr)

	observeProviderCall(p.Name(), method, startedAt, err)
	return err
}

// withIdempotencyKey pins one idempotency key for all retries of a create.
func withIdempotencyKey(ctx context.Context) context.Context {
	if paymentprovider.IdempotencyKey(ctx) != "" {
		return ctx
	}

	return paymentprovider.WithIdempotencyKey(ctx, uuid.NewV4().String())
}

func (p StableProvider) CreateCustomer(ctx context.Context, params *paymentprovider.CustomerParams) (ret *paymentprovider.Customer, err error) {
	ctx = withIdempotencyKey(ctx)
	err = p.retry(ctx, "CreateCustomer", func() error {
		ret, err = p.underlying.CreateCustomer(ctx, params)
		return err
	})
	return
}

func (p StableProvider) GetCustomer(ctx context.Context, id string) (ret *paymentprovider.Customer, err error) {
	err = p.retry(ctx, "GetCustomer", func() error {
		ret, err = p.underlying.GetCustomer(ctx, id)
		return err
	})
	return
}

func (p StableProvider) UpdateCustomer(ctx context.Context, id string,
	params *paymentprovider.CustomerParams) (ret *paymentprovider.Customer, err error) {

	err = p.retry(ctx, "UpdateCustomer", func() error {
		ret, err = p.underlying.UpdateCustomer(ctx, id, params)
		return err
	})
	return
}

func (p StableProvider) CreateSubscription(ctx context.Context,
	params *paymentprovider.SubscriptionParams) (ret *paymentprovider.Subscription, err error) {

	ctx = withIdempotencyKey(ctx)
	err = p.retry(ctx, "CreateSubscription", func() error {
		ret, err = p.underlying.CreateSubscription(ctx, params)
		return err
	})
	return
}

func (p StableProvider) GetSubscription(ctx context.Context, id string) (ret *paymentprovider.Subscription, err error) {
	err = p.retry(ctx, "GetSubscription", func() error {
		ret, err = p.underlying.GetSubscription(ctx, id)
		return err
	})
	return
}

func (p StableProvider) UpdateSubscription(ctx context.Context, id string,
	params *paymentprovider.SubscriptionUpdateParams) (ret *paymentprovider.Subscription, err error) {

	err = p.retry(ctx, "UpdateSubscription", func() error {
		ret, err = p.underlying.UpdateSubscription(ctx, id, params)
		return err
	})
	return
}

func (p StableProvider) CancelSubscription(ctx context.Context, id string,
	atPeriodEnd bool) (ret *paymentprovider.Subscription, err error) {

	err = p.retry(ctx, "CancelSubscription", func() error {
		ret, err = p.underlying.CancelSubscription(ctx, id, atPeriodEnd)
		return err
	})
	return
}

func (p StableProvider) CreateInvoice(ctx context.Context, customerID string) (ret *paymentprovider.Invoice, err error) {
	ctx = withIdempotencyKey(ctx)
	err = p.retry(ctx, "CreateInvoice", func() error {
		ret, err = p.underlying.CreateInvoice(ctx, customerID)
		return err
	})
	return
}

func (p StableProvider) PayInvoice(ctx context.Context, id string) (ret *paymentprovider.Invoice, err error) {
	ctx = withIdempotencyKey(ctx)
	err = p.retry(ctx, "PayInvoice", func() error {
		ret, err = p.underlying.PayInvoice(ctx, id)
		return err
	})
	return
}

func (p StableProvider) GetInvoice(ctx context.Context, id string) (ret *paymentprovider.Invoice, err error) {
	err = p.retry(ctx, "GetInvoice", func() error {
		ret, err = p.underlying.GetInvoice(ctx, id)
		return err
	})
	return
}

func (p StableProvider) GetUpcomingInvoice(ctx context.Context, customerID string) (ret *paymentprovider.Invoice, err error) {
	err = p.retry(ctx, "GetUpcomingInvoice", func() error {
		ret, err = p.underlying.GetUpcomingInvoice(ctx, customerID)
		return err
	})
	return
}

func (p StableProvider) ListInvoices(ctx context.Context, customerID string,
	params *paymentprovider.InvoiceListParams) (ret []paymentprovider.Invoice, err error) {

	err = p.retry(ctx, "ListInvoices", func() error {
		ret, err = p.underlying.ListInvoices(ctx, customerID, params)
		return err
	})
	return
}

func (p StableProvider) CreateInvoiceItem(ctx context.Context,
	params *paymentprovider.InvoiceItemParams) (ret *paymentprovider.InvoiceLine, err error) {

	ctx = withIdempotencyKey(ctx)
	err = p.retry(ctx, "CreateInvoiceItem", func() error {
		ret, err = p.underlying.CreateInvoiceItem(ctx, params)
		return err
	})
	return
}

func (p StableProvider) CreateCharge(ctx context.Context, params *paymentprovider.ChargeParams) (ret *paymentprovider.Charge, err error) {
	ctx = withIdempotencyKey(ctx)
	err = p.retry(ctx, "CreateCharge", func() error {
		ret, err = p.underlying.CreateCharge(ctx, params)
		return err
	})
	return
}

func (p StableProvider) CreateRefund(ctx context.Context, params *paymentprovider.RefundParams) (ret *paymentprovider.Refund, err error) {
	ctx = withIdempotencyKey(ctx)
	err = p.retry(ctx, "CreateRefund", func() error {
		ret, err = p.underlying.CreateRefund(ctx, params)
		return err
	})
	return
}

func (p StableProvider) GetEvent(ctx context.Context, id string) (ret *paymentprovider.Event, err error) {
	err = p.retry(ctx, "GetEvent", func() error {
		ret, err = p.underlying.GetEvent(ctx, id)
		return err
	})
	return
}
