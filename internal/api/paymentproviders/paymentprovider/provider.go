package paymentprovider

//go:generate mockgen -package paymentprovider -source provider.go -destination provider_mock.go

import "context"

// Provider is the remote payment service: customers, subscriptions,
// invoices, charges and events. Implementations own timeouts and retries.
type Provider interface {
	Name() string

	CreateCustomer(ctx context.Context, p *CustomerParams) (*Customer, error)
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	UpdateCustomer(ctx context.Context, id string, p *CustomerParams) (*Customer, error)

	CreateSubscription(ctx context.Context, p *SubscriptionParams) (*Subscription, error)
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	UpdateSubscription(ctx context.Context, id string, p *SubscriptionUpdateParams) (*Subscription, error)
	CancelSubscription(ctx context.Context, id string, atPeriodEnd bool) (*Subscription, error)

	CreateInvoice(ctx context.Context, customerID string) (*Invoice, error)
	PayInvoice(ctx context.Context, id string) (*Invoice, error)
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
	GetUpcomingInvoice(ctx context.Context, customerID string) (*Invoice, error)
	ListInvoices(ctx context.Context, customerID string, p *InvoiceListParams) ([]Invoice, error)
	CreateInvoiceItem(ctx context.Context, p *InvoiceItemParams) (*InvoiceLine, error)

	CreateCharge(ctx context.Context, p *ChargeParams) (*Charge, error)
	CreateRefund(ctx context.Context, p *RefundParams) (*Refund, error)

	GetEvent(ctx context.Context, id string) (*Event, error)
}

// SignatureVerifier checks a webhook payload against the signature header
// the provider sent with it.
type SignatureVerifier interface {
	VerifySignature(payload []byte, header string) error
}
