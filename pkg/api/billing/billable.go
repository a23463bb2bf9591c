package billing

import (
	"context"

	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/pkg/errors"
)

const defaultInvoicesLimit = 24

// Billable attaches billing operations to a customer.
type Billable struct {
	svc      *Service
	customer Customer
}

func (b Billable) Customer() Customer {
	return b.customer
}

func (b Billable) HasRemoteID() bool {
	return b.customer.GetRemoteCustomerID() != ""
}

func (b Billable) PreferredCurrency() string {
	return b.svc.cfg.Currency.Currency()
}

func (b Billable) TaxPercentage() float64 {
	return b.svc.cfg.TaxPercent
}

func (b Billable) saveCustomer(ctx context.Context, op string) error {
	if err := b.svc.store.SaveCustomer(ctx, b.customer); err != nil {
		return &NotSavedError{Op: op, Err: err}
	}

	return nil
}

// CreateAsCustomer creates the remote customer and stores its id.
func (b *Billable) CreateAsCustomer(ctx context.Context, token string,
	opts *paymentprovider.CustomerParams) (*paymentprovider.Customer, error) {

	params := paymentprovider.CustomerParams{}
	if opts != nil {
		params = *opts
	}
	if params.Email == "" {
		params.Email = b.customer.GetEmail()
	}
	params.Source = token

	remote, err := b.svc.provider.CreateCustomer(ctx, &params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create remote customer")
	}

	b.customer.SetRemoteCustomerID(remote.ID)
	if err = b.saveCustomer(ctx, "customer create"); err != nil {
		return nil, err
	}

	if token != "" {
		if err = b.UpdateCardFromProvider(ctx); err != nil {
			return nil, err
		}
	}

	return remote, nil
}

func (b Billable) remoteID() (string, error) {
	id := b.customer.GetRemoteCustomerID()
	if id == "" {
		return "", errors.Wrapf(ErrNotCustomer, "customer %d", b.customer.GetID())
	}

	return id, nil
}

func (b Billable) AsRemoteCustomer(ctx context.Context) (*paymentprovider.Customer, error) {
	id, err := b.remoteID()
	if err != nil {
		return nil, err
	}

	remote, err := b.svc.provider.GetCustomer(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch remote customer %s", id)
	}

	return remote, nil
}

// Charge makes a one-off charge. Without opts.Source and opts.CustomerID
// the remote customer is charged.
func (b Billable) Charge(ctx context.Context, amount int64, opts *paymentprovider.ChargeParams) (*paymentprovider.Charge, error) {
	params := paymentprovider.ChargeParams{}
	if opts != nil {
		params = *opts
	}
	params.Amount = amount
	if params.Currency == "" {
		params.Currency = b.PreferredCurrency()
	}
	if params.Source == "" && params.CustomerID == "" {
		params.CustomerID = b.customer.GetRemoteCustomerID()
	}
	if params.Source == "" && params.CustomerID == "" {
		return nil, ErrNoPaymentSource
	}

	ch, err := b.svc.provider.CreateCharge(ctx, &params)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to charge %d %s", amount, params.Currency)
	}

	return ch, nil
}

func (b Billable) Refund(ctx context.Context, chargeID string, opts *paymentprovider.RefundParams) (*paymentprovider.Refund, error) {
	params := paymentprovider.RefundParams{}
	if opts != nil {
		params = *opts
	}
	params.ChargeID = chargeID

	r, err := b.svc.provider.CreateRefund(ctx, &params)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to refund charge %s", chargeID)
	}

	return r, nil
}

// Tab adds an item to the customer's next invoice.
func (b Billable) Tab(ctx context.Context, description string, amount int64,
	opts *paymentprovider.InvoiceItemParams) (*paymentprovider.InvoiceLine, error) {

	id, err := b.remoteID()
	if err != nil {
		return nil, err
	}

	params := paymentprovider.InvoiceItemParams{}
	if opts != nil {
		params = *opts
	}
	params.CustomerID = id
	params.Amount = amount
	params.Description = description
	if params.Currency == "" {
		params.Currency = b.PreferredCurrency()
	}

	item, err := b.svc.provider.CreateInvoiceItem(ctx, &params)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create invoice item %q", description)
	}

	return item, nil
}

// InvoiceFor invoices the customer for a one-off amount right away.
func (b Billable) InvoiceFor(ctx context.Context, description string, amount int64,
	opts *paymentprovider.InvoiceItemParams) (bool, error) {

	if _, err := b.Tab(ctx, description, amount, opts); err != nil {
		return false, err
	}

	return b.Invoice(ctx)
}

// Invoice invoices pending items. It returns false if the provider rejected
// the invoice, other failures are errors.
func (b Billable) Invoice(ctx context.Context) (bool, error) {
	id, err := b.remoteID()
	if err != nil {
		return false, err
	}

	return b.svc.invoiceCustomer(ctx, id)
}

// UpcomingInvoice returns nil if the customer has no upcoming invoice.
func (b Billable) UpcomingInvoice(ctx context.Context) (*Invoice, error) {
	id, err := b.remoteID()
	if err != nil {
		return nil, err
	}

	inv, err := b.svc.provider.GetUpcomingInvoice(ctx, id)
	if err != nil {
		if errors.Cause(err) == paymentprovider.ErrInvalidRequest {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to get upcoming invoice of customer %s", id)
	}

	return b.newInvoice(inv), nil
}

// FindInvoice returns nil if there is no such invoice.
func (b Billable) FindInvoice(ctx context.Context, id string) (*Invoice, error) {
	inv, err := b.svc.provider.GetInvoice(ctx, id)
	if err != nil {
		if errors.Cause(err) == paymentprovider.ErrNotFound {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to get invoice %s", id)
	}

	return b.newInvoice(inv), nil
}

func (b Billable) FindInvoiceOrFail(ctx context.Context, id string) (*Invoice, error) {
	inv, err := b.FindInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, errors.Wrapf(ErrInvoiceNotFound, "invoice %s", id)
	}

	return inv, nil
}

// Invoices lists paid invoices, or all of them if includePending is set.
// Zero limit means 24.
func (b Billable) Invoices(ctx context.Context, includePending bool, limit int64) ([]*Invoice, error) {
	id, err := b.remoteID()
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultInvoicesLimit
	}

	invoices, err := b.svc.provider.ListInvoices(ctx, id, &paymentprovider.InvoiceListParams{Limit: limit})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list invoices of customer %s", id)
	}

	var ret []*Invoice
	for i := range invoices {
		if invoices[i].Paid || includePending {
			ret = append(ret, b.newInvoice(&invoices[i]))
		}
	}

	return ret, nil
}

func (b Billable) InvoicesIncludingPending(ctx context.Context, limit int64) ([]*Invoice, error) {
	return b.Invoices(ctx, true, limit)
}

// UpdateCard makes token the default payment source.
func (b *Billable) UpdateCard(ctx context.Context, token string) error {
	id, err := b.remoteID()
	if err != nil {
		return err
	}

	remote, err := b.svc.provider.UpdateCustomer(ctx, id, &paymentprovider.CustomerParams{Source: token})
	if err != nil {
		return errors.Wrapf(err, "failed to update card of customer %s", id)
	}

	return b.fillCard(ctx, remote)
}

// UpdateCardFromProvider copies the default card summary of the remote
// customer, clearing it if there is no default card.
func (b *Billable) UpdateCardFromProvider(ctx context.Context) error {
	remote, err := b.AsRemoteCustomer(ctx)
	if err != nil {
		return err
	}

	return b.fillCard(ctx, remote)
}

func (b *Billable) fillCard(ctx context.Context, remote *paymentprovider.Customer) error {
	if card := remote.DefaultCard(); card != nil {
		b.customer.SetCard(card.Brand, card.Last4)
	} else {
		b.customer.SetCard("", "")
	}

	return b.saveCustomer(ctx, "card update")
}

func (b Billable) HasCardOnFile() bool {
	return b.customer.GetCardBrand() != ""
}

func (b Billable) ApplyCoupon(ctx context.Context, coupon string) error {
	id, err := b.remoteID()
	if err != nil {
		return err
	}

	if _, err = b.svc.provider.UpdateCustomer(ctx, id, &paymentprovider.CustomerParams{Coupon: coupon}); err != nil {
		return errors.Wrapf(err, "failed to apply coupon %s to customer %s", coupon, id)
	}

	return nil
}

// Subscription returns the newest subscription with the name or nil.
func (b Billable) Subscription(ctx context.Context, name string) (*Subscription, error) {
	if name == "" {
		name = DefaultSubscriptionName
	}

	subs, err := b.svc.store.ListSubscriptions(ctx, b.customer.GetID())
	if err != nil {
		return nil, err
	}

	for i := range subs {
		if subs[i].Name == name {
			return b.svc.Subscription(&subs[i]), nil
		}
	}

	return nil, nil
}

// Subscribed checks for a valid subscription, on the plan if it's set.
func (b Billable) Subscribed(ctx context.Context, name, planID string) (bool, error) {
	sub, err := b.Subscription(ctx, name)
	if err != nil || sub == nil {
		return false, err
	}

	if planID == "" {
		return sub.Valid(), nil
	}

	return sub.Valid() && sub.PlanID == planID, nil
}

func (b Billable) SubscribedToPlan(ctx context.Context, planIDs []string, name string) (bool, error) {
	sub, err := b.Subscription(ctx, name)
	if err != nil || sub == nil || !sub.Valid() {
		return false, err
	}

	for _, planID := range planIDs {
		if sub.PlanID == planID {
			return true, nil
		}
	}

	return false, nil
}

// OnPlan checks for a valid subscription to the plan under any name.
func (b Billable) OnPlan(ctx context.Context, planID string) (bool, error) {
	subs, err := b.svc.store.ListSubscriptions(ctx, b.customer.GetID())
	if err != nil {
		return false, err
	}

	now := b.svc.now()
	for _, sub := range subs {
		if sub.PlanID == planID && sub.Valid(now) {
			return true, nil
		}
	}

	return false, nil
}

// OnTrial checks the named subscription trial. With an empty name a generic
// trial counts too.
func (b Billable) OnTrial(ctx context.Context, name, planID string) (bool, error) {
	if name == "" && planID == "" && b.OnGenericTrial() {
		return true, nil
	}

	sub, err := b.Subscription(ctx, name)
	if err != nil || sub == nil {
		return false, err
	}

	if planID == "" {
		return sub.OnTrial(), nil
	}

	return sub.OnTrial() && sub.PlanID == planID, nil
}

func (b Billable) OnGenericTrial() bool {
	t := b.customer.GetTrialEndsAt()
	return t != nil && b.svc.now().Before(*t)
}
