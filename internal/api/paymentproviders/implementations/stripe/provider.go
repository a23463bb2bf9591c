package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/pkg/errors"
	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

const ProviderName = "stripe"

type Config struct {
	APIKey string

	// BackendURL overrides the API host, it's used by tests
	BackendURL string
}

type provider struct {
	api *client.API
	log logutil.Log
}

// NewProvider builds a provider with its own API client: the SDK's
// package level key is never touched.
func NewProvider(cfg Config, log logutil.Log) (paymentprovider.Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("no stripe api key")
	}

	backendCfg := &stripeapi.BackendConfig{
		// retries are done by implementations.StableProvider
		MaxNetworkRetries: stripeapi.Int64(0),
		LeveledLogger:     &stripeapi.LeveledLogger{Level: stripeapi.LevelError},
	}
	if cfg.BackendURL != "" {
		backendCfg.URL = stripeapi.String(cfg.BackendURL)
	}

	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, backendCfg)
	api := &client.API{}
	api.Init(cfg.APIKey, &stripeapi.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})

	return &provider{
		api: api,
		log: log,
	}, nil
}

func (p provider) Name() string {
	return ProviderName
}

func prepareParams(ctx context.Context, params *stripeapi.Params) {
	params.Context = ctx
	if key := paymentprovider.IdempotencyKey(ctx); key != "" {
		params.IdempotencyKey = stripeapi.String(key)
	}
}

// rawJSON returns the response body a resource was decoded from. Resources
// coming from list iterators carry no response and are re-encoded.
func rawJSON(last *stripeapi.APIResponse, obj interface{}) ([]byte, error) {
	if last != nil && len(last.RawJSON) != 0 {
		return last.RawJSON, nil
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode resource")
	}
	return raw, nil
}

func convertError(err error, op string) error {
	var serr *stripeapi.Error
	if !errors.As(err, &serr) {
		return errors.Wrapf(paymentprovider.ErrUnavailable, "failed to %s: %s", op, err)
	}

	kind := paymentprovider.ErrUnavailable
	switch {
	case serr.Code == stripeapi.ErrorCodeResourceMissing || serr.HTTPStatusCode == http.StatusNotFound:
		kind = paymentprovider.ErrNotFound
	case serr.Type == stripeapi.ErrorTypeCard:
		kind = paymentprovider.ErrCardDeclined
	case serr.Type == stripeapi.ErrorTypeInvalidRequest:
		kind = paymentprovider.ErrInvalidRequest
	}

	return errors.Wrapf(&paymentprovider.Error{
		Kind:       kind,
		Type:       string(serr.Type),
		Code:       string(serr.Code),
		Message:    serr.Msg,
		HTTPStatus: serr.HTTPStatusCode,
		RequestID:  serr.RequestID,
	}, "failed to %s", op)
}

func setMetadata(params *stripeapi.Params, metadata map[string]string) {
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
}

func (p provider) CreateCustomer(ctx context.Context, cp *paymentprovider.CustomerParams) (*paymentprovider.Customer, error) {
	params := &stripeapi.CustomerParams{}
	prepareParams(ctx, &params.Params)
	fillCustomerParams(params, cp)

	c, err := p.api.Customers.New(params)
	if err != nil {
		return nil, convertError(err, "create customer")
	}

	return p.customerFromResponse(c)
}

func (p provider) GetCustomer(ctx context.Context, id string) (*paymentprovider.Customer, error) {
	params := &stripeapi.CustomerParams{}
	prepareParams(ctx, &params.Params)
	params.AddExpand("sources")

	c, err := p.api.Customers.Get(id, params)
	if err != nil {
		return nil, convertError(err, "get customer "+id)
	}

	return p.customerFromResponse(c)
}

func (p provider) UpdateCustomer(ctx context.Context, id string, cp *paymentprovider.CustomerParams) (*paymentprovider.Customer, error) {
	params := &stripeapi.CustomerParams{}
	prepareParams(ctx, &params.Params)
	params.AddExpand("sources")
	fillCustomerParams(params, cp)

	c, err := p.api.Customers.Update(id, params)
	if err != nil {
		return nil, convertError(err, "update customer "+id)
	}

	return p.customerFromResponse(c)
}

func fillCustomerParams(params *stripeapi.CustomerParams, cp *paymentprovider.CustomerParams) {
	if cp == nil {
		return
	}

	if cp.Email != "" {
		params.Email = stripeapi.String(cp.Email)
	}
	if cp.Description != "" {
		params.Description = stripeapi.String(cp.Description)
	}
	if cp.Source != "" {
		params.AddExtra("source", cp.Source)
	}
	if cp.Coupon != "" {
		params.AddExtra("coupon", cp.Coupon)
	}
	setMetadata(&params.Params, cp.Metadata)
}

func (p provider) customerFromResponse(c *stripeapi.Customer) (*paymentprovider.Customer, error) {
	raw, err := rawJSON(c.LastResponse, c)
	if err != nil {
		return nil, err
	}
	return decodeCustomer(raw)
}

func (p provider) subscriptionFromResponse(s *stripeapi.Subscription) (*paymentprovider.Subscription, error) {
	raw, err := rawJSON(s.LastResponse, s)
	if err != nil {
		return nil, err
	}
	return decodeSubscription(raw)
}

func (p provider) CreateSubscription(ctx context.Context, sp *paymentprovider.SubscriptionParams) (*paymentprovider.Subscription, error) {
	params := &stripeapi.SubscriptionParams{
		Customer: stripeapi.String(sp.CustomerID),
	}
	prepareParams(ctx, &params.Params)

	if sp.PlanID != "" {
		item := &stripeapi.SubscriptionItemsParams{Price: stripeapi.String(sp.PlanID)}
		if sp.Quantity > 0 {
			item.Quantity = stripeapi.Int64(sp.Quantity)
		}
		params.Items = []*stripeapi.SubscriptionItemsParams{item}
	}
	if sp.Coupon != "" {
		params.Discounts = []*stripeapi.SubscriptionDiscountParams{{Coupon: stripeapi.String(sp.Coupon)}}
	}
	setTrialEnd(params, sp.TrialEnd)
	setMetadata(&params.Params, sp.Metadata)
	if sp.TaxPercent != 0 {
		// tax rates are managed on the provider side, keep the percent for reporting
		params.AddMetadata("tax_percent", strconv.FormatFloat(sp.TaxPercent, 'f', -1, 64))
	}

	s, err := p.api.Subscriptions.New(params)
	if err != nil {
		return nil, convertError(err, "create subscription")
	}

	return p.subscriptionFromResponse(s)
}

func setTrialEnd(params *stripeapi.SubscriptionParams, m *paymentprovider.Moment) {
	switch {
	case m == nil:
	case m.Now:
		params.TrialEndNow = stripeapi.Bool(true)
	default:
		params.TrialEnd = stripeapi.Int64(m.At.Unix())
	}
}

func (p provider) GetSubscription(ctx context.Context, id string) (*paymentprovider.Subscription, error) {
	params := &stripeapi.SubscriptionParams{}
	prepareParams(ctx, &params.Params)

	s, err := p.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, convertError(err, "get subscription "+id)
	}

	return p.subscriptionFromResponse(s)
}

func (p provider) UpdateSubscription(ctx context.Context, id string,
	up *paymentprovider.SubscriptionUpdateParams) (*paymentprovider.Subscription, error) {

	params := &stripeapi.SubscriptionParams{}
	prepareParams(ctx, &params.Params)

	if up.PlanID != "" || up.Quantity > 0 {
		item := &stripeapi.SubscriptionItemsParams{}
		if up.ItemID != "" {
			item.ID = stripeapi.String(up.ItemID)
		}
		if up.PlanID != "" {
			item.Price = stripeapi.String(up.PlanID)
		}
		if up.Quantity > 0 {
			item.Quantity = stripeapi.Int64(up.Quantity)
		}
		params.Items = []*stripeapi.SubscriptionItemsParams{item}
	}
	if up.Prorate != nil {
		behavior := "none"
		if *up.Prorate {
			behavior = "create_prorations"
		}
		params.ProrationBehavior = stripeapi.String(behavior)
	}
	setTrialEnd(params, up.TrialEnd)
	if up.BillingCycleAnchor != nil {
		if up.BillingCycleAnchor.Now {
			params.BillingCycleAnchorNow = stripeapi.Bool(true)
		} else {
			params.BillingCycleAnchor = stripeapi.Int64(up.BillingCycleAnchor.At.Unix())
		}
	}
	if up.CancelAtPeriodEnd != nil {
		params.CancelAtPeriodEnd = stripeapi.Bool(*up.CancelAtPeriodEnd)
	}

	s, err := p.api.Subscriptions.Update(id, params)
	if err != nil {
		return nil, convertError(err, "update subscription "+id)
	}

	return p.subscriptionFromResponse(s)
}

func (p provider) CancelSubscription(ctx context.Context, id string, atPeriodEnd bool) (*paymentprovider.Subscription, error) {
	if atPeriodEnd {
		return p.UpdateSubscription(ctx, id, &paymentprovider.SubscriptionUpdateParams{
			CancelAtPeriodEnd: stripeapi.Bool(true),
		})
	}

	params := &stripeapi.SubscriptionCancelParams{}
	prepareParams(ctx, &params.Params)

	s, err := p.api.Subscriptions.Cancel(id, params)
	if err != nil {
		return nil, convertError(err, "cancel subscription "+id)
	}

	return p.subscriptionFromResponse(s)
}

func (p provider) invoiceFromResponse(inv *stripeapi.Invoice) (*paymentprovider.Invoice, error) {
	raw, err := rawJSON(inv.LastResponse, inv)
	if err != nil {
		return nil, err
	}
	return decodeInvoice(raw)
}

func (p provider) CreateInvoice(ctx context.Context, customerID string) (*paymentprovider.Invoice, error) {
	params := &stripeapi.InvoiceParams{
		Customer: stripeapi.String(customerID),
	}
	prepareParams(ctx, &params.Params)

	inv, err := p.api.Invoices.New(params)
	if err != nil {
		return nil, convertError(err, "create invoice for customer "+customerID)
	}

	return p.invoiceFromResponse(inv)
}

func (p provider) PayInvoice(ctx context.Context, id string) (*paymentprovider.Invoice, error) {
	params := &stripeapi.InvoicePayParams{}
	prepareParams(ctx, &params.Params)

	inv, err := p.api.Invoices.Pay(id, params)
	if err != nil {
		return nil, convertError(err, "pay invoice "+id)
	}

	return p.invoiceFromResponse(inv)
}

func (p provider) GetInvoice(ctx context.Context, id string) (*paymentprovider.Invoice, error) {
	params := &stripeapi.InvoiceParams{}
	prepareParams(ctx, &params.Params)

	inv, err := p.api.Invoices.Get(id, params)
	if err != nil {
		return nil, convertError(err, "get invoice "+id)
	}

	return p.invoiceFromResponse(inv)
}

func (p provider) GetUpcomingInvoice(ctx context.Context, customerID string) (*paymentprovider.Invoice, error) {
	params := &stripeapi.InvoiceCreatePreviewParams{
		Customer: stripeapi.String(customerID),
	}
	prepareParams(ctx, &params.Params)

	inv, err := p.api.Invoices.CreatePreview(params)
	if err != nil {
		return nil, convertError(err, "get upcoming invoice for customer "+customerID)
	}

	return p.invoiceFromResponse(inv)
}

func (p provider) ListInvoices(ctx context.Context, customerID string,
	lp *paymentprovider.InvoiceListParams) ([]paymentprovider.Invoice, error) {

	params := &stripeapi.InvoiceListParams{
		Customer: stripeapi.String(customerID),
	}
	params.Context = ctx

	var limit int64
	if lp != nil {
		limit = lp.Limit
		if lp.Status != "" {
			params.Status = stripeapi.String(lp.Status)
		}
	}
	if limit > 0 && limit <= 100 {
		params.Limit = stripeapi.Int64(limit)
	}

	var ret []paymentprovider.Invoice
	it := p.api.Invoices.List(params)
	for it.Next() {
		inv, err := p.invoiceFromResponse(it.Invoice())
		if err != nil {
			return nil, err
		}
		ret = append(ret, *inv)

		if limit > 0 && int64(len(ret)) >= limit {
			break
		}
	}
	if err := it.Err(); err != nil {
		return nil, convertError(err, "list invoices of customer "+customerID)
	}

	return ret, nil
}

func (p provider) CreateInvoiceItem(ctx context.Context, ip *paymentprovider.InvoiceItemParams) (*paymentprovider.InvoiceLine, error) {
	params := &stripeapi.InvoiceItemParams{
		Customer:    stripeapi.String(ip.CustomerID),
		Amount:      stripeapi.Int64(ip.Amount),
		Currency:    stripeapi.String(ip.Currency),
		Description: stripeapi.String(ip.Description),
	}
	prepareParams(ctx, &params.Params)
	setMetadata(&params.Params, ip.Metadata)

	item, err := p.api.InvoiceItems.New(params)
	if err != nil {
		return nil, convertError(err, "create invoice item for customer "+ip.CustomerID)
	}

	return &paymentprovider.InvoiceLine{
		ID:          item.ID,
		Type:        paymentprovider.InvoiceLineTypeInvoiceItem,
		Amount:      item.Amount,
		Currency:    string(item.Currency),
		Description: item.Description,
		Quantity:    item.Quantity,
	}, nil
}

func (p provider) CreateCharge(ctx context.Context, cp *paymentprovider.ChargeParams) (*paymentprovider.Charge, error) {
	params := &stripeapi.ChargeParams{
		Amount:   stripeapi.Int64(cp.Amount),
		Currency: stripeapi.String(cp.Currency),
	}
	prepareParams(ctx, &params.Params)
	if cp.CustomerID != "" {
		params.Customer = stripeapi.String(cp.CustomerID)
	}
	if cp.Source != "" {
		params.AddExtra("source", cp.Source)
	}
	if cp.Description != "" {
		params.Description = stripeapi.String(cp.Description)
	}
	setMetadata(&params.Params, cp.Metadata)

	ch, err := p.api.Charges.New(params)
	if err != nil {
		return nil, convertError(err, fmt.Sprintf("create charge of %d %s", cp.Amount, cp.Currency))
	}

	return &paymentprovider.Charge{
		ID:       ch.ID,
		Amount:   ch.Amount,
		Currency: string(ch.Currency),
		Paid:     ch.Paid,
		Status:   string(ch.Status),
	}, nil
}

func (p provider) CreateRefund(ctx context.Context, rp *paymentprovider.RefundParams) (*paymentprovider.Refund, error) {
	params := &stripeapi.RefundParams{
		Charge: stripeapi.String(rp.ChargeID),
	}
	prepareParams(ctx, &params.Params)
	if rp.Amount > 0 {
		params.Amount = stripeapi.Int64(rp.Amount)
	}
	if rp.Reason != "" {
		params.Reason = stripeapi.String(rp.Reason)
	}

	r, err := p.api.Refunds.New(params)
	if err != nil {
		return nil, convertError(err, "refund charge "+rp.ChargeID)
	}

	return &paymentprovider.Refund{
		ID:       r.ID,
		ChargeID: rp.ChargeID,
		Amount:   r.Amount,
		Status:   string(r.Status),
	}, nil
}

func (p provider) GetEvent(ctx context.Context, id string) (*paymentprovider.Event, error) {
	params := &stripeapi.EventParams{}
	prepareParams(ctx, &params.Params)

	e, err := p.api.Events.Get(id, params)
	if err != nil {
		return nil, convertError(err, "get event "+id)
	}

	raw, err := rawJSON(e.LastResponse, e)
	if err != nil {
		return nil, err
	}
	return decodeEvent(raw)
}
