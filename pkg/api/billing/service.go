// Package billing keeps local subscriptions of customers in sync with the
// payment provider.
package billing

import (
	"context"
	"strings"
	"time"

	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/golangci/golangci-billing/internal/shared/money"
	"github.com/golangci/golangci-billing/pkg/api/models"
	"github.com/pkg/errors"
)

const DefaultSubscriptionName = "default"

// metadataIDField is the logical field name of models.Subscription.MetadataID
// in the metadata attributes map.
const metadataIDField = "metadata_id"

type Hook func(ctx context.Context, c Customer) error

type Config struct {
	Currency   *money.Formatter
	TaxPercent float64

	// MetadataAttributes maps logical field names to provider metadata keys
	MetadataAttributes map[string]string

	AfterSubscriptionUpdate Hook

	Clock func() time.Time
}

type Service struct {
	provider paymentprovider.Provider
	store    Store
	log      logutil.Log
	cfg      Config
}

func NewService(provider paymentprovider.Provider, store Store, log logutil.Log, cfg Config) (*Service, error) {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Currency == nil {
		f, err := money.NewFormatter(money.DefaultCurrency, "")
		if err != nil {
			return nil, errors.Wrap(err, "failed to build default currency formatter")
		}
		cfg.Currency = f
	}

	return &Service{
		provider: provider,
		store:    store,
		log:      log,
		cfg:      cfg,
	}, nil
}

func (s Service) now() time.Time {
	return s.cfg.Clock()
}

func (s Service) Store() Store {
	return s.store
}

func (s Service) Provider() paymentprovider.Provider {
	return s.provider
}

func (s Service) Currency() *money.Formatter {
	return s.cfg.Currency
}

// Subscription returns a lifecycle handle for a stored subscription.
func (s *Service) Subscription(m *models.Subscription) *Subscription {
	return &Subscription{
		Subscription: m,
		svc:          s,
		prorate:      true,
	}
}

func (s *Service) Billable(c Customer) *Billable {
	return &Billable{
		svc:      s,
		customer: c,
	}
}

// AfterSubscriptionUpdate runs the configured hook and the customer's own
// listener, if any.
func (s Service) AfterSubscriptionUpdate(ctx context.Context, c Customer) error {
	if s.cfg.AfterSubscriptionUpdate != nil {
		if err := s.cfg.AfterSubscriptionUpdate(ctx, c); err != nil {
			return errors.Wrap(err, "after subscription update hook failed")
		}
	}

	if l, ok := c.(SubscriptionUpdateListener); ok {
		if err := l.AfterSubscriptionUpdate(ctx); err != nil {
			return errors.Wrap(err, "customer subscription update listener failed")
		}
	}

	return nil
}

// invoiceCustomer creates and pays an invoice for pending items. A provider
// rejection (e.g. nothing to invoice) gives false and no error.
func (s Service) invoiceCustomer(ctx context.Context, remoteCustomerID string) (bool, error) {
	inv, err := s.provider.CreateInvoice(ctx, remoteCustomerID)
	if err != nil {
		if errors.Cause(err) == paymentprovider.ErrInvalidRequest {
			s.log.Infof("Nothing was invoiced for customer %s: %s", remoteCustomerID, err)
			return false, nil
		}
		return false, errors.Wrapf(err, "failed to create invoice for customer %s", remoteCustomerID)
	}

	if _, err = s.provider.PayInvoice(ctx, inv.ID); err != nil {
		if errors.Cause(err) == paymentprovider.ErrInvalidRequest {
			s.log.Infof("Invoice %s of customer %s wasn't paid: %s", inv.ID, remoteCustomerID, err)
			return false, nil
		}
		return false, errors.Wrapf(err, "failed to pay invoice %s", inv.ID)
	}

	return true, nil
}

// ParseMetadataAttributes parses "field=key,field2=key2".
func ParseMetadataAttributes(s string) (map[string]string, error) {
	ret := map[string]string{}
	if strings.TrimSpace(s) == "" {
		return ret, nil
	}

	for _, pair := range strings.Split(s, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return nil, errors.Errorf("invalid metadata attribute %q, field=key expected", pair)
		}
		ret[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}

	return ret, nil
}
