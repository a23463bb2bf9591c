package paymentproviders

import (
	"fmt"
	"time"

	"github.com/golangci/golangci-billing/internal/api/paymentproviders/implementations"
	"github.com/golangci/golangci-billing/internal/api/paymentproviders/implementations/stripe"
	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/golangci/golangci-billing/internal/shared/config"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/pkg/errors"
)

type Factory interface {
	Build(provider string) (paymentprovider.Provider, error)
	BuildSignatureVerifier(provider string) (paymentprovider.SignatureVerifier, error)
}

type basicFactory struct {
	log logutil.Log
	cfg config.Config
}

func NewBasicFactory(log logutil.Log, cfg config.Config) Factory {
	return &basicFactory{
		log: log,
		cfg: cfg,
	}
}

func (f basicFactory) buildImpl(provider string) (paymentprovider.Provider, error) {
	switch provider {
	case stripe.ProviderName:
		return stripe.NewProvider(stripe.Config{
			APIKey:     f.cfg.GetString("STRIPE_API_KEY"),
			BackendURL: f.cfg.GetString("STRIPE_BACKEND_URL"),
		}, f.log.Child(provider))
	default:
		return nil, fmt.Errorf("invalid provider name %q", provider)
	}
}

func (f *basicFactory) Build(provider string) (paymentprovider.Provider, error) {
	p, err := f.buildImpl(provider)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build provider %s", provider)
	}

	timeout := f.cfg.GetDuration("PAYMENT_PROVIDER_TIMEOUT", time.Second*30)
	maxRetries := f.cfg.GetInt("PAYMENT_PROVIDER_MAX_RETRIES", 3)
	return implementations.NewStableProvider(p, timeout, maxRetries), nil
}

// BuildSignatureVerifier returns nil verifier if no webhook secret is configured.
func (f *basicFactory) BuildSignatureVerifier(provider string) (paymentprovider.SignatureVerifier, error) {
	switch provider {
	case stripe.ProviderName:
		secret := f.cfg.GetString("STRIPE_WEBHOOK_SECRET")
		if secret == "" {
			return nil, nil
		}
		return stripe.NewSignatureVerifier(secret), nil
	default:
		return nil, fmt.Errorf("invalid provider name %q", provider)
	}
}
