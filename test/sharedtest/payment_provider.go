package sharedtest

import (
	"github.com/golangci/golangci-billing/internal/api/paymentproviders"
	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
)

// paymentProviderFactory returns the mock for any provider name. Webhook
// signatures aren't verified in tests.
type paymentProviderFactory struct {
	provider paymentprovider.Provider
}

var _ paymentproviders.Factory = paymentProviderFactory{}

func newPaymentProviderFactory(p paymentprovider.Provider) paymentproviders.Factory {
	return paymentProviderFactory{provider: p}
}

func (f paymentProviderFactory) Build(provider string) (paymentprovider.Provider, error) {
	return f.provider, nil
}

func (f paymentProviderFactory) BuildSignatureVerifier(provider string) (paymentprovider.SignatureVerifier, error) {
	return nil, nil
}
