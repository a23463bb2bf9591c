package stripe

import (
	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/pkg/errors"
	"github.com/stripe/stripe-go/v82/webhook"
)

type signatureVerifier struct {
	secret string
}

func NewSignatureVerifier(secret string) paymentprovider.SignatureVerifier {
	return signatureVerifier{secret: secret}
}

func (v signatureVerifier) VerifySignature(payload []byte, header string) error {
	if err := webhook.ValidatePayload(payload, header, v.secret); err != nil {
		return errors.Wrap(paymentprovider.ErrInvalidSignature, err.Error())
	}

	return nil
}
