package webhook

import (
	"github.com/golangci/golangci-billing/pkg/api/models"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

// eventLog stores every confirmed delivery in payment_gateway_events.
type eventLog struct {
	db *gorm.DB
}

func (l eventLog) find(provider, providerID string) (*models.PaymentGatewayEvent, error) {
	var e models.PaymentGatewayEvent
	err := l.db.Where("provider = ? AND provider_id = ?", provider, providerID).First(&e).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch payment gateway event %s", providerID)
	}

	return &e, nil
}

func (l eventLog) received(provider, providerID, eventType string, data []byte) (*models.PaymentGatewayEvent, error) {
	e := models.PaymentGatewayEvent{
		Provider:   provider,
		ProviderID: providerID,
		Type:       eventType,
		Status:     models.PaymentGatewayEventStatusReceived,
		Data:       data,
	}
	if err := l.db.Create(&e).Error; err != nil {
		// concurrent delivery of the same event
		existing, findErr := l.find(provider, providerID)
		if findErr == nil && existing != nil {
			return existing, nil
		}

		return nil, errors.Wrapf(err, "failed to save payment gateway event %s", providerID)
	}

	return &e, nil
}

func (l eventLog) setStatus(e *models.PaymentGatewayEvent, status models.PaymentGatewayEventStatus) error {
	err := l.db.Model(e).Update("status", status).Error
	if err != nil {
		return errors.Wrapf(err, "failed to set status %s of payment gateway event %s", status, e.ProviderID)
	}

	return nil
}
