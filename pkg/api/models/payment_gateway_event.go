package models

import (
	"github.com/jinzhu/gorm"
)

type PaymentGatewayEventStatus string

const (
	PaymentGatewayEventStatusReceived  PaymentGatewayEventStatus = "received"
	PaymentGatewayEventStatusHandled   PaymentGatewayEventStatus = "handled"
	PaymentGatewayEventStatusUnhandled PaymentGatewayEventStatus = "unhandled"
	PaymentGatewayEventStatusFailed    PaymentGatewayEventStatus = "failed"
)

type PaymentGatewayEvent struct {
	gorm.Model

	Provider   string `gorm:"unique_index:idx_payment_gateway_events_provider_event"`
	ProviderID string `gorm:"unique_index:idx_payment_gateway_events_provider_event"`

	Type   string
	Status PaymentGatewayEventStatus
	Data   []byte
}

func (PaymentGatewayEvent) TableName() string {
	return "payment_gateway_events"
}

func (e PaymentGatewayEvent) IsHandled() bool {
	return e.Status == PaymentGatewayEventStatusHandled || e.Status == PaymentGatewayEventStatusUnhandled
}
