package billing

import (
	"context"
	"time"
)

// Customer is the capability a billable entity must provide. Persistence
// goes through Store.SaveCustomer, so implementations are gorm models.
type Customer interface {
	GetID() uint
	GetEmail() string

	GetRemoteCustomerID() string
	SetRemoteCustomerID(id string)

	GetCardBrand() string
	GetCardLastFour() string
	SetCard(brand, lastFour string)

	GetTrialEndsAt() *time.Time
}

// SubscriptionUpdateListener can be implemented by a customer to be
// notified after webhook driven subscription changes.
type SubscriptionUpdateListener interface {
	AfterSubscriptionUpdate(ctx context.Context) error
}
