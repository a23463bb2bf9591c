package models

import "time"

// Customer is the billable entity owning subscriptions.
type Customer struct {
	ID        uint `gorm:"primary_key"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Email string

	RemoteCustomerID string `gorm:"index"`
	CardBrand        string
	CardLastFour     string

	// TrialEndsAt is a generic trial not bound to any subscription
	TrialEndsAt *time.Time
}

func (Customer) TableName() string {
	return "customers"
}

func (c Customer) GetID() uint {
	return c.ID
}

func (c Customer) GetEmail() string {
	return c.Email
}

func (c Customer) GetRemoteCustomerID() string {
	return c.RemoteCustomerID
}

func (c *Customer) SetRemoteCustomerID(id string) {
	c.RemoteCustomerID = id
}

func (c *Customer) SetCard(brand, lastFour string) {
	c.CardBrand = brand
	c.CardLastFour = lastFour
}

func (c Customer) GetCardBrand() string {
	return c.CardBrand
}

func (c Customer) GetCardLastFour() string {
	return c.CardLastFour
}

func (c Customer) GetTrialEndsAt() *time.Time {
	return c.TrialEndsAt
}
