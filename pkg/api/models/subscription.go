package models

import (
	"fmt"
	"time"
)

// Subscription is one named subscription slot of a customer mirrored from
// the payment provider. Status predicates are derived from the timestamps,
// Status is informational only.
type Subscription struct {
	ID        uint `gorm:"primary_key"`
	CreatedAt time.Time
	UpdatedAt time.Time

	CustomerID uint   `gorm:"index"`
	Name       string `gorm:"not null"`

	RemoteSubscriptionID string `gorm:"unique_index"`
	PlanID               string
	Quantity             int64 `gorm:"not null;default:1"`
	Status               string

	MetadataID        *int64
	ClientReferenceID string

	CancelAtPeriodEnd bool
	CurrentPeriodEnd  *time.Time
	TrialEndsAt       *time.Time
	EndsAt            *time.Time
}

func (Subscription) TableName() string {
	return "subscriptions"
}

func (s *Subscription) GoString() string {
	return fmt.Sprintf("{ID: %d, CustomerID: %d, Name: %s, RemoteID: %s, Plan: %s, Quantity: %d}",
		s.ID, s.CustomerID, s.Name, s.RemoteSubscriptionID, s.PlanID, s.Quantity)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// OnTrial compares the start of today with the trial end, so any trial
// ending after midnight today still counts.
func (s Subscription) OnTrial(now time.Time) bool {
	return s.TrialEndsAt != nil && startOfDay(now).Before(*s.TrialEndsAt)
}

func (s Subscription) OnGracePeriod(now time.Time) bool {
	return s.EndsAt != nil && now.Before(*s.EndsAt)
}

func (s Subscription) Active(now time.Time) bool {
	return s.EndsAt == nil || s.OnGracePeriod(now)
}

// Cancelled means cancellation was requested, the service may still run.
func (s Subscription) Cancelled() bool {
	return s.EndsAt != nil
}

func (s Subscription) Valid(now time.Time) bool {
	return s.Active(now) || s.OnTrial(now) || s.OnGracePeriod(now)
}
