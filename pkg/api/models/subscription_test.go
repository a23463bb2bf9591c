package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(t time.Time) *time.Time {
	return &t
}

func TestSubscriptionStatus(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		sub  Subscription

		active, onTrial, onGracePeriod, cancelled, valid bool
	}{
		{
			name:   "no end",
			sub:    Subscription{},
			active: true, valid: true,
		},
		{
			name:      "ended",
			sub:       Subscription{EndsAt: at(now.Add(-time.Second))},
			cancelled: true,
		},
		{
			name:   "grace period",
			sub:    Subscription{EndsAt: at(now.Add(time.Hour))},
			active: true, onGracePeriod: true, cancelled: true, valid: true,
		},
		{
			name:    "trial overrides ended",
			sub:     Subscription{EndsAt: at(now.Add(-time.Hour)), TrialEndsAt: at(now.AddDate(0, 0, 2))},
			onTrial: true, cancelled: true, valid: true,
		},
		{
			name:   "trial ending at the start of today is over",
			sub:    Subscription{TrialEndsAt: at(time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC))},
			active: true, valid: true,
		},
		{
			name:    "trial ended earlier today still counts",
			sub:     Subscription{TrialEndsAt: at(time.Date(2026, 5, 20, 8, 0, 0, 0, time.UTC))},
			onTrial: true, active: true, valid: true,
		},
		{
			name:    "trial ending later today",
			sub:     Subscription{TrialEndsAt: at(time.Date(2026, 5, 20, 23, 0, 0, 0, time.UTC))},
			onTrial: true, active: true, valid: true,
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.active, c.sub.Active(now), "active")
			assert.Equal(t, c.onTrial, c.sub.OnTrial(now), "on trial")
			assert.Equal(t, c.onGracePeriod, c.sub.OnGracePeriod(now), "on grace period")
			assert.Equal(t, c.cancelled, c.sub.Cancelled(), "cancelled")
			assert.Equal(t, c.valid, c.sub.Valid(now), "valid")
		})
	}
}
