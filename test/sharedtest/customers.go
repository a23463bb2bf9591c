package sharedtest

import (
	"context"
	"sync"

	"github.com/golangci/golangci-billing/pkg/api/billing"
	"github.com/golangci/golangci-billing/pkg/api/models"
	"github.com/stretchr/testify/require"
)

var hookCallsMu sync.Mutex

func (ta *App) afterSubscriptionUpdate(_ context.Context, c billing.Customer) error {
	hookCallsMu.Lock()
	defer hookCallsMu.Unlock()

	ta.hookCalls = append(ta.hookCalls, c.GetID())
	return nil
}

func (ta *App) GetHookCalls() []uint {
	hookCallsMu.Lock()
	defer hookCallsMu.Unlock()

	return append([]uint(nil), ta.hookCalls...)
}

func (ta *App) CreateCustomer(remoteID string) *models.Customer {
	c := &models.Customer{
		Email:            remoteID + "@example.com",
		RemoteCustomerID: remoteID,
	}
	require.NoError(ta.t, ta.DB.Create(c).Error)
	return c
}

func (ta *App) Subscriptions() []models.Subscription {
	var ret []models.Subscription
	require.NoError(ta.t, ta.DB.Order("id").Find(&ret).Error)
	return ret
}
