package billing

import (
	"context"
	"strconv"

	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/golangci/golangci-billing/pkg/api/models"
	"github.com/pkg/errors"
)

// ReconcileSubscription upserts the local subscription mirroring the remote
// subscription remoteID. An existing row keeps its client reference id, so
// reconciling twice is a no-op apart from refreshing mirrored fields.
func (b *Billable) ReconcileSubscription(ctx context.Context, name, remoteID,
	clientReferenceID string) (*Subscription, error) {

	svc := b.svc
	remote, err := svc.provider.GetSubscription(ctx, remoteID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch remote subscription %s", remoteID)
	}

	existing, err := svc.store.FindSubscriptionByRemoteID(ctx, remoteID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		svc.applyRemote(existing, remote)
		if err = svc.store.SaveSubscription(ctx, existing); err != nil {
			return nil, errors.Wrap(err, "failed to update reconciled subscription")
		}
		return svc.Subscription(existing), nil
	}

	if name == "" {
		name = DefaultSubscriptionName
	}
	m := &models.Subscription{
		CustomerID:           b.customer.GetID(),
		Name:                 name,
		RemoteSubscriptionID: remote.ID,
		ClientReferenceID:    clientReferenceID,
	}
	svc.applyRemote(m, remote)

	err = svc.store.CreateSubscription(ctx, m)
	if errors.Cause(err) == ErrAlreadyReconciled {
		// a concurrent delivery inserted it first
		existing, err = svc.store.FindSubscriptionByRemoteID(ctx, remoteID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, errors.Errorf("subscription %s is reconciled but can't be found", remoteID)
		}
		return svc.Subscription(existing), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert reconciled subscription")
	}

	return svc.Subscription(m), nil
}

// applyRemote overwrites all mirrored fields except the client reference id.
func (s Service) applyRemote(m *models.Subscription, remote *paymentprovider.Subscription) {
	m.RemoteSubscriptionID = remote.ID
	m.PlanID = remote.PlanID
	m.Quantity = remote.Quantity
	if m.Quantity < 1 {
		m.Quantity = 1
	}
	m.Status = string(remote.Status)
	m.TrialEndsAt = remote.TrialEnd
	m.CurrentPeriodEnd = remote.CurrentPeriodEnd
	m.CancelAtPeriodEnd = remote.CancelAtPeriodEnd

	switch {
	case remote.CancelAtPeriodEnd && remote.CurrentPeriodEnd != nil:
		endsAt := *remote.CurrentPeriodEnd
		m.EndsAt = &endsAt
	case remote.Status == paymentprovider.SubscriptionStatusCanceled:
		if m.EndsAt == nil {
			now := s.now()
			m.EndsAt = &now
		}
	default:
		m.EndsAt = nil
	}

	m.MetadataID = s.extractMetadataID(remote)
}

func (s Service) extractMetadataID(remote *paymentprovider.Subscription) *int64 {
	key := s.cfg.MetadataAttributes[metadataIDField]
	if key == "" {
		return nil
	}

	v, ok := remote.Metadata[key]
	if !ok || v == "" {
		return nil
	}

	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		s.log.Warnf("Invalid metadata %s=%q of remote subscription %s: %s", key, v, remote.ID, err)
		return nil
	}

	return &id
}
