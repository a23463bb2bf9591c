package webhook

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/golangci/golangci-billing/pkg/api/billing"
	"github.com/pkg/errors"
)

// expandableID is a reference to another object: either its id or the
// expanded object itself.
type expandableID string

func (id *expandableID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) != 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = expandableID(s)
		return nil
	}

	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*id = expandableID(obj.ID)
	return nil
}

type subscriptionObject struct {
	ID       string       `json:"id"`
	Customer expandableID `json:"customer"`
}

type checkoutSessionObject struct {
	ID                string       `json:"id"`
	Mode              string       `json:"mode"`
	Customer          expandableID `json:"customer"`
	Subscription      expandableID `json:"subscription"`
	ClientReferenceID string       `json:"client_reference_id"`
}

const checkoutModeSubscription = "subscription"

func decodeObject(object json.RawMessage, v interface{}) error {
	if len(object) == 0 {
		return errors.New("no event object")
	}

	if err := json.Unmarshal(object, v); err != nil {
		return errors.Wrap(err, "invalid event object")
	}

	return nil
}

func (s BasicService) handleCustomerSubscriptionDeleted(ctx context.Context, log logutil.Log, object json.RawMessage) error {
	var obj subscriptionObject
	if err := decodeObject(object, &obj); err != nil {
		return err
	}

	store := s.billing.Store()
	customer, err := store.FindCustomerByRemoteID(ctx, string(obj.Customer))
	if err != nil {
		return err
	}
	if customer == nil {
		log.Infof("No local customer %s for deleted subscription %s", obj.Customer, obj.ID)
		return nil
	}

	return s.locker.withLock(obj.ID, func() error {
		subs, err := store.ListSubscriptions(ctx, customer.GetID())
		if err != nil {
			return err
		}

		updated := 0
		for i := range subs {
			if subs[i].RemoteSubscriptionID != obj.ID {
				continue
			}

			if err = s.billing.Subscription(&subs[i]).MarkAsCancelled(ctx); err != nil {
				return errors.Wrapf(err, "failed to mark subscription %d as cancelled", subs[i].ID)
			}
			updated++
		}

		if updated == 0 {
			log.Infof("No local subscriptions match deleted subscription %s", obj.ID)
			return nil
		}

		log.Infof("Marked %d subscription(s) as cancelled", updated)
		return s.billing.AfterSubscriptionUpdate(ctx, customer)
	})
}

func (s BasicService) handleCheckoutSessionCompleted(ctx context.Context, log logutil.Log, object json.RawMessage) error {
	var obj checkoutSessionObject
	if err := decodeObject(object, &obj); err != nil {
		return err
	}

	if obj.Mode != checkoutModeSubscription {
		log.Infof("Checkout session %s has mode %q, nothing to reconcile", obj.ID, obj.Mode)
		return nil
	}
	if obj.Subscription == "" {
		return errors.Errorf("checkout session %s has no subscription", obj.ID)
	}

	store := s.billing.Store()
	customer, err := store.FindCustomerByRemoteID(ctx, string(obj.Customer))
	if err != nil {
		return err
	}
	if customer == nil {
		// the customer row may not be committed yet, fail so a redelivery retries
		return errors.Errorf("no local customer %s for checkout session %s", obj.Customer, obj.ID)
	}

	remoteID := string(obj.Subscription)
	return s.locker.withLock(remoteID, func() error {
		existing, err := store.FindSubscriptionByRemoteID(ctx, remoteID)
		if err != nil {
			return err
		}
		if existing != nil {
			log.Infof("Subscription %s is already reconciled", remoteID)
			return nil
		}

		sub, err := s.billing.Billable(customer).ReconcileSubscription(ctx,
			billing.DefaultSubscriptionName, remoteID, obj.ClientReferenceID)
		if err != nil {
			return errors.Wrapf(err, "failed to reconcile subscription %s", remoteID)
		}

		log.Infof("Reconciled subscription %s as local subscription %d", remoteID, sub.ID)
		return s.billing.AfterSubscriptionUpdate(ctx, customer)
	})
}
