package billing

import (
	"context"
	"strings"

	"github.com/golangci/golangci-billing/pkg/api/models"
	"github.com/jinzhu/gorm"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

type Store interface {
	SaveCustomer(ctx context.Context, c Customer) error
	// FindCustomerByRemoteID returns nil customer if there is no such customer
	FindCustomerByRemoteID(ctx context.Context, remoteID string) (Customer, error)

	// CreateSubscription returns ErrAlreadyReconciled if a row with the same
	// remote subscription id exists
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	SaveSubscription(ctx context.Context, sub *models.Subscription) error
	// FindSubscriptionByRemoteID returns nil subscription if there is no such row
	FindSubscriptionByRemoteID(ctx context.Context, remoteID string) (*models.Subscription, error)
	// ListSubscriptions returns subscriptions of the customer, newest first
	ListSubscriptions(ctx context.Context, customerID uint) ([]models.Subscription, error)
}

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s gormStore) SaveCustomer(_ context.Context, c Customer) error {
	if err := s.db.Save(c).Error; err != nil {
		return errors.Wrapf(err, "failed to save customer %d", c.GetID())
	}

	return nil
}

func (s gormStore) FindCustomerByRemoteID(_ context.Context, remoteID string) (Customer, error) {
	var c models.Customer
	err := s.db.Where("remote_customer_id = ?", remoteID).First(&c).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch customer with remote id %s", remoteID)
	}

	return &c, nil
}

func (s gormStore) CreateSubscription(_ context.Context, sub *models.Subscription) error {
	if err := s.db.Create(sub).Error; err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(ErrAlreadyReconciled, "remote subscription %s", sub.RemoteSubscriptionID)
		}
		return errors.Wrapf(err, "failed to create subscription %#v", sub)
	}

	return nil
}

func (s gormStore) SaveSubscription(_ context.Context, sub *models.Subscription) error {
	if err := s.db.Save(sub).Error; err != nil {
		return errors.Wrapf(err, "failed to save subscription %#v", sub)
	}

	return nil
}

func (s gormStore) FindSubscriptionByRemoteID(_ context.Context, remoteID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.Where("remote_subscription_id = ?", remoteID).First(&sub).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch subscription with remote id %s", remoteID)
	}

	return &sub, nil
}

func (s gormStore) ListSubscriptions(_ context.Context, customerID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.Where("customer_id = ?", customerID).
		Order("created_at DESC").Order("id DESC").
		Find(&subs).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list subscriptions of customer %d", customerID)
	}

	return subs, nil
}

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}

	// sqlite
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
