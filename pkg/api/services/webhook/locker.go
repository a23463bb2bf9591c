package webhook

import (
	"fmt"
	"time"

	"github.com/golangci/golangci-billing/internal/api/apierrors"
	"github.com/pkg/errors"
	redsync "gopkg.in/redsync.v1"
)

// SubscriptionLocker serializes webhook handling of one remote subscription
// across all instances.
type SubscriptionLocker struct {
	distLockFactory *redsync.Redsync
	tries           int
	retryDelay      time.Duration
}

func NewSubscriptionLocker(df *redsync.Redsync, tries int, retryDelay time.Duration) *SubscriptionLocker {
	return &SubscriptionLocker{
		distLockFactory: df,
		tries:           tries,
		retryDelay:      retryDelay,
	}
}

func lockName(remoteSubscriptionID string) string {
	return fmt.Sprintf("billing/subscription/%s", remoteSubscriptionID)
}

func (l *SubscriptionLocker) withLock(remoteSubscriptionID string, f func() error) error {
	if l == nil {
		return f()
	}

	mutex := l.distLockFactory.NewMutex(lockName(remoteSubscriptionID),
		redsync.SetTries(l.tries), redsync.SetRetryDelay(l.retryDelay))
	if err := mutex.Lock(); err != nil {
		return errors.Wrap(apierrors.NewRaceConditionError(
			fmt.Sprintf("subscription %s is being processed", remoteSubscriptionID)), err.Error())
	}
	defer mutex.Unlock()

	return f()
}
