package app

import (
	"time"

	redigo "github.com/garyburd/redigo/redis"
	"github.com/golangci/golangci-billing/internal/api/paymentproviders"
	"github.com/golangci/golangci-billing/pkg/api/billing"
	"github.com/jinzhu/gorm"
)

type Modifier func(a *App)

func SetPaymentProviderFactory(pf paymentproviders.Factory) Modifier {
	return func(a *App) {
		a.paymentProviderFactory = pf
	}
}

func SetDB(db *gorm.DB) Modifier {
	return func(a *App) {
		a.gormDB = db
	}
}

func SetRedisPool(pool *redigo.Pool) Modifier {
	return func(a *App) {
		a.redisPool = pool
	}
}

// SetAfterSubscriptionUpdateHook sets the hook run after webhook driven
// subscription changes.
func SetAfterSubscriptionUpdateHook(h billing.Hook) Modifier {
	return func(a *App) {
		a.afterSubscriptionUpdate = h
	}
}

func SetClock(clock func() time.Time) Modifier {
	return func(a *App) {
		a.clock = clock
	}
}
