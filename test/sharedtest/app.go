package sharedtest

import (
	"net/http/httptest"
	"path"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gavv/httpexpect"
	"github.com/golang/mock/gomock"
	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/golangci/golangci-billing/internal/shared/db/redis"
	"github.com/golangci/golangci-billing/internal/shared/fsutil"
	app "github.com/golangci/golangci-billing/pkg/api"
	"github.com/golangci/golangci-billing/pkg/api/billing"
	"github.com/golangci/golangci-billing/pkg/api/models"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite" // sqlite3 driver for tests
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
)

var Now = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

type App struct {
	t *testing.T

	app      *app.App
	Provider *paymentprovider.MockProvider
	DB       *gorm.DB
	Redis    *miniredis.Miniredis
	E        *httpexpect.Expect

	hookCalls []uint
}

// RunApp builds the app on sqlite and miniredis with a mocked payment provider.
func RunApp(t *testing.T) *App {
	loadEnv(t)

	ctrl := gomock.NewController(t)
	provider := paymentprovider.NewMockProvider(ctrl)
	provider.EXPECT().Name().Return("stripe").AnyTimes()

	db, err := gorm.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate(&models.Customer{}, &models.Subscription{},
		&models.PaymentGatewayEvent{}).Error)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	ta := &App{
		t:        t,
		Provider: provider,
		DB:       db,
		Redis:    mr,
	}

	ta.app = app.NewApp(
		app.SetDB(db),
		app.SetRedisPool(redis.NewPool("redis://"+mr.Addr())),
		app.SetPaymentProviderFactory(newPaymentProviderFactory(provider)),
		app.SetClock(func() time.Time {
			return Now
		}),
		app.SetAfterSubscriptionUpdateHook(ta.afterSubscriptionUpdate),
	)

	server := httptest.NewServer(ta.app.GetHTTPHandler())
	t.Cleanup(server.Close)
	ta.E = httpexpect.New(t, server.URL)

	return ta
}

func (ta *App) Billing() *billing.Service {
	return ta.app.Billing()
}

func loadEnv(t *testing.T) {
	fpath := path.Join(fsutil.GetProjectRoot(), ".env.test")
	require.NoError(t, godotenv.Overload(fpath), "can't load %s", fpath)
}
