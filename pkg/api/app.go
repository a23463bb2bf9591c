package app

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	redigo "github.com/garyburd/redigo/redis"
	"github.com/golangci/golangci-billing/internal/api/paymentproviders"
	"github.com/golangci/golangci-billing/internal/api/transportutil"
	"github.com/golangci/golangci-billing/internal/shared/apperrors"
	"github.com/golangci/golangci-billing/internal/shared/config"
	"github.com/golangci/golangci-billing/internal/shared/db/gormdb"
	"github.com/golangci/golangci-billing/internal/shared/db/migrations"
	"github.com/golangci/golangci-billing/internal/shared/db/redis"
	"github.com/golangci/golangci-billing/internal/shared/fsutil"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/golangci/golangci-billing/internal/shared/money"
	"github.com/golangci/golangci-billing/pkg/api/billing"
	"github.com/golangci/golangci-billing/pkg/api/services/webhook"
	"github.com/gorilla/mux"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/urfave/negroni"
	redsync "gopkg.in/redsync.v1"
)

type appServices struct {
	webhook webhook.Service
}

type App struct {
	cfg                    config.Config
	log                    logutil.Log
	trackedLog             logutil.Log
	errTracker             apperrors.Tracker
	gormDB                 *gorm.DB
	services               appServices
	paymentProviderFactory paymentproviders.Factory
	distLockFactory        *redsync.Redsync
	redisPool              *redigo.Pool

	billing                 *billing.Service
	afterSubscriptionUpdate billing.Hook
	clock                   func() time.Time
}

func (a App) GetDB() *gorm.DB {
	return a.gormDB
}

// Billing gives access to subscription lifecycle operations of customers.
func (a App) Billing() *billing.Service {
	return a.billing
}

func (a *App) buildDeps() {
	if a.log == nil {
		slog := logutil.NewStderrLog("golangci-billing", strings.Split(os.Getenv("LOG_DEBUG_KEYS"), ",")...)
		slog.SetLevel(logutil.ParseLogLevel(os.Getenv("LOG_LEVEL"), logutil.LogLevelInfo))
		a.log = slog
	}

	if a.cfg == nil {
		a.cfg = config.NewEnvConfig(a.log)
	}

	if a.errTracker == nil {
		a.errTracker = apperrors.GetTracker(a.cfg, a.log, "billing")
	}
	if a.trackedLog == nil {
		a.trackedLog = apperrors.WrapLogWithTracker(a.log, nil, a.errTracker)
	}

	if a.gormDB == nil {
		gormDB, err := gormdb.GetDB(a.cfg, a.trackedLog, "")
		if err != nil {
			a.log.Fatalf("Can't get DB: %s", err)
		}
		a.gormDB = gormDB
	}

	if a.paymentProviderFactory == nil {
		a.paymentProviderFactory = paymentproviders.NewBasicFactory(a.trackedLog, a.cfg)
	}

	if a.redisPool == nil {
		redisPool, err := redis.GetPool(a.cfg)
		if err != nil {
			a.log.Fatalf("Can't get redis pool: %s", err)
		}
		a.redisPool = redisPool
	}
	a.distLockFactory = redsync.New([]redsync.Pool{a.redisPool})
}

func (a App) providerName() string {
	name := a.cfg.GetString("PAYMENT_PROVIDER")
	if name == "" {
		return "stripe"
	}

	return name
}

func (a App) buildBillingConfig() (*billing.Config, error) {
	cur := a.cfg.GetString("BILLING_CURRENCY")
	if cur == "" {
		cur = money.DefaultCurrency
	}
	currency, err := money.NewFormatter(cur, a.cfg.GetString("BILLING_CURRENCY_SYMBOL"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build currency formatter")
	}

	taxPercent := a.cfg.GetFloat("BILLING_TAX_PERCENT", 0)
	if taxPercent < 0 || taxPercent > 100 {
		return nil, errors.Errorf("BILLING_TAX_PERCENT %v is out of [0, 100]", taxPercent)
	}

	metadataAttributes, err := billing.ParseMetadataAttributes(a.cfg.GetString("BILLING_METADATA_ATTRIBUTES"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid BILLING_METADATA_ATTRIBUTES")
	}

	return &billing.Config{
		Currency:                currency,
		TaxPercent:              taxPercent,
		MetadataAttributes:      metadataAttributes,
		AfterSubscriptionUpdate: a.afterSubscriptionUpdate,
		Clock:                   a.clock,
	}, nil
}

func (a *App) buildServices() {
	provider, err := a.paymentProviderFactory.Build(a.providerName())
	if err != nil {
		a.log.Fatalf("Can't build payment provider: %s", err)
	}

	billingCfg, err := a.buildBillingConfig()
	if err != nil {
		a.log.Fatalf("Invalid billing config: %s", err)
	}

	a.billing, err = billing.NewService(provider, billing.NewGormStore(a.gormDB), a.trackedLog.Child("billing"), *billingCfg)
	if err != nil {
		a.log.Fatalf("Can't build billing service: %s", err)
	}

	verifier, err := a.paymentProviderFactory.BuildSignatureVerifier(a.providerName())
	if err != nil {
		a.log.Fatalf("Can't build webhook signature verifier: %s", err)
	}
	if verifier == nil {
		a.log.Warnf("Webhook signature verification is disabled")
	}

	locker := webhook.NewSubscriptionLocker(a.distLockFactory,
		a.cfg.GetInt("WEBHOOK_LOCK_TRIES", 32),
		a.cfg.GetDuration("WEBHOOK_LOCK_RETRY_DELAY", 500*time.Millisecond))
	a.services.webhook = webhook.NewBasicService(a.cfg, a.billing, verifier, locker)
}

func NewApp(modifiers ...Modifier) *App {
	a := App{}
	for _, m := range modifiers {
		m(&a)
	}
	a.buildDeps()
	a.buildServices()

	return &a
}

func (a App) registerHandlers(r *mux.Router) {
	regCtx := &transportutil.HandlerRegContext{
		Router:     r,
		Log:        a.log,
		ErrTracker: a.errTracker,
		DB:         a.gormDB,
		Cfg:        a.cfg,
	}
	webhook.RegisterHandlers(a.services.webhook, regCtx)

	r.Methods("GET").Path("/healthz").HandlerFunc(a.handleHealthCheck)
	r.Methods("GET").Path("/metrics").Handler(promhttp.Handler())
}

func (a App) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := a.gormDB.DB().Ping(); err != nil {
		a.trackedLog.Errorf("Health check: can't ping DB: %s", err)
		http.Error(w, "db is unavailable", http.StatusServiceUnavailable)
		return
	}

	_, _ = w.Write([]byte("ok"))
}

func (a App) runMigrations() {
	dbConnString, err := gormdb.GetDBConnString(a.cfg)
	if err != nil {
		a.log.Fatalf("Can't get DB conn string: %s", err)
	}

	runner := migrations.NewRunner(a.distLockFactory.NewMutex("migrations"), a.trackedLog,
		dbConnString, path.Join(fsutil.GetProjectRoot(), "migrations"))
	if err = runner.Run(); err != nil {
		a.log.Fatalf("Can't run migrations: %s", err)
	}
}

func (a App) RunEnvironment() {
	a.runMigrations()
}

func (a App) RunForever() {
	a.RunEnvironment()

	http.Handle("/", a.GetHTTPHandler())

	addr := fmt.Sprintf(":%d", a.cfg.GetInt("port", 3000))
	a.log.Infof("Listening on %s...", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		a.log.Errorf("Can't listen HTTP on %s: %s", addr, err)
		os.Exit(1)
	}
}

func (a App) GetHTTPHandler() http.Handler {
	r := mux.NewRouter()
	a.registerHandlers(r)

	n := negroni.Classic()
	// no origins means cors allows any, so the middleware is enabled only on demand
	if origins := a.cfg.GetStringList("CORS_ALLOWED_ORIGINS"); len(origins) != 0 {
		n.Use(cors.New(cors.Options{
			AllowedOrigins:   origins,
			AllowCredentials: true,
			AllowedMethods:   []string{"GET", "POST"},
		}))
	}
	n.UseHandler(r)
	return n
}
