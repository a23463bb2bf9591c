package gormdb

import (
	"net/url"
	"strings"
	"time"

	"github.com/golangci/golangci-billing/internal/shared/config"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/jinzhu/gorm"
	_ "github.com/lib/pq" // init pg driver
	"github.com/pkg/errors"
)

// GetDBConnString returns DATABASE_URL or builds a postgres url from
// DATABASE_{HOST,USERNAME,PASSWORD,NAME,SSL_MODE}.
func GetDBConnString(cfg config.Config) (string, error) {
	if dbURL := cfg.GetString("DATABASE_URL"); dbURL != "" {
		// heroku style urls
		return strings.Replace(dbURL, "postgresql://", "postgres://", 1), nil
	}

	host := cfg.GetString("DATABASE_HOST")
	username := cfg.GetString("DATABASE_USERNAME")
	password := cfg.GetString("DATABASE_PASSWORD")
	name := cfg.GetString("DATABASE_NAME")
	if host == "" || username == "" || password == "" || name == "" {
		return "", errors.New("no DATABASE_URL or DATABASE_{HOST,USERNAME,PASSWORD,NAME} in config")
	}

	sslMode := cfg.GetString("DATABASE_SSL_MODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(username, password),
		Host:     host,
		Path:     "/" + name,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	return u.String(), nil
}

// GetDB opens the database, connString overrides the config one if set.
func GetDB(cfg config.Config, log logutil.Log, connString string) (*gorm.DB, error) {
	if connString == "" {
		var err error
		if connString, err = GetDBConnString(cfg); err != nil {
			return nil, err
		}
	}

	dialect := strings.SplitN(connString, "://", 2)[0]
	db, err := gorm.Open(dialect, connString)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %s db connection", dialect)
	}

	sqlDB := db.DB()
	sqlDB.SetMaxOpenConns(cfg.GetInt("DATABASE_MAX_OPEN_CONNS", 20))
	sqlDB.SetMaxIdleConns(cfg.GetInt("DATABASE_MAX_IDLE_CONNS", 5))
	sqlDB.SetConnMaxLifetime(cfg.GetDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute))

	if cfg.GetBool("DEBUG_DB", false) {
		log.Infof("Logging all %s queries", dialect)
		db = db.Debug()
	}
	db.SetLogger(logger{
		log: log.Child("db"),
	})

	return db, nil
}
