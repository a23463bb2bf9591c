package migrations

import (
	"fmt"

	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/mattes/migrate"
	_ "github.com/mattes/migrate/database/postgres" // init migrate pg driver
	_ "github.com/mattes/migrate/source/file"       // init file:// source
	"github.com/pkg/errors"
	redsync "gopkg.in/redsync.v1"
)

type Runner struct {
	distLock      *redsync.Mutex
	log           logutil.Log
	dbConnString  string
	migrationsDir string
}

func NewRunner(distLock *redsync.Mutex, log logutil.Log, dbConnString, migrationsDir string) *Runner {
	return &Runner{
		distLock:      distLock,
		log:           log,
		dbConnString:  dbConnString,
		migrationsDir: migrationsDir,
	}
}

func (r Runner) Run() error {
	// several instances may start at once: only one of them migrates
	if err := r.distLock.Lock(); err != nil {
		return errors.Wrap(err, "can't acquire dist lock")
	}
	defer r.distLock.Unlock()

	m, err := migrate.New(fmt.Sprintf("file://%s", r.migrationsDir), r.dbConnString)
	if err != nil {
		return errors.Wrap(err, "can't initialize migrations")
	}
	defer m.Close()

	if err = m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			r.log.Infof("Migrate: no ready to run migrations")
			return nil
		}

		return errors.Wrap(err, "can't execute migrations")
	}

	r.log.Infof("Successfully executed database migrations from %s", r.migrationsDir)
	return nil
}
