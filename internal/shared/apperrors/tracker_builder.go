package apperrors

import (
	"github.com/golangci/golangci-billing/internal/shared/config"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
)

// GetTracker picks the first enabled tracking service: rollbar, then sentry.
func GetTracker(cfg config.Config, log logutil.Log, project string) Tracker {
	env := cfg.GetString("GO_ENV")

	switch {
	case cfg.GetBool("ROLLBAR_ENABLED", false):
		log.Infof("Tracking errors of %s (%s) in rollbar", project, env)
		return NewRollbarTracker(cfg.GetString("ROLLBAR_TOKEN"), project, env)
	case cfg.GetBool("SENTRY_ENABLED", false):
		t, err := NewSentryTracker(cfg.GetString("SENTRY_DSN"), project, env)
		if err != nil {
			log.Warnf("Can't make sentry error tracker, errors won't be tracked: %s", err)
			return NewNopTracker()
		}

		log.Infof("Tracking errors of %s (%s) in sentry", project, env)
		return t
	}

	return NewNopTracker()
}
